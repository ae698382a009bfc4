/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "errors"

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrRoomAlreadyStarted   = errors.New("room already started")
	ErrRoomFull             = errors.New("room is full")
	ErrNotHost              = errors.New("only the host may do that")
	ErrNotStarted           = errors.New("game has not started")
	ErrThemeAlreadySet      = errors.New("theme already chosen for this round")
	ErrNoRound              = errors.New("no round in progress")
	ErrInvalidPermutation   = errors.New("sequence is not a permutation of the round's participants")
	ErrRoundAlreadyRevealed = errors.New("round already revealed")
	ErrNotInRoom            = errors.New("not a member of that room")
	ErrBadRequest           = errors.New("malformed request")
	ErrRateLimited          = errors.New("too many messages")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrRoomNotFound, "notFound"},
	{ErrRoomAlreadyStarted, "alreadyStarted"},
	{ErrRoomFull, "full"},
	{ErrNotHost, "notHost"},
	{ErrNotStarted, "notStarted"},
	{ErrThemeAlreadySet, "themeAlreadySet"},
	{ErrNoRound, "noRound"},
	{ErrInvalidPermutation, "invalidPermutation"},
	{ErrRoundAlreadyRevealed, "alreadyRevealed"},
	{ErrNotInRoom, "notInRoom"},
	{ErrBadRequest, "badRequest"},
	{ErrRateLimited, "rateLimited"},
}

// Kind returns the wire name clients use to render a specific message for err.
// Nil maps to "ok"; anything unrecognised is reported as "internal".
func Kind(err error) string {
	if err == nil {
		return "ok"
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return "internal"
}
