/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Phase is a room's position in the round lifecycle.
type Phase int

const (
	PhaseOpen Phase = iota
	PhaseAwaitingTheme
	PhaseClues
	PhaseOrdering
	PhaseRevealed
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "open"
	case PhaseAwaitingTheme:
		return "awaitingTheme"
	case PhaseClues:
		return "clues"
	case PhaseOrdering:
		return "ordering"
	case PhaseRevealed:
		return "revealed"
	}
	return "unknown"
}

// Sink receives messages addressed to one participant. Deliver must not block.
type Sink interface {
	Deliver(msg any) bool
}

// Participant is a connection's membership in one room.
type Participant struct {
	ID   string
	Name string
	sink Sink
}

func NewParticipant(id, name string, sink Sink) *Participant {
	return &Participant{
		ID:   id,
		Name: name,
		sink: sink,
	}
}

// Clue is one submitted hint; Order starts at 1 within a round.
type Clue struct {
	ParticipantID string
	DisplayName   string
	Text          string
	Order         int
}

// Round holds one theme, one value distribution and one ordering cycle.
type Round struct {
	theme  Theme
	values map[string]int
	clues  []Clue
	order  *OrderState
	reveal *RevealResult
}

// Room is a single game session. Every exported method takes the room lock
// for its whole duration, so operations on one room form a single timeline.
type Room struct {
	mu sync.Mutex

	code       string
	hostID     string
	members    []*Participant // join order
	maxPlayers int

	started   bool
	phase     Phase
	round     *Round
	lastTheme *Theme
	closed    bool

	clock      clockwork.Clock
	lastActive time.Time
	rng        *rand.Rand
	log        zerolog.Logger
}

func newRoom(code string, host *Participant, maxPlayers int, clock clockwork.Clock, rng *rand.Rand, logger zerolog.Logger) *Room {
	return &Room{
		code:       code,
		hostID:     host.ID,
		members:    []*Participant{host},
		maxPlayers: maxPlayers,
		phase:      PhaseOpen,
		clock:      clock,
		lastActive: clock.Now(),
		rng:        rng,
		log:        logger.With().Str("room", code).Logger(),
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) HostID() string {
	return r.hostID
}

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.phase
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastActive
}

// Join adds p to the roster. Started, closed and full rooms reject it.
func (r *Room) Join(p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.closed:
		return ErrRoomNotFound
	case r.started:
		return ErrRoomAlreadyStarted
	case r.memberLocked(p.ID) != nil:
		return nil
	case len(r.members) >= r.maxPlayers:
		return ErrRoomFull
	}

	r.touchLocked()
	r.members = append(r.members, p)

	r.log.Debug().Str("participant", p.ID).Str("name", p.Name).Msg("joined")

	r.broadcastRosterLocked()

	return nil
}

// Leave removes the participant. It reports true when the room is now
// closed, either because the host left or nobody remains.
func (r *Room) Leave(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return true
	}

	i := slices.IndexFunc(r.members, func(p *Participant) bool { return p.ID == id })
	if i < 0 {
		return false
	}

	r.touchLocked()
	r.members = slices.Delete(r.members, i, i+1)

	r.log.Debug().Str("participant", id).Msg("left")

	if id == r.hostID {
		r.closeLocked("hostLeft")
		return true
	}

	if len(r.members) == 0 {
		r.closeLocked("empty")
		return true
	}

	if r.round != nil && r.round.reveal == nil {
		delete(r.round.values, id)
		if r.round.order != nil && r.round.order.drop(id) {
			r.broadcastOrderLocked()
		}
	}

	r.broadcastRosterLocked()

	return false
}

// Close tears the room down, telling every remaining member why.
func (r *Room) Close(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closeLocked(reason)
}

func (r *Room) closeLocked(reason string) {
	r.closed = true
	r.round = nil

	r.broadcastLocked(RoomClosedMessage{
		Type:   "roomClosed",
		Reason: reason,
	})

	r.members = nil

	r.log.Debug().Str("reason", reason).Msg("closed")
}

func (r *Room) StartGame(by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, true); err != nil {
		return err
	}

	if r.started {
		return nil
	}

	r.touchLocked()
	r.started = true
	r.phase = PhaseAwaitingTheme

	r.log.Debug().Msg("game started")

	r.broadcastLocked(GameStartedMessage{Type: "gameStarted"})
	r.broadcastRosterLocked()

	return nil
}

// StartRound draws a theme from the built-in pool and deals fresh values,
// replacing any round already in progress.
func (r *Room) StartRound(by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, true); err != nil {
		return err
	}

	if !r.started {
		return ErrNotStarted
	}

	if r.round != nil {
		r.broadcastLocked(NewRoundResetMessage{Type: "newRoundReset"})
	}

	r.dealLocked(drawTheme(r.rng, r.lastTheme))

	return nil
}

// SetCustomTheme deals a round on a host-supplied theme, stored verbatim.
// It is only accepted while no theme exists for the round.
func (r *Room) SetCustomTheme(by, title, low, high string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, true); err != nil {
		return err
	}

	if !r.started {
		return ErrNotStarted
	}

	if r.phase != PhaseAwaitingTheme {
		return ErrThemeAlreadySet
	}

	r.dealLocked(Theme{
		Title:  title,
		Low:    low,
		High:   high,
		Custom: true,
	})

	return nil
}

func (r *Room) dealLocked(theme Theme) {
	r.touchLocked()

	ids := r.memberIDsLocked()

	r.round = &Round{
		theme:  theme,
		values: drawValues(r.rng, ids),
	}
	r.phase = PhaseClues
	r.lastTheme = &theme

	r.log.Debug().Str("theme", theme.Title).Bool("custom", theme.Custom).Int("players", len(ids)).Msg("round dealt")

	r.broadcastLocked(NewThemeMessage{
		Type:  "newTheme",
		Theme: theme,
	})

	for _, p := range r.members {
		r.deliverLocked(p, YourCardMessage{
			Type:  "yourCard",
			Value: r.round.values[p.ID],
		})
	}
}

// SubmitClue logs and broadcasts a clue. Blank text is ignored; repeated
// clues from the same participant are each accepted.
func (r *Room) SubmitClue(by, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, false); err != nil {
		return err
	}

	if err := r.activeRoundLocked(); err != nil {
		return err
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	r.touchLocked()

	sender := r.memberLocked(by)
	clue := Clue{
		ParticipantID: by,
		DisplayName:   sender.Name,
		Text:          text,
		Order:         len(r.round.clues) + 1,
	}
	r.round.clues = append(r.round.clues, clue)

	r.broadcastLocked(NewClueMessage{
		Type:          "newClue",
		ParticipantID: clue.ParticipantID,
		DisplayName:   clue.DisplayName,
		Text:          clue.Text,
		Order:         clue.Order,
	})

	return nil
}

// BeginOrdering opens the shared order at join order. If it is already
// open the caller alone is resynced to the current order.
func (r *Room) BeginOrdering(by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, false); err != nil {
		return err
	}

	if err := r.activeRoundLocked(); err != nil {
		return err
	}

	if r.round.order != nil {
		r.deliverLocked(r.memberLocked(by), r.orderMessageLocked())
		return nil
	}

	r.touchLocked()
	r.beginOrderingLocked()
	r.broadcastOrderLocked()

	return nil
}

func (r *Room) beginOrderingLocked() {
	if r.round.order != nil {
		return
	}

	r.round.order = newOrderState(r.memberIDsLocked())
	r.phase = PhaseOrdering
}

// ProposeMove replaces the shared order with sequence. Any member may
// propose; concurrent proposals resolve last-write-wins by arrival.
func (r *Room) ProposeMove(by string, sequence []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, false); err != nil {
		return err
	}

	if err := r.activeRoundLocked(); err != nil {
		return err
	}

	if r.round.order == nil && !isPermutation(r.memberIDsLocked(), sequence) {
		return ErrInvalidPermutation
	}

	r.beginOrderingLocked()

	if err := r.round.order.propose(sequence); err != nil {
		return err
	}

	r.touchLocked()

	r.log.Debug().Str("participant", by).Int("revision", r.round.order.Revision()).Msg("order updated")

	r.broadcastOrderLocked()

	return nil
}

// ConfirmOrder freezes the order, scores it and discloses every value.
func (r *Room) ConfirmOrder(by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, true); err != nil {
		return err
	}

	if err := r.activeRoundLocked(); err != nil {
		return err
	}

	r.touchLocked()
	r.beginOrderingLocked()

	r.round.order.frozen = true

	names := make(map[string]string, len(r.members))
	for _, p := range r.members {
		names[p.ID] = p.Name
	}

	reveal := computeReveal(r.round.order.sequence, r.round.values, names)
	r.round.reveal = &reveal
	r.phase = PhaseRevealed

	r.log.Debug().Bool("inOrder", reveal.InOrder).Msg("order confirmed")

	r.broadcastLocked(RevealResultMessage{
		Type:         "revealResult",
		RevealResult: reveal,
	})

	return nil
}

// ResetForNextRound discards the current round so the host can pick a theme.
func (r *Room) ResetForNextRound(by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeLocked(by, true); err != nil {
		return err
	}

	if !r.started {
		return ErrNotStarted
	}

	r.touchLocked()
	r.round = nil
	r.phase = PhaseAwaitingTheme

	r.log.Debug().Msg("round reset")

	r.broadcastLocked(NewRoundResetMessage{Type: "newRoundReset"})

	return nil
}

// Reveal returns the stored result of the current round, if confirmed.
func (r *Room) Reveal() (RevealResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round == nil || r.round.reveal == nil {
		return RevealResult{}, false
	}

	return *r.round.reveal, true
}

// Order returns the shared sequence and its revision, if ordering has begun.
func (r *Room) Order() ([]string, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.round == nil || r.round.order == nil {
		return nil, 0, false
	}

	return r.round.order.Sequence(), r.round.order.Revision(), true
}

func (r *Room) Roster() []RosterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rosterLocked()
}

func (r *Room) authorizeLocked(by string, hostOnly bool) error {
	if r.closed {
		return ErrRoomNotFound
	}

	if r.memberLocked(by) == nil {
		return ErrNotInRoom
	}

	if hostOnly && by != r.hostID {
		return ErrNotHost
	}

	return nil
}

func (r *Room) activeRoundLocked() error {
	switch {
	case r.round == nil:
		return ErrNoRound
	case r.round.reveal != nil:
		return ErrRoundAlreadyRevealed
	}

	return nil
}

func (r *Room) touchLocked() {
	r.lastActive = r.clock.Now()
}

func (r *Room) memberLocked(id string) *Participant {
	for _, p := range r.members {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (r *Room) memberIDsLocked() []string {
	ids := make([]string, 0, len(r.members))
	for _, p := range r.members {
		ids = append(ids, p.ID)
	}

	return ids
}

func (r *Room) rosterLocked() []RosterEntry {
	roster := make([]RosterEntry, 0, len(r.members))
	for _, p := range r.members {
		roster = append(roster, RosterEntry{
			ID:          p.ID,
			DisplayName: p.Name,
			IsHost:      p.ID == r.hostID,
		})
	}

	return roster
}

func (r *Room) orderMessageLocked() OrderUpdatedMessage {
	return OrderUpdatedMessage{
		Type:     "orderUpdated",
		Sequence: r.round.order.Sequence(),
		Revision: r.round.order.Revision(),
	}
}

func (r *Room) broadcastOrderLocked() {
	r.broadcastLocked(r.orderMessageLocked())
}

func (r *Room) broadcastRosterLocked() {
	r.broadcastLocked(UpdateRoomMessage{
		Type:     "updateRoom",
		RoomCode: r.code,
		HostID:   r.hostID,
		Started:  r.started,
		Roster:   r.rosterLocked(),
	})
}

// broadcastLocked fans msg out to the roster as it stands right now.
func (r *Room) broadcastLocked(msg any) {
	for _, p := range r.members {
		r.deliverLocked(p, msg)
	}
}

func (r *Room) deliverLocked(p *Participant, msg any) {
	if p == nil || p.sink == nil {
		return
	}

	if !p.sink.Deliver(msg) {
		r.log.Warn().Str("participant", p.ID).Msg("dropped message for slow client")
	}
}
