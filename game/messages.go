/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// ClientMessage is every intent a client can send; unused fields are omitted.
type ClientMessage struct {
	Type        string   `json:"type"`                  // see the intent* constants
	RoomCode    string   `json:"roomCode,omitempty"`    // every intent except createRoom
	DisplayName string   `json:"displayName,omitempty"` // createRoom / joinRoom
	Title       string   `json:"title,omitempty"`       // setCustomTheme
	Low         string   `json:"low,omitempty"`         // setCustomTheme
	High        string   `json:"high,omitempty"`        // setCustomTheme
	Text        string   `json:"text,omitempty"`        // submitClue
	Sequence    []string `json:"newSequence,omitempty"` // proposeMove
}

const (
	intentCreateRoom        = "createRoom"
	intentJoinRoom          = "joinRoom"
	intentLeaveRoom         = "leaveRoom"
	intentStartGame         = "startGame"
	intentStartRound        = "startRound"
	intentSetCustomTheme    = "setCustomTheme"
	intentSubmitClue        = "submitClue"
	intentBeginOrdering     = "beginOrdering"
	intentProposeMove       = "proposeMove"
	intentConfirmOrder      = "confirmOrder"
	intentResetForNextRound = "resetForNextRound"
)

// WelcomeMessage is sent once per connection with its bound identity.
type WelcomeMessage struct {
	Type          string `json:"type"` // "welcome"
	ParticipantID string `json:"participantId"`
}

// RoomCreatedMessage acknowledges createRoom to its sender only.
type RoomCreatedMessage struct {
	Type          string `json:"type"` // "roomCreated"
	RoomCode      string `json:"roomCode"`
	ParticipantID string `json:"participantId"`
}

// JoinResultMessage acknowledges joinRoom; Status is "ok" or an error kind.
type JoinResultMessage struct {
	Type     string `json:"type"` // "joinResult"
	Status   string `json:"status"`
	RoomCode string `json:"roomCode,omitempty"`
}

// ErrorMessage reports a rejected intent to the originating client.
type ErrorMessage struct {
	Type   string `json:"type"` // "error"
	Intent string `json:"intent"`
	Kind   string `json:"kind"`
}

type RosterEntry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
}

// UpdateRoomMessage is broadcast on every membership change.
type UpdateRoomMessage struct {
	Type     string        `json:"type"` // "updateRoom"
	RoomCode string        `json:"roomCode"`
	HostID   string        `json:"hostId"`
	Started  bool          `json:"started"`
	Roster   []RosterEntry `json:"roster"`
}

type GameStartedMessage struct {
	Type string `json:"type"` // "gameStarted"
}

// NewThemeMessage is public; values travel separately as YourCardMessage.
type NewThemeMessage struct {
	Type string `json:"type"` // "newTheme"
	Theme
}

// YourCardMessage is unicast to the owner of Value and nobody else.
type YourCardMessage struct {
	Type  string `json:"type"` // "yourCard"
	Value int    `json:"value"`
}

type NewClueMessage struct {
	Type          string `json:"type"` // "newClue"
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Text          string `json:"text"`
	Order         int    `json:"order"`
}

// OrderUpdatedMessage carries the authoritative order; clients drop any
// local arrangement once a newer Revision arrives.
type OrderUpdatedMessage struct {
	Type     string   `json:"type"` // "orderUpdated"
	Sequence []string `json:"sequence"`
	Revision int      `json:"revision"`
}

type RevealResultMessage struct {
	Type string `json:"type"` // "revealResult"
	RevealResult
}

// NewRoundResetMessage tells clients to discard clue list, card, theme and
// submission flags.
type NewRoundResetMessage struct {
	Type string `json:"type"` // "newRoundReset"
}

// RoomClosedMessage is sent when the host leaves or the room is reaped.
type RoomClosedMessage struct {
	Type   string `json:"type"` // "roomClosed"
	Reason string `json:"reason"`
}
