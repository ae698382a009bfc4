package game

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
	id   string
}

func newTestServer(t *testing.T, config GatewayConfig) (*httptest.Server, *Registry) {
	t.Helper()

	reg := NewRegistry(WithSeed(11))
	srv := httptest.NewServer(NewGateway(reg, config, zerolog.Nop()))
	t.Cleanup(srv.Close)

	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	c := &wsClient{t: t, conn: conn}
	c.id = expect[WelcomeMessage](c, "welcome").ParticipantID
	require.NotEmpty(t, c.id)

	return c
}

func (c *wsClient) send(msg ClientMessage) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsClient) sendRaw(data string) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

// expect reads until a message of the given type arrives and decodes it.
func expect[T any](c *wsClient, typ string) T {
	c.t.Helper()

	for {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))

		_, data, err := c.conn.ReadMessage()
		require.NoError(c.t, err, "waiting for %q", typ)

		var head struct {
			Type string `json:"type"`
		}
		require.NoError(c.t, json.Unmarshal(data, &head))

		if head.Type != typ {
			continue
		}

		var out T
		require.NoError(c.t, json.Unmarshal(data, &out))

		return out
	}
}

// setupRoom connects a host and a guest that have both joined one room.
func setupRoom(t *testing.T, srv *httptest.Server) (host, guest *wsClient, code string) {
	t.Helper()

	host = dial(t, srv)
	host.send(ClientMessage{Type: intentCreateRoom, DisplayName: "ana"})
	code = expect[RoomCreatedMessage](host, "roomCreated").RoomCode

	guest = dial(t, srv)
	guest.send(ClientMessage{Type: intentJoinRoom, RoomCode: strings.ToLower(code), DisplayName: "bea"})
	require.Equal(t, "ok", expect[JoinResultMessage](guest, "joinResult").Status)

	roster := expect[UpdateRoomMessage](host, "updateRoom")
	for len(roster.Roster) < 2 {
		roster = expect[UpdateRoomMessage](host, "updateRoom")
	}

	return host, guest, code
}

func TestGateway_RoundOverWebsocket(t *testing.T) {
	srv, _ := newTestServer(t, DefaultGatewayConfig())
	host, guest, code := setupRoom(t, srv)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: code})
	expect[GameStartedMessage](guest, "gameStarted")

	host.send(ClientMessage{Type: intentStartRound, RoomCode: code})
	hostTheme := expect[NewThemeMessage](host, "newTheme")
	guestTheme := expect[NewThemeMessage](guest, "newTheme")
	assert.Equal(t, hostTheme, guestTheme)

	hostCard := expect[YourCardMessage](host, "yourCard").Value
	guestCard := expect[YourCardMessage](guest, "yourCard").Value
	assert.NotEqual(t, hostCard, guestCard)

	guest.send(ClientMessage{Type: intentSubmitClue, RoomCode: code, Text: "warm"})
	for _, c := range []*wsClient{host, guest} {
		clue := expect[NewClueMessage](c, "newClue")
		assert.Equal(t, "BEA", clue.DisplayName)
		assert.Equal(t, "warm", clue.Text)
	}

	guest.send(ClientMessage{Type: intentProposeMove, RoomCode: code, Sequence: []string{host.id, guest.id}})
	first := expect[OrderUpdatedMessage](host, "orderUpdated")
	assert.Equal(t, 1, first.Revision)
	assert.Equal(t, []string{host.id, guest.id}, first.Sequence)

	host.send(ClientMessage{Type: intentProposeMove, RoomCode: code, Sequence: []string{guest.id, host.id}})
	second := expect[OrderUpdatedMessage](host, "orderUpdated")
	assert.Equal(t, 2, second.Revision)
	assert.Equal(t, []string{guest.id, host.id}, second.Sequence)

	host.send(ClientMessage{Type: intentConfirmOrder, RoomCode: code})
	reveal := expect[RevealResultMessage](guest, "revealResult")
	require.Len(t, reveal.Entries, 2)
	assert.Equal(t, RevealEntry{ParticipantID: guest.id, DisplayName: "BEA", Value: guestCard}, reveal.Entries[0])
	assert.Equal(t, RevealEntry{ParticipantID: host.id, DisplayName: "ANA", Value: hostCard}, reveal.Entries[1])
	assert.Equal(t, guestCard <= hostCard, reveal.InOrder)

	host.send(ClientMessage{Type: intentResetForNextRound, RoomCode: code})
	expect[NewRoundResetMessage](guest, "newRoundReset")
}

func TestGateway_RejectionsGoOnlyToSender(t *testing.T) {
	srv, reg := newTestServer(t, DefaultGatewayConfig())
	host, guest, code := setupRoom(t, srv)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: code})
	expect[GameStartedMessage](guest, "gameStarted")

	guest.send(ClientMessage{Type: intentStartRound, RoomCode: code})
	rejected := expect[ErrorMessage](guest, "error")
	assert.Equal(t, ErrorMessage{Type: "error", Intent: intentStartRound, Kind: "notHost"}, rejected)

	room, err := reg.Lookup(code)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingTheme, room.Phase())

	expect[GameStartedMessage](host, "gameStarted")
	assert.True(t, expect[UpdateRoomMessage](host, "updateRoom").Started)

	// The host's next message must be the round it starts, not the guest's error.
	host.send(ClientMessage{Type: intentStartRound, RoomCode: code})
	require.NoError(t, host.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := host.conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"newTheme"`)
}

func TestGateway_MalformedAndForeignIntents(t *testing.T) {
	srv, _ := newTestServer(t, DefaultGatewayConfig())
	host, _, code := setupRoom(t, srv)

	host.sendRaw("{not json")
	assert.Equal(t, "badRequest", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: "teleport", RoomCode: code})
	assert.Equal(t, "badRequest", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: intentStartGame})
	assert.Equal(t, "badRequest", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: "ZZZZ"})
	assert.Equal(t, "notInRoom", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: intentCreateRoom, DisplayName: "  "})
	assert.Equal(t, "badRequest", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: code})
	host.send(ClientMessage{Type: intentStartRound, RoomCode: code})
	expect[YourCardMessage](host, "yourCard")

	host.send(ClientMessage{Type: intentProposeMove, RoomCode: code})
	assert.Equal(t, "badRequest", expect[ErrorMessage](host, "error").Kind)

	host.send(ClientMessage{Type: intentProposeMove, RoomCode: code, Sequence: []string{host.id}})
	assert.Equal(t, "invalidPermutation", expect[ErrorMessage](host, "error").Kind)
}

func TestGateway_JoinResults(t *testing.T) {
	srv, _ := newTestServer(t, DefaultGatewayConfig())
	host, _, code := setupRoom(t, srv)

	late := dial(t, srv)
	late.send(ClientMessage{Type: intentJoinRoom, RoomCode: "QQQQ", DisplayName: "cal"})
	assert.Equal(t, "notFound", expect[JoinResultMessage](late, "joinResult").Status)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: code})
	expect[GameStartedMessage](host, "gameStarted")

	late.send(ClientMessage{Type: intentJoinRoom, RoomCode: code, DisplayName: "cal"})
	assert.Equal(t, "alreadyStarted", expect[JoinResultMessage](late, "joinResult").Status)
}

func TestGateway_HostDisconnectClosesRoom(t *testing.T) {
	srv, reg := newTestServer(t, DefaultGatewayConfig())
	host, guest, code := setupRoom(t, srv)

	require.NoError(t, host.conn.Close())

	closed := expect[RoomClosedMessage](guest, "roomClosed")
	assert.Equal(t, "hostLeft", closed.Reason)

	require.Eventually(t, func() bool {
		_, err := reg.Lookup(code)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	guest.send(ClientMessage{Type: intentSubmitClue, RoomCode: code, Text: "anyone?"})
	assert.Equal(t, "notFound", expect[ErrorMessage](guest, "error").Kind)
}

func TestGateway_GuestLeavingUpdatesRoster(t *testing.T) {
	srv, _ := newTestServer(t, DefaultGatewayConfig())
	host, guest, code := setupRoom(t, srv)

	guest.send(ClientMessage{Type: intentLeaveRoom, RoomCode: code})

	roster := expect[UpdateRoomMessage](host, "updateRoom")
	require.Len(t, roster.Roster, 1)
	assert.Equal(t, host.id, roster.Roster[0].ID)

	guest.send(ClientMessage{Type: intentSubmitClue, RoomCode: code, Text: "still here"})
	assert.Equal(t, "notInRoom", expect[ErrorMessage](guest, "error").Kind)
}

func TestGateway_RateLimit(t *testing.T) {
	config := DefaultGatewayConfig()
	config.RateLimit = 0.001
	config.RateBurst = 1

	srv, _ := newTestServer(t, config)
	c := dial(t, srv)

	c.send(ClientMessage{Type: intentCreateRoom, DisplayName: "ana"})
	expect[RoomCreatedMessage](c, "roomCreated")

	c.send(ClientMessage{Type: intentLeaveRoom})
	assert.Equal(t, "rateLimited", expect[ErrorMessage](c, "error").Kind)
}

func TestGateway_ProposeMoveReadsNewSequence(t *testing.T) {
	srv, _ := newTestServer(t, DefaultGatewayConfig())
	host, guest, code := setupRoom(t, srv)

	host.send(ClientMessage{Type: intentStartGame, RoomCode: code})
	host.send(ClientMessage{Type: intentStartRound, RoomCode: code})
	expect[YourCardMessage](guest, "yourCard")

	guest.sendRaw(`{"type":"proposeMove","roomCode":"` + code + `","newSequence":["` + guest.id + `","` + host.id + `"]}`)

	update := expect[OrderUpdatedMessage](host, "orderUpdated")
	assert.Equal(t, 1, update.Revision)
	assert.Equal(t, []string{guest.id, host.id}, update.Sequence)
}
