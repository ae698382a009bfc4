/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// GatewayConfig tunes the per-connection transport.
type GatewayConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	MaxMessageSize int64
	SendBuffer     int
	WriteTimeout   time.Duration
	PongWait       time.Duration
	PingInterval   time.Duration
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RateLimit:      5,
		RateBurst:      10,
		MaxMessageSize: 4096,
		SendBuffer:     64,
		WriteTimeout:   10 * time.Second,
		PongWait:       60 * time.Second,
		PingInterval:   30 * time.Second,
	}
}

// Gateway upgrades connections and routes their intents into the registry.
// Each connection is bound to a fresh participant id; intents always act as
// that id, whatever the payload claims.
type Gateway struct {
	registry *Registry
	config   GatewayConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewGateway(registry *Registry, config GatewayConfig, logger zerolog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: logger,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan any, g.config.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(g.config.RateLimit, g.config.RateBurst),
		gateway: g,
	}

	g.log.Debug().Str("participant", c.id).Str("remote", r.RemoteAddr).Msg("connected")

	c.Deliver(WelcomeMessage{
		Type:          "welcome",
		ParticipantID: c.id,
	})

	go c.writePump()
	c.readPump()
}

// Client is one websocket connection and the room it currently belongs to.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan any
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	gateway *Gateway

	// Owned by readPump.
	room *Room
}

// Deliver queues msg without blocking. A client whose buffer is full is
// disconnected rather than allowed to stall its room.
func (c *Client) Deliver(msg any) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.shutdown()
		return false
	}
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump() {
	defer func() {
		c.leave()
		c.shutdown()
		c.gateway.log.Debug().Str("participant", c.id).Msg("disconnected")
	}()

	c.conn.SetReadLimit(c.gateway.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.gateway.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.gateway.config.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reject("", ErrBadRequest)
			continue
		}

		if !c.limiter.Allow() {
			c.reject(msg.Type, ErrRateLimited)
			continue
		}

		if err := c.dispatch(msg); err != nil {
			c.gateway.log.Debug().Str("participant", c.id).Str("intent", msg.Type).Err(err).Msg("rejected")
			c.reject(msg.Type, err)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.gateway.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.gateway.config.WriteTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.gateway.config.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

func (c *Client) reject(intent string, err error) {
	c.Deliver(ErrorMessage{
		Type:   "error",
		Intent: intent,
		Kind:   Kind(err),
	})
}

func (c *Client) dispatch(msg ClientMessage) error {
	switch msg.Type {
	case intentCreateRoom:
		return c.createRoom(msg)
	case intentJoinRoom:
		return c.joinRoom(msg)
	case intentLeaveRoom:
		c.leave()
		return nil
	case intentStartGame, intentStartRound, intentSetCustomTheme, intentSubmitClue,
		intentBeginOrdering, intentProposeMove, intentConfirmOrder, intentResetForNextRound:
	default:
		return ErrBadRequest
	}

	room, err := c.boundRoom(msg.RoomCode)
	if err != nil {
		return err
	}

	switch msg.Type {
	case intentStartGame:
		return room.StartGame(c.id)
	case intentStartRound:
		return room.StartRound(c.id)
	case intentSetCustomTheme:
		return room.SetCustomTheme(c.id, msg.Title, msg.Low, msg.High)
	case intentSubmitClue:
		return room.SubmitClue(c.id, msg.Text)
	case intentBeginOrdering:
		return room.BeginOrdering(c.id)
	case intentProposeMove:
		if msg.Sequence == nil {
			return ErrBadRequest
		}
		return room.ProposeMove(c.id, msg.Sequence)
	case intentConfirmOrder:
		return room.ConfirmOrder(c.id)
	case intentResetForNextRound:
		return room.ResetForNextRound(c.id)
	}

	return ErrBadRequest
}

// boundRoom checks the payload's room code against the connection's own
// membership.
func (c *Client) boundRoom(code string) (*Room, error) {
	if code == "" {
		return nil, ErrBadRequest
	}

	code, ok := NormalizeCode(code)
	if !ok {
		return nil, ErrBadRequest
	}

	if c.room == nil || c.room.Code() != code {
		return nil, ErrNotInRoom
	}

	if c.room.Closed() {
		c.room = nil
		return nil, ErrRoomNotFound
	}

	return c.room, nil
}

func (c *Client) createRoom(msg ClientMessage) error {
	name, ok := NormalizeName(msg.DisplayName)
	if !ok {
		return ErrBadRequest
	}

	c.leave()

	room, err := c.gateway.registry.CreateRoom(NewParticipant(c.id, name, c))
	if err != nil {
		return err
	}
	c.room = room

	c.Deliver(RoomCreatedMessage{
		Type:          "roomCreated",
		RoomCode:      room.Code(),
		ParticipantID: c.id,
	})

	return nil
}

// joinRoom always answers with a joinResult; only malformed payloads surface
// as an error message.
func (c *Client) joinRoom(msg ClientMessage) error {
	name, ok := NormalizeName(msg.DisplayName)
	if !ok {
		return ErrBadRequest
	}

	code, ok := NormalizeCode(msg.RoomCode)
	if !ok {
		return ErrBadRequest
	}

	if c.room != nil && c.room.Code() == code && !c.room.Closed() {
		c.Deliver(JoinResultMessage{Type: "joinResult", Status: Kind(nil), RoomCode: code})
		return nil
	}

	target, err := c.gateway.registry.Lookup(code)
	if err == nil && target.Phase() != PhaseOpen {
		err = ErrRoomAlreadyStarted
	}

	var room *Room
	if err == nil {
		c.leave()
		room, err = c.gateway.registry.JoinRoom(code, NewParticipant(c.id, name, c))
	}

	if err != nil {
		c.Deliver(JoinResultMessage{Type: "joinResult", Status: Kind(err), RoomCode: code})
		return nil
	}

	c.room = room
	c.Deliver(JoinResultMessage{Type: "joinResult", Status: Kind(nil), RoomCode: code})

	return nil
}

func (c *Client) leave() {
	if c.room == nil {
		return
	}

	c.gateway.registry.Leave(c.room, c.id)
	c.room = nil
}
