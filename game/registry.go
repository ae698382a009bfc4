/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/rand"
	mrand "math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const (
	MinCodeLength = 4
	MaxCodeLength = 6
	MaxPlayers    = maxValue - minValue + 1

	maxNameLength = 24

	// No 0/O or 1/I; 32 symbols keeps byte%len unbiased.
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Registry owns the code → room mapping. Its lock guards only the map and is
// never held while a room processes an intent.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	codeLength  int
	maxPlayers  int
	idleTimeout time.Duration

	clock   clockwork.Clock
	log     zerolog.Logger
	newRand func() *mrand.Rand
	newCode func(length int) string
}

type Option func(*Registry)

func WithCodeLength(n int) Option {
	return func(r *Registry) {
		r.codeLength = min(max(n, MinCodeLength), MaxCodeLength)
	}
}

func WithMaxPlayers(n int) Option {
	return func(r *Registry) {
		r.maxPlayers = min(max(n, 1), MaxPlayers)
	}
}

// WithIdleTimeout sets how long a room may sit untouched before Run reaps it.
// Zero disables reaping.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.idleTimeout = d
	}
}

func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// WithSeed makes theme and value draws reproducible. Each new room gets its
// own generator derived from seed and the room's creation index.
func WithSeed(seed uint64) Option {
	return func(r *Registry) {
		var n uint64
		r.newRand = func() *mrand.Rand {
			n++
			return mrand.New(mrand.NewPCG(seed, n))
		}
	}
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		rooms:      make(map[string]*Room),
		codeLength: MinCodeLength,
		maxPlayers: 12,
		clock:      clockwork.NewRealClock(),
		log:        zerolog.Nop(),
		newRand: func() *mrand.Rand {
			return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
		},
		newCode: randomCode,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// randomCode draws a code from crypto/rand.
func randomCode(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}

	out := make([]byte, length)
	for i := range out {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(out)
}

// NormalizeCode canonicalises user-typed room codes, reporting whether the
// result is even shaped like one.
func NormalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))

	if len(code) < MinCodeLength || len(code) > MaxCodeLength {
		return "", false
	}

	for _, c := range code {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return "", false
		}
	}

	return code, true
}

// NormalizeName trims and upper-cases a display name.
func NormalizeName(name string) (string, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))

	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", false
	}

	return name, true
}

// CreateRoom registers a new room with host as its only member.
func (r *Registry) CreateRoom(host *Participant) (*Room, error) {
	if host == nil || host.ID == "" || host.Name == "" {
		return nil, ErrBadRequest
	}

	r.mu.Lock()

	var code string
	for {
		code = r.newCode(r.codeLength)
		if _, exists := r.rooms[code]; !exists {
			break
		}
	}

	room := newRoom(code, host, r.maxPlayers, r.clock, r.newRand(), r.log)
	r.rooms[code] = room
	count := len(r.rooms)

	r.mu.Unlock()

	r.log.Info().Str("room", code).Str("host", host.Name).Int("rooms", count).Msg("room created")

	room.mu.Lock()
	room.broadcastRosterLocked()
	room.mu.Unlock()

	return room, nil
}

func (r *Registry) Lookup(code string) (*Room, error) {
	code, ok := NormalizeCode(code)
	if !ok {
		return nil, ErrRoomNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return room, nil
}

func (r *Registry) JoinRoom(code string, p *Participant) (*Room, error) {
	if p == nil || p.ID == "" || p.Name == "" {
		return nil, ErrBadRequest
	}

	room, err := r.Lookup(code)
	if err != nil {
		return nil, err
	}

	if err := room.Join(p); err != nil {
		return nil, err
	}

	return room, nil
}

// Leave removes the participant from room, dropping the room from the
// registry once it has closed.
func (r *Registry) Leave(room *Room, id string) {
	if room == nil {
		return
	}

	if room.Leave(id) {
		r.remove(room)
	}
}

func (r *Registry) remove(room *Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.rooms[room.code]; ok && current == room {
		delete(r.rooms, room.code)
		r.log.Info().Str("room", room.code).Int("rooms", len(r.rooms)).Msg("room removed")
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}

// Run reaps idle rooms until ctx is done. It returns immediately when no
// idle timeout is configured.
func (r *Registry) Run(ctx context.Context) {
	if r.idleTimeout <= 0 {
		return
	}

	ticker := r.clock.NewTicker(r.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.reap()
		}
	}
}

func (r *Registry) reap() {
	cutoff := r.clock.Now().Add(-r.idleTimeout)

	r.mu.Lock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.Unlock()

	var idle []*Room
	for _, room := range rooms {
		if room.idleSince().Before(cutoff) {
			idle = append(idle, room)
		}
	}

	if len(idle) == 0 {
		return
	}

	r.mu.Lock()
	for _, room := range idle {
		if current, ok := r.rooms[room.code]; ok && current == room {
			delete(r.rooms, room.code)
		}
	}
	r.mu.Unlock()

	for _, room := range idle {
		r.log.Info().Str("room", room.code).Msg("reaping idle room")
		room.Close("idle")
	}
}
