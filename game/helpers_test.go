package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recorder) Deliver(msg any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = append(r.msgs, msg)

	return true
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]any, len(r.msgs))
	copy(out, r.msgs)

	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.msgs = nil
}

func ofType[T any](r *recorder) []T {
	var out []T
	for _, m := range r.all() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}

	return out
}

type table struct {
	registry *Registry
	room     *Room
	players  []*Participant
	sinks    []*recorder
}

// newTable creates a room hosted by names[0] and joins the rest, in order.
func newTable(t *testing.T, names ...string) *table {
	t.Helper()

	tb := &table{registry: NewRegistry(WithSeed(7))}

	for i, name := range names {
		sink := &recorder{}
		p := NewParticipant("id-"+name, name, sink)

		var err error
		if i == 0 {
			tb.room, err = tb.registry.CreateRoom(p)
		} else {
			_, err = tb.registry.JoinRoom(tb.room.Code(), p)
		}
		require.NoError(t, err)

		tb.players = append(tb.players, p)
		tb.sinks = append(tb.sinks, sink)
	}

	return tb
}

func (tb *table) host() string {
	return tb.players[0].ID
}

func (tb *table) id(i int) string {
	return tb.players[i].ID
}

func (tb *table) resetSinks() {
	for _, s := range tb.sinks {
		s.reset()
	}
}

// dealt starts the game and a drawn-theme round.
func (tb *table) dealt(t *testing.T) {
	t.Helper()

	require.NoError(t, tb.room.StartGame(tb.host()))
	require.NoError(t, tb.room.StartRound(tb.host()))
}
