package game

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoom_ConcurrentProposalsAreSerialized(t *testing.T) {
	tb := newTable(t, "ANA", "BEA", "CAL", "DOT")
	tb.dealt(t)
	require.NoError(t, tb.room.BeginOrdering(tb.host()))
	tb.resetSinks()

	ids := make([]string, len(tb.players))
	for i := range ids {
		ids[i] = tb.id(i)
	}

	const proposals = 64

	var (
		wg       sync.WaitGroup
		accepted atomic.Int64
	)

	for i := range proposals {
		wg.Add(1)
		go func() {
			defer wg.Done()

			by := ids[i%len(ids)]

			seq := append(append([]string{}, ids[i%len(ids):]...), ids[:i%len(ids)]...)
			if i%3 == 0 {
				seq = []string{ids[0], ids[0], ids[1], ids[2]}
			}

			switch err := tb.room.ProposeMove(by, seq); {
			case err == nil:
				accepted.Add(1)
			default:
				assert.ErrorIs(t, err, ErrInvalidPermutation)
			}
		}()
	}
	wg.Wait()

	want := int(accepted.Load())
	require.Positive(t, want)

	seq, rev, ok := tb.room.Order()
	require.True(t, ok)
	assert.Equal(t, want, rev)
	assert.ElementsMatch(t, ids, seq)

	var first []OrderUpdatedMessage
	for i, s := range tb.sinks {
		updates := ofType[OrderUpdatedMessage](s)
		require.Len(t, updates, want)

		for j, u := range updates {
			assert.Equal(t, j+1, u.Revision)
			assert.ElementsMatch(t, ids, u.Sequence)
		}
		assert.Equal(t, seq, updates[len(updates)-1].Sequence)

		if i == 0 {
			first = updates
			continue
		}
		assert.Equal(t, first, updates)
	}
}
