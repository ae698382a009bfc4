/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "slices"

// OrderState is the group's current guess at ascending value order.
// Proposals are applied last-write-wins in the order the room receives them;
// clients resync to every orderUpdated broadcast instead of merging drags.
type OrderState struct {
	sequence []string
	revision int
	frozen   bool
}

func newOrderState(joinOrder []string) *OrderState {
	return &OrderState{sequence: slices.Clone(joinOrder)}
}

func (o *OrderState) Sequence() []string {
	return slices.Clone(o.sequence)
}

func (o *OrderState) Revision() int {
	return o.revision
}

// propose replaces the sequence if proposed is a permutation of the current one.
// A rejected proposal leaves both sequence and revision untouched.
func (o *OrderState) propose(proposed []string) error {
	if o.frozen {
		return ErrRoundAlreadyRevealed
	}

	if !isPermutation(o.sequence, proposed) {
		return ErrInvalidPermutation
	}

	o.sequence = slices.Clone(proposed)
	o.revision++

	return nil
}

// drop removes a departed participant, reporting whether the sequence changed.
func (o *OrderState) drop(id string) bool {
	i := slices.Index(o.sequence, id)
	if i < 0 {
		return false
	}

	o.sequence = slices.Delete(o.sequence, i, i+1)
	o.revision++

	return true
}

func isPermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}

	want := make(map[string]bool, len(current))
	for _, id := range current {
		want[id] = true
	}

	seen := make(map[string]bool, len(proposed))
	for _, id := range proposed {
		if !want[id] || seen[id] {
			return false
		}
		seen[id] = true
	}

	return true
}

// RevealEntry pairs a position in the confirmed order with its true value.
type RevealEntry struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Value         int    `json:"value"`
}

// RevealResult is computed once per round and never mutated afterwards.
// Pairs[i] reports whether Entries[i] and Entries[i+1] are non-decreasing.
type RevealResult struct {
	Entries []RevealEntry `json:"entries"`
	Pairs   []bool        `json:"pairs"`
	InOrder bool          `json:"inOrder"`
}

func computeReveal(sequence []string, values map[string]int, names map[string]string) RevealResult {
	res := RevealResult{
		Entries: make([]RevealEntry, 0, len(sequence)),
		Pairs:   make([]bool, 0, max(len(sequence)-1, 0)),
		InOrder: true,
	}

	for i, id := range sequence {
		res.Entries = append(res.Entries, RevealEntry{
			ParticipantID: id,
			DisplayName:   names[id],
			Value:         values[id],
		})

		if i == 0 {
			continue
		}

		ok := values[sequence[i-1]] <= values[id]
		res.Pairs = append(res.Pairs, ok)
		if !ok {
			res.InOrder = false
		}
	}

	return res
}
