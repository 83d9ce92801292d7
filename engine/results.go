package engine

import (
	"slices"

	"chronoguess/core"
)

// RoundResultStore holds the results of the active session, at most one per
// round index. It is owned by a SessionManager and not safe for concurrent
// use on its own.
type RoundResultStore struct {
	rounds  int
	results map[int]core.RoundResult
}

func NewRoundResultStore(rounds int) *RoundResultStore {
	return &RoundResultStore{rounds: rounds, results: make(map[int]core.RoundResult, rounds)}
}

// Put writes r at its index, replacing any earlier result for that index.
func (s *RoundResultStore) Put(r core.RoundResult) error {
	if r.RoundIndex < 0 || r.RoundIndex >= s.rounds {
		return &core.InvalidRoundIndexError{Index: r.RoundIndex, Rounds: s.rounds}
	}
	s.results[r.RoundIndex] = r.Clone()
	return nil
}

func (s *RoundResultStore) Get(index int) (core.RoundResult, bool) {
	r, ok := s.results[index]
	if !ok {
		return core.RoundResult{}, false
	}
	return r.Clone(), true
}

func (s *RoundResultStore) Has(index int) bool {
	_, ok := s.results[index]
	return ok
}

// List returns the results ordered by round index.
func (s *RoundResultStore) List() []core.RoundResult {
	idx := make([]int, 0, len(s.results))
	for i := range s.results {
		idx = append(idx, i)
	}
	slices.Sort(idx)
	out := make([]core.RoundResult, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.results[i].Clone())
	}
	return out
}

func (s *RoundResultStore) Len() int { return len(s.results) }

// Reset clears all results and resizes the store.
func (s *RoundResultStore) Reset(rounds int) {
	s.rounds = rounds
	s.results = make(map[int]core.RoundResult, rounds)
}
