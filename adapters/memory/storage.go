package memory

import (
	"context"
	"fmt"
	"sync"

	"chronoguess/core"
)

// Store is a concurrent in-memory Storage implementation.
type Store struct {
	users sync.Map // map[core.UserID]*userRecord

	mu        sync.Mutex
	rounds    map[core.SessionID]map[int]core.RoundResult
	completed map[core.SessionID]core.SessionSummary
}

type userRecord struct {
	mu      sync.Mutex
	metrics *core.UserMetrics
	badges  core.EarnedSet
}

func New() *Store {
	return &Store{
		rounds:    map[core.SessionID]map[int]core.RoundResult{},
		completed: map[core.SessionID]core.SessionSummary{},
	}
}

func (s *Store) getOrCreate(user core.UserID) *userRecord {
	if v, ok := s.users.Load(user); ok {
		return v.(*userRecord)
	}
	actual, _ := s.users.LoadOrStore(user, &userRecord{badges: core.NewEarnedSet()})
	return actual.(*userRecord)
}

func (s *Store) SaveRoundResult(_ context.Context, session core.SessionID, _ core.UserID, result core.RoundResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rounds[session] == nil {
		s.rounds[session] = map[int]core.RoundResult{}
	}
	s.rounds[session][result.RoundIndex] = result.Clone()
	return nil
}

func (s *Store) LoadRoundResult(_ context.Context, session core.SessionID, roundIndex int) (core.RoundResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rounds[session][roundIndex]
	if !ok {
		return core.RoundResult{}, fmt.Errorf("round %d of %s: %w", roundIndex+1, session, core.ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *Store) MarkSessionComplete(_ context.Context, summary core.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed[summary.SessionID] = summary
	return nil
}

// Completed returns the summary recorded for session, if any.
func (s *Store) Completed(session core.SessionID) (core.SessionSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.completed[session]
	return sum, ok
}

func (s *Store) GetMetrics(_ context.Context, user core.UserID) (core.UserMetrics, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.metrics == nil {
		return core.UserMetrics{}, fmt.Errorf("metrics for %s: %w", user, core.ErrNotFound)
	}
	return rec.metrics.Clone(), nil
}

func (s *Store) SaveMetrics(_ context.Context, user core.UserID, metrics core.UserMetrics) error {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	m := metrics.Clone()
	rec.metrics = &m
	return nil
}

func (s *Store) EarnedBadges(_ context.Context, user core.UserID) (core.EarnedSet, error) {
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.badges.Clone(), nil
}

func (s *Store) AwardBadge(_ context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	if err := core.ValidateBadgeID(badge); err != nil {
		return false, err
	}
	rec := s.getOrCreate(user)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.badges.Add(badge), nil
}

var _ interface {
	SaveRoundResult(context.Context, core.SessionID, core.UserID, core.RoundResult) error
	LoadRoundResult(context.Context, core.SessionID, int) (core.RoundResult, error)
	MarkSessionComplete(context.Context, core.SessionSummary) error
	GetMetrics(context.Context, core.UserID) (core.UserMetrics, error)
	SaveMetrics(context.Context, core.UserID, core.UserMetrics) error
	EarnedBadges(context.Context, core.UserID) (core.EarnedSet, error)
	AwardBadge(context.Context, core.UserID, core.BadgeID) (bool, error)
} = (*Store)(nil)
