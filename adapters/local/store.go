// Package local implements device-local storage on a flat key-value store:
// guest metrics and badges plus the fallback snapshot of raw guesses.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"chronoguess/core"
)

// KeyValue is the minimal device-local store. Get returns core.ErrNotFound
// for absent keys.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store lays the local key layout over a KeyValue.
type Store struct {
	kv KeyValue
	mu sync.Mutex // serializes read-modify-write of badge sets
}

func New(kv KeyValue) *Store {
	if kv == nil {
		kv = NewMemoryKV()
	}
	return &Store{kv: kv}
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	b, err := s.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, key, b)
}

func (s *Store) SaveRoundResult(ctx context.Context, session core.SessionID, _ core.UserID, result core.RoundResult) error {
	return s.setJSON(ctx, core.RoundResultKey(session, result.RoundIndex), result)
}

func (s *Store) LoadRoundResult(ctx context.Context, session core.SessionID, roundIndex int) (core.RoundResult, error) {
	var r core.RoundResult
	if err := s.getJSON(ctx, core.RoundResultKey(session, roundIndex), &r); err != nil {
		return core.RoundResult{}, err
	}
	return r, nil
}

func (s *Store) MarkSessionComplete(ctx context.Context, summary core.SessionSummary) error {
	return s.setJSON(ctx, core.SessionCompleteKey(summary.SessionID), summary)
}

// SessionSummary returns what MarkSessionComplete stored.
func (s *Store) SessionSummary(ctx context.Context, session core.SessionID) (core.SessionSummary, error) {
	var sum core.SessionSummary
	err := s.getJSON(ctx, core.SessionCompleteKey(session), &sum)
	return sum, err
}

func (s *Store) GetMetrics(ctx context.Context, user core.UserID) (core.UserMetrics, error) {
	var m core.UserMetrics
	if err := s.getJSON(ctx, core.MetricsKey(user), &m); err != nil {
		return core.UserMetrics{}, err
	}
	return m.Coerce(), nil
}

func (s *Store) SaveMetrics(ctx context.Context, user core.UserID, metrics core.UserMetrics) error {
	m := metrics.Clone()
	m.Version = core.MetricsVersion
	return s.setJSON(ctx, core.MetricsKey(user), m)
}

func (s *Store) EarnedBadges(ctx context.Context, user core.UserID) (core.EarnedSet, error) {
	var ids []core.BadgeID
	if err := s.getJSON(ctx, core.BadgesKey(user), &ids); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.NewEarnedSet(), nil
		}
		return nil, err
	}
	return core.NewEarnedSet(ids...), nil
}

func (s *Store) AwardBadge(ctx context.Context, user core.UserID, badge core.BadgeID) (bool, error) {
	if err := core.ValidateBadgeID(badge); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	earned, err := s.EarnedBadges(ctx, user)
	if err != nil {
		return false, err
	}
	if !earned.Add(badge) {
		return false, nil
	}
	if err := s.setJSON(ctx, core.BadgesKey(user), earned.IDs()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SaveFallbackGuess(ctx context.Context, session core.SessionID, roundIndex int, guess core.FallbackGuess) error {
	return s.setJSON(ctx, core.FallbackGuessKey(session, roundIndex), guess)
}

func (s *Store) LoadFallbackGuess(ctx context.Context, session core.SessionID, roundIndex int) (core.FallbackGuess, error) {
	var g core.FallbackGuess
	if err := s.getJSON(ctx, core.FallbackGuessKey(session, roundIndex), &g); err != nil {
		return core.FallbackGuess{}, err
	}
	return g, nil
}
