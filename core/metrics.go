package core

import (
	"math"
	"time"
)

// RequirementCode names a cumulative metric a badge can be gated on.
type RequirementCode string

const (
	ReqGamesPlayed      RequirementCode = "games_played"
	ReqPerfectRounds    RequirementCode = "perfect_rounds"
	ReqPerfectGames     RequirementCode = "perfect_games"
	ReqTimeAccuracy     RequirementCode = "time_accuracy"
	ReqLocationAccuracy RequirementCode = "location_accuracy"
	ReqOverallAccuracy  RequirementCode = "overall_accuracy"
	ReqWinStreak        RequirementCode = "win_streak"
	ReqDailyStreak      RequirementCode = "daily_streak"
	ReqXPTotal          RequirementCode = "xp_total"
	ReqYearBullseye     RequirementCode = "year_bullseye"
	ReqLocationBullseye RequirementCode = "location_bullseye"
)

// RequirementCodes is the closed set of metric keys.
var RequirementCodes = []RequirementCode{
	ReqGamesPlayed,
	ReqPerfectRounds,
	ReqPerfectGames,
	ReqTimeAccuracy,
	ReqLocationAccuracy,
	ReqOverallAccuracy,
	ReqWinStreak,
	ReqDailyStreak,
	ReqXPTotal,
	ReqYearBullseye,
	ReqLocationBullseye,
}

// Valid reports whether c belongs to the closed set.
func (c RequirementCode) Valid() bool {
	for _, known := range RequirementCodes {
		if c == known {
			return true
		}
	}
	return false
}

// MetricsVersion is the current schema version of persisted UserMetrics.
const MetricsVersion = 1

// UserMetrics is a user's cumulative history. It is mutated only at round
// and game boundaries.
type UserMetrics struct {
	Version      int                         `json:"version"`
	Values       map[RequirementCode]float64 `json:"values"`
	LastPlayedAt time.Time                   `json:"last_played_at,omitempty"`
}

// NewUserMetrics returns a zeroed snapshot with every code present.
func NewUserMetrics() UserMetrics {
	m := UserMetrics{Version: MetricsVersion, Values: make(map[RequirementCode]float64, len(RequirementCodes))}
	for _, c := range RequirementCodes {
		m.Values[c] = 0
	}
	return m
}

// Get returns the value for code, zero when absent.
func (m UserMetrics) Get(code RequirementCode) float64 {
	return m.Values[code]
}

// Set stores v under code, allocating the map when needed.
func (m *UserMetrics) Set(code RequirementCode, v float64) {
	if m.Values == nil {
		m.Values = make(map[RequirementCode]float64, len(RequirementCodes))
	}
	m.Values[code] = v
}

// Add increments code by delta.
func (m *UserMetrics) Add(code RequirementCode, delta float64) {
	m.Set(code, m.Get(code)+delta)
}

// Clone returns a deep copy.
func (m UserMetrics) Clone() UserMetrics {
	cp := UserMetrics{Version: m.Version, LastPlayedAt: m.LastPlayedAt, Values: make(map[RequirementCode]float64, len(m.Values))}
	for k, v := range m.Values {
		cp.Values[k] = v
	}
	return cp
}

// Coerce validates a snapshot read from an external store: unknown codes are
// dropped, missing ones zeroed, and non-finite or negative values reset to 0.
func (m UserMetrics) Coerce() UserMetrics {
	out := NewUserMetrics()
	out.LastPlayedAt = m.LastPlayedAt
	for _, c := range RequirementCodes {
		v, ok := m.Values[c]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			continue
		}
		out.Values[c] = v
	}
	return out
}
