package analytics

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"chronoguess/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

// BadgeCount is one row of the top-badges report.
type BadgeCount struct {
	Badge   core.BadgeID `json:"badge"`
	Awarded int64        `json:"awarded"`
	Holders int          `json:"holders"`
}

// GameMetrics keeps in-process KPIs for the game: engagement, rounds, games,
// hints and badges, bucketed by UTC day.
type GameMetrics struct {
	mu sync.RWMutex

	dailyActiveUsers   map[string]map[core.UserID]struct{}
	weeklyActiveUsers  map[string]map[core.UserID]struct{}
	monthlyActiveUsers map[string]map[core.UserID]struct{}

	roundsByDay        map[string]int64
	perfectRoundsByDay map[string]int64
	gamesByDay         map[string]int64
	accuracySumByDay   map[string]float64
	hintsByDay         map[string]int64
	hintsByType        map[core.HintType]int64

	badgesByDay        map[string]int64
	badgesByID         map[core.BadgeID]int64
	uniqueBadgeHolders map[core.BadgeID]map[core.UserID]struct{}

	// rolling 24h counters
	realtime struct {
		rounds    int64
		games     int64
		badges    int64
		lastReset time.Time
	}
	now func() time.Time
}

func NewGameMetrics() *GameMetrics {
	gm := &GameMetrics{
		dailyActiveUsers:   make(map[string]map[core.UserID]struct{}),
		weeklyActiveUsers:  make(map[string]map[core.UserID]struct{}),
		monthlyActiveUsers: make(map[string]map[core.UserID]struct{}),
		roundsByDay:        make(map[string]int64),
		perfectRoundsByDay: make(map[string]int64),
		gamesByDay:         make(map[string]int64),
		accuracySumByDay:   make(map[string]float64),
		hintsByDay:         make(map[string]int64),
		hintsByType:        make(map[core.HintType]int64),
		badgesByDay:        make(map[string]int64),
		badgesByID:         make(map[core.BadgeID]int64),
		uniqueBadgeHolders: make(map[core.BadgeID]map[core.UserID]struct{}),
		now:                time.Now,
	}
	gm.realtime.lastReset = gm.now()
	return gm
}

func (gm *GameMetrics) OnEvent(e core.Event) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	day := dayKey(e.Time)
	gm.trackEngagement(e.UserID, day, weekKey(e.Time), monthKey(e.Time))

	switch e.Type {
	case core.EventRoundRecorded:
		if e.Replaced {
			break
		}
		gm.roundsByDay[day]++
		if e.Accuracy >= 100 {
			gm.perfectRoundsByDay[day]++
		}
		gm.realtime.rounds++
	case core.EventGameCompleted:
		gm.gamesByDay[day]++
		gm.accuracySumByDay[day] += e.Accuracy
		gm.realtime.games++
	case core.EventHintUsed:
		gm.hintsByDay[day]++
		gm.hintsByType[e.Hint]++
	case core.EventBadgeAwarded:
		if e.Badge == nil {
			break
		}
		id := e.Badge.ID
		gm.badgesByDay[day]++
		gm.badgesByID[id]++
		if gm.uniqueBadgeHolders[id] == nil {
			gm.uniqueBadgeHolders[id] = make(map[core.UserID]struct{})
		}
		gm.uniqueBadgeHolders[id][e.UserID] = struct{}{}
		gm.realtime.badges++
	}

	if gm.now().Sub(gm.realtime.lastReset) > 24*time.Hour {
		gm.realtime.rounds, gm.realtime.games, gm.realtime.badges = 0, 0, 0
		gm.realtime.lastReset = gm.now()
	}
}

func (gm *GameMetrics) trackEngagement(user core.UserID, day, week, month string) {
	add := func(m map[string]map[core.UserID]struct{}, key string) {
		if m[key] == nil {
			m[key] = make(map[core.UserID]struct{})
		}
		m[key][user] = struct{}{}
	}
	add(gm.dailyActiveUsers, day)
	add(gm.weeklyActiveUsers, week)
	add(gm.monthlyActiveUsers, month)
}

func (gm *GameMetrics) DailyActiveUsers(day string) int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.dailyActiveUsers[day])
}

func (gm *GameMetrics) WeeklyActiveUsers(week string) int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.weeklyActiveUsers[week])
}

func (gm *GameMetrics) MonthlyActiveUsers(month string) int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.monthlyActiveUsers[month])
}

// DayTotals is the per-day breakdown used by the aggregation engine.
type DayTotals struct {
	Rounds        int64
	PerfectRounds int64
	Games         int64
	AccuracySum   float64
	Hints         int64
	Badges        int64
}

func (gm *GameMetrics) Day(day string) DayTotals {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return DayTotals{
		Rounds:        gm.roundsByDay[day],
		PerfectRounds: gm.perfectRoundsByDay[day],
		Games:         gm.gamesByDay[day],
		AccuracySum:   gm.accuracySumByDay[day],
		Hints:         gm.hintsByDay[day],
		Badges:        gm.badgesByDay[day],
	}
}

func (gm *GameMetrics) HintsByType(t core.HintType) int64 {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.hintsByType[t]
}

func (gm *GameMetrics) UniqueBadgeHolders(id core.BadgeID) int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.uniqueBadgeHolders[id])
}

// RealtimeStats returns rounds, games and badges seen in the current 24h window.
func (gm *GameMetrics) RealtimeStats() (rounds, games, badges int64) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.realtime.rounds, gm.realtime.games, gm.realtime.badges
}

// TopBadges returns the most awarded badges, ties broken by ID.
func (gm *GameMetrics) TopBadges(limit int) []BadgeCount {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	out := make([]BadgeCount, 0, len(gm.badgesByID))
	for id, n := range gm.badgesByID {
		out = append(out, BadgeCount{Badge: id, Awarded: n, Holders: len(gm.uniqueBadgeHolders[id])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Awarded != out[j].Awarded {
			return out[i].Awarded > out[j].Awarded
		}
		return out[i].Badge < out[j].Badge
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dayKey(t time.Time) string { return t.UTC().Format("2006-01-02") }

func weekKey(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthKey(t time.Time) string { return t.UTC().Format("2006-01") }
