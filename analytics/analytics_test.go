package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chronoguess/core"
)

func roundEvent(user core.UserID, at time.Time, accuracy float64) core.Event {
	ev := core.NewRoundRecorded(user, "s1", core.RoundResult{Score: accuracy * 10, AccuracyPercent: accuracy})
	ev.Time = at
	return ev
}

func TestGameMetrics_OnEvent(t *testing.T) {
	metrics := NewGameMetrics()
	now := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	metrics.OnEvent(roundEvent("alice", now, 100))
	metrics.OnEvent(roundEvent("alice", now, 40))
	hint := core.NewHintUsed("bob", "s2", 1, core.HintWhen)
	hint.Time = now
	metrics.OnEvent(hint)
	done := core.NewGameCompleted("alice", "s1", 70, 3500, 3500)
	done.Time = now
	metrics.OnEvent(done)
	badge := core.NewBadgeAwarded("alice", "s1", core.Badge{ID: "first_steps"})
	badge.Time = now
	metrics.OnEvent(badge)

	day := metrics.Day("2024-03-05")
	assert.Equal(t, int64(2), day.Rounds)
	assert.Equal(t, int64(1), day.PerfectRounds)
	assert.Equal(t, int64(1), day.Games)
	assert.Equal(t, 70.0, day.AccuracySum)
	assert.Equal(t, int64(1), day.Hints)
	assert.Equal(t, int64(1), day.Badges)

	assert.Equal(t, 2, metrics.DailyActiveUsers("2024-03-05"))
	assert.Equal(t, 2, metrics.WeeklyActiveUsers("2024-W10"))
	assert.Equal(t, 2, metrics.MonthlyActiveUsers("2024-03"))
	assert.Equal(t, int64(1), metrics.HintsByType(core.HintWhen))
	assert.Equal(t, 1, metrics.UniqueBadgeHolders("first_steps"))

	rounds, games, badges := metrics.RealtimeStats()
	assert.Equal(t, int64(2), rounds)
	assert.Equal(t, int64(1), games)
	assert.Equal(t, int64(1), badges)
}

func TestGameMetrics_TopBadges(t *testing.T) {
	metrics := NewGameMetrics()
	for _, b := range []struct {
		user core.UserID
		id   core.BadgeID
	}{{"a", "pinpoint"}, {"b", "pinpoint"}, {"a", "first_steps"}, {"c", "time_lord"}, {"c", "pinpoint"}} {
		metrics.OnEvent(core.NewBadgeAwarded(b.user, "s", core.Badge{ID: b.id}))
	}
	top := metrics.TopBadges(2)
	assert.Equal(t, []BadgeCount{
		{Badge: "pinpoint", Awarded: 3, Holders: 3},
		{Badge: "first_steps", Awarded: 1, Holders: 1},
	}, top)
}

func TestResubmittedRoundsNotCounted(t *testing.T) {
	metrics := NewGameMetrics()
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first := roundEvent("u", at, 40)
	again := core.NewRoundResubmitted("u", "s1", core.RoundResult{Score: 1000, AccuracyPercent: 100})
	again.Time = at
	metrics.OnEvent(first)
	metrics.OnEvent(again)
	day := metrics.Day("2024-01-01")
	assert.Equal(t, int64(1), day.Rounds)
	assert.Equal(t, int64(0), day.PerfectRounds)
	assert.Equal(t, 1, metrics.DailyActiveUsers("2024-01-01"))
}

func TestBridgeHook(t *testing.T) {
	a, b := NewGameMetrics(), NewGameMetrics()
	bridge := NewBridge(a, nil, b)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bridge.OnEvent(roundEvent("u", at, 10))
	assert.Equal(t, 1, a.DailyActiveUsers("2024-01-01"))
	assert.Equal(t, int64(1), b.Day("2024-01-01").Rounds)
}

func BenchmarkGameMetrics(b *testing.B) {
	metrics := NewGameMetrics()
	event := roundEvent("user123", time.Now(), 55)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.OnEvent(event)
	}
}
