package engine

import (
	"time"

	"github.com/samber/lo"

	"chronoguess/core"
)

// SessionOutcome carries what UpdateLifetimeMetrics needs beyond the results.
type SessionOutcome struct {
	CompletedAt time.Time
}

// SessionAccuracy is the mean of per-round accuracy percentages, each capped
// at 100, rounded to the nearest integer. No results yields 0.
func SessionAccuracy(results []core.RoundResult) int {
	return core.MeanAccuracy(lo.Map(results, func(r core.RoundResult, _ int) float64 {
		return r.AccuracyPercent
	}))
}

// SessionXP sums the post-penalty score of every result.
func SessionXP(results []core.RoundResult) float64 {
	return lo.SumBy(results, func(r core.RoundResult) float64 { return r.Score })
}

// SessionRoundXP sums location and time XP of every result (0..200 each).
func SessionRoundXP(results []core.RoundResult) float64 {
	return lo.SumBy(results, func(r core.RoundResult) float64 {
		return core.RoundXP(r.LocationXP, r.TimeXP)
	})
}

// axisMean averages one XP axis over the results.
func axisMean(results []core.RoundResult, axis func(core.RoundResult) float64) float64 {
	if len(results) == 0 {
		return 0
	}
	return lo.SumBy(results, axis) / float64(len(results))
}

// runningAverage blends the stored value with the new session value. Older
// history decays by half each game.
func runningAverage(existing, current float64) float64 {
	return (existing + current) / 2
}

// UpdateLifetimeMetrics folds one completed session into existing and returns
// the new snapshot. existing is not modified.
func UpdateLifetimeMetrics(existing core.UserMetrics, results []core.RoundResult, outcome SessionOutcome) core.UserMetrics {
	m := existing.Coerce()
	accuracy := SessionAccuracy(results)
	perfect := accuracy == 100

	m.Add(core.ReqGamesPlayed, 1)
	m.Add(core.ReqPerfectRounds, float64(lo.CountBy(results, core.RoundResult.IsPerfect)))
	if perfect {
		m.Add(core.ReqPerfectGames, 1)
		m.Add(core.ReqWinStreak, 1)
	} else {
		m.Set(core.ReqWinStreak, 0)
	}

	timeAcc := axisMean(results, func(r core.RoundResult) float64 { return r.TimeXP })
	locAcc := axisMean(results, func(r core.RoundResult) float64 { return r.LocationXP })
	m.Set(core.ReqTimeAccuracy, runningAverage(m.Get(core.ReqTimeAccuracy), timeAcc))
	m.Set(core.ReqLocationAccuracy, runningAverage(m.Get(core.ReqLocationAccuracy), locAcc))
	m.Set(core.ReqOverallAccuracy, runningAverage(m.Get(core.ReqOverallAccuracy), float64(accuracy)))

	m.Add(core.ReqXPTotal, SessionRoundXP(results))
	m.Add(core.ReqYearBullseye, float64(lo.CountBy(results, core.RoundResult.IsYearBullseye)))
	m.Add(core.ReqLocationBullseye, float64(lo.CountBy(results, core.RoundResult.IsLocationBullseye)))

	completed := outcome.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	m.Set(core.ReqDailyStreak, nextDailyStreak(m.Get(core.ReqDailyStreak), existing.LastPlayedAt, completed))
	m.LastPlayedAt = completed.UTC()
	return m
}

// nextDailyStreak extends the streak when the previous game was on the
// previous UTC day and keeps it within the same day.
func nextDailyStreak(streak float64, last, now time.Time) float64 {
	if last.IsZero() {
		return 1
	}
	lastDay := utcDay(last)
	today := utcDay(now)
	switch {
	case today.Equal(lastDay):
		return max(streak, 1)
	case today.Equal(lastDay.AddDate(0, 0, 1)):
		return streak + 1
	default:
		return 1
	}
}

func utcDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RoundMetrics is the synthetic snapshot for one just-completed round, used
// for the immediate round-scoped badge check.
func RoundMetrics(r core.RoundResult) core.UserMetrics {
	m := core.NewUserMetrics()
	m.Set(core.ReqTimeAccuracy, r.TimeXP)
	m.Set(core.ReqLocationAccuracy, r.LocationXP)
	m.Set(core.ReqOverallAccuracy, r.AccuracyPercent)
	if r.IsPerfect() {
		m.Set(core.ReqPerfectRounds, 1)
	}
	if r.IsYearBullseye() {
		m.Set(core.ReqYearBullseye, 1)
	}
	if r.IsLocationBullseye() {
		m.Set(core.ReqLocationBullseye, 1)
	}
	return m
}

// GlobalStats is the lifetime view read straight from the persisted snapshot.
type GlobalStats struct {
	Accuracy    float64 `json:"accuracy"`
	XP          float64 `json:"xp"`
	GamesPlayed int     `json:"games_played"`
}

func GlobalStatsFrom(m core.UserMetrics) GlobalStats {
	return GlobalStats{
		Accuracy:    m.Get(core.ReqOverallAccuracy),
		XP:          m.Get(core.ReqXPTotal),
		GamesPlayed: int(m.Get(core.ReqGamesPlayed)),
	}
}
