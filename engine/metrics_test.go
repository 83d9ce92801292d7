package engine

import (
	"testing"
	"time"

	"chronoguess/core"
)

func scored(score float64) core.RoundResult {
	return core.RoundResult{Score: score, AccuracyPercent: core.ScorePercent(score)}
}

func axes(loc, tm float64) core.RoundResult {
	return core.RoundResult{LocationXP: loc, TimeXP: tm, AccuracyPercent: core.RoundPercent(core.RoundXP(loc, tm))}
}

func TestSessionAccuracy(t *testing.T) {
	cases := []struct {
		name    string
		results []core.RoundResult
		want    int
	}{
		{"empty", nil, 0},
		{"scores", []core.RoundResult{scored(500), scored(700)}, 60},
		{"capped", []core.RoundResult{scored(1100), scored(1200)}, 100},
		{"axes", []core.RoundResult{axes(80, 60), axes(90, 40)}, 68},
		{"one perfect of five", []core.RoundResult{axes(100, 100), axes(0, 0), axes(0, 0), axes(0, 0), axes(0, 0)}, 20},
	}
	for _, c := range cases {
		if got := SessionAccuracy(c.results); got != c.want {
			t.Fatalf("%s: got %d want %d", c.name, got, c.want)
		}
	}
}

func TestSessionXP(t *testing.T) {
	if got := SessionXP([]core.RoundResult{scored(900), scored(700), scored(0)}); got != 1600 {
		t.Fatalf("got %v", got)
	}
	if got := SessionXP(nil); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func perfectRound(idx int) core.RoundResult {
	d := 0.0
	y := 1950
	return core.RoundResult{RoundIndex: idx, LocationXP: 100, TimeXP: 100, AccuracyPercent: 100, Score: 1000, DistanceKm: &d, GuessYear: &y, ActualYear: 1950}
}

func TestUpdateLifetimeMetricsFirstGame(t *testing.T) {
	d := 4.0
	y := 1960
	partial := core.RoundResult{LocationXP: 60, TimeXP: 20, AccuracyPercent: 40, Score: 400, DistanceKm: &d, GuessYear: &y, ActualYear: 1961}
	results := []core.RoundResult{perfectRound(0), partial}
	now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)

	m := UpdateLifetimeMetrics(core.NewUserMetrics(), results, SessionOutcome{CompletedAt: now})

	check := func(code core.RequirementCode, want float64) {
		t.Helper()
		if got := m.Get(code); got != want {
			t.Fatalf("%s = %v, want %v", code, got, want)
		}
	}
	check(core.ReqGamesPlayed, 1)
	check(core.ReqPerfectRounds, 1)
	check(core.ReqPerfectGames, 0)
	check(core.ReqWinStreak, 0)
	check(core.ReqTimeAccuracy, 30)     // (0 + (100+20)/2) / 2
	check(core.ReqLocationAccuracy, 40) // (0 + (100+60)/2) / 2
	check(core.ReqOverallAccuracy, 35)  // (0 + 70) / 2
	check(core.ReqXPTotal, 280)
	check(core.ReqYearBullseye, 1)
	check(core.ReqLocationBullseye, 2)
	check(core.ReqDailyStreak, 1)
	if !m.LastPlayedAt.Equal(now) {
		t.Fatalf("last played %v", m.LastPlayedAt)
	}
}

func TestUpdateLifetimeMetricsRunningAverage(t *testing.T) {
	existing := core.NewUserMetrics()
	existing.Set(core.ReqOverallAccuracy, 80)
	existing.Set(core.ReqGamesPlayed, 9)
	m := UpdateLifetimeMetrics(existing, []core.RoundResult{axes(40, 40)}, SessionOutcome{CompletedAt: time.Now()})
	if got := m.Get(core.ReqOverallAccuracy); got != 60 {
		t.Fatalf("overall accuracy %v, want (80+40)/2", got)
	}
	if existing.Get(core.ReqGamesPlayed) != 9 {
		t.Fatal("existing snapshot mutated")
	}
}

func TestUpdateLifetimeMetricsWinStreak(t *testing.T) {
	m := core.NewUserMetrics()
	all := []core.RoundResult{perfectRound(0), perfectRound(1)}
	m = UpdateLifetimeMetrics(m, all, SessionOutcome{})
	m = UpdateLifetimeMetrics(m, all, SessionOutcome{})
	if m.Get(core.ReqWinStreak) != 2 || m.Get(core.ReqPerfectGames) != 2 {
		t.Fatalf("streak %v perfect games %v", m.Get(core.ReqWinStreak), m.Get(core.ReqPerfectGames))
	}
	m = UpdateLifetimeMetrics(m, []core.RoundResult{axes(10, 10)}, SessionOutcome{})
	if m.Get(core.ReqWinStreak) != 0 {
		t.Fatalf("streak should reset, got %v", m.Get(core.ReqWinStreak))
	}
}

func TestDailyStreak(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	m := core.NewUserMetrics()
	play := func(at time.Time) {
		m = UpdateLifetimeMetrics(m, []core.RoundResult{axes(50, 50)}, SessionOutcome{CompletedAt: at})
	}
	play(day(1, 9))
	play(day(1, 22))
	if m.Get(core.ReqDailyStreak) != 1 {
		t.Fatalf("same day: %v", m.Get(core.ReqDailyStreak))
	}
	play(day(2, 0))
	play(day(3, 23))
	if m.Get(core.ReqDailyStreak) != 3 {
		t.Fatalf("consecutive days: %v", m.Get(core.ReqDailyStreak))
	}
	play(day(5, 12))
	if m.Get(core.ReqDailyStreak) != 1 {
		t.Fatalf("gap should reset: %v", m.Get(core.ReqDailyStreak))
	}
}

func TestRoundMetrics(t *testing.T) {
	m := RoundMetrics(perfectRound(0))
	if m.Get(core.ReqPerfectRounds) != 1 || m.Get(core.ReqYearBullseye) != 1 || m.Get(core.ReqLocationBullseye) != 1 {
		t.Fatalf("unexpected %+v", m.Values)
	}
	if m.Get(core.ReqGamesPlayed) != 0 {
		t.Fatal("round metrics must not count games")
	}
	empty := RoundMetrics(core.RoundResult{})
	if empty.Get(core.ReqYearBullseye) != 0 || empty.Get(core.ReqLocationBullseye) != 0 {
		t.Fatalf("empty round flagged bullseye: %+v", empty.Values)
	}
}

func TestGlobalStatsFrom(t *testing.T) {
	m := core.NewUserMetrics()
	m.Set(core.ReqOverallAccuracy, 72.5)
	m.Set(core.ReqXPTotal, 1234)
	m.Set(core.ReqGamesPlayed, 7)
	g := GlobalStatsFrom(m)
	if g.Accuracy != 72.5 || g.XP != 1234 || g.GamesPlayed != 7 {
		t.Fatalf("got %+v", g)
	}
}
