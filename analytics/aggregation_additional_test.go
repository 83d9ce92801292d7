package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"chronoguess/core"
)

func TestAggregationEngineWeeklyMonthly(t *testing.T) {
	metrics := NewGameMetrics()
	ae := NewAggregationEngine(metrics, time.Hour, nil)

	base := time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC) // Wednesday
	ae.OnEvent(roundEvent("alice", base, 100))
	ae.OnEvent(roundEvent("bob", base.AddDate(0, 0, 1), 20)) // Thu
	for i, acc := range []int{80, 40} {
		done := core.NewGameCompleted("alice", "s", acc, 0, 0)
		done.Time = base.AddDate(0, 0, i)
		ae.OnEvent(done)
	}
	badge := core.NewBadgeAwarded("alice", "s", core.Badge{ID: "first_steps"})
	badge.Time = base.AddDate(0, 0, 2) // Fri
	ae.OnEvent(badge)

	ae.AggregateAt(base)

	daily, ok := ae.GetAggregatedData(PeriodDaily, "2024-01-03")
	if !ok {
		t.Fatalf("missing daily data")
	}
	if daily.RoundsRecorded != 1 || daily.PerfectRounds != 1 || daily.ActivePlayers != 1 {
		t.Fatalf("unexpected daily agg: %+v", daily)
	}

	weekly, ok := ae.GetAggregatedData(PeriodWeekly, "2024-W01")
	if !ok {
		t.Fatalf("missing weekly data")
	}
	if weekly.RoundsRecorded != 2 || weekly.BadgesAwarded != 1 || weekly.ActivePlayers != 2 {
		t.Fatalf("unexpected weekly agg: %+v", weekly)
	}
	if weekly.GamesCompleted != 2 || weekly.AverageAccuracy != 60 {
		t.Fatalf("unexpected weekly games: %+v", weekly)
	}
	if !weekly.StartTime.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week should start Monday, got %s", weekly.StartTime)
	}

	monthly, ok := ae.GetAggregatedData(PeriodMonthly, "2024-01")
	if !ok {
		t.Fatalf("missing monthly data")
	}
	if monthly.RoundsRecorded != 2 || monthly.BadgesAwarded != 1 || monthly.ActivePlayers != 2 {
		t.Fatalf("unexpected monthly agg: %+v", monthly)
	}
}

func TestAggregationEngineExport(t *testing.T) {
	ae := NewAggregationEngine(NewGameMetrics(), time.Hour, nil)
	ae.AggregateAt(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	ae.AggregateAt(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))

	b, err := ae.ExportData(PeriodDaily)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var rows []AggregatedData
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Key != "2024-01-02" {
		t.Fatalf("unexpected export: %+v", rows)
	}
	if _, err := ae.ExportData("hourly"); err == nil {
		t.Fatal("expected error for unknown period")
	}
}
