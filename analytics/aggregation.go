package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"chronoguess/core"
)

// AggregationPeriod represents different time periods for aggregation
type AggregationPeriod string

const (
	PeriodDaily   AggregationPeriod = "daily"
	PeriodWeekly  AggregationPeriod = "weekly"
	PeriodMonthly AggregationPeriod = "monthly"
)

// AggregatedData is a rollup of GameMetrics over one period.
type AggregatedData struct {
	Period    AggregationPeriod `json:"period"`
	Key       string            `json:"key"` // e.g., "2024-01-01" for daily, "2024-W01" for weekly
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`

	ActivePlayers   int     `json:"active_players"`
	RoundsRecorded  int64   `json:"rounds_recorded"`
	PerfectRounds   int64   `json:"perfect_rounds"`
	GamesCompleted  int64   `json:"games_completed"`
	AverageAccuracy float64 `json:"average_accuracy"`
	HintsUsed       int64   `json:"hints_used"`
	BadgesAwarded   int64   `json:"badges_awarded"`

	CreatedAt time.Time `json:"created_at"`
}

// AggregationEngine periodically rolls GameMetrics up into daily, weekly and
// monthly reports.
type AggregationEngine struct {
	mu sync.RWMutex

	metrics *GameMetrics
	logger  *slog.Logger

	aggregations map[AggregationPeriod]map[string]*AggregatedData

	interval        time.Duration
	lastAggregation time.Time
}

func NewAggregationEngine(metrics *GameMetrics, interval time.Duration, logger *slog.Logger) *AggregationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &AggregationEngine{
		metrics: metrics,
		logger:  logger,
		aggregations: map[AggregationPeriod]map[string]*AggregatedData{
			PeriodDaily:   {},
			PeriodWeekly:  {},
			PeriodMonthly: {},
		},
		interval: interval,
	}
}

// OnEvent forwards events to the underlying metrics hook
func (ae *AggregationEngine) OnEvent(e core.Event) {
	ae.metrics.OnEvent(e)
}

// AggregateAt rolls up the day, week and month containing now.
func (ae *AggregationEngine) AggregateAt(now time.Time) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(now.Weekday()) + 6) % 7 // days since Monday
	week := day.AddDate(0, 0, -offset)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	daily := ae.rollup(PeriodDaily, dayKey(now), day, day.AddDate(0, 0, 1), ae.metrics.DailyActiveUsers(dayKey(now)), now)
	weekly := ae.rollup(PeriodWeekly, weekKey(now), week, week.AddDate(0, 0, 7), ae.metrics.WeeklyActiveUsers(weekKey(now)), now)
	monthly := ae.rollup(PeriodMonthly, monthKey(now), month, month.AddDate(0, 1, 0), ae.metrics.MonthlyActiveUsers(monthKey(now)), now)

	ae.mu.Lock()
	defer ae.mu.Unlock()
	for _, d := range []*AggregatedData{daily, weekly, monthly} {
		ae.aggregations[d.Period][d.Key] = d
	}
	ae.lastAggregation = now
}

// AggregateNow forces an immediate aggregation of all periods
func (ae *AggregationEngine) AggregateNow() { ae.AggregateAt(time.Now()) }

func (ae *AggregationEngine) rollup(period AggregationPeriod, key string, start, end time.Time, active int, now time.Time) *AggregatedData {
	data := &AggregatedData{
		Period:        period,
		Key:           key,
		StartTime:     start,
		EndTime:       end,
		ActivePlayers: active,
		CreatedAt:     now,
	}
	var accuracySum float64
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		t := ae.metrics.Day(dayKey(d))
		data.RoundsRecorded += t.Rounds
		data.PerfectRounds += t.PerfectRounds
		data.GamesCompleted += t.Games
		data.HintsUsed += t.Hints
		data.BadgesAwarded += t.Badges
		accuracySum += t.AccuracySum
	}
	if data.GamesCompleted > 0 {
		data.AverageAccuracy = accuracySum / float64(data.GamesCompleted)
	}
	return data
}

// GetAggregatedData returns aggregated data for a specific period and key
func (ae *AggregationEngine) GetAggregatedData(period AggregationPeriod, key string) (*AggregatedData, bool) {
	ae.mu.RLock()
	defer ae.mu.RUnlock()
	data, ok := ae.aggregations[period][key]
	return data, ok
}

// GetAllAggregatedData returns all aggregated data for a period, oldest first.
func (ae *AggregationEngine) GetAllAggregatedData(period AggregationPeriod) []*AggregatedData {
	ae.mu.RLock()
	defer ae.mu.RUnlock()
	out := lo.Values(ae.aggregations[period])
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Start begins periodic aggregation until ctx is done.
func (ae *AggregationEngine) Start(ctx context.Context) {
	if ae.interval <= 0 {
		return
	}
	ticker := time.NewTicker(ae.interval)
	defer ticker.Stop()

	ae.AggregateNow()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ae.AggregateNow()
			ae.logger.Debug("analytics aggregated", "periods", 3)
		}
	}
}

// ExportData exports aggregated data to JSON format
func (ae *AggregationEngine) ExportData(period AggregationPeriod) ([]byte, error) {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	default:
		return nil, fmt.Errorf("unknown aggregation period %q", period)
	}
	return json.MarshalIndent(ae.GetAllAggregatedData(period), "", "  ")
}
