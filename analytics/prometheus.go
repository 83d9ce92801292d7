package analytics

import (
	"github.com/prometheus/client_golang/prometheus"

	"chronoguess/core"
)

// PromCollector exports game events as Prometheus metrics.
type PromCollector struct {
	rounds        prometheus.Counter
	perfectRounds prometheus.Counter
	roundScore    prometheus.Histogram
	games         prometheus.Counter
	gameAccuracy  prometheus.Histogram
	hints         *prometheus.CounterVec
	badges        *prometheus.CounterVec
	sessions      *prometheus.CounterVec
}

// NewPromCollector creates the metrics and registers them with reg. A nil reg
// uses the default registerer.
func NewPromCollector(reg prometheus.Registerer) (*PromCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &PromCollector{
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "rounds_recorded_total",
			Help: "Rounds recorded, not counting resubmissions of a round.",
		}),
		perfectRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "perfect_rounds_total",
			Help: "Rounds scored at 100% accuracy.",
		}),
		roundScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chronoguess", Name: "round_score",
			Help:    "Final per-round score after hint penalty.",
			Buckets: prometheus.LinearBuckets(0, 100, 11),
		}),
		games: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "games_completed_total",
			Help: "Games completed.",
		}),
		gameAccuracy: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chronoguess", Name: "game_accuracy_percent",
			Help:    "Session accuracy of completed games.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}),
		hints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "hints_used_total",
			Help: "Hints revealed, by type.",
		}, []string{"hint"}),
		badges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "badges_awarded_total",
			Help: "Badges newly awarded, by badge.",
		}, []string{"badge"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chronoguess", Name: "session_transitions_total",
			Help: "Session state transitions, by target state.",
		}, []string{"state"}),
	}
	for _, m := range []prometheus.Collector{c.rounds, c.perfectRounds, c.roundScore, c.games, c.gameAccuracy, c.hints, c.badges, c.sessions} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *PromCollector) OnEvent(e core.Event) {
	switch e.Type {
	case core.EventRoundRecorded:
		if e.Replaced {
			break
		}
		c.rounds.Inc()
		c.roundScore.Observe(e.Score)
		if e.Accuracy >= 100 {
			c.perfectRounds.Inc()
		}
	case core.EventGameCompleted:
		c.games.Inc()
		c.gameAccuracy.Observe(e.Accuracy)
	case core.EventHintUsed:
		c.hints.WithLabelValues(string(e.Hint)).Inc()
	case core.EventBadgeAwarded:
		if e.Badge != nil {
			c.badges.WithLabelValues(string(e.Badge.ID)).Inc()
		}
	case core.EventSessionState:
		c.sessions.WithLabelValues(e.State).Inc()
	}
}
