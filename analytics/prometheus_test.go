package analytics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chronoguess/core"
)

func TestPromCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPromCollector(reg)
	require.NoError(t, err)

	c.OnEvent(core.NewRoundRecorded("a", "s", core.RoundResult{Score: 1000, AccuracyPercent: 100}))
	c.OnEvent(core.NewRoundRecorded("a", "s", core.RoundResult{Score: 0, AccuracyPercent: 0}))
	c.OnEvent(core.NewRoundResubmitted("a", "s", core.RoundResult{Score: 1000, AccuracyPercent: 100}))
	c.OnEvent(core.NewHintUsed("a", "s", 1, core.HintWhere))
	c.OnEvent(core.NewGameCompleted("a", "s", 20, 1000, 1000))
	c.OnEvent(core.NewBadgeAwarded("a", "s", core.Badge{ID: "pinpoint"}))
	c.OnEvent(core.NewSessionState("a", "s", "completed", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.rounds))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.perfectRounds))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.games))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.hints.WithLabelValues("where")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.badges.WithLabelValues("pinpoint")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessions.WithLabelValues("completed")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.roundScore))

	// a second collector on the same registry is rejected
	_, err = NewPromCollector(reg)
	assert.Error(t, err)
}
