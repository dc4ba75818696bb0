package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestCounters(t *testing.T) {
	c := Default()

	before := testutil.ToFloat64(c.analysisTotal.WithLabelValues("local", "ok"))
	c.RecordAnalysis("local", "ok", 0.2)
	c.RecordAnalysis("local", "ok", 0.4)
	assert.Equal(t, before+2, testutil.ToFloat64(c.analysisTotal.WithLabelValues("local", "ok")))

	before = testutil.ToFloat64(c.illegalTotal.WithLabelValues("ai"))
	c.RecordIllegalMove("ai")
	assert.Equal(t, before+1, testutil.ToFloat64(c.illegalTotal.WithLabelValues("ai")))

	before = testutil.ToFloat64(c.movesTotal.WithLabelValues("player"))
	c.RecordMove("player")
	assert.Equal(t, before+1, testutil.ToFloat64(c.movesTotal.WithLabelValues("player")))

	c.RecordAnalysisRetry("gemini")
	c.RecordGameOver("1-0")
	c.RecordEngineSearch("material", "ok", 0.01)
	c.RecordHTTPRequest("POST", "/analyze", "200", 0.03)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.gamesTotal.WithLabelValues("1-0")))
}
