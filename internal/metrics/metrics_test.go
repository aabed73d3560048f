package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistryIdempotent(t *testing.T) {
	r1 := InitRegistry()
	r2 := InitRegistry()
	assert.Same(t, r1, r2)
	assert.Same(t, r1, GetRegistry())
}

func TestRecordTrainingRun(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(TrainingRunsTotal.WithLabelValues("success"))
	RecordTrainingRun("success", 1.5)
	after := testutil.ToFloat64(TrainingRunsTotal.WithLabelValues("success"))

	assert.Equal(t, before+1, after)
}

func TestRecordCacheCounters(t *testing.T) {
	InitRegistry()

	hitsBefore := testutil.ToFloat64(ForecastCacheHitsTotal)
	missesBefore := testutil.ToFloat64(ForecastCacheMissesTotal)

	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheMiss()

	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(ForecastCacheHitsTotal))
	assert.Equal(t, missesBefore+2, testutil.ToFloat64(ForecastCacheMissesTotal))
}

func TestAlgorithmR2Gauge(t *testing.T) {
	InitRegistry()

	AlgorithmR2.WithLabelValues("forest").Set(0.87)
	require.InDelta(t, 0.87, testutil.ToFloat64(AlgorithmR2.WithLabelValues("forest")), 1e-9)
}

func TestHandlerServesMetrics(t *testing.T) {
	InitRegistry()
	assert.NotNil(t, Handler())
}
