// Package metrics provides the centralized Prometheus metrics registry for
// the prediction service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	TrainingRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "training_runs_total",
		Help:      "Total number of training runs by status",
	}, []string{"status"})
	TrainingRunsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "training_runs_skipped_total",
		Help:      "Total number of runs skipped by the retrain policy",
	})
	PredictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "predictions_total",
		Help:      "Total number of temperature predictions produced",
	})
	ForecastCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "forecast_cache_hits_total",
		Help:      "Total number of forecast cache hits",
	})
	ForecastCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "forecast_cache_misses_total",
		Help:      "Total number of forecast cache misses",
	})
	BaselineFetchFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "baseline_fetch_failures_total",
		Help:      "Total number of baseline provider fetch failures",
	})
	DegradedForecastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "skycast",
		Name:      "degraded_forecasts_total",
		Help:      "Total number of forecasts served in degraded mode",
	})
)

// Gauge metrics
var (
	TrainedAlgorithms = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycast",
		Name:      "trained_algorithms",
		Help:      "Number of currently trained algorithms",
	})
	LastValidationScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycast",
		Name:      "last_validation_score",
		Help:      "Aggregate validation score of the most recent training run",
	})
	AlgorithmR2 = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "skycast",
		Name:      "algorithm_r2",
		Help:      "Holdout R-squared per algorithm from the latest run",
	}, []string{"algorithm"})
	ForecastCacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycast",
		Name:      "forecast_cache_hit_ratio",
		Help:      "Ratio of forecast cache hits to total lookups",
	})
	ObservationsUsed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skycast",
		Name:      "observations_used",
		Help:      "Cleaned observation count used by the latest training run",
	})
)

// Histogram metrics
var (
	TrainingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skycast",
		Name:      "training_duration_seconds",
		Help:      "Duration of full training runs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	})
	PredictionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skycast",
		Name:      "prediction_latency_seconds",
		Help:      "Latency of ensemble prediction calls in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	BaselineFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "skycast",
		Name:      "baseline_fetch_latency_seconds",
		Help:      "Latency of baseline provider fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(TrainingRunsTotal)
		registry.MustRegister(TrainingRunsSkippedTotal)
		registry.MustRegister(PredictionsTotal)
		registry.MustRegister(ForecastCacheHitsTotal)
		registry.MustRegister(ForecastCacheMissesTotal)
		registry.MustRegister(BaselineFetchFailuresTotal)
		registry.MustRegister(DegradedForecastsTotal)

		registry.MustRegister(TrainedAlgorithms)
		registry.MustRegister(LastValidationScore)
		registry.MustRegister(AlgorithmR2)
		registry.MustRegister(ForecastCacheHitRatio)
		registry.MustRegister(ObservationsUsed)

		registry.MustRegister(TrainingDuration)
		registry.MustRegister(PredictionLatency)
		registry.MustRegister(BaselineFetchLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordTrainingRun records a completed training run.
func RecordTrainingRun(status string, durationSeconds float64) {
	TrainingRunsTotal.WithLabelValues(status).Inc()
	TrainingDuration.Observe(durationSeconds)
}

// RecordTrainingSkipped records a run skipped by the retrain policy.
func RecordTrainingSkipped() {
	TrainingRunsSkippedTotal.Inc()
}

// RecordPrediction records an ensemble prediction call.
func RecordPrediction(latencySeconds float64) {
	PredictionsTotal.Inc()
	PredictionLatency.Observe(latencySeconds)
}

// RecordCacheHit records a forecast cache hit.
func RecordCacheHit() {
	ForecastCacheHitsTotal.Inc()
}

// RecordCacheMiss records a forecast cache miss.
func RecordCacheMiss() {
	ForecastCacheMissesTotal.Inc()
}

// RecordBaselineFailure records a baseline provider failure.
func RecordBaselineFailure() {
	BaselineFetchFailuresTotal.Inc()
}

// RecordDegradedForecast records a forecast served in degraded mode.
func RecordDegradedForecast() {
	DegradedForecastsTotal.Inc()
}
