// Package forecast blends the external baseline forecast with ensemble model
// predictions into a single cached hybrid artifact.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/logger"
	"github.com/yourusername/skycast/internal/metrics"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/training"
	"github.com/yourusername/skycast/internal/weatherapi"
)

// confidenceZ matches the predictor's interval multiplier.
const confidenceZ = 1.96

// neutralConfidence is reported when ML enrichment was not requested.
const neutralConfidence = 0.5

// IntegrationLayer serves hybrid forecasts. Results are cached per
// (location, days, includeML) with a TTL; concurrent misses for the same key
// collapse into one upstream build.
type IntegrationLayer struct {
	cfg          *config.Config
	orchestrator *training.Orchestrator
	source       weatherapi.WeatherDataSource
	history      repository.TrainingHistory
	cache        *gocache.Cache
	group        singleflight.Group
	log          *logger.ForecastLogger

	initMu sync.Mutex

	cacheHits    atomic.Int64
	cacheLookups atomic.Int64
}

// NewIntegrationLayer creates the forecast integration layer
func NewIntegrationLayer(cfg *config.Config, orchestrator *training.Orchestrator, source weatherapi.WeatherDataSource, history repository.TrainingHistory, baseLogger *logrus.Logger) *IntegrationLayer {
	ttl := cfg.CacheTTL()
	return &IntegrationLayer{
		cfg:          cfg,
		orchestrator: orchestrator,
		source:       source,
		history:      history,
		cache:        gocache.New(ttl, 2*ttl),
		log:          logger.NewForecastLogger(baseLogger),
	}
}

// GetEnhancedForecast returns the hybrid forecast for a location. A cached
// entry within its TTL is served directly; an expired entry is an ordinary
// miss. On ML failure the baseline is returned in degraded mode; on baseline
// failure a typed error propagates because there is nothing truthful to
// serve.
func (l *IntegrationLayer) GetEnhancedForecast(ctx context.Context, location models.Location, days int, includeML bool) (*models.IntegratedForecast, error) {
	if days < 1 {
		return nil, fmt.Errorf("forecast horizon must be at least 1 day, got %d", days)
	}
	if days > l.cfg.Forecast.MaxHorizonDays {
		days = l.cfg.Forecast.MaxHorizonDays
	}

	started := time.Now()
	key := fmt.Sprintf("%s:%d:%t", location.Key(), days, includeML)

	l.cacheLookups.Add(1)
	if cached, found := l.cache.Get(key); found {
		l.cacheHits.Add(1)
		metrics.RecordCacheHit()
		l.updateHitRatio()
		result := cached.(*models.IntegratedForecast)
		l.log.LogForecastServed(location.Key(), days, includeML, true, result.Degraded, result.Confidence, float64(time.Since(started).Milliseconds()))
		return result, nil
	}
	metrics.RecordCacheMiss()
	l.updateHitRatio()

	built, err, _ := l.group.Do(key, func() (interface{}, error) {
		result, err := l.build(ctx, location, days, includeML)
		if err != nil {
			return nil, err
		}
		l.cache.Set(key, result, gocache.DefaultExpiration)
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	result := built.(*models.IntegratedForecast)
	l.log.LogForecastServed(location.Key(), days, includeML, false, result.Degraded, result.Confidence, float64(time.Since(started).Milliseconds()))
	return result, nil
}

func (l *IntegrationLayer) build(ctx context.Context, location models.Location, days int, includeML bool) (*models.IntegratedForecast, error) {
	baseline, err := l.source.Forecast(ctx, location, days)
	if err != nil {
		l.log.LogBaselineFetchFailed(location.Key(), err)
		metrics.RecordBaselineFailure()
		return nil, fmt.Errorf("%w: %v", models.ErrNoBaselineForecast, err)
	}

	if !includeML {
		return &models.IntegratedForecast{
			Location:    location,
			Baseline:    baseline,
			Hybrid:      baselineHybrid(baseline),
			Confidence:  neutralConfidence,
			GeneratedAt: time.Now(),
		}, nil
	}

	if err := l.ensureModels(ctx); err != nil {
		return l.degraded(location, baseline, fmt.Sprintf("model initialization failed: %v", err)), nil
	}

	current, err := l.source.CurrentWeather(ctx, location)
	if err != nil {
		return l.degraded(location, baseline, fmt.Sprintf("current conditions unavailable: %v", err)), nil
	}

	weights, err := l.Weights(ctx)
	if err != nil {
		return l.degraded(location, baseline, fmt.Sprintf("ensemble weights unavailable: %v", err)), nil
	}

	predictions := l.predictDaily(*current, days, weights)
	if len(predictions) == 0 {
		return l.degraded(location, baseline, "no trained algorithms produced output"), nil
	}

	hybrid := blend(baseline, predictions)

	return &models.IntegratedForecast{
		Location:    location,
		Baseline:    baseline,
		Predictions: predictions,
		Hybrid:      hybrid,
		Confidence:  overallConfidence(predictions),
		GeneratedAt: time.Now(),
	}, nil
}

// ensureModels lazily brings up the model set: reload a persisted snapshot
// if one exists, otherwise run one initial training pass.
func (l *IntegrationLayer) ensureModels(ctx context.Context) error {
	pred := l.orchestrator.Predictor()
	if pred.Trained() {
		return nil
	}

	l.initMu.Lock()
	defer l.initMu.Unlock()
	if pred.Trained() {
		return nil
	}

	if err := pred.Load(ctx); err == nil {
		return nil
	}

	result, err := l.orchestrator.TrainModels(ctx, true)
	if err != nil {
		return err
	}
	if result == nil || !result.Succeeded() {
		return models.ErrModelNotTrained
	}
	return nil
}

// Weights recomputes ensemble weights from the most recent successful
// training run: each trained algorithm's weight is max(R², 0), normalized to
// sum to 1. Without history the mass is split equally.
func (l *IntegrationLayer) Weights(ctx context.Context) (models.EnsembleWeights, error) {
	algorithms := l.orchestrator.Predictor().Algorithms()
	if len(algorithms) == 0 {
		return nil, models.ErrModelNotTrained
	}

	weights := make(models.EnsembleWeights, len(algorithms))
	last, err := l.history.LastSuccessful(ctx)
	if err == models.ErrModelNotTrained {
		for _, name := range algorithms {
			weights[name] = 0
		}
		weights.Normalize()
		return weights, nil
	}
	if err != nil {
		return nil, err
	}

	for _, name := range algorithms {
		if m := last.MetricsFor(name); m != nil {
			weights[name] = math.Max(m.R2, 0)
		} else {
			weights[name] = 0
		}
	}
	weights.Normalize()
	return weights, nil
}

// predictDaily produces one weighted-ensemble PredictionResult per day. The
// per-algorithm confidence bounds are combined as a weighted average, and
// the pattern label is the most frequent across algorithms with ties broken
// by first-seen order.
func (l *IntegrationLayer) predictDaily(current models.Observation, days int, weights models.EnsembleWeights) []models.PredictionResult {
	pred := l.orchestrator.Predictor()
	scores := pred.Scores()
	accuracy := meanClamped(scores)
	schema := pred.Schema()

	results := make([]models.PredictionResult, 0, days)
	for d := 1; d <= days; d++ {
		at := current.Timestamp.Add(time.Duration(d) * 24 * time.Hour)
		names, outputs := pred.Outputs(current, at)
		if len(names) == 0 {
			return nil
		}

		values := make([]float64, 0, len(names))
		for _, name := range names {
			values = append(values, outputs[name])
		}
		spread := 0.0
		if len(values) > 1 {
			spread = math.Sqrt(stat.PopVariance(values, nil))
		}

		predicted := 0.0
		lower := 0.0
		upper := 0.0
		for _, name := range names {
			w := weights[name]
			predicted += w * outputs[name]
			lower += w * (outputs[name] - confidenceZ*spread)
			upper += w * (outputs[name] + confidenceZ*spread)
		}

		results = append(results, models.PredictionResult{
			Timestamp:        at,
			Predicted:        predicted,
			ConfidenceLower:  lower,
			ConfidenceUpper:  upper,
			Pattern:          majorityPattern(names, outputs, current.Humidity),
			AccuracyEstimate: accuracy,
			Features:         schema,
		})
	}
	return results
}

// blend combines each day's baseline and ML values, leaning on the model in
// proportion to that day's accuracy estimate.
func blend(baseline []models.DayForecast, predictions []models.PredictionResult) []models.HybridDay {
	hybrid := make([]models.HybridDay, 0, len(baseline))
	for i, day := range baseline {
		h := models.HybridDay{
			Date:        day.Date,
			Baseline:    day.Temperature,
			Blended:     day.Temperature,
			Description: day.Description,
			Pattern:     models.ClassifyPattern(day.Temperature, day.Humidity),
		}
		if i < len(predictions) {
			p := predictions[i]
			h.Predicted = p.Predicted
			h.Weight = p.AccuracyEstimate
			h.Blended = day.Temperature*(1-h.Weight) + p.Predicted*h.Weight
			h.Pattern = p.Pattern
		}
		hybrid = append(hybrid, h)
	}
	return hybrid
}

func baselineHybrid(baseline []models.DayForecast) []models.HybridDay {
	return blend(baseline, nil)
}

// overallConfidence averages an inter-day agreement score (lower spread of
// per-day predictions means higher confidence) with the mean per-day
// accuracy estimate.
func overallConfidence(predictions []models.PredictionResult) float64 {
	values := make([]float64, len(predictions))
	accuracySum := 0.0
	for i, p := range predictions {
		values[i] = p.Predicted
		accuracySum += p.AccuracyEstimate
	}

	spread := 0.0
	if len(values) > 1 {
		spread = math.Sqrt(stat.PopVariance(values, nil))
	}
	spreadConfidence := 1 / (1 + spread)
	meanAccuracy := accuracySum / float64(len(predictions))

	return (spreadConfidence + meanAccuracy) / 2
}

func (l *IntegrationLayer) degraded(location models.Location, baseline []models.DayForecast, reason string) *models.IntegratedForecast {
	l.log.LogDegradedFallback(location.Key(), reason)
	metrics.RecordDegradedForecast()
	return &models.IntegratedForecast{
		Location:    location,
		Baseline:    baseline,
		Hybrid:      baselineHybrid(baseline),
		Confidence:  l.cfg.Forecast.DegradedConfidence,
		Degraded:    true,
		GeneratedAt: time.Now(),
	}
}

func majorityPattern(names []string, outputs map[string]float64, humidity float64) models.WeatherPattern {
	counts := make(map[models.WeatherPattern]int, len(names))
	var order []models.WeatherPattern
	for _, name := range names {
		p := models.ClassifyPattern(outputs[name], humidity)
		if counts[p] == 0 {
			order = append(order, p)
		}
		counts[p]++
	}

	best := order[0]
	for _, p := range order[1:] {
		if counts[p] > counts[best] {
			best = p
		}
	}
	return best
}

func meanClamped(scores map[string]float64) float64 {
	if len(scores) == 0 {
		return 0.7
	}
	sum := 0.0
	for _, v := range scores {
		sum += v
	}
	mean := sum / float64(len(scores))
	return math.Min(1, math.Max(0, mean))
}

func (l *IntegrationLayer) updateHitRatio() {
	lookups := l.cacheLookups.Load()
	if lookups == 0 {
		return
	}
	metrics.ForecastCacheHitRatio.Set(float64(l.cacheHits.Load()) / float64(lookups))
}
