package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/skycast/internal/config"
	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/predictor"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
	"github.com/yourusername/skycast/internal/training"
)

// constantModel always predicts the same value.
type constantModel struct {
	name  string
	value float64
}

func (m *constantModel) Name() string                          { return m.name }
func (m *constantModel) Fit(X [][]float64, y []float64) error  { return nil }
func (m *constantModel) Predict(x []float64) (float64, error)  { return m.value, nil }
func (m *constantModel) FeatureImportance() map[string]float64 { return nil }
func (m *constantModel) State() ([]byte, error)                { return json.Marshal(m.value) }
func (m *constantModel) Restore(state []byte) error            { return json.Unmarshal(state, &m.value) }

// stubSource is a canned WeatherDataSource that counts calls.
type stubSource struct {
	mu            sync.Mutex
	forecastCalls int
	currentCalls  int
	forecastDelay time.Duration
	forecastErr   error
	currentErr    error
	baseline      []models.DayForecast
	current       models.Observation
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Forecast(ctx context.Context, location models.Location, days int) ([]models.DayForecast, error) {
	s.mu.Lock()
	s.forecastCalls++
	delay := s.forecastDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if s.forecastErr != nil {
		return nil, s.forecastErr
	}
	if len(s.baseline) >= days {
		return s.baseline[:days], nil
	}
	return s.baseline, nil
}

func (s *stubSource) CurrentWeather(ctx context.Context, location models.Location) (*models.Observation, error) {
	s.mu.Lock()
	s.currentCalls++
	s.mu.Unlock()
	if s.currentErr != nil {
		return nil, s.currentErr
	}
	obs := s.current
	return &obs, nil
}

func (s *stubSource) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forecastCalls, s.currentCalls
}

func forecastConfig() *config.Config {
	return &config.Config{
		Training: config.TrainingConfig{
			Target:               "temperature",
			Algorithms:           []string{"linear", "forest", "boost"},
			MinObservations:      100,
			HistoryWindowDays:    30,
			AutoRetrainDays:      7,
			RetrainThreshold:     0.7,
			HoldoutFraction:      0.2,
			CrossValidationFolds: 5,
		},
		Forecast: config.ForecastConfig{
			CacheTTLSeconds:    300,
			CacheMaxSize:       100,
			MaxHorizonDays:     7,
			DegradedConfidence: 0.3,
		},
		Workers: config.WorkersConfig{PoolSize: 3},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func baselineDays(n int) []models.DayForecast {
	base := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	days := make([]models.DayForecast, n)
	for i := range days {
		days[i] = models.DayForecast{
			Date:        base.AddDate(0, 0, i+1),
			TempHigh:    14,
			TempLow:     6,
			Temperature: 10,
			Humidity:    55,
			Description: "partly cloudy",
		}
	}
	return days
}

func currentConditions() models.Observation {
	return models.Observation{
		Timestamp:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		Temperature: 12,
		Humidity:    55,
		Pressure:    1013,
		WindSpeed:   3,
		Description: "partly cloudy",
	}
}

// newTrainedLayer wires an integration layer around stubbed models and a
// canned provider.
func newTrainedLayer(t *testing.T, source *stubSource, trained map[string]regressor.Model, scores map[string]float64, history *repository.MemoryTrainingHistory) *IntegrationLayer {
	t.Helper()
	cfg := forecastConfig()

	pred := predictor.New("temperature", repository.NewMemoryModelStore(), quietLogger())
	if trained != nil {
		encoder := features.NewConditionEncoder()
		encoder.Fit([]string{"partly cloudy"})
		schema := features.NewBuilder(encoder).Schema(false)
		pred.Swap(trained, schema, encoder, scores, time.Now())
	}

	obsStore := repository.NewMemoryObservationStore()
	orch := training.NewOrchestrator(cfg, obsStore, history, pred, quietLogger())
	return NewIntegrationLayer(cfg, orch, source, history, quietLogger())
}

func successfulRun(outcomes ...models.AlgorithmOutcome) *models.TrainingResult {
	return &models.TrainingResult{
		RunID:           uuid.New(),
		Timestamp:       time.Now().Add(-time.Hour),
		Target:          "temperature",
		Outcomes:        outcomes,
		Status:          models.TrainingStatusSuccess,
		ValidationScore: 0.9,
	}
}

func TestWeightsFromLastRun(t *testing.T) {
	history := repository.NewMemoryTrainingHistory()
	require.NoError(t, history.Append(context.Background(), successfulRun(
		models.AlgorithmOutcome{Algorithm: "linear", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.9}},
		models.AlgorithmOutcome{Algorithm: "forest", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.6}},
	)))

	layer := newTrainedLayer(t, &stubSource{}, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
		"forest": &constantModel{name: "forest", value: 22},
	}, nil, history)

	weights, err := layer.Weights(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.6, weights["linear"], 1e-9)
	assert.InDelta(t, 0.4, weights["forest"], 1e-9)
}

func TestWeightsEqualSplitWithoutHistory(t *testing.T) {
	layer := newTrainedLayer(t, &stubSource{}, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
		"forest": &constantModel{name: "forest", value: 22},
	}, nil, repository.NewMemoryTrainingHistory())

	weights, err := layer.Weights(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, weights["linear"], 1e-9)
	assert.InDelta(t, 0.5, weights["forest"], 1e-9)
}

func TestWeightsClampNegativeR2(t *testing.T) {
	history := repository.NewMemoryTrainingHistory()
	require.NoError(t, history.Append(context.Background(), successfulRun(
		models.AlgorithmOutcome{Algorithm: "linear", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: -0.5}},
		models.AlgorithmOutcome{Algorithm: "forest", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.8}},
	)))

	layer := newTrainedLayer(t, &stubSource{}, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
		"forest": &constantModel{name: "forest", value: 22},
	}, nil, history)

	weights, err := layer.Weights(context.Background())
	require.NoError(t, err)
	assert.Zero(t, weights["linear"])
	assert.InDelta(t, 1.0, weights["forest"], 1e-9)
}

func TestEnhancedForecastBlending(t *testing.T) {
	history := repository.NewMemoryTrainingHistory()
	require.NoError(t, history.Append(context.Background(), successfulRun(
		models.AlgorithmOutcome{Algorithm: "linear", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.75}},
	)))

	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	layer := newTrainedLayer(t, source, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
	}, map[string]float64{"linear": 0.75}, history)

	result, err := layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 3, true)
	require.NoError(t, err)
	require.Len(t, result.Hybrid, 3)
	assert.False(t, result.Degraded)

	day := result.Hybrid[0]
	assert.Equal(t, 10.0, day.Baseline)
	assert.Equal(t, 20.0, day.Predicted)
	assert.InDelta(t, 0.75, day.Weight, 1e-9)
	// baseline*(1-w) + ml*w = 10*0.25 + 20*0.75
	assert.InDelta(t, 17.5, day.Blended, 1e-9)

	require.Len(t, result.Predictions, 3)
	assert.Greater(t, result.Confidence, 0.5)
}

func TestBaselineOnlyForecast(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7)}
	layer := newTrainedLayer(t, source, nil, nil, repository.NewMemoryTrainingHistory())

	result, err := layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 5, false)
	require.NoError(t, err)
	assert.Empty(t, result.Predictions)
	assert.Len(t, result.Hybrid, 5)
	assert.Equal(t, neutralConfidence, result.Confidence)
	assert.False(t, result.Degraded)

	_, currentCalls := source.calls()
	assert.Zero(t, currentCalls)
}

func TestDegradedFallbackOnMLFailure(t *testing.T) {
	source := &stubSource{
		baseline:   baselineDays(7),
		currentErr: errors.New("provider down"),
	}
	history := repository.NewMemoryTrainingHistory()
	layer := newTrainedLayer(t, source, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
	}, nil, history)

	result, err := layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 3, true)
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.InDelta(t, 0.3, result.Confidence, 1e-9)
	assert.Empty(t, result.Predictions)
	assert.Len(t, result.Hybrid, 3)
}

func TestBaselineFailurePropagates(t *testing.T) {
	source := &stubSource{forecastErr: errors.New("upstream down")}
	layer := newTrainedLayer(t, source, nil, nil, repository.NewMemoryTrainingHistory())

	_, err := layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 3, true)
	assert.ErrorIs(t, err, models.ErrNoBaselineForecast)
}

func TestForecastCaching(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7), current: currentConditions()}
	layer := newTrainedLayer(t, source, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
	}, nil, repository.NewMemoryTrainingHistory())

	loc := models.Location{Name: "berlin"}
	first, err := layer.GetEnhancedForecast(context.Background(), loc, 3, true)
	require.NoError(t, err)
	second, err := layer.GetEnhancedForecast(context.Background(), loc, 3, true)
	require.NoError(t, err)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)

	forecastCalls, _ := source.calls()
	assert.Equal(t, 1, forecastCalls)

	// A different horizon is a different cache key.
	_, err = layer.GetEnhancedForecast(context.Background(), loc, 5, true)
	require.NoError(t, err)
	forecastCalls, _ = source.calls()
	assert.Equal(t, 2, forecastCalls)
}

func TestConcurrentMissesCollapse(t *testing.T) {
	source := &stubSource{
		baseline:      baselineDays(7),
		current:       currentConditions(),
		forecastDelay: 50 * time.Millisecond,
	}
	layer := newTrainedLayer(t, source, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
	}, nil, repository.NewMemoryTrainingHistory())

	loc := models.Location{Name: "berlin"}
	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := layer.GetEnhancedForecast(context.Background(), loc, 3, true); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, failures.Load())
	forecastCalls, _ := source.calls()
	assert.Equal(t, 1, forecastCalls)
}

func TestHorizonClamping(t *testing.T) {
	source := &stubSource{baseline: baselineDays(7)}
	layer := newTrainedLayer(t, source, nil, nil, repository.NewMemoryTrainingHistory())

	result, err := layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 50, false)
	require.NoError(t, err)
	assert.Len(t, result.Baseline, 7)

	_, err = layer.GetEnhancedForecast(context.Background(), models.Location{Name: "berlin"}, 0, false)
	assert.Error(t, err)
}

func TestMajorityPatternTiebreak(t *testing.T) {
	// Two algorithms say snow, one says rain: snow wins.
	names := []string{"a", "b", "c"}
	outputs := map[string]float64{"a": -5, "b": -3, "c": 5}
	assert.Equal(t, models.PatternSnow, majorityPattern(names, outputs, 85))

	// One each: first-seen wins.
	names = []string{"a", "c"}
	outputs = map[string]float64{"a": -5, "c": 5}
	assert.Equal(t, models.PatternSnow, majorityPattern(names, outputs, 85))
}

func TestPredictionExplanation(t *testing.T) {
	history := repository.NewMemoryTrainingHistory()
	require.NoError(t, history.Append(context.Background(), successfulRun(
		models.AlgorithmOutcome{Algorithm: "linear", Status: models.TrainingStatusSuccess, Metrics: &models.ModelMetrics{R2: 0.9, RMSE: 1.2}},
	)))

	layer := newTrainedLayer(t, &stubSource{}, map[string]regressor.Model{
		"linear": &constantModel{name: "linear", value: 20},
	}, map[string]float64{"linear": 0.9}, history)

	explanation, err := layer.GetPredictionExplanation(context.Background(), models.Location{Name: "berlin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"linear"}, explanation.Algorithms)
	assert.NotEmpty(t, explanation.Schema)
	assert.NotEmpty(t, explanation.Limitations)
	require.NotNil(t, explanation.Metrics["linear"])
	assert.InDelta(t, 0.9, explanation.Metrics["linear"].R2, 1e-9)

	untrained := newTrainedLayer(t, &stubSource{}, nil, nil, repository.NewMemoryTrainingHistory())
	_, err = untrained.GetPredictionExplanation(context.Background(), models.Location{Name: "berlin"})
	assert.ErrorIs(t, err, models.ErrModelNotTrained)
}
