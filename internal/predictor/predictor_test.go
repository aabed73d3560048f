package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
)

// fixedModel always predicts the same value, regardless of input.
type fixedModel struct {
	name  string
	value float64
	err   error
}

func (m *fixedModel) Name() string { return m.name }
func (m *fixedModel) Fit(X [][]float64, y []float64) error {
	return nil
}
func (m *fixedModel) Predict(x []float64) (float64, error) {
	return m.value, m.err
}
func (m *fixedModel) FeatureImportance() map[string]float64 { return nil }
func (m *fixedModel) State() ([]byte, error)                { return json.Marshal(m.value) }
func (m *fixedModel) Restore(state []byte) error            { return json.Unmarshal(state, &m.value) }

func testObservation() models.Observation {
	return models.Observation{
		Timestamp:   time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
		Temperature: 20.0,
		Humidity:    55.0,
		Pressure:    1013.0,
		WindSpeed:   3.0,
		Description: "clear sky",
	}
}

func newTestPredictor(t *testing.T, trained map[string]regressor.Model, scores map[string]float64) *Predictor {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	p := New("temperature", repository.NewMemoryModelStore(), log)
	encoder := features.NewConditionEncoder()
	encoder.Fit([]string{"clear sky", "rain"})
	schema := features.NewBuilder(encoder).Schema(false)
	p.Swap(trained, schema, encoder, scores, time.Now())
	return p
}

func TestEnsembleMeanAndConfidenceInterval(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 20.0},
		"forest": &fixedModel{name: "forest", value: 21.0},
		"boost":  &fixedModel{name: "boost", value: 22.0},
	}, nil)

	results, err := p.PredictTemperature(context.Background(), testObservation(), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.InDelta(t, 21.0, r.Predicted, 1e-9)
	// Population stdev of {20, 21, 22} is sqrt(2/3) ≈ 0.8165.
	assert.InDelta(t, 19.4, r.ConfidenceLower, 0.01)
	assert.InDelta(t, 22.6, r.ConfidenceUpper, 0.01)
}

func TestZeroHoursAheadReturnsEmptyList(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 20.0},
	}, nil)

	results, err := p.PredictTemperature(context.Background(), testObservation(), 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestUntrainedPredictorReturnsEmptyList(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	p := New("temperature", repository.NewMemoryModelStore(), log)

	results, err := p.PredictTemperature(context.Background(), testObservation(), 24)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, p.Trained())
}

func TestFailingModelCountsAsZero(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 30.0},
		"forest": &fixedModel{name: "forest", err: errors.New("broken")},
	}, nil)

	results, err := p.PredictTemperature(context.Background(), testObservation(), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 15.0, results[0].Predicted, 1e-9)
}

func TestAccuracyEstimate(t *testing.T) {
	t.Run("defaults without metrics", func(t *testing.T) {
		p := newTestPredictor(t, map[string]regressor.Model{
			"linear": &fixedModel{name: "linear", value: 20.0},
		}, nil)

		results, err := p.PredictTemperature(context.Background(), testObservation(), 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.7, results[0].AccuracyEstimate, 1e-9)
	})

	t.Run("mean R2 clamped to unit interval", func(t *testing.T) {
		p := newTestPredictor(t, map[string]regressor.Model{
			"linear": &fixedModel{name: "linear", value: 20.0},
			"forest": &fixedModel{name: "forest", value: 20.0},
		}, map[string]float64{"linear": 0.9, "forest": -2.0})

		results, err := p.PredictTemperature(context.Background(), testObservation(), 1)
		require.NoError(t, err)
		// Mean of {0.9, -2.0} is negative, clamps to 0.
		assert.Zero(t, results[0].AccuracyEstimate)
	})
}

func TestWeightedCombination(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 10.0},
		"forest": &fixedModel{name: "forest", value: 20.0},
	}, nil)

	weights := models.EnsembleWeights{"linear": 0.25, "forest": 0.75}
	results, err := p.PredictWeighted(context.Background(), testObservation(), 1, weights)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 17.5, results[0].Predicted, 1e-9)
}

func TestPredictSingle(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 10.0},
		"forest": &fixedModel{name: "forest", value: 20.0},
	}, nil)

	results, err := p.PredictSingle(context.Background(), "forest", testObservation(), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, 20.0, results[0].Predicted, 1e-9)

	_, err = p.PredictSingle(context.Background(), "missing", testObservation(), 1)
	assert.ErrorIs(t, err, models.ErrModelNotFound)
}

func TestPatternLabelFollowsPrediction(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: -5.0},
	}, nil)

	results, err := p.PredictTemperature(context.Background(), testObservation(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PatternSnow, results[0].Pattern)
}

func TestPredictionTimestampsAdvanceHourly(t *testing.T) {
	p := newTestPredictor(t, map[string]regressor.Model{
		"linear": &fixedModel{name: "linear", value: 18.0},
	}, nil)

	obs := testObservation()
	results, err := p.PredictTemperature(context.Background(), obs, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, obs.Timestamp.Add(time.Duration(i+1)*time.Hour), r.Timestamp)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := repository.NewMemoryModelStore()

	// Train real models on a synthetic linear relationship so that the
	// persisted state is exercised end to end.
	encoder := features.NewConditionEncoder()
	encoder.Fit([]string{"clear sky"})
	schema := []string{"f0", "f1"}

	X := make([][]float64, 200)
	y := make([]float64, 200)
	for i := range X {
		a := float64(i) / 10.0
		b := float64(i%7) - 3.0
		X[i] = []float64{a, b}
		y[i] = 2*a - b + 1
	}

	trained := make(map[string]regressor.Model)
	for _, name := range regressor.Known() {
		model, err := regressor.New(name, schema)
		require.NoError(t, err)
		require.NoError(t, model.Fit(X, y))
		trained[name] = model
	}

	saved := New("temperature", store, log)
	saved.Swap(trained, schema, encoder, map[string]float64{"linear": 0.95}, time.Now().UTC().Truncate(time.Second))
	require.NoError(t, saved.Save(context.Background()))

	loaded := New("temperature", store, log)
	require.NoError(t, loaded.Load(context.Background()))
	require.True(t, loaded.Trained())
	assert.Equal(t, saved.Algorithms(), loaded.Algorithms())
	assert.Equal(t, saved.Schema(), loaded.Schema())
	assert.Equal(t, saved.Scores(), loaded.Scores())

	probe := []float64{5.0, 1.5}
	for _, name := range regressor.Known() {
		before, err := trained[name].Predict(probe)
		require.NoError(t, err)

		restored, err := regressor.New(name, schema)
		require.NoError(t, err)
		state, err := store.LoadArtifact(context.Background(), "temperature/"+name)
		require.NoError(t, err)
		require.NoError(t, restored.Restore(state))

		after, err := restored.Predict(probe)
		require.NoError(t, err)
		assert.InDelta(t, before, after, 1e-9, "algorithm %s", name)
		assert.False(t, math.IsNaN(after))
	}
}

func TestLoadMissingSnapshot(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	p := New("temperature", repository.NewMemoryModelStore(), log)

	err := p.Load(context.Background())
	assert.ErrorIs(t, err, models.ErrModelNotFound)
}
