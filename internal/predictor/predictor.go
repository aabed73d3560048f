// Package predictor owns the trained model set for a single target variable
// and turns it into temperature predictions with confidence bands.
package predictor

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/metrics"
	"github.com/yourusername/skycast/internal/models"
	"github.com/yourusername/skycast/internal/regressor"
	"github.com/yourusername/skycast/internal/repository"
)

// confidenceZ is the multiplier applied to the inter-model spread. The band
// is an agreement heuristic, not a calibrated statistical interval.
const confidenceZ = 1.96

// defaultAccuracy is reported when no holdout metrics exist yet.
const defaultAccuracy = 0.7

// snapshot is an immutable trained model set. Training swaps in a whole new
// snapshot so in-flight predictions never observe a half-updated state.
type snapshot struct {
	models    map[string]regressor.Model
	builder   *features.Builder
	schema    []string
	scores    map[string]float64
	trainedAt time.Time
}

// Predictor serves predictions from the most recently trained snapshot and
// persists it through a ModelStore.
type Predictor struct {
	target string
	store  repository.ModelStore
	log    *logrus.Logger

	mu      sync.RWMutex
	current *snapshot
}

// New creates a predictor for the given target variable
func New(target string, store repository.ModelStore, log *logrus.Logger) *Predictor {
	return &Predictor{target: target, store: store, log: log}
}

// Swap atomically replaces the active model set. scores holds each
// algorithm's holdout R².
func (p *Predictor) Swap(trained map[string]regressor.Model, schema []string, encoder *features.ConditionEncoder, scores map[string]float64, trainedAt time.Time) {
	snap := &snapshot{
		models:    trained,
		builder:   features.NewBuilder(encoder),
		schema:    schema,
		scores:    scores,
		trainedAt: trainedAt,
	}

	p.mu.Lock()
	p.current = snap
	p.mu.Unlock()

	metrics.TrainedAlgorithms.Set(float64(len(trained)))
	for name, r2 := range scores {
		metrics.AlgorithmR2.WithLabelValues(name).Set(r2)
	}
}

// Trained reports whether any model set is active
func (p *Predictor) Trained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current != nil && len(p.current.models) > 0
}

// TrainedAt returns the timestamp of the active snapshot, zero if untrained
func (p *Predictor) TrainedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return time.Time{}
	}
	return p.current.trainedAt
}

// Algorithms returns the active algorithm names in sorted order
func (p *Predictor) Algorithms() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	names := make([]string, 0, len(p.current.models))
	for name := range p.current.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the feature schema of the active snapshot
func (p *Predictor) Schema() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	return append([]string(nil), p.current.schema...)
}

// Encoder returns a copy of the active snapshot's condition encoder so the
// trained vocabulary can be reused without mutating the snapshot. Returns an
// empty encoder when untrained.
func (p *Predictor) Encoder() *features.ConditionEncoder {
	p.mu.RLock()
	defer p.mu.RUnlock()
	enc := features.NewConditionEncoder()
	if p.current == nil {
		return enc
	}
	for label, code := range p.current.builder.Encoder().Vocab {
		enc.Vocab[label] = code
	}
	return enc
}

// Scores returns the holdout R² per active algorithm
func (p *Predictor) Scores() map[string]float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	scores := make(map[string]float64, len(p.current.scores))
	for k, v := range p.current.scores {
		scores[k] = v
	}
	return scores
}

// PredictTemperature scores the current conditions for each hour in
// [1..hoursAhead] and combines the per-algorithm outputs as a plain mean.
//
// Future feature vectors advance the time features to the target hour but
// approximate lag and rolling features from the current reading alone (no
// future history exists). This inflates apparent accuracy relative to true
// multi-step forecasting and is a documented limitation.
func (p *Predictor) PredictTemperature(ctx context.Context, current models.Observation, hoursAhead int) ([]models.PredictionResult, error) {
	return p.predict(ctx, current, hoursAhead, nil)
}

// PredictWeighted behaves like PredictTemperature but combines per-algorithm
// outputs with the given ensemble weights instead of a plain mean.
func (p *Predictor) PredictWeighted(ctx context.Context, current models.Observation, hoursAhead int, weights models.EnsembleWeights) ([]models.PredictionResult, error) {
	return p.predict(ctx, current, hoursAhead, weights)
}

// PredictSingle returns the named algorithm's raw output per hour, bypassing
// ensemble combination.
func (p *Predictor) PredictSingle(ctx context.Context, algorithm string, current models.Observation, hoursAhead int) ([]models.PredictionResult, error) {
	snap := p.active()
	if snap == nil {
		return []models.PredictionResult{}, nil
	}
	model, ok := snap.models[algorithm]
	if !ok {
		return nil, models.ErrModelNotFound
	}

	started := time.Now()
	results := make([]models.PredictionResult, 0, max(hoursAhead, 0))
	for h := 1; h <= hoursAhead; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at := current.Timestamp.Add(time.Duration(h) * time.Hour)
		vec := snap.builder.VectorForHorizon(current, at, snap.schema)
		out := scoreModel(model, vec)
		results = append(results, models.PredictionResult{
			Timestamp:        at,
			Predicted:        out,
			ConfidenceLower:  out,
			ConfidenceUpper:  out,
			Pattern:          models.ClassifyPattern(out, current.Humidity),
			AccuracyEstimate: snap.accuracy(),
			Features:         snap.schema,
		})
	}
	metrics.RecordPrediction(time.Since(started).Seconds())
	return results, nil
}

func (p *Predictor) predict(ctx context.Context, current models.Observation, hoursAhead int, weights models.EnsembleWeights) ([]models.PredictionResult, error) {
	snap := p.active()
	if snap == nil || len(snap.models) == 0 {
		return []models.PredictionResult{}, nil
	}

	started := time.Now()
	accuracy := snap.accuracy()
	results := make([]models.PredictionResult, 0, max(hoursAhead, 0))
	for h := 1; h <= hoursAhead; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		at := current.Timestamp.Add(time.Duration(h) * time.Hour)
		vec := snap.builder.VectorForHorizon(current, at, snap.schema)

		outputs := make(map[string]float64, len(snap.models))
		values := make([]float64, 0, len(snap.models))
		for name, model := range snap.models {
			out := scoreModel(model, vec)
			outputs[name] = out
			values = append(values, out)
		}

		predicted := combine(outputs, values, weights)
		spread := 0.0
		if len(values) > 1 {
			spread = math.Sqrt(stat.PopVariance(values, nil))
		}

		results = append(results, models.PredictionResult{
			Timestamp:        at,
			Predicted:        predicted,
			ConfidenceLower:  predicted - confidenceZ*spread,
			ConfidenceUpper:  predicted + confidenceZ*spread,
			Pattern:          models.ClassifyPattern(predicted, current.Humidity),
			AccuracyEstimate: accuracy,
			Features:         snap.schema,
		})
	}

	metrics.RecordPrediction(time.Since(started).Seconds())
	return results, nil
}

// Outputs scores every active algorithm once, with time features advanced to
// the given instant. Names come back in sorted order so callers that break
// ties by first-seen order stay deterministic.
func (p *Predictor) Outputs(current models.Observation, at time.Time) ([]string, map[string]float64) {
	snap := p.active()
	if snap == nil || len(snap.models) == 0 {
		return nil, nil
	}

	vec := snap.builder.VectorForHorizon(current, at, snap.schema)
	names := make([]string, 0, len(snap.models))
	for name := range snap.models {
		names = append(names, name)
	}
	sort.Strings(names)

	outputs := make(map[string]float64, len(names))
	for _, name := range names {
		outputs[name] = scoreModel(snap.models[name], vec)
	}
	return names, outputs
}

// ScoreMatrix returns the plain ensemble-mean output for every feature row.
// Used by validation passes that re-score trained models on fresh data.
func (p *Predictor) ScoreMatrix(X [][]float64) ([]float64, error) {
	snap := p.active()
	if snap == nil || len(snap.models) == 0 {
		return nil, models.ErrModelNotTrained
	}

	outputs := make([]float64, len(X))
	for i, row := range X {
		sum := 0.0
		for _, model := range snap.models {
			sum += scoreModel(model, row)
		}
		outputs[i] = sum / float64(len(snap.models))
	}
	return outputs, nil
}

func (p *Predictor) active() *snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// scoreModel evaluates one model, mapping failures and non-finite outputs to
// 0.0 instead of propagating them.
func scoreModel(model regressor.Model, vec []float64) float64 {
	out, err := model.Predict(vec)
	if err != nil || math.IsNaN(out) || math.IsInf(out, 0) {
		return 0.0
	}
	return out
}

func combine(outputs map[string]float64, values []float64, weights models.EnsembleWeights) float64 {
	if len(weights) == 0 {
		return stat.Mean(values, nil)
	}
	weighted := 0.0
	total := 0.0
	for name, out := range outputs {
		w, ok := weights[name]
		if !ok {
			continue
		}
		weighted += w * out
		total += w
	}
	if total <= 0 {
		return stat.Mean(values, nil)
	}
	return weighted / total
}

// accuracy is the mean holdout R² across algorithms, clamped to [0,1].
func (s *snapshot) accuracy() float64 {
	if len(s.scores) == 0 {
		return defaultAccuracy
	}
	sum := 0.0
	for _, r2 := range s.scores {
		sum += r2
	}
	mean := sum / float64(len(s.scores))
	return math.Min(1, math.Max(0, mean))
}
