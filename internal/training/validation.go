package training

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/skycast/internal/features"
	"github.com/yourusername/skycast/internal/models"
)

// ValidateModels re-scores the currently trained models against a fresh
// recent-data sample using the plain ensemble-averaged prediction and an R²
// recomputed here, independent of the trainer's own metric path. Serves as a
// sanity cross-check that the persisted and in-memory state still predicts.
func (o *Orchestrator) ValidateModels(ctx context.Context) (float64, error) {
	if !o.predictor.Trained() {
		return 0, models.ErrModelNotTrained
	}

	since := time.Now().AddDate(0, 0, -o.cfg.Training.HistoryWindowDays)
	raw, err := o.obsStore.LoadHistorical(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("failed to load validation sample: %w", err)
	}

	// The trained vocabulary must be reused here: refitting an encoder on
	// the validation window would renumber condition codes under the models.
	cleaned := Clean(raw)
	builder := features.NewBuilder(o.predictor.Encoder())
	X, _, y, err := builder.FrozenMatrix(cleaned)
	if err != nil {
		return 0, err
	}

	schemaLen := len(o.predictor.Schema())
	for i := range X {
		X[i] = features.AlignVector(X[i], schemaLen)
	}

	predicted, err := o.predictor.ScoreMatrix(X)
	if err != nil {
		return 0, err
	}

	return manualRSquared(predicted, y), nil
}

// manualRSquared recomputes 1 - SSres/SStot from scratch. Duplicating the
// formula here is deliberate; the point of the check is not trusting the
// trainer's metric code.
func manualRSquared(predicted, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}

	mean := 0.0
	for _, v := range actual {
		mean += v
	}
	mean /= float64(len(actual))

	ssRes, ssTot := 0.0, 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}
