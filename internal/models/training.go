package models

import (
	"time"

	"github.com/google/uuid"
)

// Training run statuses.
const (
	TrainingStatusSuccess = "success"
	TrainingStatusFailed  = "failed"
)

// ModelMetrics holds evaluation metrics for one trained model, computed on
// the chronological holdout split per training run.
type ModelMetrics struct {
	MAE     float64 `json:"mae"`
	MSE     float64 `json:"mse"`
	RMSE    float64 `json:"rmse"`
	R2      float64 `json:"r2"`
	CVScore float64 `json:"cv_score"`
}

// AlgorithmOutcome records the result of training a single algorithm within
// a run. Failures are isolated per algorithm and recorded here rather than
// aborting siblings.
type AlgorithmOutcome struct {
	Algorithm string        `json:"algorithm"`
	Status    string        `json:"status"`
	Metrics   *ModelMetrics `json:"metrics,omitempty"`
	Notes     string        `json:"notes,omitempty"`
}

// TrainingResult is the persisted record of one training run. It is appended
// to the history log and never mutated afterwards.
type TrainingResult struct {
	RunID           uuid.UUID          `json:"run_id"`
	Timestamp       time.Time          `json:"timestamp"`
	Target          string             `json:"target"`
	Outcomes        []AlgorithmOutcome `json:"outcomes"`
	Duration        time.Duration      `json:"duration"`
	DataPoints      int                `json:"data_points"`
	ValidationScore float64            `json:"validation_score"`
	Status          string             `json:"status"`
	Notes           string             `json:"notes,omitempty"`
}

// Succeeded reports whether the run trained at least one algorithm.
func (t *TrainingResult) Succeeded() bool {
	return t.Status == TrainingStatusSuccess
}

// MetricsFor returns the metrics recorded for the named algorithm, or nil.
func (t *TrainingResult) MetricsFor(algorithm string) *ModelMetrics {
	for i := range t.Outcomes {
		if t.Outcomes[i].Algorithm == algorithm {
			return t.Outcomes[i].Metrics
		}
	}
	return nil
}
