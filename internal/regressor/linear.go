package regressor

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/sajari/regression"
)

// Linear is an ordinary least squares adapter. Unlike the tree models it
// trains on standardized features; the scaler is part of its learned state
// and is applied again at prediction time. Zero-variance columns are dropped
// before fitting to keep the normal equations well conditioned, and the
// kept-column mask is persisted so reloaded models select identically.
type Linear struct {
	schema []string
	state  linearState
	fitted bool
}

type linearState struct {
	Intercept    float64         `json:"intercept"`
	Coefficients []float64       `json:"coefficients"`
	Kept         []int           `json:"kept"`
	Scaler       *StandardScaler `json:"scaler"`
	Importance   map[string]float64 `json:"importance,omitempty"`
}

// NewLinear creates an untrained linear model bound to a feature schema.
func NewLinear(schema []string) *Linear {
	return &Linear{schema: schema}
}

// Name returns the algorithm identifier.
func (l *Linear) Name() string { return AlgorithmLinear }

// Fit trains by least squares on standardized, variance-filtered features.
func (l *Linear) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("linear: matrix has %d rows for %d targets", len(X), len(y))
	}

	kept := varianceFilteredColumns(X)
	if len(kept) == 0 {
		return fmt.Errorf("linear: every feature column is constant")
	}

	selected := selectColumns(X, kept)
	scaler, err := FitScaler(selected)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}
	standardized, err := scaler.TransformMatrix(selected)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}

	r := new(regression.Regression)
	r.SetObserved("target")
	for i, col := range kept {
		r.SetVar(i, l.schema[col])
	}
	for i := range standardized {
		r.Train(regression.DataPoint(y[i], standardized[i]))
	}
	if err := r.Run(); err != nil {
		return fmt.Errorf("linear: regression failed: %w", err)
	}

	coeffs := make([]float64, len(kept))
	for i := range kept {
		coeffs[i] = r.Coeff(i + 1)
	}
	intercept := r.Coeff(0)

	if !finite(intercept) || !allFinite(coeffs) {
		return fmt.Errorf("linear: regression produced non-finite coefficients")
	}

	l.state = linearState{
		Intercept:    intercept,
		Coefficients: coeffs,
		Kept:         kept,
		Scaler:       scaler,
		Importance:   coefficientImportance(l.schema, kept, coeffs),
	}
	l.fitted = true
	return nil
}

// Predict scores one feature vector, applying the model's own scaler first.
func (l *Linear) Predict(x []float64) (float64, error) {
	if !l.fitted {
		return 0, fmt.Errorf("linear: model not fitted")
	}
	if len(x) != len(l.schema) {
		return 0, fmt.Errorf("linear: expected %d features, got %d", len(l.schema), len(x))
	}

	selected := make([]float64, len(l.state.Kept))
	for i, col := range l.state.Kept {
		selected[i] = x[col]
	}
	standardized, err := l.state.Scaler.Transform(selected)
	if err != nil {
		return 0, fmt.Errorf("linear: %w", err)
	}

	pred := l.state.Intercept
	for i, c := range l.state.Coefficients {
		pred += c * standardized[i]
	}
	return pred, nil
}

// FeatureImportance returns normalized absolute coefficient magnitudes.
func (l *Linear) FeatureImportance() map[string]float64 {
	return l.state.Importance
}

// State serializes the learned state.
func (l *Linear) State() ([]byte, error) {
	if !l.fitted {
		return nil, fmt.Errorf("linear: model not fitted")
	}
	return json.Marshal(l.state)
}

// Restore rehydrates the learned state.
func (l *Linear) Restore(state []byte) error {
	var s linearState
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("linear: restore: %w", err)
	}
	if s.Scaler == nil || len(s.Coefficients) != len(s.Kept) {
		return fmt.Errorf("linear: restore: inconsistent state")
	}
	l.state = s
	l.fitted = true
	return nil
}

// varianceFilteredColumns returns indices of columns that are not constant.
func varianceFilteredColumns(X [][]float64) []int {
	cols := len(X[0])
	kept := make([]int, 0, cols)
	for c := 0; c < cols; c++ {
		first := X[0][c]
		for r := 1; r < len(X); r++ {
			if X[r][c] != first {
				kept = append(kept, c)
				break
			}
		}
	}
	return kept
}

func selectColumns(X [][]float64, kept []int) [][]float64 {
	out := make([][]float64, len(X))
	for r, row := range X {
		sel := make([]float64, len(kept))
		for i, c := range kept {
			sel[i] = row[c]
		}
		out[r] = sel
	}
	return out
}

func coefficientImportance(schema []string, kept []int, coeffs []float64) map[string]float64 {
	total := 0.0
	for _, c := range coeffs {
		total += math.Abs(c)
	}
	importance := make(map[string]float64, len(kept))
	if total == 0 {
		return importance
	}
	for i, col := range kept {
		importance[schema[col]] = math.Abs(coeffs[i]) / total
	}
	return importance
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
