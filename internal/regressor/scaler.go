package regressor

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes features to zero mean and unit variance. It is
// fitted on the training split only and reused unchanged for holdout
// evaluation and inference.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column mean and standard deviation. Columns with
// zero variance get unit scale so they standardize to a constant zero
// instead of dividing by zero.
func FitScaler(X [][]float64) (*StandardScaler, error) {
	if len(X) == 0 || len(X[0]) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty matrix")
	}

	cols := len(X[0])
	s := &StandardScaler{
		Mean:  make([]float64, cols),
		Scale: make([]float64, cols),
	}

	column := make([]float64, len(X))
	for c := 0; c < cols; c++ {
		for r := range X {
			column[r] = X[r][c]
		}
		s.Mean[c] = stat.Mean(column, nil)
		sd := stat.StdDev(column, nil)
		if sd <= 0 {
			sd = 1
		}
		s.Scale[c] = sd
	}

	return s, nil
}

// Transform standardizes a single row. The row length must match the fitted
// column count.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("scaler fitted on %d columns, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

// TransformMatrix standardizes every row of a matrix.
func (s *StandardScaler) TransformMatrix(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
