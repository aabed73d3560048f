// Package regressor implements the regression algorithms behind the
// temperature ensemble. Every algorithm satisfies one uniform contract:
// fit on a feature matrix, predict a single row, report feature importance,
// and round-trip its learned state for persistence.
package regressor

import (
	"fmt"
	"sort"

	"github.com/yourusername/skycast/internal/models"
)

// Algorithm names.
const (
	AlgorithmLinear = "linear"
	AlgorithmForest = "forest"
	AlgorithmBoost  = "boost"
)

// defaultSeed fixes all stochastic fitting so that training is reproducible
// and persisted models reload to identical predictions.
const defaultSeed = 42

// Model is the uniform contract every regression algorithm satisfies.
type Model interface {
	// Name returns the algorithm identifier.
	Name() string

	// Fit trains the model on the feature matrix against the target column.
	Fit(X [][]float64, y []float64) error

	// Predict scores a single feature vector. The vector must match the
	// schema the model was fitted against.
	Predict(x []float64) (float64, error)

	// FeatureImportance returns normalized importance per feature name.
	FeatureImportance() map[string]float64

	// State serializes the learned state for durable storage.
	State() ([]byte, error)

	// Restore rehydrates the learned state from storage.
	Restore(state []byte) error
}

// Factory constructs an untrained model bound to a feature schema.
type Factory func(schema []string) Model

var factories = map[string]Factory{
	AlgorithmLinear: func(schema []string) Model { return NewLinear(schema) },
	AlgorithmForest: func(schema []string) Model { return NewForest(schema, defaultSeed) },
	AlgorithmBoost:  func(schema []string) Model { return NewBoost(schema, defaultSeed) },
}

// New constructs the named algorithm. An unknown name is a fatal
// configuration problem surfaced immediately, never degraded.
func New(name string, schema []string) (Model, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: no implementation for algorithm %q", models.ErrDependencyUnavailable, name)
	}
	return factory(schema), nil
}

// Known returns the registered algorithm names in sorted order.
func Known() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
