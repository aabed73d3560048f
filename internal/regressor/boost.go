package regressor

import (
	"encoding/json"
	"fmt"
)

// Boost is a gradient-boosted ensemble of shallow regression trees trained
// on raw, unscaled features. Each round fits a tree to the residuals of the
// running prediction; the learning rate shrinks each tree's contribution.
type Boost struct {
	schema []string
	seed   int64
	state  boostState
	fitted bool
}

type boostState struct {
	Base       float64            `json:"base"`
	Rate       float64            `json:"rate"`
	Trees      []*treeNode        `json:"trees"`
	Importance map[string]float64 `json:"importance,omitempty"`
}

// Boosting parameters.
const (
	boostRounds   = 100
	boostMaxDepth = 3
	boostMinLeaf  = 5
	boostRate     = 0.1
)

// NewBoost creates an untrained boosted model bound to a feature schema.
func NewBoost(schema []string, seed int64) *Boost {
	return &Boost{schema: schema, seed: seed}
}

// Name returns the algorithm identifier.
func (b *Boost) Name() string { return AlgorithmBoost }

// Fit runs the boosting rounds. The procedure is fully deterministic: every
// round fits on all rows, so the seed only exists to satisfy the shared
// constructor shape.
func (b *Boost) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("boost: matrix has %d rows for %d targets", len(X), len(y))
	}

	base := mean(y)
	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - base
	}

	indices := make([]int, len(X))
	for i := range indices {
		indices[i] = i
	}

	params := treeParams{MaxDepth: boostMaxDepth, MinLeafSize: boostMinLeaf}
	trees := make([]*treeNode, 0, boostRounds)

	for round := 0; round < boostRounds; round++ {
		tree := growTree(X, residuals, indices, params, 0, nil)
		trees = append(trees, tree)
		for i := range residuals {
			residuals[i] -= boostRate * tree.predict(X[i])
		}
	}

	b.state = boostState{
		Base:       base,
		Rate:       boostRate,
		Trees:      trees,
		Importance: treeImportance(b.schema, trees),
	}
	b.fitted = true
	return nil
}

// Predict sums the shrunken tree outputs on top of the base value.
func (b *Boost) Predict(x []float64) (float64, error) {
	if !b.fitted {
		return 0, fmt.Errorf("boost: model not fitted")
	}
	if len(x) != len(b.schema) {
		return 0, fmt.Errorf("boost: expected %d features, got %d", len(b.schema), len(x))
	}

	pred := b.state.Base
	for _, tree := range b.state.Trees {
		pred += b.state.Rate * tree.predict(x)
	}
	return pred, nil
}

// FeatureImportance returns normalized split counts across all rounds.
func (b *Boost) FeatureImportance() map[string]float64 {
	return b.state.Importance
}

// State serializes the learned state.
func (b *Boost) State() ([]byte, error) {
	if !b.fitted {
		return nil, fmt.Errorf("boost: model not fitted")
	}
	return json.Marshal(b.state)
}

// Restore rehydrates the learned state.
func (b *Boost) Restore(state []byte) error {
	var s boostState
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("boost: restore: %w", err)
	}
	if len(s.Trees) == 0 {
		return fmt.Errorf("boost: restore: no trees in state")
	}
	b.state = s
	b.fitted = true
	return nil
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
