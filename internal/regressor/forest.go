package regressor

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Forest is a bagged ensemble of regression trees trained on raw, unscaled
// features. Each tree sees a bootstrap sample of the rows and a random
// subset of features per tree; the prediction is the mean across trees.
type Forest struct {
	schema []string
	seed   int64
	state  forestState
	fitted bool
}

type forestState struct {
	Trees      []*treeNode        `json:"trees"`
	Features   [][]int            `json:"features"`
	Importance map[string]float64 `json:"importance,omitempty"`
}

// Forest growth parameters.
const (
	forestTrees    = 50
	forestMaxDepth = 8
	forestMinLeaf  = 3
)

// NewForest creates an untrained forest bound to a feature schema.
func NewForest(schema []string, seed int64) *Forest {
	return &Forest{schema: schema, seed: seed}
}

// Name returns the algorithm identifier.
func (f *Forest) Name() string { return AlgorithmForest }

// Fit grows the bagged trees. Fitting is deterministic for a fixed seed.
func (f *Forest) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("forest: matrix has %d rows for %d targets", len(X), len(y))
	}

	rng := rand.New(rand.NewSource(f.seed))
	cols := len(X[0])
	mtry := cols / 3
	if mtry < 1 {
		mtry = 1
	}

	params := treeParams{MaxDepth: forestMaxDepth, MinLeafSize: forestMinLeaf}
	trees := make([]*treeNode, forestTrees)
	features := make([][]int, forestTrees)

	for t := 0; t < forestTrees; t++ {
		sample := make([]int, len(X))
		for i := range sample {
			sample[i] = rng.Intn(len(X))
		}
		subset := sampleFeatures(rng, cols, mtry)

		trees[t] = growTree(X, y, sample, params, 0, subset)
		features[t] = subset
	}

	f.state = forestState{
		Trees:      trees,
		Features:   features,
		Importance: treeImportance(f.schema, trees),
	}
	f.fitted = true
	return nil
}

// Predict averages the per-tree outputs for one feature vector.
func (f *Forest) Predict(x []float64) (float64, error) {
	if !f.fitted {
		return 0, fmt.Errorf("forest: model not fitted")
	}
	if len(x) != len(f.schema) {
		return 0, fmt.Errorf("forest: expected %d features, got %d", len(f.schema), len(x))
	}

	sum := 0.0
	for _, tree := range f.state.Trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.state.Trees)), nil
}

// FeatureImportance returns normalized split counts across all trees.
func (f *Forest) FeatureImportance() map[string]float64 {
	return f.state.Importance
}

// State serializes the learned trees.
func (f *Forest) State() ([]byte, error) {
	if !f.fitted {
		return nil, fmt.Errorf("forest: model not fitted")
	}
	return json.Marshal(f.state)
}

// Restore rehydrates the learned trees.
func (f *Forest) Restore(state []byte) error {
	var s forestState
	if err := json.Unmarshal(state, &s); err != nil {
		return fmt.Errorf("forest: restore: %w", err)
	}
	if len(s.Trees) == 0 {
		return fmt.Errorf("forest: restore: no trees in state")
	}
	f.state = s
	f.fitted = true
	return nil
}

// sampleFeatures draws mtry distinct column indices, returned sorted for
// deterministic split scanning.
func sampleFeatures(rng *rand.Rand, cols, mtry int) []int {
	perm := rng.Perm(cols)
	subset := append([]int(nil), perm[:mtry]...)
	sortInts(subset)
	return subset
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

// treeImportance normalizes split usage counts across a set of trees.
func treeImportance(schema []string, trees []*treeNode) map[string]float64 {
	counts := make(map[int]float64)
	for _, tree := range trees {
		tree.accumulateImportance(counts)
	}
	total := 0.0
	for _, c := range counts {
		total += c
	}
	importance := make(map[string]float64, len(counts))
	if total == 0 {
		return importance
	}
	for feature, c := range counts {
		if feature >= 0 && feature < len(schema) {
			importance[schema[feature]] = c / total
		}
	}
	return importance
}
