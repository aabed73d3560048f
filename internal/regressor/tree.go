package regressor

import (
	"math"
	"sort"
)

// treeNode is one node of a CART regression tree. Splits minimize the summed
// squared error of the two children. The structure is JSON-serializable so
// whole trees round-trip through the model store.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Value     float64   `json:"value"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// treeParams bound tree growth.
type treeParams struct {
	MaxDepth    int
	MinLeafSize int
}

// growTree builds a regression tree over the rows named by indices.
// candidateFeatures limits the columns considered at each split (used by the
// forest for feature subsampling); nil means all columns.
func growTree(X [][]float64, y []float64, indices []int, params treeParams, depth int, candidateFeatures []int) *treeNode {
	if len(indices) == 0 {
		return &treeNode{Leaf: true, Value: 0}
	}

	value := meanAt(y, indices)
	if depth >= params.MaxDepth || len(indices) < 2*params.MinLeafSize {
		return &treeNode{Leaf: true, Value: value}
	}

	feature, threshold, ok := bestSplit(X, y, indices, params.MinLeafSize, candidateFeatures)
	if !ok {
		return &treeNode{Leaf: true, Value: value}
	}

	left := make([]int, 0, len(indices))
	right := make([]int, 0, len(indices))
	for _, i := range indices {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      growTree(X, y, left, params, depth+1, candidateFeatures),
		Right:     growTree(X, y, right, params, depth+1, candidateFeatures),
	}
}

// bestSplit finds the (feature, threshold) pair with the lowest summed
// squared error across both children. Thresholds are midpoints between
// consecutive sorted values; prefix sums make each feature scan linear after
// sorting.
func bestSplit(X [][]float64, y []float64, indices []int, minLeaf int, candidateFeatures []int) (int, float64, bool) {
	cols := len(X[0])
	features := candidateFeatures
	if features == nil {
		features = make([]int, cols)
		for i := range features {
			features[i] = i
		}
	}

	bestSSE := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	order := make([]int, len(indices))
	for _, f := range features {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		// Prefix sums of y and y² in feature order.
		n := len(order)
		sum := 0.0
		sumSq := 0.0
		prefixSum := make([]float64, n+1)
		prefixSumSq := make([]float64, n+1)
		for i, idx := range order {
			sum += y[idx]
			sumSq += y[idx] * y[idx]
			prefixSum[i+1] = sum
			prefixSumSq[i+1] = sumSq
		}

		for i := minLeaf; i <= n-minLeaf; i++ {
			// Only split between distinct feature values.
			if X[order[i-1]][f] == X[order[i]][f] {
				continue
			}

			leftN := float64(i)
			rightN := float64(n - i)
			leftSum := prefixSum[i]
			rightSum := sum - leftSum
			leftSSE := prefixSumSq[i] - leftSum*leftSum/leftN
			rightSSE := (sumSq - prefixSumSq[i]) - rightSum*rightSum/rightN

			sse := leftSSE + rightSSE
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = f
				bestThreshold = (X[order[i-1]][f] + X[order[i]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// predict walks the tree for one feature vector.
func (n *treeNode) predict(x []float64) float64 {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// accumulateImportance adds each internal node's usage into counts, keyed by
// feature index.
func (n *treeNode) accumulateImportance(counts map[int]float64) {
	if n == nil || n.Leaf {
		return
	}
	counts[n.Feature]++
	n.Left.accumulateImportance(counts)
	n.Right.accumulateImportance(counts)
}

func meanAt(y []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += y[i]
	}
	return sum / float64(len(indices))
}
