package models

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultTreeMaxDepth        = 10
	DefaultTreeMinSamplesSplit = 10
	DefaultTreeMinSamplesLeaf  = 5
)

var (
	ErrInvalidMaxDepth   = errors.New("max depth must be positive")
	ErrInvalidMinSamples = errors.New("min samples must be positive")
)

// TreeOptions represents input options to grow a regression decision tree
type TreeOptions struct {
	// MaxDepth bounds the depth of the tree. The root is at depth 0.
	MaxDepth int

	// MinSamplesSplit is the minimum number of samples an internal node needs to be considered
	// for splitting.
	MinSamplesSplit int

	// MinSamplesLeaf is the minimum number of samples each side of a candidate split must keep.
	MinSamplesLeaf int
}

// Validate runs basic validation on tree options
func (t *TreeOptions) Validate() (*TreeOptions, error) {
	if t == nil {
		t = NewDefaultTreeOptions()
	}
	if t.MaxDepth <= 0 {
		return nil, ErrInvalidMaxDepth
	}
	if t.MinSamplesSplit <= 0 || t.MinSamplesLeaf <= 0 {
		return nil, ErrInvalidMinSamples
	}
	return t, nil
}

// NewDefaultTreeOptions returns a default set of decision tree options
func NewDefaultTreeOptions() *TreeOptions {
	return &TreeOptions{
		MaxDepth:        DefaultTreeMaxDepth,
		MinSamplesSplit: DefaultTreeMinSamplesSplit,
		MinSamplesLeaf:  DefaultTreeMinSamplesLeaf,
	}
}

// TreeNode is one node of a fitted tree in the flat node arena. Children
// reference arena indices so the structure serializes directly.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
	Leaf      bool    `json:"leaf"`
}

// DecisionTree is a CART regression tree minimizing squared error at each
// split.
type DecisionTree struct {
	opt         *TreeOptions
	nodes       []TreeNode
	nFeatures   int
	importances []float64
	fitted      bool
}

// NewDecisionTree initializes a decision tree ready for fitting
func NewDecisionTree(opt *TreeOptions) (*DecisionTree, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &DecisionTree{
		opt: opt,
	}, nil
}

// Fit grows the tree on the given training data
func (d *DecisionTree) Fit(x, y mat.Matrix) error {
	if d.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, n := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	cols := make([][]float64, n)
	for j := 0; j < n; j++ {
		cols[j] = mat.Col(nil, j, x)
	}
	target := targetSlice(y)

	samples := make([]int, m)
	for i := range samples {
		samples[i] = i
	}

	d.nodes = d.nodes[:0]
	d.nFeatures = n
	d.importances = make([]float64, n)
	d.grow(cols, target, samples, 0)
	d.normalizeImportances()
	d.fitted = true
	return nil
}

// grow appends the subtree for the given samples and returns its arena index.
func (d *DecisionTree) grow(cols [][]float64, y []float64, samples []int, depth int) int {
	idx := len(d.nodes)
	sum, sumSq := sumAndSq(y, samples)
	count := float64(len(samples))
	mean := sum / count

	d.nodes = append(d.nodes, TreeNode{
		Feature: -1,
		Left:    -1,
		Right:   -1,
		Value:   mean,
		Leaf:    true,
	})

	if depth >= d.opt.MaxDepth || len(samples) < d.opt.MinSamplesSplit {
		return idx
	}

	sse := sumSq - sum*sum/count
	feature, threshold, gain, ok := d.bestSplit(cols, y, samples, sse)
	if !ok {
		return idx
	}

	left := make([]int, 0, len(samples))
	right := make([]int, 0, len(samples))
	for _, s := range samples {
		if cols[feature][s] <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	d.importances[feature] += gain

	d.nodes[idx].Feature = feature
	d.nodes[idx].Threshold = threshold
	d.nodes[idx].Leaf = false
	d.nodes[idx].Left = d.grow(cols, y, left, depth+1)
	d.nodes[idx].Right = d.grow(cols, y, right, depth+1)
	return idx
}

// bestSplit scans every feature for the threshold with the largest squared
// error reduction, honoring the minimum leaf size on both sides.
func (d *DecisionTree) bestSplit(cols [][]float64, y []float64, samples []int, parentSSE float64) (int, float64, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 1e-12

	order := make([]int, len(samples))
	n := float64(len(samples))

	for j := range cols {
		copy(order, samples)
		col := cols[j]
		sort.Slice(order, func(a, b int) bool { return col[order[a]] < col[order[b]] })

		var leftSum, leftSq float64
		totalSum, totalSq := sumAndSq(y, samples)

		for i := 0; i < len(order)-1; i++ {
			v := y[order[i]]
			leftSum += v
			leftSq += v * v

			if col[order[i]] == col[order[i+1]] {
				continue
			}
			nLeft := float64(i + 1)
			nRight := n - nLeft
			if int(nLeft) < d.opt.MinSamplesLeaf || int(nRight) < d.opt.MinSamplesLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			childSSE := (leftSq - leftSum*leftSum/nLeft) + (rightSq - rightSum*rightSum/nRight)
			gain := parentSSE - childSSE
			if gain > bestGain {
				bestGain = gain
				bestFeature = j
				bestThreshold = (col[order[i]] + col[order[i+1]]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, 0, false
	}
	return bestFeature, bestThreshold, bestGain, true
}

// Predict walks each sample down the fitted tree
func (d *DecisionTree) Predict(x mat.Matrix) ([]float64, error) {
	if d.opt == nil {
		return nil, ErrNoOptions
	}
	if !d.fitted {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}
	m, n := x.Dims()
	if n != d.nFeatures {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, d.nFeatures, ErrFeatureLenMismatch)
	}

	out := make([]float64, m)
	for i := 0; i < m; i++ {
		node := 0
		for !d.nodes[node].Leaf {
			if x.At(i, d.nodes[node].Feature) <= d.nodes[node].Threshold {
				node = d.nodes[node].Left
			} else {
				node = d.nodes[node].Right
			}
		}
		out[i] = d.nodes[node].Value
	}
	return out, nil
}

// FeatureImportances returns the impurity-decrease importance per feature,
// normalized to sum to 1. All zeros when the tree is a single leaf.
func (d *DecisionTree) FeatureImportances() []float64 {
	c := make([]float64, len(d.importances))
	copy(c, d.importances)
	return c
}

// Nodes returns the flat node arena for serialization.
func (d *DecisionTree) Nodes() []TreeNode {
	c := make([]TreeNode, len(d.nodes))
	copy(c, d.nodes)
	return c
}

// Restore rebuilds a fitted tree from serialized state.
func (d *DecisionTree) Restore(nodes []TreeNode, nFeatures int, importances []float64) {
	d.nodes = make([]TreeNode, len(nodes))
	copy(d.nodes, nodes)
	d.nFeatures = nFeatures
	d.importances = make([]float64, len(importances))
	copy(d.importances, importances)
	d.fitted = len(d.nodes) > 0
}

func (d *DecisionTree) normalizeImportances() {
	total := 0.0
	for _, v := range d.importances {
		total += v
	}
	if total <= 0 || math.IsNaN(total) {
		for i := range d.importances {
			d.importances[i] = 0
		}
		return
	}
	for i := range d.importances {
		d.importances[i] /= total
	}
}

func sumAndSq(y []float64, samples []int) (sum, sumSq float64) {
	for _, s := range samples {
		sum += y[s]
		sumSq += y[s] * y[s]
	}
	return sum, sumSq
}
