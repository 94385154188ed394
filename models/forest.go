package models

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

const (
	DefaultForestTrees           = 100
	DefaultForestMaxDepth        = 15
	DefaultForestMinSamplesSplit = 10
	DefaultForestMinSamplesLeaf  = 5
	DefaultForestSeed            = 42
)

var ErrInvalidTreeCount = errors.New("tree count must be positive")

// ForestOptions represents input options to fit a random forest regressor
type ForestOptions struct {
	// Trees is the number of bootstrap trees in the ensemble.
	Trees int

	// Tree holds the options each member tree is grown with.
	Tree TreeOptions

	// Seed fixes the bootstrap sampling so repeated fits on the same data
	// produce the same ensemble.
	Seed int64
}

// Validate runs basic validation on forest options
func (f *ForestOptions) Validate() (*ForestOptions, error) {
	if f == nil {
		f = NewDefaultForestOptions()
	}
	if f.Trees <= 0 {
		return nil, ErrInvalidTreeCount
	}
	if _, err := f.Tree.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewDefaultForestOptions returns a default set of random forest options
func NewDefaultForestOptions() *ForestOptions {
	return &ForestOptions{
		Trees: DefaultForestTrees,
		Tree: TreeOptions{
			MaxDepth:        DefaultForestMaxDepth,
			MinSamplesSplit: DefaultForestMinSamplesSplit,
			MinSamplesLeaf:  DefaultForestMinSamplesLeaf,
		},
		Seed: DefaultForestSeed,
	}
}

// RandomForest averages an ensemble of CART trees each grown on a
// bootstrap resample of the training data.
type RandomForest struct {
	opt       *ForestOptions
	trees     []*DecisionTree
	nFeatures int
	fitted    bool
}

// NewRandomForest initializes a random forest ready for fitting
func NewRandomForest(opt *ForestOptions) (*RandomForest, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RandomForest{
		opt: opt,
	}, nil
}

// Fit grows the ensemble on the given training data
func (f *RandomForest) Fit(x, y mat.Matrix) error {
	if f.opt == nil {
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

	target := targetSlice(y)
	xd := mat.DenseCopyOf(x)

	f.trees = make([]*DecisionTree, f.opt.Trees)
	f.nFeatures = n

	boot := mat.NewDense(m, n, nil)
	bootY := mat.NewDense(m, 1, nil)
	for t := 0; t < f.opt.Trees; t++ {
		rng := rand.New(rand.NewSource(f.opt.Seed + int64(t)))
		for i := 0; i < m; i++ {
			s := rng.Intn(m)
			boot.SetRow(i, xd.RawRowView(s))
			bootY.Set(i, 0, target[s])
		}

		treeOpt := f.opt.Tree
		tree, err := NewDecisionTree(&treeOpt)
		if err != nil {
			return err
		}
		if err := tree.Fit(boot, bootY); err != nil {
			return fmt.Errorf("fitting bootstrap tree %d, %w", t, err)
		}
		f.trees[t] = tree
	}
	f.fitted = true
	return nil
}

// Predict averages the member tree predictions
func (f *RandomForest) Predict(x mat.Matrix) ([]float64, error) {
	if f.opt == nil {
		return nil, ErrNoOptions
	}
	if !f.fitted {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	m, _ := x.Dims()
	out := make([]float64, m)
	for _, tree := range f.trees {
		p, err := tree.Predict(x)
		if err != nil {
			return nil, err
		}
		for i, v := range p {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(f.trees))
	}
	return out, nil
}

// FeatureImportances returns the mean of the member tree importances.
func (f *RandomForest) FeatureImportances() []float64 {
	out := make([]float64, f.nFeatures)
	if len(f.trees) == 0 {
		return out
	}
	for _, tree := range f.trees {
		for i, v := range tree.FeatureImportances() {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(f.trees))
	}
	return out
}

// Trees returns the fitted member trees for serialization.
func (f *RandomForest) Trees() []*DecisionTree {
	return f.trees
}

// Restore rebuilds a fitted forest from serialized member trees.
func (f *RandomForest) Restore(trees []*DecisionTree, nFeatures int) {
	f.trees = trees
	f.nFeatures = nFeatures
	f.fitted = len(trees) > 0
}
