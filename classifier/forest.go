package classifier

import (
	"context"
	"math"
	"math/rand"

	"github.com/nvr-ai/go-tumorscope/common"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// ForestOptions configures a random forest.
type ForestOptions struct {
	// NumTrees is the number of trees (default 100).
	NumTrees int
	// MaxFeatures is the number of features drawn per split. Zero means sqrt(F).
	MaxFeatures int
	// MaxDepth limits tree depth. Zero means unlimited.
	MaxDepth int
	// Seed seeds bootstrap sampling and feature draws.
	Seed int64
	// Workers is the number of trees fitted concurrently. Zero uses all CPUs.
	Workers int
}

// RandomForestClassifier is a bagged ensemble of CART trees. Class
// probabilities are the mean of the per-tree leaf distributions.
type RandomForestClassifier struct {
	opts        ForestOptions
	trees       []*DecisionTree
	nClasses    int
	nFeatures   int
	importances []float64
}

// NewRandomForest constructs an unfitted forest.
func NewRandomForest(opts ForestOptions) *RandomForestClassifier {
	if opts.NumTrees < 1 {
		opts.NumTrees = 100
	}
	return &RandomForestClassifier{opts: opts}
}

// Fit grows the forest. Each tree gets its own seed drawn up front from
// opts.Seed, so results do not depend on Workers.
//
// Arguments:
//   - ctx: Cancelling the context aborts fitting between trees.
//   - X: The feature matrix.
//   - y: The class labels in [0, nClasses).
//   - nClasses: The number of classes.
//
// Returns:
//   - error: ErrNoData, ErrInvalidInput or the context error.
func (f *RandomForestClassifier) Fit(ctx context.Context, X [][]float64, y []int, nClasses int) error {
	nFeatures, err := validate(X, y, nClasses)
	if err != nil {
		return err
	}

	maxFeatures := f.opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(nFeatures))))
	}
	params := treeParams{maxFeatures: maxFeatures, minSamplesSplit: 2, maxDepth: f.opts.MaxDepth}

	master := rand.New(rand.NewSource(f.opts.Seed))
	seeds := make([]int64, f.opts.NumTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*DecisionTree, f.opts.NumTrees)
	common.Parallel(len(trees), f.opts.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(X))
			for j := range idx {
				idx[j] = rng.Intn(len(X))
			}
			trees[i] = fitTree(X, y, idx, nClasses, params, rng)
		}
	})
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "random forest fit cancelled")
	}

	importances := make([]float64, nFeatures)
	for _, t := range trees {
		floats.Add(importances, t.importances)
	}
	if sum := floats.Sum(importances); sum > 0 {
		floats.Scale(1/sum, importances)
	}

	f.trees = trees
	f.nClasses = nClasses
	f.nFeatures = nFeatures
	f.importances = importances
	return nil
}

// PredictProba returns the mean of the per-tree leaf class distributions.
func (f *RandomForestClassifier) PredictProba(x []float64) []float64 {
	out := make([]float64, f.nClasses)
	for _, t := range f.trees {
		floats.Add(out, t.PredictProba(x))
	}
	floats.Scale(1/float64(len(f.trees)), out)
	return out
}

// Predict returns the class with the highest mean probability.
func (f *RandomForestClassifier) Predict(x []float64) int {
	return argmax(f.PredictProba(x))
}

// NumClasses returns the number of classes.
func (f *RandomForestClassifier) NumClasses() int { return f.nClasses }

// NumFeatures returns the expected feature vector length.
func (f *RandomForestClassifier) NumFeatures() int { return f.nFeatures }

// Name returns RandomForest.
func (f *RandomForestClassifier) Name() ModelType { return RandomForest }

// NumTrees returns the number of fitted trees.
func (f *RandomForestClassifier) NumTrees() int { return len(f.trees) }

// FeatureImportances returns the impurity-decrease importance of every
// feature, normalized to sum to 1.
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}
