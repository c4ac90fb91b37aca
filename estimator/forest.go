package estimator

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Forest is a random forest regressor: bagged regression trees whose
// predictions are averaged.
type Forest struct {
	// Hyperparameters
	NTrees          int
	MaxDepth        int // 0 => unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => every feature at every split
	Bootstrap       bool
	Seed            int64

	trees     []*regressionTree
	nFeatures int
	nOutputs  int
}

// ForestOption configures a Forest.
type ForestOption func(*Forest)

// WithTrees sets the number of trees.
func WithTrees(n int) ForestOption {
	return func(f *Forest) { f.NTrees = n }
}

// WithMaxDepth limits tree depth; 0 means unlimited.
func WithMaxDepth(d int) ForestOption {
	return func(f *Forest) { f.MaxDepth = d }
}

// WithMinSamplesSplit sets the fewest samples a node needs to be split.
func WithMinSamplesSplit(n int) ForestOption {
	return func(f *Forest) { f.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the fewest samples each child of a split keeps.
func WithMinSamplesLeaf(n int) ForestOption {
	return func(f *Forest) { f.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are tried per split; 0 means all.
func WithMaxFeatures(n int) ForestOption {
	return func(f *Forest) { f.MaxFeatures = n }
}

// WithBootstrap toggles sampling rows with replacement for each tree.
func WithBootstrap(b bool) ForestOption {
	return func(f *Forest) { f.Bootstrap = b }
}

// WithSeed fixes the random seed; tree i uses seed+i.
func WithSeed(seed int64) ForestOption {
	return func(f *Forest) { f.Seed = seed }
}

// NewForest returns a forest of 100 fully grown, bootstrapped trees.
// Without WithSeed the seed is time based.
func NewForest(opts ...ForestOption) *Forest {
	f := &Forest{
		NTrees:          100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Seed:            time.Now().UnixNano(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit trains every tree concurrently. Tree i draws its bootstrap sample and
// feature subsets from Seed+i, so a fixed Seed reproduces the forest.
func (f *Forest) Fit(X, Y mat.Matrix) error {
	n, p, m, err := checkXY(X, Y)
	if err != nil {
		return err
	}
	if f.NTrees < 1 {
		return fmt.Errorf("estimator: forest needs at least one tree, got %d", f.NTrees)
	}
	xs, ys := rowsOf(X), rowsOf(Y)

	trees := make([]*regressionTree, f.NTrees)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(f.Seed + int64(i)))
			sample := make([]int, n)
			for j := range sample {
				if f.Bootstrap {
					sample[j] = rng.Intn(n)
				} else {
					sample[j] = j
				}
			}
			tree := &regressionTree{
				maxDepth:        f.MaxDepth,
				minSamplesSplit: f.MinSamplesSplit,
				minSamplesLeaf:  f.MinSamplesLeaf,
				maxFeatures:     f.MaxFeatures,
			}
			tree.fit(xs, ys, sample, rng)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	f.trees = trees
	f.nFeatures = p
	f.nOutputs = m
	return nil
}

// Predict averages the tree predictions for every row of X.
func (f *Forest) Predict(X mat.Matrix) (*mat.Dense, error) {
	r, err := checkPredict(X, f.trees != nil, f.nFeatures)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(r, f.nOutputs, nil)
	x := make([]float64, f.nFeatures)
	scale := 1 / float64(len(f.trees))
	for i := 0; i < r; i++ {
		mat.Row(x, i, X)
		row := out.RawRowView(i)
		for _, t := range f.trees {
			for j, v := range t.predict(x) {
				row[j] += v
			}
		}
		for j := range row {
			row[j] *= scale
		}
	}
	return out, nil
}

// Score returns the R² of the predictions for X against Y.
func (f *Forest) Score(X, Y mat.Matrix) (float64, error) {
	return score(f, X, Y)
}
