package estimator

import (
	"math/rand"
	"sort"
)

// regressionTree is a CART regression tree. Splits minimise the summed
// squared error over every target column, so one tree serves multi-output
// targets; leaves predict the column means.
type regressionTree struct {
	maxDepth        int // 0 => unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 => all features

	root *treeNode
}

type treeNode struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold goes left
	left      *treeNode
	right     *treeNode
	value     []float64
}

// fit grows the tree on the rows of X and Y selected by idx. idx may
// contain repeats (bootstrap samples).
func (t *regressionTree) fit(X, Y [][]float64, idx []int, rng *rand.Rand) {
	b := treeBuilder{tree: t, X: X, Y: Y, rng: rng, p: len(X[0]), m: len(Y[0])}
	t.root = b.build(idx, 0)
}

func (t *regressionTree) predict(x []float64) []float64 {
	n := t.root
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

type treeBuilder struct {
	tree *regressionTree
	X, Y [][]float64
	rng  *rand.Rand
	p, m int
}

type split struct {
	feature   int
	threshold float64
	sse       float64
}

func (b *treeBuilder) build(idx []int, depth int) *treeNode {
	sum, sumSq := b.sums(idx)
	node := &treeNode{value: make([]float64, b.m)}
	for j := range sum {
		node.value[j] = sum[j] / float64(len(idx))
	}

	t := b.tree
	if len(idx) < t.minSamplesSplit || len(idx) < 2*t.minSamplesLeaf || (t.maxDepth > 0 && depth >= t.maxDepth) {
		node.leaf = true
		return node
	}
	parent := sse(sum, sumSq, len(idx))
	if parent <= 0 {
		node.leaf = true
		return node
	}

	best := split{feature: -1, sse: parent}
	for _, f := range b.features() {
		if s, ok := b.bestSplit(idx, f); ok && s.sse < best.sse {
			best = s
		}
	}
	if best.feature < 0 {
		node.leaf = true
		return node
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	node.feature = best.feature
	node.threshold = best.threshold
	node.left = b.build(left, depth+1)
	node.right = b.build(right, depth+1)
	return node
}

// features returns the candidate features for one node.
func (b *treeBuilder) features() []int {
	feats := make([]int, b.p)
	for j := range feats {
		feats[j] = j
	}
	k := b.tree.maxFeatures
	if k <= 0 || k >= b.p {
		return feats
	}
	for i := 0; i < k; i++ {
		j := i + b.rng.Intn(b.p-i)
		feats[i], feats[j] = feats[j], feats[i]
	}
	return feats[:k]
}

// bestSplit sweeps the sorted values of feature f, keeping running sums so
// every threshold is scored in O(m).
func (b *treeBuilder) bestSplit(idx []int, f int) (split, bool) {
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, c int) bool {
		va, vc := b.X[order[a]][f], b.X[order[c]][f]
		if va != vc {
			return va < vc
		}
		return order[a] < order[c]
	})

	totalSum, totalSq := b.sums(order)
	leftSum := make([]float64, b.m)
	leftSq := make([]float64, b.m)
	rightSum := make([]float64, b.m)
	rightSq := make([]float64, b.m)

	n := len(order)
	minLeaf := max(b.tree.minSamplesLeaf, 1)
	best := split{feature: -1}
	found := false
	for pos := 1; pos < n; pos++ {
		y := b.Y[order[pos-1]]
		for j, v := range y {
			leftSum[j] += v
			leftSq[j] += v * v
		}
		if pos < minLeaf || n-pos < minLeaf {
			continue
		}
		lo, hi := b.X[order[pos-1]][f], b.X[order[pos]][f]
		if lo == hi {
			continue
		}
		for j := range rightSum {
			rightSum[j] = totalSum[j] - leftSum[j]
			rightSq[j] = totalSq[j] - leftSq[j]
		}
		s := sse(leftSum, leftSq, pos) + sse(rightSum, rightSq, n-pos)
		if !found || s < best.sse {
			thr := lo + (hi-lo)/2
			if thr >= hi {
				thr = lo
			}
			best = split{feature: f, threshold: thr, sse: s}
			found = true
		}
	}
	return best, found
}

func (b *treeBuilder) sums(idx []int) (sum, sumSq []float64) {
	sum = make([]float64, b.m)
	sumSq = make([]float64, b.m)
	for _, i := range idx {
		for j, v := range b.Y[i] {
			sum[j] += v
			sumSq[j] += v * v
		}
	}
	return sum, sumSq
}

// sse is the summed squared error around the mean for n samples.
func sse(sum, sumSq []float64, n int) float64 {
	var total float64
	for j := range sum {
		total += sumSq[j] - sum[j]*sum[j]/float64(n)
	}
	return total
}
