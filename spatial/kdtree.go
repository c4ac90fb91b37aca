package spatial

import (
	"container/heap"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// KDTree is an Index backed by a gonum k-d tree.
type KDTree struct {
	tree *kdtree.Tree
	n    int
	dims int
}

// NewKDTree builds a k-d tree over the rows of ref. The rows are copied, so
// ref may be modified afterwards. Construction uses median-of-medians pivots
// and is therefore deterministic.
func NewKDTree(ref mat.Matrix) (*KDTree, error) {
	n, dims, err := checkReference(ref)
	if err != nil {
		return nil, err
	}
	rows := copyRows(ref)
	pts := make(points, n)
	for i, row := range rows {
		pts[i] = point{idx: i, coords: row}
	}
	return &KDTree{
		tree: kdtree.New(pts, false),
		n:    n,
		dims: dims,
	}, nil
}

// Len returns the number of reference points.
func (t *KDTree) Len() int { return t.n }

// Dims returns the dimensionality of the reference points.
func (t *KDTree) Dims() int { return t.dims }

// Query implements Index.
func (t *KDTree) Query(q mat.Matrix, k int) (*mat.Dense, [][]int, error) {
	rows, err := checkQuery(q, t.n, t.dims, k)
	if err != nil {
		return nil, nil, err
	}
	queries := copyRows(q)
	distances := mat.NewDense(rows, k, nil)
	indices := make([][]int, rows)

	forEachRow(rows, func(i int) {
		keep := newRankKeeper(k)
		t.tree.NearestSet(keep, point{idx: -1, coords: queries[i]})

		row := distances.RawRowView(i)
		idx := make([]int, k)
		for j, c := range keep.Heap {
			row[j] = math.Sqrt(c.Dist)
			idx[j] = c.Comparable.(point).idx
		}
		indices[i] = idx
	})
	return distances, indices, nil
}

// point is a reference row tagged with its row index.
type point struct {
	idx    int
	coords []float64
}

// Compare satisfies kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.coords[d] - c.(point).coords[d]
}

// Dims satisfies kdtree.Comparable.
func (p point) Dims() int { return len(p.coords) }

// Distance returns the squared Euclidean distance, as kdtree expects.
func (p point) Distance(c kdtree.Comparable) float64 {
	return squaredDistance(p.coords, c.(point).coords)
}

// points satisfies kdtree.Interface.
type points []point

func (p points) Index(i int) kdtree.Comparable         { return p[i] }
func (p points) Len() int                              { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface { return p[start:end] }
func (p points) Pivot(d kdtree.Dim) int {
	pl := plane{points: p, Dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane sorts points along one dimension.
type plane struct {
	points
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.points[i].coords[p.Dim] < p.points[j].coords[p.Dim]
}
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{points: p.points[start:end], Dim: p.Dim}
}
func (p plane) Swap(i, j int) {
	p.points[i], p.points[j] = p.points[j], p.points[i]
}

// rankKeeper retains the k best candidates ordered by (distance, row
// index). kdtree.NKeeper orders by distance only, which makes the winner of
// a tie depend on traversal order.
type rankKeeper struct {
	kdtree.Heap
}

func newRankKeeper(k int) *rankKeeper {
	h := make(kdtree.Heap, 1, k)
	h[0].Dist = math.Inf(1)
	return &rankKeeper{Heap: h}
}

// Less orders the heap so the worst candidate (or the sentinel) is at the root.
func (r *rankKeeper) Less(i, j int) bool {
	a, b := r.Heap[i], r.Heap[j]
	if a.Comparable == nil {
		return true
	}
	if b.Comparable == nil {
		return false
	}
	return closer(b.Dist, b.Comparable.(point).idx, a.Dist, a.Comparable.(point).idx)
}

// Keep satisfies kdtree.Keeper.
func (r *rankKeeper) Keep(c kdtree.ComparableDist) {
	worst := r.Heap[0]
	if worst.Comparable != nil && !closer(c.Dist, c.Comparable.(point).idx, worst.Dist, worst.Comparable.(point).idx) {
		return
	}
	if len(r.Heap) == cap(r.Heap) {
		r.Heap[0] = c
		heap.Fix(r, 0)
		return
	}
	heap.Push(r, c)
}
