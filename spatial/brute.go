package spatial

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// BruteForce is an Index that scans every reference point for each query.
// It is exact for any dimensionality and is useful for small reference sets
// or as a cross-check for the k-d tree.
type BruteForce struct {
	ref  [][]float64
	dims int
}

// NewBruteForce copies the rows of ref into a brute-force index.
func NewBruteForce(ref mat.Matrix) (*BruteForce, error) {
	_, dims, err := checkReference(ref)
	if err != nil {
		return nil, err
	}
	return &BruteForce{ref: copyRows(ref), dims: dims}, nil
}

// Len returns the number of reference points.
func (b *BruteForce) Len() int { return len(b.ref) }

// Dims returns the dimensionality of the reference points.
func (b *BruteForce) Dims() int { return b.dims }

type candidate struct {
	idx  int
	dist float64
}

// Query implements Index.
func (b *BruteForce) Query(q mat.Matrix, k int) (*mat.Dense, [][]int, error) {
	rows, err := checkQuery(q, len(b.ref), b.dims, k)
	if err != nil {
		return nil, nil, err
	}
	queries := copyRows(q)
	distances := mat.NewDense(rows, k, nil)
	indices := make([][]int, rows)

	forEachRow(rows, func(i int) {
		candidates := make([]candidate, len(b.ref))
		for j, r := range b.ref {
			candidates[j] = candidate{idx: j, dist: squaredDistance(queries[i], r)}
		}
		sort.Slice(candidates, func(x, y int) bool {
			return closer(candidates[x].dist, candidates[x].idx, candidates[y].dist, candidates[y].idx)
		})

		row := distances.RawRowView(i)
		idx := make([]int, k)
		for j := 0; j < k; j++ {
			row[j] = math.Sqrt(candidates[j].dist)
			idx[j] = candidates[j].idx
		}
		indices[i] = idx
	})
	return distances, indices, nil
}
