// Package enrich widens a query feature matrix with features taken from its
// nearest neighbours in a reference dataset.
//
// For every query row the widened row is
//
//	[query columns | rank 1 block | rank 2 block | ...]
//
// where each rank block holds the neighbour's feature columns, an
// inverse-distance weight 1/(d+1) and the neighbour's target values. Blocks
// are ordered by ascending distance.
package enrich

import (
	"errors"
	"fmt"

	"github.com/Noofbiz/knnboost/spatial"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidInput is wrapped by every validation failure in this package.
var ErrInvalidInput = errors.New("enrich: invalid input")

// Options controls the layout of the widened matrix.
type Options struct {
	// NNeighbors is the number of neighbour blocks in the output. Must be >= 1.
	NNeighbors int

	// RemoveFirstNeighbor drops the closest neighbour before building blocks.
	// Set it when the query set is the reference set itself so that a row is
	// not enriched with its own values.
	RemoveFirstNeighbor bool

	// RemoveTargetSpatialCols drops the spatial columns from the query's own
	// columns.
	RemoveTargetSpatialCols bool

	// RemoveNeighborSpatialCols drops the spatial columns from every
	// neighbour block.
	RemoveNeighborSpatialCols bool
}

// k returns the number of neighbours to retrieve and the first rank kept.
func (o Options) k() (k, first int) {
	if o.RemoveFirstNeighbor {
		first = 1
	}
	return o.NNeighbors + first, first
}

// Reference is a reference dataset with its spatial index built once, so it
// can enrich any number of query sets.
type Reference struct {
	x           *mat.Dense
	y           *mat.Dense
	spatialCols []int
	index       spatial.Index
}

// NewReference validates the reference data, copies it and builds the
// spatial index over baseX restricted to spatialCols. A nil build selects
// the k-d tree.
func NewReference(baseX, baseY mat.Matrix, spatialCols []int, build spatial.Builder) (*Reference, error) {
	if spatial.NilMatrix(baseX) || spatial.NilMatrix(baseY) {
		return nil, fmt.Errorf("%w: reference matrices must not be nil", ErrInvalidInput)
	}
	xr, xc := baseX.Dims()
	yr, yc := baseY.Dims()
	if xr == 0 || xc == 0 || yc == 0 {
		return nil, fmt.Errorf("%w: empty reference matrix (X %dx%d, Y %dx%d)", ErrInvalidInput, xr, xc, yr, yc)
	}
	if xr != yr {
		return nil, fmt.Errorf("%w: reference X has %d rows, Y has %d", ErrInvalidInput, xr, yr)
	}
	if err := checkColumns(spatialCols, xc); err != nil {
		return nil, err
	}
	if build == nil {
		build = spatial.KDTreeBuilder
	}

	x := mat.DenseCopyOf(baseX)
	index, err := build(selectColumns(x, spatialCols))
	if err != nil {
		return nil, fmt.Errorf("enrich: build spatial index: %w", err)
	}
	return &Reference{
		x:           x,
		y:           mat.DenseCopyOf(baseY),
		spatialCols: append([]int(nil), spatialCols...),
		index:       index,
	}, nil
}

// Len returns the number of reference rows.
func (r *Reference) Len() int { return r.index.Len() }

// X returns the stored reference features.
func (r *Reference) X() mat.Matrix { return r.x }

// Y returns the stored reference targets.
func (r *Reference) Y() mat.Matrix { return r.y }

// SpatialCols returns a copy of the spatial column indices.
func (r *Reference) SpatialCols() []int { return append([]int(nil), r.spatialCols...) }

// Enrich builds the widened matrix for targetX against the reference.
func (r *Reference) Enrich(targetX mat.Matrix, opts Options) (*mat.Dense, error) {
	if opts.NNeighbors < 1 {
		return nil, fmt.Errorf("%w: n_neighbors must be >= 1, got %d", ErrInvalidInput, opts.NNeighbors)
	}
	if spatial.NilMatrix(targetX) {
		return nil, fmt.Errorf("%w: query matrix must not be nil", ErrInvalidInput)
	}
	_, refCols := r.x.Dims()
	rows, cols := targetX.Dims()
	if cols != refCols {
		return nil, fmt.Errorf("%w: query has %d columns, reference has %d", ErrInvalidInput, cols, refCols)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%w: query matrix is empty", ErrInvalidInput)
	}

	k, first := opts.k()
	distances, indices, err := r.index.Query(selectColumns(targetX, r.spatialCols), k)
	if err != nil {
		return nil, fmt.Errorf("enrich: query %d neighbours: %w", k, err)
	}

	neighborCols := keptColumns(refCols, r.spatialCols, opts.RemoveNeighborSpatialCols)
	targetCols := keptColumns(cols, r.spatialCols, opts.RemoveTargetSpatialCols)
	_, yCols := r.y.Dims()
	width := len(targetCols) + opts.NNeighbors*(len(neighborCols)+1+yCols)

	out := mat.NewDense(rows, width, nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		pos := 0
		for _, j := range targetCols {
			row[pos] = targetX.At(i, j)
			pos++
		}
		for rank := first; rank < k; rank++ {
			nb := indices[i][rank]
			src := r.x.RawRowView(nb)
			for _, j := range neighborCols {
				row[pos] = src[j]
				pos++
			}
			row[pos] = 1 / (distances.At(i, rank) + 1)
			pos++
			pos += copy(row[pos:], r.y.RawRowView(nb))
		}
	}
	return out, nil
}

// Enrich builds a k-d tree over baseX restricted to spatialCols and returns
// the widened matrix for targetX. Use NewReference to reuse the index
// across calls.
func Enrich(baseX, baseY, targetX mat.Matrix, spatialCols []int, opts Options) (*mat.Dense, error) {
	ref, err := NewReference(baseX, baseY, spatialCols, spatial.KDTreeBuilder)
	if err != nil {
		return nil, err
	}
	return ref.Enrich(targetX, opts)
}

func checkColumns(cols []int, n int) error {
	if len(cols) == 0 {
		return fmt.Errorf("%w: spatial column set is empty", ErrInvalidInput)
	}
	seen := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c < 0 || c >= n {
			return fmt.Errorf("%w: spatial column %d out of range [0,%d)", ErrInvalidInput, c, n)
		}
		if seen[c] {
			return fmt.Errorf("%w: spatial column %d listed twice", ErrInvalidInput, c)
		}
		seen[c] = true
	}
	return nil
}

// keptColumns returns 0..n-1, minus the spatial columns when drop is set.
func keptColumns(n int, spatialCols []int, drop bool) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if drop && contains(spatialCols, i) {
			continue
		}
		out = append(out, i)
	}
	return out
}

func contains(cols []int, c int) bool {
	for _, v := range cols {
		if v == c {
			return true
		}
	}
	return false
}

// selectColumns gathers the listed columns of m into a new dense matrix.
func selectColumns(m mat.Matrix, cols []int) *mat.Dense {
	rows, _ := m.Dims()
	out := mat.NewDense(rows, len(cols), nil)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		for j, c := range cols {
			row[j] = m.At(i, c)
		}
	}
	return out
}
