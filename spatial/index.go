// Package spatial answers k-nearest-neighbour queries over a static set of
// reference points.
//
// Two implementations satisfy Index: a k-d tree backed by gonum's
// spatial/kdtree package (the default) and an exhaustive scan. Both order
// neighbours by ascending Euclidean distance and break distance ties toward
// the lower reference row index, so their results are interchangeable.
package spatial

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoDims is returned when the reference or query points have no columns.
	ErrNoDims = errors.New("spatial: point set has no dimensions")
	// ErrEmptyReference is returned when an index is built from zero points.
	ErrEmptyReference = errors.New("spatial: reference point set is empty")
	// ErrEmptyQuery is returned when a query has zero rows.
	ErrEmptyQuery = errors.New("spatial: query point set is empty")
	// ErrInvalidK is returned when fewer than one neighbour is requested.
	ErrInvalidK = errors.New("spatial: k must be >= 1")
	// ErrTooManyNeighbors is returned when k exceeds the reference population.
	ErrTooManyNeighbors = errors.New("spatial: k exceeds reference population")
	// ErrDimMismatch is returned when query points do not have the index's dimensionality.
	ErrDimMismatch = errors.New("spatial: query dimensionality does not match index")
)

// Index is a static k-nearest-neighbour index.
type Index interface {
	// Query returns, for every row of points, the k closest reference rows.
	// distances is len(points) x k, ascending per row; indices holds the
	// matching reference row indices in the same order.
	Query(points mat.Matrix, k int) (distances *mat.Dense, indices [][]int, err error)

	// Len returns the number of reference points.
	Len() int

	// Dims returns the dimensionality of the reference points.
	Dims() int
}

// Builder constructs an Index over the rows of ref.
type Builder func(ref mat.Matrix) (Index, error)

// KDTreeBuilder is a Builder returning a *KDTree.
func KDTreeBuilder(ref mat.Matrix) (Index, error) {
	t, err := NewKDTree(ref)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// BruteForceBuilder is a Builder returning a *BruteForce.
func BruteForceBuilder(ref mat.Matrix) (Index, error) {
	b, err := NewBruteForce(ref)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ParseBuilder maps an index name ("kdtree" or "brute") to its Builder.
// An empty name selects the k-d tree.
func ParseBuilder(name string) (Builder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "kdtree", "kd-tree", "kd_tree":
		return KDTreeBuilder, nil
	case "brute", "bruteforce", "brute_force":
		return BruteForceBuilder, nil
	}
	return nil, fmt.Errorf("spatial: unknown index %q", name)
}

// copyRows copies the rows of m into fresh slices.
func copyRows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// NilMatrix reports whether m is nil or a nil pointer held in a mat.Matrix,
// such as a (*mat.Dense)(nil), whose Dims would panic.
func NilMatrix(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

func checkReference(m mat.Matrix) (rows, cols int, err error) {
	if NilMatrix(m) {
		return 0, 0, ErrEmptyReference
	}
	rows, cols = m.Dims()
	if cols == 0 {
		return 0, 0, ErrNoDims
	}
	if rows == 0 {
		return 0, 0, ErrEmptyReference
	}
	return rows, cols, nil
}

func checkQuery(points mat.Matrix, n, dims, k int) (int, error) {
	if NilMatrix(points) {
		return 0, ErrEmptyQuery
	}
	rows, cols := points.Dims()
	switch {
	case cols == 0:
		return 0, ErrNoDims
	case cols != dims:
		return 0, fmt.Errorf("%w: got %d columns, index has %d", ErrDimMismatch, cols, dims)
	case rows == 0:
		return 0, ErrEmptyQuery
	case k < 1:
		return 0, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	case k > n:
		return 0, fmt.Errorf("%w: k=%d, reference has %d points", ErrTooManyNeighbors, k, n)
	}
	return rows, nil
}

// forEachRow calls fn for every row in [0, n), splitting the rows into
// contiguous chunks processed concurrently. fn must only write state owned
// by its row.
func forEachRow(n int, fn func(i int)) {
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				fn(i)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// closer reports whether (da, ia) sorts before (db, ib).
func closer(da float64, ia int, db float64, ib int) bool {
	if da != db {
		return da < db
	}
	return ia < ib
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
