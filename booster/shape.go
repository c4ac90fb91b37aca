package booster

import (
	"errors"
	"fmt"

	"github.com/Noofbiz/knnboost/spatial"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned for inputs that are not one or two dimensional, or
// that are empty or ragged.
var ErrShape = errors.New("booster: bad shape")

// AsMatrix normalises raw numeric data into a matrix. A []float64 of length
// n becomes an n x 1 column, a rectangular [][]float64 keeps its shape and a
// mat.Matrix is copied. Anything else fails with ErrShape.
func AsMatrix(v any) (*mat.Dense, error) {
	switch t := v.(type) {
	case mat.Matrix:
		if err := checkMatrix(t); err != nil {
			return nil, err
		}
		return mat.DenseCopyOf(t), nil
	case []float64:
		if len(t) == 0 {
			return nil, fmt.Errorf("%w: empty vector", ErrShape)
		}
		return mat.NewDense(len(t), 1, append([]float64(nil), t...)), nil
	case [][]float64:
		if len(t) == 0 || len(t[0]) == 0 {
			return nil, fmt.Errorf("%w: empty matrix", ErrShape)
		}
		c := len(t[0])
		data := make([]float64, 0, len(t)*c)
		for i, row := range t {
			if len(row) != c {
				return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShape, i, len(row), c)
			}
			data = append(data, row...)
		}
		return mat.NewDense(len(t), c, data), nil
	case nil:
		return nil, fmt.Errorf("%w: nil input", ErrShape)
	case float64, float32, int, int64:
		return nil, fmt.Errorf("%w: scalar input has rank 0", ErrShape)
	case [][][]float64:
		return nil, fmt.Errorf("%w: rank 3 input", ErrShape)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrShape, v)
	}
}

// checkMatrix rejects nil and empty matrices.
func checkMatrix(m mat.Matrix) error {
	if spatial.NilMatrix(m) {
		return fmt.Errorf("%w: nil matrix", ErrShape)
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return fmt.Errorf("%w: empty %dx%d matrix", ErrShape, r, c)
	}
	return nil
}

// ravel flattens m row-major into a vector.
func ravel(m mat.Matrix) *mat.VecDense {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return mat.NewVecDense(len(data), data)
}
