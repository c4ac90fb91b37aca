// Package estimator provides small regressors that satisfy the Booster's
// estimator contract: Fit, Predict and Score over gonum matrices.
//
// Targets may be a column vector (*mat.VecDense) or a multi-column matrix;
// predictions always have one column per target column seen during Fit.
package estimator

import (
	"errors"
	"fmt"
	"reflect"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned by Predict and Score before a successful Fit.
	ErrNotFitted = errors.New("estimator: not fitted")
	// ErrShape is returned when X and Y (or X and the fitted model) disagree.
	ErrShape = errors.New("estimator: shape mismatch")
)

// nilMatrix reports whether m is nil, including a typed nil pointer.
func nilMatrix(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// checkXY validates a training pair and returns its dimensions.
func checkXY(X, Y mat.Matrix) (n, p, m int, err error) {
	if nilMatrix(X) || nilMatrix(Y) {
		return 0, 0, 0, fmt.Errorf("%w: nil training matrix", ErrShape)
	}
	n, p = X.Dims()
	yr, m := Y.Dims()
	if n == 0 || p == 0 || m == 0 {
		return 0, 0, 0, fmt.Errorf("%w: empty training matrix", ErrShape)
	}
	if yr != n {
		return 0, 0, 0, fmt.Errorf("%w: X has %d rows, Y has %d", ErrShape, n, yr)
	}
	return n, p, m, nil
}

// checkPredict validates X against the width seen during Fit.
func checkPredict(X mat.Matrix, fitted bool, p int) (int, error) {
	if !fitted {
		return 0, ErrNotFitted
	}
	if nilMatrix(X) {
		return 0, fmt.Errorf("%w: nil matrix", ErrShape)
	}
	r, c := X.Dims()
	if c != p {
		return 0, fmt.Errorf("%w: X has %d columns, model was fitted on %d", ErrShape, c, p)
	}
	if r == 0 {
		return 0, fmt.Errorf("%w: empty matrix", ErrShape)
	}
	return r, nil
}

func rowsOf(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := 0; i < r; i++ {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}

// score predicts X with p and compares against Y.
func score(p interface {
	Predict(mat.Matrix) (*mat.Dense, error)
}, X, Y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return R2Score(Y, pred)
}
