package estimator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares regressor with an intercept.
//
// The design matrix is augmented with sqrt(Alpha)*I rows under the feature
// columns, which is ridge regression with an unpenalised intercept. A small
// Alpha keeps the QR solve well defined when enriched features are collinear.
type Linear struct {
	Alpha float64

	coef      *mat.Dense // (p+1) x m, row 0 is the intercept
	nFeatures int
}

// NewLinear returns a least squares regressor with Alpha 1e-8.
func NewLinear() *Linear {
	return &Linear{Alpha: 1e-8}
}

// Fit solves for the coefficients with gonum's QR based Solve.
func (l *Linear) Fit(X, Y mat.Matrix) error {
	n, p, m, err := checkXY(X, Y)
	if err != nil {
		return err
	}
	if l.Alpha < 0 {
		return fmt.Errorf("estimator: negative alpha %g", l.Alpha)
	}

	rows := n
	if l.Alpha > 0 {
		rows += p
	}
	a := mat.NewDense(rows, p+1, nil)
	b := mat.NewDense(rows, m, nil)
	for i := 0; i < n; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			a.Set(i, j+1, X.At(i, j))
		}
		for j := 0; j < m; j++ {
			b.Set(i, j, Y.At(i, j))
		}
	}
	if l.Alpha > 0 {
		s := math.Sqrt(l.Alpha)
		for j := 0; j < p; j++ {
			a.Set(n+j, j+1, s)
		}
	}

	var coef mat.Dense
	if err := coef.Solve(a, b); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || !finite(&coef) {
			return fmt.Errorf("estimator: least squares: %w", err)
		}
	}

	l.coef = &coef
	l.nFeatures = p
	return nil
}

// Predict returns [1 | X] · coef.
func (l *Linear) Predict(X mat.Matrix) (*mat.Dense, error) {
	r, err := checkPredict(X, l.coef != nil, l.nFeatures)
	if err != nil {
		return nil, err
	}
	_, m := l.coef.Dims()
	w := l.coef.Slice(1, l.nFeatures+1, 0, m)
	out := mat.NewDense(r, m, nil)
	out.Mul(X, w)
	intercept := l.coef.RawRowView(0)
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		for j := range row {
			row[j] += intercept[j]
		}
	}
	return out, nil
}

// Score returns the R² of the predictions for X against Y.
func (l *Linear) Score(X, Y mat.Matrix) (float64, error) {
	return score(l, X, Y)
}

// Coefficients returns a copy of the fitted coefficients, intercept first,
// or nil before Fit.
func (l *Linear) Coefficients() *mat.Dense {
	if l.coef == nil {
		return nil
	}
	return mat.DenseCopyOf(l.coef)
}

func finite(m *mat.Dense) bool {
	r, c := m.Dims()
	if r == 0 {
		return false
	}
	for i := 0; i < r; i++ {
		for _, v := range m.RawRowView(i) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return c > 0
}
