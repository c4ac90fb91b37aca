package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// R2Score returns the coefficient of determination, averaged uniformly over
// target columns. A constant column scores 1 when predicted exactly and 0
// otherwise.
func R2Score(yTrue, yPred mat.Matrix) (float64, error) {
	n, m, err := sameShape(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	truth := make([]float64, n)
	pred := make([]float64, n)
	var total float64
	for j := 0; j < m; j++ {
		mat.Col(truth, j, yTrue)
		mat.Col(pred, j, yPred)

		mean := stat.Mean(truth, nil)
		var ssTot float64
		for _, v := range truth {
			d := v - mean
			ssTot += d * d
		}
		ssRes := floats.Distance(truth, pred, 2)
		ssRes *= ssRes

		switch {
		case ssTot != 0:
			total += 1 - ssRes/ssTot
		case ssRes == 0:
			total++
		}
	}
	return total / float64(m), nil
}

// MSE returns the mean squared error over every cell.
func MSE(yTrue, yPred mat.Matrix) (float64, error) {
	n, m, err := sameShape(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	var diff mat.Dense
	diff.Sub(yTrue, yPred)
	norm := mat.Norm(&diff, 2)
	return norm * norm / float64(n*m), nil
}

func sameShape(a, b mat.Matrix) (int, int, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return 0, 0, fmt.Errorf("%w: %dx%d vs %dx%d", ErrShape, ar, ac, br, bc)
	}
	if ar == 0 || ac == 0 {
		return 0, 0, fmt.Errorf("%w: empty matrix", ErrShape)
	}
	return ar, ac, nil
}
