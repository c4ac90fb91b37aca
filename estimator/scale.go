package estimator

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler standardises columns to zero mean and unit variance. Constant
// columns keep a unit scale so they map to zero.
type scaler struct {
	mean, std []float64
}

func fitScaler(m mat.Matrix) *scaler {
	r, c := m.Dims()
	s := &scaler{mean: make([]float64, c), std: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || std != std {
			std = 1
		}
		s.mean[j], s.std[j] = mean, std
	}
	return s
}

// transform returns the standardised rows of m.
func (s *scaler) transform(m mat.Matrix) [][]float64 {
	rows := rowsOf(m)
	for _, row := range rows {
		for j := range row {
			row[j] = (row[j] - s.mean[j]) / s.std[j]
		}
	}
	return rows
}

// inverse maps a standardised row back in place.
func (s *scaler) inverse(row []float64) {
	for j := range row {
		row[j] = row[j]*s.std[j] + s.mean[j]
	}
}
