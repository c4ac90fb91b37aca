package estimator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type regressor interface {
	Fit(X, Y mat.Matrix) error
	Predict(X mat.Matrix) (*mat.Dense, error)
	Score(X, Y mat.Matrix) (float64, error)
}

// linearData returns y0 = 3x0 - 2x1 + 1 and y1 = x0 + x1, without noise.
func linearData(rng *rand.Rand, n int) (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(n, 2, nil)
	Y := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		a, b := rng.Float64()*4-2, rng.Float64()*4-2
		X.SetRow(i, []float64{a, b})
		Y.SetRow(i, []float64{3*a - 2*b + 1, a + b})
	}
	return X, Y
}

func TestLinearRecoversCoefficients(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(1)), 50)

	l := NewLinear()
	require.NoError(t, l.Fit(X, Y))

	coef := l.Coefficients()
	want := mat.NewDense(3, 2, []float64{
		1, 0,
		3, 1,
		-2, 1,
	})
	assert.True(t, mat.EqualApprox(want, coef, 1e-5), "got %v", mat.Formatted(coef))

	s, err := l.Score(X, Y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-9)
}

func TestLinearCollinearFeatures(t *testing.T) {
	X := mat.NewDense(6, 2, nil)
	y := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		X.SetRow(i, []float64{float64(i), 2 * float64(i)})
		y.SetVec(i, float64(i)+1)
	}

	l := NewLinear()
	require.NoError(t, l.Fit(X, y))
	pred, err := l.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, float64(i)+1, pred.At(i, 0), 1e-4)
	}
}

func TestForestFitsStepFunction(t *testing.T) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewVecDense(40, nil)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, float64(i))
		if i >= 20 {
			y.SetVec(i, 10)
		}
	}

	f := NewForest(WithTrees(10), WithBootstrap(false), WithSeed(7))
	require.NoError(t, f.Fit(X, y))
	pred, err := f.Predict(mat.NewDense(2, 1, []float64{5, 35}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 10.0, pred.At(1, 0), 1e-9)
}

func TestForestIsReproducible(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(2)), 60)

	a := NewForest(WithTrees(8), WithMaxFeatures(1), WithSeed(42))
	b := NewForest(WithTrees(8), WithMaxFeatures(1), WithSeed(42))
	require.NoError(t, a.Fit(X, Y))
	require.NoError(t, b.Fit(X, Y))

	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))

	r, c := pa.Dims()
	assert.Equal(t, 60, r)
	assert.Equal(t, 2, c)
}

func TestForestRespectsDepthAndLeafSize(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(3)), 30)

	stump := NewForest(WithTrees(1), WithBootstrap(false), WithMaxDepth(1), WithSeed(1))
	require.NoError(t, stump.Fit(X, Y))
	pred, err := stump.Predict(X)
	require.NoError(t, err)
	distinct := map[float64]bool{}
	for i := 0; i < 30; i++ {
		distinct[pred.At(i, 0)] = true
	}
	assert.LessOrEqual(t, len(distinct), 2)

	whole := NewForest(WithTrees(1), WithBootstrap(false), WithMinSamplesLeaf(30), WithSeed(1))
	require.NoError(t, whole.Fit(X, Y))
	pred, err = whole.Predict(X)
	require.NoError(t, err)
	mean := mat.Sum(Y.ColView(0)) / 30
	for i := 0; i < 30; i++ {
		assert.InDelta(t, mean, pred.At(i, 0), 1e-9)
	}
}

func TestMLPLearnsLinearTarget(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(4)), 200)

	m := NewMLP(MLPConfig{HiddenSizes: []int{16}, LearningRate: 0.05, Epochs: 200, BatchSize: 16, Seed: 5})
	require.NoError(t, m.Fit(X, Y))
	s, err := m.Score(X, Y)
	require.NoError(t, err)
	assert.Greater(t, s, 0.9)
}

func TestMLPIsReproducible(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(5)), 40)
	cfg := MLPConfig{HiddenSizes: []int{8, 4}, Epochs: 5, Seed: 9}

	a, b := NewMLP(cfg), NewMLP(cfg)
	require.NoError(t, a.Fit(X, Y))
	require.NoError(t, b.Fit(X, Y))
	pa, err := a.Predict(X)
	require.NoError(t, err)
	pb, err := b.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(pa, pb))
}

func TestMLPRejectsBadHiddenSize(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(6)), 10)
	m := NewMLP(MLPConfig{HiddenSizes: []int{0}, Seed: 1})
	assert.Error(t, m.Fit(X, Y))
}

func TestEstimatorErrors(t *testing.T) {
	X, Y := linearData(rand.New(rand.NewSource(7)), 10)

	for name, est := range map[string]regressor{
		"forest": NewForest(WithTrees(2), WithSeed(1)),
		"linear": NewLinear(),
		"mlp":    NewMLP(MLPConfig{Seed: 1}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := est.Predict(X)
			assert.ErrorIs(t, err, ErrNotFitted)
			_, err = est.Score(X, Y)
			assert.ErrorIs(t, err, ErrNotFitted)

			assert.ErrorIs(t, est.Fit(X, mat.NewDense(9, 1, nil)), ErrShape)
			assert.ErrorIs(t, est.Fit(nil, Y), ErrShape)
			var nilX *mat.Dense
			var nilY *mat.VecDense
			assert.ErrorIs(t, est.Fit(nilX, Y), ErrShape)
			assert.ErrorIs(t, est.Fit(X, nilY), ErrShape)

			require.NoError(t, est.Fit(X, Y))
			_, err = est.Predict(mat.NewDense(3, 5, nil))
			assert.ErrorIs(t, err, ErrShape)
			_, err = est.Predict(nilX)
			assert.ErrorIs(t, err, ErrShape)

			pred, err := est.Predict(X)
			require.NoError(t, err)
			r, c := pred.Dims()
			assert.Equal(t, 10, r)
			assert.Equal(t, 2, c)
		})
	}
}

func TestR2Score(t *testing.T) {
	truth := mat.NewVecDense(4, []float64{1, 2, 3, 4})

	s, err := R2Score(truth, truth)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	// predicting the mean scores zero
	s, err = R2Score(truth, mat.NewVecDense(4, []float64{2.5, 2.5, 2.5, 2.5}))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-12)

	// columns are averaged: a perfect column and a mean-only column
	two := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
	pred := mat.NewDense(4, 2, []float64{1, 2.5, 2, 2.5, 3, 2.5, 4, 2.5})
	s, err = R2Score(two, pred)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)

	constant := mat.NewVecDense(3, []float64{5, 5, 5})
	s, err = R2Score(constant, constant)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)
	s, err = R2Score(constant, mat.NewVecDense(3, []float64{5, 5, 6}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	_, err = R2Score(truth, mat.NewVecDense(3, nil))
	assert.ErrorIs(t, err, ErrShape)
}

func TestMSE(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{1, 0, 3, 8})
	got, err := MSE(a, b)
	require.NoError(t, err)
	assert.InDelta(t, (4.0+16.0)/4, got, 1e-12)

	_, err = MSE(a, mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, ErrShape)
}

func TestScaler(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 7, 2, 7, 3, 7})
	s := fitScaler(m)
	rows := s.transform(m)
	assert.InDelta(t, -math.Sqrt(1.5), rows[0][0], 1e-12)
	assert.Equal(t, 0.0, rows[1][0])
	assert.Equal(t, 0.0, rows[2][1])

	s.inverse(rows[2])
	assert.InDelta(t, 3.0, rows[2][0], 1e-12)
	assert.Equal(t, 7.0, rows[2][1])
}
