// Package booster wraps any regressor with nearest-neighbour features.
//
// At fit time the training set becomes the reference set: every training
// row is widened with the features, inverse-distance weights and targets of
// its nearest other training rows, and the estimator is trained on the
// widened matrix. Predict and Score widen their inputs against the same
// reference set before delegating.
package booster

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Noofbiz/knnboost/enrich"
	"github.com/Noofbiz/knnboost/spatial"

	"gonum.org/v1/gonum/mat"
)

// ErrNotFitted is returned by Predict, Score and Enrich before Fit.
var ErrNotFitted = errors.New("booster: not fitted")

// Estimator is the model the Booster delegates to.
type Estimator interface {
	Fit(X, Y mat.Matrix) error
	Predict(X mat.Matrix) (*mat.Dense, error)
	Score(X, Y mat.Matrix) (float64, error)
}

// Booster adds spatial neighbour features to an Estimator. It is not safe
// to call Fit concurrently with any other method.
type Booster struct {
	cfg   Config
	est   Estimator
	build spatial.Builder
	log   *slog.Logger

	ref *enrich.Reference
}

// New returns an unfitted Booster.
func New(opts ...Option) (*Booster, error) {
	b := defaults()
	for _, o := range opts {
		o(b)
	}
	if b.cfg.NNeighbors < 1 {
		return nil, fmt.Errorf("booster: n_neighbors must be >= 1, got %d", b.cfg.NNeighbors)
	}
	if b.est == nil {
		return nil, errors.New("booster: nil estimator")
	}
	if b.build == nil {
		return nil, errors.New("booster: nil index builder")
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b, nil
}

// Config returns the Booster's configuration.
func (b *Booster) Config() Config {
	cfg := b.cfg
	cfg.SpatialFeatures = Columns{all: cfg.SpatialFeatures.all, idx: cfg.SpatialFeatures.Indices()}
	return cfg
}

// Estimator returns the wrapped estimator.
func (b *Booster) Estimator() Estimator { return b.est }

// IsFitted reports whether Fit has succeeded.
func (b *Booster) IsFitted() bool { return b.ref != nil }

// SpatialColumns returns the column indices resolved by the last Fit, or
// nil before Fit.
func (b *Booster) SpatialColumns() []int {
	if b.ref == nil {
		return nil
	}
	return b.ref.SpatialCols()
}

func (b *Booster) options(removeFirst bool) enrich.Options {
	return enrich.Options{
		NNeighbors:                b.cfg.NNeighbors,
		RemoveFirstNeighbor:       removeFirst,
		RemoveTargetSpatialCols:   b.cfg.RemoveTargetSpatialCols,
		RemoveNeighborSpatialCols: b.cfg.RemoveNeighborSpatialCols,
	}
}

// Fit makes (X, Y) the reference set and trains the estimator on X widened
// against itself, skipping each row's own entry. The Booster is only updated
// when every step succeeds.
func (b *Booster) Fit(X, Y mat.Matrix) error {
	if err := checkMatrix(X); err != nil {
		return fmt.Errorf("fit X: %w", err)
	}
	if err := checkMatrix(Y); err != nil {
		return fmt.Errorf("fit Y: %w", err)
	}
	n, p := X.Dims()
	if yr, _ := Y.Dims(); yr != n {
		return fmt.Errorf("%w: X has %d rows, Y has %d", ErrShape, n, yr)
	}

	cols := b.cfg.SpatialFeatures.Resolve(p)
	ref, err := enrich.NewReference(X, Y, cols, b.build)
	if err != nil {
		return fmt.Errorf("booster: reference: %w", err)
	}
	wide, err := ref.Enrich(X, b.options(true))
	if err != nil {
		return fmt.Errorf("booster: enrich: %w", err)
	}

	var target mat.Matrix = ref.Y()
	if b.cfg.EstimatorOutput1D {
		target = ravel(ref.Y())
	}
	if err := b.est.Fit(wide, target); err != nil {
		return fmt.Errorf("booster: estimator fit: %w", err)
	}

	_, w := wide.Dims()
	b.log.Debug("booster fitted",
		slog.Int("rows", n),
		slog.Int("features", p),
		slog.Any("spatial_cols", cols),
		slog.Int("width", w),
	)
	b.ref = ref
	return nil
}

// Enrich returns X widened against the fitted reference set, as passed to
// the estimator by Predict.
func (b *Booster) Enrich(X mat.Matrix) (*mat.Dense, error) {
	if b.ref == nil {
		return nil, ErrNotFitted
	}
	if err := checkMatrix(X); err != nil {
		return nil, err
	}
	wide, err := b.ref.Enrich(X, b.options(false))
	if err != nil {
		return nil, fmt.Errorf("booster: enrich: %w", err)
	}
	return wide, nil
}

// Predict returns the estimator's predictions for the widened X.
func (b *Booster) Predict(X mat.Matrix) (*mat.Dense, error) {
	wide, err := b.Enrich(X)
	if err != nil {
		return nil, err
	}
	pred, err := b.est.Predict(wide)
	if err != nil {
		return nil, fmt.Errorf("booster: estimator predict: %w", err)
	}
	return pred, nil
}

// Score returns the estimator's score for the widened X against Y.
func (b *Booster) Score(X, Y mat.Matrix) (float64, error) {
	wide, err := b.Enrich(X)
	if err != nil {
		return 0, err
	}
	if err := checkMatrix(Y); err != nil {
		return 0, fmt.Errorf("score Y: %w", err)
	}
	s, err := b.est.Score(wide, Y)
	if err != nil {
		return 0, fmt.Errorf("booster: estimator score: %w", err)
	}
	return s, nil
}
