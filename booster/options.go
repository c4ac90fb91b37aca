package booster

import (
	"log/slog"

	"github.com/Noofbiz/knnboost/estimator"
	"github.com/Noofbiz/knnboost/spatial"
)

// Config is the constructor-time configuration of a Booster.
type Config struct {
	// NNeighbors is the number of neighbour blocks added to every row.
	NNeighbors int

	// EstimatorOutput1D flattens the target matrix into a single vector
	// before it is passed to the estimator's Fit.
	EstimatorOutput1D bool

	// SpatialFeatures selects the coordinate columns used for the
	// neighbour search.
	SpatialFeatures Columns

	// RemoveTargetSpatialCols drops the coordinate columns from the row's
	// own features.
	RemoveTargetSpatialCols bool

	// RemoveNeighborSpatialCols drops the coordinate columns from every
	// neighbour block.
	RemoveNeighborSpatialCols bool
}

// Option configures a Booster.
type Option func(*Booster)

// WithNeighbors sets the number of neighbours used as features (default 5).
func WithNeighbors(n int) Option {
	return func(b *Booster) { b.cfg.NNeighbors = n }
}

// WithEstimator sets the wrapped estimator (default a random forest).
func WithEstimator(e Estimator) Option {
	return func(b *Booster) { b.est = e }
}

// WithEstimatorOutput1D controls whether targets are flattened before Fit
// (default true).
func WithEstimatorOutput1D(on bool) Option {
	return func(b *Booster) { b.cfg.EstimatorOutput1D = on }
}

// WithSpatialFeatures sets the coordinate columns (default AllColumns).
func WithSpatialFeatures(c Columns) Option {
	return func(b *Booster) { b.cfg.SpatialFeatures = c }
}

// WithRemoveTargetSpatialCols drops the coordinate columns from each row's
// own features (default false).
func WithRemoveTargetSpatialCols(on bool) Option {
	return func(b *Booster) { b.cfg.RemoveTargetSpatialCols = on }
}

// WithRemoveNeighborSpatialCols drops the coordinate columns from every
// neighbour block (default true).
func WithRemoveNeighborSpatialCols(on bool) Option {
	return func(b *Booster) { b.cfg.RemoveNeighborSpatialCols = on }
}

// WithIndexBuilder sets the spatial index implementation (default k-d tree).
func WithIndexBuilder(build spatial.Builder) Option {
	return func(b *Booster) { b.build = build }
}

// WithLogger sets the logger for fit diagnostics (default slog.Default).
func WithLogger(l *slog.Logger) Option {
	return func(b *Booster) { b.log = l }
}

func defaults() *Booster {
	return &Booster{
		cfg: Config{
			NNeighbors:                5,
			EstimatorOutput1D:         true,
			SpatialFeatures:           AllColumns(),
			RemoveNeighborSpatialCols: true,
		},
		est:   estimator.NewForest(),
		build: spatial.KDTreeBuilder,
		log:   slog.Default(),
	}
}
