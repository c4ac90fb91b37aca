package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Noofbiz/knnboost/booster"
	"github.com/Noofbiz/knnboost/config"
	"github.com/Noofbiz/knnboost/datasets"
	"github.com/Noofbiz/knnboost/estimator"

	"gonum.org/v1/gonum/mat"
)

// evaluation holds test-split predictions of the booster and of the same
// estimator fitted without neighbour features.
type evaluation struct {
	test *datasets.Table

	boosted  *mat.Dense
	baseline *mat.Dense

	boostedR2  float64
	baselineR2 float64
}

func loadTable(cfg config.Config, logger *slog.Logger) (*datasets.Table, error) {
	tab, err := datasets.LoadCSV(cfg.Data.Path, cfg.Data.Features, cfg.Data.Targets)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Data.Path, err)
	}
	logger.Info("table loaded",
		slog.String("path", cfg.Data.Path),
		slog.Int("rows", tab.Len()),
		slog.Any("features", tab.FeatureNames),
		slog.Any("targets", tab.TargetNames),
	)
	return tab, nil
}

func newBooster(cfg config.Config, logger *slog.Logger) (*booster.Booster, error) {
	opts, err := cfg.BoosterOptions(logger)
	if err != nil {
		return nil, err
	}
	return booster.New(opts...)
}

// evaluate splits the table, fits the booster and the baseline on the train
// side and predicts the test side with both.
func evaluate(cfg config.Config, logger *slog.Logger) (*evaluation, error) {
	tab, err := loadTable(cfg, logger)
	if err != nil {
		return nil, err
	}
	train, test, err := tab.Split(cfg.Data.TestRatio, cfg.Data.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("split", slog.Int("train", train.Len()), slog.Int("test", test.Len()))

	b, err := newBooster(cfg, logger)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := b.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("fit booster: %w", err)
	}
	logger.Info("booster fitted", slog.Duration("took", time.Since(start)))

	base, err := cfg.Estimator.NewEstimator()
	if err != nil {
		return nil, err
	}
	start = time.Now()
	if err := base.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("fit baseline: %w", err)
	}
	logger.Info("baseline fitted", slog.Duration("took", time.Since(start)))

	ev := &evaluation{test: test}
	if ev.boosted, err = b.Predict(test.X); err != nil {
		return nil, fmt.Errorf("predict booster: %w", err)
	}
	if ev.baseline, err = base.Predict(test.X); err != nil {
		return nil, fmt.Errorf("predict baseline: %w", err)
	}
	if ev.boostedR2, err = estimator.R2Score(test.Y, ev.boosted); err != nil {
		return nil, fmt.Errorf("score booster: %w", err)
	}
	if ev.baselineR2, err = estimator.R2Score(test.Y, ev.baseline); err != nil {
		return nil, fmt.Errorf("score baseline: %w", err)
	}
	return ev, nil
}
