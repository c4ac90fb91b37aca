package main

import (
	"fmt"
	"log/slog"

	"github.com/Noofbiz/knnboost/estimator"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Compare the booster with its plain estimator on a test split",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			ev, err := evaluate(cfg, logger)
			if err != nil {
				return err
			}

			boostedMSE, err := estimator.MSE(ev.test.Y, ev.boosted)
			if err != nil {
				return err
			}
			baselineMSE, err := estimator.MSE(ev.test.Y, ev.baseline)
			if err != nil {
				return err
			}
			logger.Info("evaluation",
				slog.String("estimator", cfg.Estimator.Kind),
				slog.Int("n_neighbors", cfg.Booster.NNeighbors),
				slog.Float64("booster_r2", ev.boostedR2),
				slog.Float64("baseline_r2", ev.baselineR2),
				slog.Float64("booster_mse", boostedMSE),
				slog.Float64("baseline_mse", baselineMSE),
			)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model\tr2\tmse\n")
			fmt.Fprintf(out, "booster\t%.6f\t%.6g\n", ev.boostedR2, boostedMSE)
			fmt.Fprintf(out, "baseline\t%.6f\t%.6g\n", ev.baselineR2, baselineMSE)
			return nil
		},
	}
}
