package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Noofbiz/knnboost/datasets"
	"github.com/Noofbiz/knnboost/enrich"

	"github.com/spf13/cobra"
)

func newEnrichCmd(g *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Fit on the whole table and write its neighbour-widened matrix",
		Long: `enrich fits the booster on every row and writes the matrix its estimator
would see at predict time. The format follows the output extension:

  .csv     CSV with one header name per column (default)
  .gob     versioned gob matrix with column names
  .npy     float64 NumPy array of shape [rows, cols], for np.load
  .tensor  gomlx tensor of shape [rows, cols], for tensors.Load`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.setup(cmd)
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(cfg.Output.Dir, cfg.Output.Enriched)
			}

			tab, err := loadTable(cfg, logger)
			if err != nil {
				return err
			}
			b, err := newBooster(cfg, logger)
			if err != nil {
				return err
			}
			if err := b.Fit(tab.X, tab.Y); err != nil {
				return fmt.Errorf("fit booster: %w", err)
			}
			wide, err := b.Enrich(tab.X)
			if err != nil {
				return err
			}

			bc := b.Config()
			names := enrich.ColumnNames(tab.FeatureNames, tab.TargetNames, b.SpatialColumns(), enrich.Options{
				NNeighbors:                bc.NNeighbors,
				RemoveTargetSpatialCols:   bc.RemoveTargetSpatialCols,
				RemoveNeighborSpatialCols: bc.RemoveNeighborSpatialCols,
			})

			format, err := datasets.WriteMatrixFile(output, names, wide)
			if err != nil {
				return err
			}
			rows, cols := wide.Dims()
			logger.Info("enriched matrix written",
				slog.String("path", output),
				slog.String("format", string(format)),
				slog.Int("rows", rows),
				slog.Int("cols", cols),
				slog.Any("spatial_cols", b.SpatialColumns()),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "output file (.csv, .gob, .npy or .tensor); default output.dir/output.enriched")
	return cmd
}
