package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Noofbiz/knnboost/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// globalFlags are shared by every subcommand. Flags only override the
// configuration when they were set explicitly.
type globalFlags struct {
	configPath string
	logLevel   string
	logJSON    bool

	data      string
	targets   []string
	features  []string
	estimator string
	neighbors int
	outDir    string
	seed      int64
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "knnboost",
		Short: "Boost a regressor with nearest-neighbour spatial features",
		Long: `knnboost widens every row of a table with the features, inverse-distance
weights and targets of its nearest neighbours, then fits a regressor on the
widened table.

Configuration is resolved as defaults, then --config (YAML or JSON), then
KNNBOOST_* environment variables, then flags.

Examples:
  knnboost evaluate --data houses.csv --targets price
  knnboost enrich --config run.yaml
  knnboost plot --config run.yaml --estimator linear
  knnboost enrich --data houses.csv --targets price --output wide.npy
  knnboost inspect wide.npy`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "path to a YAML or JSON run configuration")
	pf.StringVar(&g.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.BoolVar(&g.logJSON, "log-json", false, "log as JSON instead of text")
	pf.StringVar(&g.data, "data", "", "CSV file, directory or glob (overrides data.path)")
	pf.StringSliceVar(&g.targets, "targets", nil, "target columns (overrides data.targets)")
	pf.StringSliceVar(&g.features, "features", nil, "feature columns (overrides data.features)")
	pf.StringVar(&g.estimator, "estimator", "", "forest, linear or mlp (overrides estimator.kind)")
	pf.IntVarP(&g.neighbors, "neighbors", "k", 0, "neighbours per row (overrides booster.n_neighbors)")
	pf.StringVarP(&g.outDir, "out", "o", "", "output directory (overrides output.dir)")
	pf.Int64Var(&g.seed, "seed", 0, "seed for the split and the estimator")

	root.AddCommand(
		newEvaluateCmd(g),
		newEnrichCmd(g),
		newPlotCmd(g),
		newConfigCmd(g),
		newInspectCmd(),
	)
	return root
}

// load reads the configuration and applies explicitly set flags.
func (g *globalFlags) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data.Path = g.data
	}
	if flags.Changed("targets") {
		cfg.Data.Targets = g.targets
	}
	if flags.Changed("features") {
		cfg.Data.Features = g.features
	}
	if flags.Changed("estimator") {
		cfg.Estimator.Kind = g.estimator
	}
	if flags.Changed("neighbors") {
		cfg.Booster.NNeighbors = g.neighbors
	}
	if flags.Changed("out") {
		cfg.Output.Dir = g.outDir
	}
	if flags.Changed("seed") {
		cfg.Data.Seed = g.seed
		cfg.Estimator.Seed = g.seed
	}
	return cfg, nil
}

// resolve is load followed by validation.
func (g *globalFlags) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg, err := g.load(cmd)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the CLI logger writing to w.
func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// setup resolves the configuration and the logger for a subcommand.
func (g *globalFlags) setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), g.logLevel, g.logJSON)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := g.resolve(cmd)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
