// Package config holds the run configuration of the knnboost CLI.
//
// Configuration is resolved as defaults, then a YAML (or JSON) file, then
// KNNBOOST_* environment variables. Validate checks the result with
// go-playground/validator struct tags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Noofbiz/knnboost/booster"
	"github.com/Noofbiz/knnboost/estimator"
	"github.com/Noofbiz/knnboost/spatial"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// Config is the top-level run configuration.
type Config struct {
	Data      DataConfig      `json:"data" yaml:"data"`
	Booster   BoosterConfig   `json:"booster" yaml:"booster"`
	Estimator EstimatorConfig `json:"estimator" yaml:"estimator"`
	Output    OutputConfig    `json:"output" yaml:"output"`
}

// DataConfig locates the training table.
type DataConfig struct {
	// Path is a CSV file, a directory of CSV files or a glob.
	Path      string   `json:"path" yaml:"path" validate:"required"`
	Features  []string `json:"features" yaml:"features" validate:"dive,required"`
	Targets   []string `json:"targets" yaml:"targets" validate:"min=1,dive,required"`
	TestRatio float64  `json:"test_ratio" yaml:"test_ratio" validate:"gt=0,lt=1"`
	Seed      int64    `json:"seed" yaml:"seed"`
}

// BoosterConfig mirrors booster.Config.
type BoosterConfig struct {
	NNeighbors int `json:"n_neighbors" yaml:"n_neighbors" validate:"min=1"`
	// SpatialFeatures is "*" for every column or a list such as "0,2".
	SpatialFeatures           string `json:"spatial_features" yaml:"spatial_features"`
	EstimatorOutput1D         bool   `json:"estimator_output_1d" yaml:"estimator_output_1d"`
	RemoveTargetSpatialCols   bool   `json:"remove_target_spatial_cols" yaml:"remove_target_spatial_cols"`
	RemoveNeighborSpatialCols bool   `json:"remove_neighbor_spatial_cols" yaml:"remove_neighbor_spatial_cols"`
	Index                     string `json:"index" yaml:"index" validate:"oneof=kdtree brute"`
}

// EstimatorConfig selects and tunes the wrapped estimator.
type EstimatorConfig struct {
	Kind string `json:"kind" yaml:"kind" validate:"oneof=forest linear mlp"`
	Seed int64  `json:"seed" yaml:"seed"`

	// forest
	Trees           int  `json:"trees" yaml:"trees" validate:"min=1"`
	MaxDepth        int  `json:"max_depth" yaml:"max_depth" validate:"min=0"`
	MinSamplesSplit int  `json:"min_samples_split" yaml:"min_samples_split" validate:"min=2"`
	MinSamplesLeaf  int  `json:"min_samples_leaf" yaml:"min_samples_leaf" validate:"min=1"`
	MaxFeatures     int  `json:"max_features" yaml:"max_features" validate:"min=0"`
	Bootstrap       bool `json:"bootstrap" yaml:"bootstrap"`

	// linear
	Alpha float64 `json:"alpha" yaml:"alpha" validate:"min=0"`

	// mlp
	HiddenSizes  []int   `json:"hidden_sizes" yaml:"hidden_sizes" validate:"dive,min=1"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate" validate:"gt=0"`
	Epochs       int     `json:"epochs" yaml:"epochs" validate:"min=1"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size" validate:"min=1"`
}

// OutputConfig says where artifacts go.
type OutputConfig struct {
	Dir string `json:"dir" yaml:"dir" validate:"required"`
	// Plot is the file name of the predicted-vs-actual scatter.
	Plot string `json:"plot" yaml:"plot" validate:"required"`
	// Enriched is the file name of the widened matrix (.csv or .gob).
	Enriched string `json:"enriched" yaml:"enriched" validate:"required"`
}

// Default returns the configuration used when nothing is set. Data.Path and
// Data.Targets have no defaults.
func Default() Config {
	return Config{
		Data: DataConfig{
			TestRatio: 0.2,
			Seed:      1,
		},
		Booster: BoosterConfig{
			NNeighbors:                5,
			SpatialFeatures:           "*",
			EstimatorOutput1D:         true,
			RemoveNeighborSpatialCols: true,
			Index:                     "kdtree",
		},
		Estimator: EstimatorConfig{
			Kind:            "forest",
			Seed:            1,
			Trees:           100,
			MinSamplesSplit: 2,
			MinSamplesLeaf:  1,
			Bootstrap:       true,
			Alpha:           1e-8,
			HiddenSizes:     []int{64},
			LearningRate:    0.001,
			Epochs:          10,
			BatchSize:       8,
		},
		Output: OutputConfig{
			Dir:      "output",
			Plot:     "predicted_vs_actual.png",
			Enriched: "enriched.csv",
		},
	}
}

// Load returns the defaults overlaid with the file at path (if path is not
// empty) and then the environment. It does not validate, so callers can
// apply flag overrides first.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv("KNNBOOST_DATA"); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv("KNNBOOST_TARGETS"); v != "" {
		cfg.Data.Targets = splitList(v)
	}
	if v := os.Getenv("KNNBOOST_ESTIMATOR"); v != "" {
		cfg.Estimator.Kind = v
	}
	if v := os.Getenv("KNNBOOST_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("KNNBOOST_N_NEIGHBORS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KNNBOOST_N_NEIGHBORS: %w", err)
		}
		cfg.Booster.NNeighbors = n
	}
	if v := os.Getenv("KNNBOOST_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("KNNBOOST_SEED: %w", err)
		}
		cfg.Data.Seed = seed
		cfg.Estimator.Seed = seed
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks every field and the spatial column list.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := booster.ParseColumns(c.Booster.SpatialFeatures); err != nil {
		return fmt.Errorf("%w: spatial_features: %v", ErrInvalid, err)
	}
	return nil
}

// NewEstimator builds the configured estimator.
func (e EstimatorConfig) NewEstimator() (booster.Estimator, error) {
	switch e.Kind {
	case "forest":
		return estimator.NewForest(
			estimator.WithTrees(e.Trees),
			estimator.WithMaxDepth(e.MaxDepth),
			estimator.WithMinSamplesSplit(e.MinSamplesSplit),
			estimator.WithMinSamplesLeaf(e.MinSamplesLeaf),
			estimator.WithMaxFeatures(e.MaxFeatures),
			estimator.WithBootstrap(e.Bootstrap),
			estimator.WithSeed(e.Seed),
		), nil
	case "linear":
		l := estimator.NewLinear()
		l.Alpha = e.Alpha
		return l, nil
	case "mlp":
		return estimator.NewMLP(estimator.MLPConfig{
			HiddenSizes:  e.HiddenSizes,
			LearningRate: e.LearningRate,
			Epochs:       e.Epochs,
			BatchSize:    e.BatchSize,
			Seed:         e.Seed,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown estimator kind %q", ErrInvalid, e.Kind)
	}
}

// BoosterOptions converts the booster and estimator sections into options
// for booster.New.
func (c Config) BoosterOptions(logger *slog.Logger) ([]booster.Option, error) {
	cols, err := booster.ParseColumns(c.Booster.SpatialFeatures)
	if err != nil {
		return nil, fmt.Errorf("%w: spatial_features: %v", ErrInvalid, err)
	}
	build, err := spatial.ParseBuilder(c.Booster.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	est, err := c.Estimator.NewEstimator()
	if err != nil {
		return nil, err
	}
	return []booster.Option{
		booster.WithNeighbors(c.Booster.NNeighbors),
		booster.WithEstimator(est),
		booster.WithEstimatorOutput1D(c.Booster.EstimatorOutput1D),
		booster.WithSpatialFeatures(cols),
		booster.WithRemoveTargetSpatialCols(c.Booster.RemoveTargetSpatialCols),
		booster.WithRemoveNeighborSpatialCols(c.Booster.RemoveNeighborSpatialCols),
		booster.WithIndexBuilder(build),
		booster.WithLogger(logger),
	}, nil
}
