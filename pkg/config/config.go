// Package config loads the trainer settings from flags, environment and an
// optional YAML file through viper.
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/data"
	"github.com/TungPhamDuy/azmlproject3/pkg/loader"
	"github.com/TungPhamDuy/azmlproject3/pkg/tracking"
	"github.com/spf13/viper"
)

// DefaultDBName is the offline run store file created inside output.dir
// when tracking.db_path is not set.
const DefaultDBName = "runs.db"

// EnvPrefix prefixes every environment override, e.g. BANKMKT_TRACKING_BACKEND.
const EnvPrefix = "BANKMKT"

// Config is the resolved configuration of one training run.
type Config struct {
	Training TrainingConfig
	Dataset  DatasetConfig
	Split    SplitConfig
	Features FeaturesConfig
	Output   OutputConfig
	Tracking TrackingConfig
	Logging  LoggingConfig
}

type TrainingConfig struct {
	C       float64
	MaxIter int
}

type DatasetConfig struct {
	URL     string
	Timeout time.Duration
	Retries int
}

type SplitConfig struct {
	TestRatio float64
	Seed      int64
}

type FeaturesConfig struct {
	Standardize bool
}

type OutputConfig struct {
	Dir  string
	Plot bool
}

type TrackingConfig struct {
	Backend      string
	MLflowURI    string
	ExperimentID string
	DBPath       string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("training.c", 1.0)
	v.SetDefault("training.max_iter", 100)

	v.SetDefault("dataset.url", data.DefaultURL)
	v.SetDefault("dataset.timeout", 2*time.Minute)
	v.SetDefault("dataset.retries", 3)

	v.SetDefault("split.test_ratio", 0.2)
	v.SetDefault("split.seed", loader.DefaultSeed)

	v.SetDefault("features.standardize", false)

	v.SetDefault("output.dir", "outputs")
	v.SetDefault("output.plot", true)

	v.SetDefault("tracking.backend", tracking.BackendAuto)
	v.SetDefault("tracking.mlflow_uri", "")
	v.SetDefault("tracking.experiment_id", "")
	v.SetDefault("tracking.db_path", "") // empty: <output.dir>/runs.db

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes BANKMKT_<SECTION>_<KEY> override <section>.<key>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the configuration out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Training: TrainingConfig{
			C:       v.GetFloat64("training.c"),
			MaxIter: v.GetInt("training.max_iter"),
		},
		Dataset: DatasetConfig{
			URL:     v.GetString("dataset.url"),
			Timeout: v.GetDuration("dataset.timeout"),
			Retries: v.GetInt("dataset.retries"),
		},
		Split: SplitConfig{
			TestRatio: v.GetFloat64("split.test_ratio"),
			Seed:      v.GetInt64("split.seed"),
		},
		Features: FeaturesConfig{
			Standardize: v.GetBool("features.standardize"),
		},
		Output: OutputConfig{
			Dir:  ExpandPath(v.GetString("output.dir")),
			Plot: v.GetBool("output.plot"),
		},
		Tracking: TrackingConfig{
			Backend:      strings.ToLower(v.GetString("tracking.backend")),
			MLflowURI:    v.GetString("tracking.mlflow_uri"),
			ExperimentID: v.GetString("tracking.experiment_id"),
			DBPath:       ExpandPath(v.GetString("tracking.db_path")),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
	}

	if cfg.Tracking.DBPath == "" && cfg.Output.Dir != "" {
		cfg.Tracking.DBPath = filepath.Join(cfg.Output.Dir, DefaultDBName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Training.C <= 0 || math.IsNaN(c.Training.C) || math.IsInf(c.Training.C, 0) {
		return fmt.Errorf("%w: C must be a positive finite number, got %v", common.ErrInvalidHyperparameter, c.Training.C)
	}
	if c.Training.MaxIter <= 0 {
		return fmt.Errorf("%w: max_iter must be positive, got %d", common.ErrInvalidHyperparameter, c.Training.MaxIter)
	}

	if c.Dataset.URL == "" {
		return fmt.Errorf("%w: dataset.url is empty", common.ErrInvalidConfig)
	}
	if c.Dataset.Timeout <= 0 {
		return fmt.Errorf("%w: dataset.timeout must be positive", common.ErrInvalidConfig)
	}
	if c.Dataset.Retries < 1 {
		return fmt.Errorf("%w: dataset.retries must be at least 1", common.ErrInvalidConfig)
	}
	if c.Split.TestRatio <= 0 || c.Split.TestRatio >= 1 {
		return fmt.Errorf("%w: split.test_ratio must be in (0, 1), got %v", common.ErrInvalidConfig, c.Split.TestRatio)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("%w: output.dir is empty", common.ErrInvalidConfig)
	}

	switch c.Tracking.Backend {
	case tracking.BackendAuto, tracking.BackendNone:
	case tracking.BackendMLflow:
		if c.Tracking.MLflowURI == "" {
			return fmt.Errorf("%w: tracking.mlflow_uri is required for the mlflow backend", common.ErrInvalidConfig)
		}
	case tracking.BackendSQLite:
		if c.Tracking.DBPath == "" {
			return fmt.Errorf("%w: tracking.db_path is required for the sqlite backend", common.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown tracking backend %q", common.ErrInvalidConfig, c.Tracking.Backend)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}

// TrackingStart converts the tracking section for tracking.Start.
func (c *Config) TrackingStart(runName string) tracking.Config {
	return tracking.Config{
		Backend:      c.Tracking.Backend,
		MLflowURI:    c.Tracking.MLflowURI,
		ExperimentID: c.Tracking.ExperimentID,
		RunName:      runName,
		DBPath:       c.Tracking.DBPath,
	}
}
