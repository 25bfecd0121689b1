// Package tracking records run parameters, metrics and artifacts in an
// experiment tracker: an MLflow server, a local SQLite run store, or nowhere.
package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

// Backend names accepted by Start.
const (
	BackendAuto   = "auto"
	BackendMLflow = "mlflow"
	BackendSQLite = "sqlite"
	BackendNone   = "none"
)

// Run is the handle for one tracked execution.
type Run interface {
	ID() string
	LogMetric(ctx context.Context, key string, value float64) error
	LogParam(ctx context.Context, key, value string) error
	SetTag(ctx context.Context, key, value string) error
	LogArtifact(ctx context.Context, path string) error
	End(ctx context.Context, status Status) error
}

// Config selects and configures the tracking backend.
type Config struct {
	Backend      string
	MLflowURI    string
	ExperimentID string
	RunName      string
	DBPath       string
}

// Start opens a run on the configured backend. With BackendAuto an MLflow
// server is used when a tracking URI is known, otherwise the SQLite store.
func Start(ctx context.Context, cfg Config) (Run, error) {
	backend := cfg.Backend
	if backend == "" || backend == BackendAuto {
		if cfg.MLflowURI == "" {
			cfg.MLflowURI = os.Getenv("MLFLOW_TRACKING_URI")
		}
		if cfg.MLflowURI != "" {
			backend = BackendMLflow
		} else {
			backend = BackendSQLite
		}
	}

	slog.Debug("Starting tracked run", "backend", backend)

	switch backend {
	case BackendMLflow:
		client, err := NewMLflowClient(cfg.MLflowURI)
		if err != nil {
			return nil, err
		}
		run, err := client.StartRun(ctx, cfg.ExperimentID, cfg.RunName)
		if err != nil {
			return nil, err
		}
		return run, nil
	case BackendSQLite:
		store, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		run, err := store.StartRun(ctx, cfg.ExperimentID, cfg.RunName)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		run.ownsStore = true
		return run, nil
	case BackendNone:
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown tracking backend %q", common.ErrInvalidConfig, cfg.Backend)
	}
}

// Discard is a run that records nothing.
type Discard struct{}

func (Discard) ID() string { return "" }
func (Discard) LogMetric(context.Context, string, float64) error { return nil }
func (Discard) LogParam(context.Context, string, string) error { return nil }
func (Discard) SetTag(context.Context, string, string) error { return nil }
func (Discard) LogArtifact(context.Context, string) error { return nil }
func (Discard) End(context.Context, Status) error { return nil }
