package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/config"
	"github.com/TungPhamDuy/azmlproject3/pkg/data"
	"github.com/TungPhamDuy/azmlproject3/pkg/dataprep"
	"github.com/TungPhamDuy/azmlproject3/pkg/loader"
	"github.com/TungPhamDuy/azmlproject3/pkg/model"
	"github.com/TungPhamDuy/azmlproject3/pkg/report"
	"github.com/TungPhamDuy/azmlproject3/pkg/stats"
	"github.com/TungPhamDuy/azmlproject3/pkg/tracking"
)

// Metric keys logged to the run.
const (
	MetricC        = "Regularization Strength:"
	MetricMaxIter  = "Max iterations:"
	MetricAccuracy = "Accuracy"
)

// Source loads the raw table.
type Source interface {
	Fetch(ctx context.Context, location string) (*data.Frame, error)
}

// Deps are the collaborators of Run. Nil fields fall back to the
// HTTP fetcher and tracking.Start.
type Deps struct {
	Source   Source
	StartRun func(ctx context.Context, cfg tracking.Config) (tracking.Run, error)
	Now      func() time.Time
}

// Result summarizes a finished training run.
type Result struct {
	RunID     string
	ModelPath string
	PlotPath  string // empty when no plot was written
	Accuracy  float64
	Precision float64
	Recall    float64
	F1Score   float64
	Fit       model.FitResult
	Schema    Schema
	TrainRows int
	TestRows  int
	Dropped   int
}

// Run executes one training run and ends the tracked run as FINISHED or FAILED.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (res *Result, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil configuration", common.ErrInvalidConfig)
	}
	if err := model.ValidateHyperparameters(cfg.Training.C, cfg.Training.MaxIter); err != nil {
		return nil, err
	}
	if deps.Source == nil {
		deps.Source = data.NewFetcher(cfg.Dataset.Timeout, cfg.Dataset.Retries)
	}
	if deps.StartRun == nil {
		deps.StartRun = tracking.Start
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	runName := fmt.Sprintf("logreg_C_%s_maxIter_%d", model.FormatFloat(cfg.Training.C), cfg.Training.MaxIter)
	run, err := deps.StartRun(ctx, cfg.TrackingStart(runName))
	if err != nil {
		return nil, common.NewUserError("could not start the tracked run", err)
	}
	common.LogInfo("Tracked run started", common.Fields{"run_id": run.ID(), "backend": cfg.Tracking.Backend})

	defer func() {
		status := tracking.StatusFinished
		if err != nil {
			status = tracking.StatusFailed
		}
		// The run is closed even when ctx was cancelled.
		if endErr := run.End(context.WithoutCancel(ctx), status); endErr != nil {
			if err == nil {
				err = endErr
				res = nil
			} else {
				common.LogError(endErr, "Failed to end tracked run", common.Fields{"run_id": run.ID()})
			}
		}
	}()

	t := &trainer{cfg: cfg, deps: deps, run: run}
	return t.train(ctx)
}

type trainer struct {
	cfg  *config.Config
	deps Deps
	run  tracking.Run
}

func (t *trainer) train(ctx context.Context) (*Result, error) {
	cfg := t.cfg
	res := &Result{RunID: t.run.ID()}

	if err := t.logHyperparameters(ctx); err != nil {
		return nil, err
	}

	common.LogInfo("Loading dataset", common.Fields{"url": cfg.Dataset.URL})
	frame, err := t.deps.Source.Fetch(ctx, cfg.Dataset.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	ds, err := dataprep.Clean(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to clean dataset: %w", err)
	}
	res.Dropped = frame.Len() - ds.Rows()
	res.Schema = InferSchema(ds)
	common.LogInfo("Dataset cleaned", common.Fields{
		"rows":     ds.Rows(),
		"dropped":  res.Dropped,
		"features": len(ds.FeatureNames),
	})
	common.LogDebug("Feature schema", common.Fields{
		"binary": res.Schema.Count(TypeBinary),
		"int":    res.Schema.Count(TypeInt),
		"float":  res.Schema.Count(TypeFloat),
	})

	split := loader.TrainTestSplit(ds.X, ds.Y, cfg.Split.TestRatio, cfg.Split.Seed)
	res.TrainRows, res.TestRows = len(split.XTrain), len(split.XTest)
	common.LogDebug("Split dataset", common.Fields{"train": res.TrainRows, "test": res.TestRows, "seed": cfg.Split.Seed})

	xTrain, xTest := split.XTrain, split.XTest
	var scaler *stats.StandardScaler
	if cfg.Features.Standardize {
		scaler = stats.NewStandardScaler()
		prep := NewPipeline(scaler)
		if err := prep.Fit(xTrain); err != nil {
			return nil, fmt.Errorf("failed to fit preprocessing: %w", err)
		}
		xTrain, xTest = prep.Transform(xTrain), prep.Transform(xTest)
	}

	recorder := &report.LossRecorder{}
	clf, err := model.NewLogisticRegression(cfg.Training.C, cfg.Training.MaxIter, model.WithRecorder(recorder))
	if err != nil {
		return nil, err
	}

	common.LogInfo("Training classifier", common.Fields{"C": cfg.Training.C, "max_iter": cfg.Training.MaxIter})
	fit, err := clf.Fit(xTrain, split.YTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	res.Fit = fit
	if !fit.Converged {
		common.LogWarn("Solver did not converge; increase max_iter or standardize features", common.Fields{
			"max_iter": cfg.Training.MaxIter,
			"status":   fit.Status,
		})
	}

	res.Accuracy, err = clf.Score(xTest, split.YTest)
	if err != nil {
		return nil, fmt.Errorf("failed to score model: %w", err)
	}
	pred, err := clf.Predict(xTest)
	if err != nil {
		return nil, fmt.Errorf("failed to predict test split: %w", err)
	}
	res.Precision, res.Recall, res.F1Score = model.PrecisionRecallF1(model.ToLabels(split.YTest), model.ToLabels(pred))

	if err := t.run.LogMetric(ctx, MetricAccuracy, res.Accuracy); err != nil {
		return nil, err
	}
	common.LogInfo("Model scored", common.Fields{"accuracy": res.Accuracy, "f1": res.F1Score})

	bundle := &model.Bundle{
		Model:        clf,
		Scaler:       scaler,
		FeatureNames: ds.FeatureNames,
		CreatedAt:    t.deps.Now().UTC(),
		Metadata: model.BundleMetadata{
			Dataset:    cfg.Dataset.URL,
			RunID:      t.run.ID(),
			Accuracy:   res.Accuracy,
			Precision:  res.Precision,
			Recall:     res.Recall,
			F1Score:    res.F1Score,
			Converged:  fit.Converged,
			Iterations: fit.Iterations,
			Status:     fit.Status,
			TrainRows:  res.TrainRows,
			TestRows:   res.TestRows,
		},
	}
	res.ModelPath, err = model.SaveBundle(cfg.Output.Dir, bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to save model: %w", err)
	}
	common.LogInfo("Model saved", common.Fields{"path": res.ModelPath})
	if err := t.run.LogArtifact(ctx, res.ModelPath); err != nil {
		return nil, err
	}

	if cfg.Output.Plot {
		res.PlotPath = t.savePlot(recorder.Losses())
		if res.PlotPath != "" {
			if err := t.run.LogArtifact(ctx, res.PlotPath); err != nil {
				return nil, err
			}
		}
	}

	return res, nil
}

func (t *trainer) logHyperparameters(ctx context.Context) error {
	c, maxIter := t.cfg.Training.C, t.cfg.Training.MaxIter
	if err := t.run.LogMetric(ctx, MetricC, c); err != nil {
		return err
	}
	if err := t.run.LogMetric(ctx, MetricMaxIter, float64(maxIter)); err != nil {
		return err
	}
	if err := t.run.LogParam(ctx, "C", model.FormatFloat(c)); err != nil {
		return err
	}
	if err := t.run.LogParam(ctx, "max_iter", strconv.Itoa(maxIter)); err != nil {
		return err
	}
	if err := t.run.LogParam(ctx, "standardize", strconv.FormatBool(t.cfg.Features.Standardize)); err != nil {
		return err
	}
	return t.run.SetTag(ctx, "dataset_url", t.cfg.Dataset.URL)
}

// PlotFileName names the loss plot of a run: loss_C_<C>_maxIter_<max_iter>.png
func PlotFileName(c float64, maxIter int) string {
	return "loss_C_" + model.FormatFloat(c) + "_maxIter_" + strconv.Itoa(maxIter) + ".png"
}

// savePlot writes the loss curve. A plot failure is logged and does not fail the run.
func (t *trainer) savePlot(losses []float64) string {
	path := filepath.Join(t.cfg.Output.Dir, PlotFileName(t.cfg.Training.C, t.cfg.Training.MaxIter))
	title := fmt.Sprintf("Logistic regression objective (C=%s)", model.FormatFloat(t.cfg.Training.C))

	if err := report.SaveLossPlot(path, title, losses); err != nil {
		if errors.Is(err, report.ErrNoData) {
			common.LogDebug("No solver iterations recorded, skipping loss plot", nil)
		} else {
			common.LogWarn("Failed to write loss plot", common.Fields{"error": err.Error(), "path": path})
		}
		return ""
	}
	common.LogDebug("Loss plot saved", common.Fields{"path": path})
	return path
}
