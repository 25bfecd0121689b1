package model

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/TungPhamDuy/azmlproject3/pkg/NeuralNetwork"
	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/optim"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is an L2-regularized binary classifier.
//
// Fit minimizes 0.5*||W||² + C*Σ logloss(y, W·x+B) with L-BFGS; the intercept
// is not penalized. Exported fields are the persisted state.
type LogisticRegression struct {
	W       []float64 // weights
	B       float64   // intercept
	C       float64   // inverse regularization strength
	MaxIter int

	tol      float64
	recorder optimize.Recorder
}

// FitResult reports how the solver finished.
type FitResult struct {
	Converged  bool
	Iterations int
	Loss       float64
	Status     string
}

// Option functional config
type Option func(*LogisticRegression)

// WithTolerance sets the gradient tolerance of the solver.
func WithTolerance(tol float64) Option { return func(m *LogisticRegression) { m.tol = tol } }

// WithRecorder attaches a recorder that sees every solver iteration.
func WithRecorder(r optimize.Recorder) Option {
	return func(m *LogisticRegression) { m.recorder = r }
}

// NewLogisticRegression validates the hyperparameters and returns an unfitted model.
func NewLogisticRegression(c float64, maxIter int, opts ...Option) (*LogisticRegression, error) {
	if err := ValidateHyperparameters(c, maxIter); err != nil {
		return nil, err
	}
	m := &LogisticRegression{C: c, MaxIter: maxIter, tol: optim.DefaultTolerance}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// ValidateHyperparameters rejects a non-positive or non-finite C and a non-positive max_iter.
func ValidateHyperparameters(c float64, maxIter int) error {
	if !(c > 0) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: C must be a positive finite number, got %v", common.ErrInvalidHyperparameter, c)
	}
	if maxIter <= 0 {
		return fmt.Errorf("%w: max_iter must be a positive integer, got %d", common.ErrInvalidHyperparameter, maxIter)
	}
	return nil
}

// Fit trains the model. Running out of iterations is reported through
// FitResult.Converged, not as an error.
func (m *LogisticRegression) Fit(X [][]float64, y []float64) (FitResult, error) {
	if err := checkTrainingData(X, y); err != nil {
		return FitResult{}, err
	}
	nFeatures := len(X[0])

	// params holds the weights followed by the intercept.
	logits := func(params []float64) []float64 {
		w, b := params[:nFeatures], params[nFeatures]
		z := make([]float64, len(X))
		for i, row := range X {
			z[i] = floats.Dot(w, row) + b
		}
		return z
	}

	objective := optim.Objective{
		Func: func(params []float64) float64 {
			loss, _ := NeuralNetwork.BCEWithLogits(y, logits(params))
			w := params[:nFeatures]
			return 0.5*floats.Dot(w, w) + m.C*loss
		},
		Grad: func(grad, params []float64) {
			_, dz := NeuralNetwork.BCEWithLogits(y, logits(params))
			for j := range grad {
				grad[j] = 0
			}
			gW := grad[:nFeatures]
			for i, row := range X {
				floats.AddScaled(gW, m.C*dz[i], row)
				grad[nFeatures] += m.C * dz[i]
			}
			floats.Add(gW, params[:nFeatures])
		},
	}

	res, err := optim.LBFGS(objective, make([]float64, nFeatures+1), optim.Options{
		MaxIter:   m.MaxIter,
		Tolerance: m.tol,
		Recorder:  m.recorder,
	})
	if err != nil {
		return FitResult{}, err
	}

	m.W = append([]float64(nil), res.X[:nFeatures]...)
	m.B = res.X[nFeatures]

	return FitResult{
		Converged:  res.Converged,
		Iterations: res.Iterations,
		Loss:       res.F,
		Status:     res.Status,
	}, nil
}

func checkTrainingData(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return common.ErrEmptyDataset
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", common.ErrFeatureMismatch, len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", common.ErrFeatureMismatch, i, len(row), width)
		}
	}
	var pos, neg int
	for i, v := range y {
		switch v {
		case 1:
			pos++
		case 0:
			neg++
		default:
			return fmt.Errorf("label %d is %v, want 0 or 1", i, v)
		}
	}
	if pos == 0 || neg == 0 {
		return fmt.Errorf("%w: training labels contain a single class", common.ErrEmptyDataset)
	}
	return nil
}

// PredictProba returns p(y=1) for each input row in X.
// Rows are split across GOMAXPROCS workers.
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if err := m.checkInput(X); err != nil {
		return nil, err
	}
	if len(X) == 0 {
		return nil, nil
	}
	out := make([]float64, len(X))
	var wg sync.WaitGroup

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = NeuralNetwork.Sigmoid(floats.Dot(m.W, X[i]) + m.B)
			}
		}(start, end)
	}
	wg.Wait()
	return out, nil
}

// Predict returns the class labels (0 or 1) based on a 0.5 probability threshold.
func (m *LogisticRegression) Predict(X [][]float64) ([]float64, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	labels := BinaryPredFromProba(proba, 0.5)
	out := make([]float64, len(labels))
	for i, l := range labels {
		out[i] = float64(l)
	}
	return out, nil
}

// Score returns the mean accuracy on X against y.
func (m *LogisticRegression) Score(X [][]float64, y []float64) (float64, error) {
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", common.ErrFeatureMismatch, len(X), len(y))
	}
	proba, err := m.PredictProba(X)
	if err != nil {
		return 0, err
	}
	return Accuracy(ToLabels(y), BinaryPredFromProba(proba, 0.5)), nil
}

// checkInput rejects an unfitted model and rows whose width differs from W.
func (m *LogisticRegression) checkInput(X [][]float64) error {
	if len(m.W) == 0 {
		return common.ErrNotFitted
	}
	for i, row := range X {
		if len(row) != len(m.W) {
			return fmt.Errorf("%w: row %d has %d features, model has %d", common.ErrFeatureMismatch, i, len(row), len(m.W))
		}
	}
	return nil
}
