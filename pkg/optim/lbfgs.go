// Package optim minimizes smooth training objectives with gonum's quasi-Newton solver.
package optim

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// DefaultTolerance stops the solver once the largest gradient component falls below it.
const DefaultTolerance = 1e-4

// Objective is a differentiable function of the parameter vector.
type Objective struct {
	Func func(x []float64) float64
	Grad func(grad, x []float64)
}

// Options configures a minimization run.
type Options struct {
	MaxIter   int
	Tolerance float64
	Recorder  optimize.Recorder // optional, receives every major iteration
}

// Result describes where the solver stopped.
type Result struct {
	X          []float64
	F          float64
	Iterations int
	Converged  bool
	Status     string
}

// LBFGS minimizes obj starting at x0. Hitting MaxIter is not an error: the
// best point so far is returned with Converged set to false. A solver failure
// after at least one step is reported the same way.
func LBFGS(obj Objective, x0 []float64, opts Options) (Result, error) {
	if opts.MaxIter <= 0 {
		return Result{}, fmt.Errorf("max iterations must be positive, got %d", opts.MaxIter)
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultTolerance
	}

	problem := optimize.Problem{Func: obj.Func, Grad: obj.Grad}
	settings := &optimize.Settings{
		MajorIterations:   opts.MaxIter,
		GradientThreshold: opts.Tolerance,
		Recorder:          opts.Recorder,
	}

	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if res == nil {
		if err == nil {
			err = errors.New("solver returned no result")
		}
		return Result{}, fmt.Errorf("optimization failed: %w", err)
	}

	out := Result{
		X:          res.X,
		F:          res.F,
		Iterations: res.MajorIterations,
		Status:     res.Status.String(),
	}
	switch {
	case err != nil:
		if res.MajorIterations == 0 {
			return Result{}, fmt.Errorf("optimization failed: %w", err)
		}
		out.Status = fmt.Sprintf("%s: %v", res.Status, err)
	case res.Status == optimize.IterationLimit:
	default:
		out.Converged = true
	}
	return out, nil
}
