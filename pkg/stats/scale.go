// Package stats holds summary statistics and feature scaling.
package stats

import (
	"fmt"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes each column to zero mean and unit variance.
// Fields are exported so a fitted scaler can be persisted with a model.
type StandardScaler struct {
	Mean   []float64
	Std    []float64
	Fitted bool
}

func NewStandardScaler() *StandardScaler { return &StandardScaler{} }

// Fit learns per-column mean and population std. Constant columns get a std of 1.
// Fitting on no rows leaves the scaler unfitted.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return nil
	}
	r, c := len(X), len(X[0])
	for i, row := range X {
		if len(row) != c {
			return fmt.Errorf("%w: row %d has %d features, want %d", common.ErrFeatureMismatch, i, len(row), c)
		}
	}

	mean := make([]float64, c)
	std := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			col[i] = X[i][j]
		}
		mean[j], std[j] = stat.PopMeanStdDev(col, nil)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	s.Mean, s.Std, s.Fitted = mean, std, true
	return nil
}

// Transform returns a standardized copy of X. An unfitted scaler returns X as is.
func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	if !s.Fitted || len(X) == 0 {
		return X
	}
	Y := make([][]float64, len(X))
	for i, row := range X {
		out := make([]float64, len(row))
		for j, v := range row {
			out[j] = (v - s.Mean[j]) / s.Std[j]
		}
		Y[i] = out
	}
	return Y
}

// FitTransform fits on X and returns X standardized.
func (s *StandardScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X), nil
}
