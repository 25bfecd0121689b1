// Package model fits, scores and persists the binary classifier.
package model

// Classifier is a fitted binary classifier.
type Classifier interface {
	Predict(X [][]float64) ([]float64, error)
	PredictProba(X [][]float64) ([]float64, error) // returns p(y=1)
}

// Transformer is a preprocessing step fitted on the training split and applied to both splits.
type Transformer interface {
	Fit(X [][]float64) error
	Transform(X [][]float64) [][]float64
	FitTransform(X [][]float64) ([][]float64, error)
}

var _ Classifier = (*LogisticRegression)(nil)
