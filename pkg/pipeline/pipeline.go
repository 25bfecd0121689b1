// Package pipeline runs one end-to-end training: fetch, clean, split,
// preprocess, fit, score, persist and track.
package pipeline

import (
	"fmt"

	"github.com/TungPhamDuy/azmlproject3/pkg/model"
)

// Pipeline chains preprocessing transformers.
type Pipeline struct {
	steps []model.Transformer
}

func NewPipeline(steps ...model.Transformer) *Pipeline {
	return &Pipeline{steps: steps}
}

// Len returns the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Fit fits every step on the output of the previous one.
func (p *Pipeline) Fit(X [][]float64) error {
	for i, step := range p.steps {
		if err := step.Fit(X); err != nil {
			return fmt.Errorf("preprocessing step %d: %w", i, err)
		}
		X = step.Transform(X)
	}
	return nil
}

func (p *Pipeline) Transform(X [][]float64) [][]float64 {
	for _, step := range p.steps {
		X = step.Transform(X)
	}
	return X
}

// FitTransform fits the chain on X and returns X transformed.
func (p *Pipeline) FitTransform(X [][]float64) ([][]float64, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X), nil
}

var _ model.Transformer = (*Pipeline)(nil)
