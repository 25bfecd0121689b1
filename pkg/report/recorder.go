// Package report renders training diagnostics.
package report

import (
	"sync"

	"gonum.org/v1/gonum/optimize"
)

// LossRecorder collects the objective value at every major solver iteration.
type LossRecorder struct {
	mu     sync.Mutex
	losses []float64
}

var _ optimize.Recorder = (*LossRecorder)(nil)

// Init resets the recorded history.
func (r *LossRecorder) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.losses = r.losses[:0]
	return nil
}

// Record keeps the objective of major iterations and ignores every other operation.
func (r *LossRecorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op != optimize.MajorIteration {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.losses = append(r.losses, loc.F)
	return nil
}

// Losses returns a copy of the recorded objective values.
func (r *LossRecorder) Losses() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.losses...)
}
