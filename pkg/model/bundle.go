package model

import (
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/stats"
)

// Bundle is the persisted training artifact.
type Bundle struct {
	Model        *LogisticRegression
	Scaler       *stats.StandardScaler // nil when features were not standardized
	FeatureNames []string
	Metadata     BundleMetadata
	CreatedAt    time.Time
}

// BundleMetadata records how the model was trained and how it scored.
type BundleMetadata struct {
	Dataset    string
	RunID      string
	Accuracy   float64
	Precision  float64
	Recall     float64
	F1Score    float64
	Converged  bool
	Iterations int
	Status     string
	TrainRows  int
	TestRows   int
}

// Predict applies the stored scaler, if any, and the model to raw feature rows.
func (b *Bundle) Predict(X [][]float64) ([]float64, error) {
	if b.Model == nil {
		return nil, common.ErrNotFitted
	}
	if b.Scaler != nil {
		X = b.Scaler.Transform(X)
	}
	return b.Model.Predict(X)
}

// FileName encodes accuracy and hyperparameters the way the run registry expects:
// model_accuracy_<score>_C_<C>_maxIter_<max_iter>.gob
func FileName(accuracy, c float64, maxIter int) string {
	return "model_accuracy_" + FormatFloat(accuracy) +
		"_C_" + FormatFloat(c) +
		"_maxIter_" + strconv.Itoa(maxIter) + ".gob"
}

// FormatFloat renders f as the shortest round-tripping decimal, always with a
// fractional part or exponent (1.0, 0.91, 1e-05).
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SaveBundle writes b into dir, creating dir if needed, and returns the file path.
// An existing file with the same name is replaced.
func SaveBundle(dir string, b *Bundle) (string, error) {
	if b == nil || b.Model == nil {
		return "", fmt.Errorf("cannot save bundle: %w", common.ErrNotFitted)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, FileName(b.Metadata.Accuracy, b.Model.C, b.Model.MaxIter))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(b); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("failed to encode bundle: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close bundle: %w", err)
	}
	return path, nil
}

// LoadBundle reads a bundle written by SaveBundle.
func LoadBundle(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var b Bundle
	if err := gob.NewDecoder(file).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return &b, nil
}
