package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeData(n int) ([][]float64, []float64) {
	X := make([][]float64, n)
	Y := make([]float64, n)
	for i := range n {
		X[i] = []float64{float64(i), float64(i * 2)}
		Y[i] = float64(i % 2)
	}
	return X, Y
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n         int
		wantTest  int
		wantTrain int
	}{
		{n: 10, wantTest: 2, wantTrain: 8},
		{n: 11, wantTest: 3, wantTrain: 8},
		{n: 1, wantTest: 1, wantTrain: 0},
		{n: 0, wantTest: 0, wantTrain: 0},
	}

	for _, tt := range tests {
		X, Y := makeData(tt.n)
		s := TrainTestSplit(X, Y, 0.2, DefaultSeed)
		assert.Len(t, s.XTest, tt.wantTest, "n=%d", tt.n)
		assert.Len(t, s.YTest, tt.wantTest, "n=%d", tt.n)
		assert.Len(t, s.XTrain, tt.wantTrain, "n=%d", tt.n)
		assert.Len(t, s.YTrain, tt.wantTrain, "n=%d", tt.n)
	}
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, Y := makeData(100)

	a := TrainTestSplit(X, Y, 0.2, DefaultSeed)
	b := TrainTestSplit(X, Y, 0.2, DefaultSeed)
	assert.Equal(t, a, b)

	c := TrainTestSplit(X, Y, 0.2, DefaultSeed+1)
	assert.NotEqual(t, a.TestIndex, c.TestIndex)
}

func TestTrainTestSplit_IsPartition(t *testing.T) {
	X, Y := makeData(50)
	s := TrainTestSplit(X, Y, 0.2, DefaultSeed)

	seen := map[float64]int{}
	for _, row := range append(append([][]float64{}, s.XTrain...), s.XTest...) {
		seen[row[0]]++
	}
	require.Len(t, seen, 50)
	for k, c := range seen {
		assert.Equal(t, 1, c, "row %v", k)
	}

	for i, idx := range s.TestIndex {
		assert.Equal(t, X[idx], s.XTest[i])
		assert.Equal(t, Y[idx], s.YTest[i])
	}
}
