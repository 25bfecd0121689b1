// Package loader partitions datasets for training and evaluation.
package loader

import (
	"math"
	"math/rand"
)

// DefaultSeed is the random state used for the train/test partition.
const DefaultSeed = 12

// Split holds a train/test partition. TestIndex maps each test row back to
// its position in the input.
type Split struct {
	XTrain, XTest [][]float64
	YTrain, YTest []float64
	TestIndex     []int
}

// TrainTestSplit shuffles rows with a seeded source and puts the first
// ceil(n*testRatio) of the permutation into the test set. The same input and
// seed always yield the same partition.
func TrainTestSplit(X [][]float64, Y []float64, testRatio float64, seed int64) Split {
	n := len(X)
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest > n {
		nTest = n
	}

	var s Split
	for i, idx := range indices {
		if i < nTest {
			s.XTest = append(s.XTest, X[idx])
			s.YTest = append(s.YTest, Y[idx])
			s.TestIndex = append(s.TestIndex, idx)
		} else {
			s.XTrain = append(s.XTrain, X[idx])
			s.YTrain = append(s.YTrain, Y[idx])
		}
	}
	return s
}
