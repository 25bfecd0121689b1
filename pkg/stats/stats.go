package stats

import "gonum.org/v1/gonum/stat"

// Mean computes the average of a slice. An empty slice has mean 0.
func Mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.Mean(x, nil)
}

// Variance computes the population variance of a slice.
func Variance(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopVariance(x, nil)
}

// Std computes the population standard deviation of a slice.
func Std(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	return stat.PopStdDev(x, nil)
}
