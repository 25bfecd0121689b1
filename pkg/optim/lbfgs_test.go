package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quadratic has its minimum at (1, -2).
var quadratic = Objective{
	Func: func(x []float64) float64 {
		a, b := x[0]-1, x[1]+2
		return a*a + 10*b*b
	},
	Grad: func(grad, x []float64) {
		grad[0] = 2 * (x[0] - 1)
		grad[1] = 20 * (x[1] + 2)
	},
}

func TestLBFGS_Converges(t *testing.T) {
	res, err := LBFGS(quadratic, []float64{5, 5}, Options{MaxIter: 100})
	require.NoError(t, err)
	assert.True(t, res.Converged, res.Status)
	assert.InDelta(t, 1, res.X[0], 1e-3)
	assert.InDelta(t, -2, res.X[1], 1e-3)
}

func TestLBFGS_IterationLimitIsNotAnError(t *testing.T) {
	res, err := LBFGS(quadratic, []float64{500, -500}, Options{MaxIter: 1})
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, "IterationLimit", res.Status)
	assert.Equal(t, 1, res.Iterations)
}

func TestLBFGS_RejectsNonPositiveMaxIter(t *testing.T) {
	_, err := LBFGS(quadratic, []float64{0, 0}, Options{MaxIter: 0})
	assert.Error(t, err)
}
