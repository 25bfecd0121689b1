package NeuralNetwork

// Binary cross-entropy computed from logits, summed over samples.
// grad[i] is the derivative of the loss with respect to logits[i].
// Use this loss when fitting logistic regression on raw scores.
func BCEWithLogits(yTrue, logits []float64) (float64, []float64) {
	n := len(yTrue)
	s := 0.0
	grad := make([]float64, n)

	for i := range n {
		z := logits[i]
		y := yTrue[i]
		s += Softplus(z) - y*z
		grad[i] = Sigmoid(z) - y
	}
	return s, grad
}
