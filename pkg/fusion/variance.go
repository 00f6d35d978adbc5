package fusion

// sampleVariance computes the unbiased (sample) variance Σ(x-mean)²/(n-1).
// The population form is too aggressive at small n and quietly demotes
// valid views, so this uses n-1 in the denominator. Returns 0 for fewer
// than two samples, since the estimator is undefined there and a
// single-candidate ranking should never be treated as degenerate.
func sampleVariance(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return sumSq / float64(n-1)
}
