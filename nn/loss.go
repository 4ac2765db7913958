package nn

import "math"

// LogSumExp computes log(sum(exp(v))) without overflow.
func LogSumExp(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	if math.IsInf(m, 0) {
		return m
	}
	var s float64
	for _, x := range v {
		s += math.Exp(x - m)
	}
	return m + math.Log(s)
}

// CrossEntropy returns -log softmax(scores)[label].
func CrossEntropy(scores []float64, label int) float64 {
	return LogSumExp(scores) - scores[label]
}

// ArgMax returns the index of the largest value, the lowest index on ties.
func ArgMax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
