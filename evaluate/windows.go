// Package evaluate scores a model on held-out recordings by sliding fixed
// windows over each clip, dropping silent ones and summing the scores of the
// rest into a single clip decision.
package evaluate

import "math"

// CountWindows is the number of candidate windows of size, stepping by
// stride, that fit in n samples.
func CountWindows(n, size, stride int) int {
	if size <= 0 || stride <= 0 || n < size {
		return 0
	}
	return (n-size)/stride + 1
}

// Offsets lists the start of every candidate window.
func Offsets(n, size, stride int) []int {
	out := make([]int, 0, CountWindows(n, size, stride))
	for i := 0; i < cap(out); i++ {
		out = append(out, i*stride)
	}
	return out
}

// Silent reports whether every sample lies strictly below threshold in
// magnitude. A NaN sample is never below threshold, so its window is kept.
func Silent(window []float64, threshold float64) bool {
	for _, v := range window {
		if !(math.Abs(v) < threshold) {
			return false
		}
	}
	return true
}

// Windows returns the candidate windows of samples that are not silent,
// together with their offsets. Windows alias samples.
func Windows(samples []float64, size, stride int, threshold float64) (offsets []int, windows [][]float64) {
	for _, off := range Offsets(len(samples), size, stride) {
		w := samples[off : off+size]
		if Silent(w, threshold) {
			continue
		}
		offsets = append(offsets, off)
		windows = append(windows, w)
	}
	return
}
