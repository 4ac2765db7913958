package evaluate

// Accumulator sums loss and correct counts over examples.
type Accumulator struct {
	LossSum float64
	Correct int
	Count   int
}

// Add records count examples whose losses sum to lossSum, correct of which
// were classified correctly.
func (a *Accumulator) Add(lossSum float64, correct, count int) {
	a.LossSum += lossSum
	a.Correct += correct
	a.Count += count
}

// Finalize returns the mean loss and the accuracy in percent. Both are zero
// when nothing was added.
func (a Accumulator) Finalize() (meanLoss, accuracy float64) {
	if a.Count == 0 {
		return 0, 0
	}
	n := float64(a.Count)
	return a.LossSum / n, 100 * float64(a.Correct) / n
}
