package checkpoint

// Best keeps the best validation accuracy seen so far. The zero value
// starts from 0, so a first accuracy of 0 is not an improvement.
type Best struct {
	Accuracy float64
	Epoch    int
	Saves    int
}

// Offer calls save and records the new best when accuracy strictly exceeds
// the best so far.
func (b *Best) Offer(epoch int, accuracy float64, save func() error) (bool, error) {
	if accuracy <= b.Accuracy {
		return false, nil
	}
	if err := save(); err != nil {
		return false, err
	}
	b.Accuracy = accuracy
	b.Epoch = epoch
	b.Saves++
	return true, nil
}
