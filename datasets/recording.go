// Package datasets implements the labeled recordings, the fold list loader,
// the training crop sampler and the log-mel segment dataset.
package datasets

import "github.com/pkg/errors"

// ErrEmpty is returned when a list yields no recordings.
var ErrEmpty = errors.New("empty dataset")

// Recording is one labeled clip. It is not modified after loading.
type Recording struct {
	Key     string
	Label   int
	Samples []float64

	// Aux optionally holds precomputed auxiliary features by window offset.
	Aux map[int][]float64
}

// Example is one training or test input: a crop of a recording, or a
// log-mel segment in sequence mode.
type Example struct {
	Key    string
	Label  int
	Offset int
	Data   []float64
	Aux    []float64
}

// Labels returns the labels of a batch.
func Labels(batch []Example) []int {
	out := make([]int, len(batch))
	for i := range batch {
		out[i] = batch[i].Label
	}
	return out
}

// Batches cuts examples into consecutive batches of at most size.
func Batches(examples []Example, size int) [][]Example {
	if size <= 0 {
		size = len(examples)
	}
	var out [][]Example
	for i := 0; i < len(examples); i += size {
		j := i + size
		if j > len(examples) {
			j = len(examples)
		}
		out = append(out, examples[i:j])
	}
	return out
}

// CheckLabels verifies every recording label lies in [0, classes).
func CheckLabels(recs []Recording, classes int) error {
	for _, r := range recs {
		if r.Label < 0 || r.Label >= classes {
			return errors.Errorf("recording %s: label %d outside [0, %d)", r.Key, r.Label, classes)
		}
	}
	return nil
}
