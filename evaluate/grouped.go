package evaluate

import (
	"github.com/neurlang/acoustic/datasets"
	"github.com/neurlang/acoustic/model"
	"github.com/neurlang/acoustic/nn"
	"github.com/neurlang/acoustic/parallel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EvaluateGrouped scores consecutive groups of size examples, each group
// being the segments of one clip. Every example of a group must carry the
// group's label.
func EvaluateGrouped(m model.Model, examples []datasets.Example, size int, log logrus.FieldLogger) (Stats, error) {
	if log == nil {
		log = Options{}.logger()
	}
	stats := Stats{Total: len(examples) / max(size, 1)}
	if size <= 0 || len(examples)%size != 0 {
		return stats, errors.Errorf("%d examples do not split into groups of %d", len(examples), size)
	}

	var acc Accumulator
	h := parallel.NewUint16Hasher(stats.Total)
	for g := 0; g < stats.Total; g++ {
		group := examples[g*size : (g+1)*size]
		label := group[0].Label
		if label < 0 || label >= m.NumClasses() {
			return stats, errors.Wrapf(ErrLabelRange, "group %d (%s): label %d", g, group[0].Key, label)
		}
		in := model.Input{Data: make([][]float64, size)}
		for i, e := range group {
			if e.Label != label {
				return stats, errors.Wrapf(ErrLabelMismatch, "group %d: %s has %d, %s has %d", g, group[0].Key, label, e.Key, e.Label)
			}
			in.Data[i] = e.Data
		}
		scores := Aggregate(m, in, 0)
		pred := nn.ArgMax(scores)
		var correct int
		if pred == label {
			correct = 1
		}
		acc.Add(nn.CrossEntropy(scores, label), correct, 1)
		h.MustPutUint16(g, uint16(pred))
	}
	stats.finish(acc, h)

	log.WithFields(logrus.Fields{
		"loss":    stats.MeanLoss,
		"correct": stats.Correct,
		"groups":  stats.Used,
		"acc":     stats.Accuracy,
	}).Info("grouped evaluation")
	return stats, nil
}
