package trainer

import "fmt"
import "io"
import "time"

import "github.com/neurlang/acoustic/datasets"
import "github.com/neurlang/acoustic/evaluate"
import "github.com/neurlang/acoustic/features"
import "github.com/neurlang/acoustic/model"
import "github.com/neurlang/acoustic/nn"
import "github.com/neurlang/acoustic/parallel"
import "github.com/pkg/errors"
import "github.com/sirupsen/logrus"
import "github.com/vbauerster/mpb/v8"
import "github.com/vbauerster/mpb/v8/decor"

// Step runs m forward and backward over one batch and applies one update.
// It returns the mean loss of the batch and the number of correct rows.
func Step(m model.Trainable, opt *nn.SGD, in model.Input, labels []int) (float64, int, error) {
	return opt.Step(m.Logits(in), labels)
}

// Input assembles the model input of a batch. Auxiliary rows are taken from
// the examples or computed by ex when the model wants them.
func Input(m model.Model, batch []datasets.Example, ex *features.Extractor, workers int) (model.Input, error) {
	in := model.Input{Data: make([][]float64, len(batch))}
	for i := range batch {
		in.Data[i] = batch[i].Data
	}
	if !model.UsesAuxiliary(m) {
		return in, nil
	}
	in.Aux = make([][]float64, len(batch))
	err := parallel.ForEach(len(batch), workers, func(i int) error {
		e := &batch[i]
		if e.Aux != nil {
			in.Aux[i] = e.Aux
			return nil
		}
		if ex == nil {
			return errors.Wrapf(model.ErrNeedsAuxiliary, "example %s at %d", e.Key, e.Offset)
		}
		in.Aux[i] = ex.Window(e.Key, e.Offset, e.Data)
		return nil
	})
	return in, err
}

// EpochOptions describe one training epoch.
type EpochOptions struct {
	Phase     int
	Epoch     int
	Extractor *features.Extractor
	Workers   int
	Progress  bool
	Log       logrus.FieldLogger
}

func newProgress(enabled bool) *mpb.Progress {
	if !enabled {
		return mpb.New(mpb.WithOutput(io.Discard))
	}
	return mpb.New(mpb.WithWidth(64))
}

// TrainEpoch runs Step over every batch and returns the accumulated training
// loss and accuracy. These are for logging only.
func TrainEpoch(m model.Trainable, opt *nn.SGD, batches [][]datasets.Example, o EpochOptions) (evaluate.Accumulator, error) {
	var acc evaluate.Accumulator
	start := time.Now()

	p := newProgress(o.Progress)
	bar := p.AddBar(int64(len(batches)),
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("phase %d epoch %d: ", o.Phase, o.Epoch)),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
	fail := func(err error) (evaluate.Accumulator, error) {
		bar.Abort(false)
		p.Wait()
		return acc, err
	}

	for _, batch := range batches {
		labels := datasets.Labels(batch)
		for i, l := range labels {
			if l < 0 || l >= m.NumClasses() {
				return fail(errors.Wrapf(evaluate.ErrLabelRange, "example %s: label %d, classes %d", batch[i].Key, l, m.NumClasses()))
			}
		}
		in, err := Input(m, batch, o.Extractor, o.Workers)
		if err != nil {
			return fail(err)
		}
		loss, correct, err := Step(m, opt, in, labels)
		if err != nil {
			return fail(errors.Wrapf(err, "example %s", batch[0].Key))
		}
		acc.Add(loss*float64(len(batch)), correct, len(batch))
		bar.Increment()
	}
	bar.SetTotal(-1, true)
	p.Wait()

	if o.Log != nil {
		loss, accuracy := acc.Finalize()
		o.Log.WithFields(logrus.Fields{
			"phase":   o.Phase,
			"epoch":   o.Epoch,
			"lr":      opt.LR,
			"samples": acc.Count,
			"loss":    loss,
			"acc":     accuracy,
			"elapsed": time.Since(start).Round(time.Millisecond),
		}).Info("train")
	}
	return acc, nil
}

// Accuracy classifies every example on its own and returns the percentage
// classified correctly.
func Accuracy(m model.Model, examples []datasets.Example, batchSize int, ex *features.Extractor, workers int) (float64, error) {
	var acc evaluate.Accumulator
	for _, batch := range datasets.Batches(examples, batchSize) {
		in, err := Input(m, batch, ex, workers)
		if err != nil {
			return 0, err
		}
		var correct int
		for i, row := range m.Forward(in) {
			if nn.ArgMax(row) == batch[i].Label {
				correct++
			}
		}
		acc.Add(0, correct, len(batch))
	}
	_, accuracy := acc.Finalize()
	return accuracy, nil
}

// Schedule returns the explicit steps when any are given, else the
// multiplicative milestone decay.
func Schedule(base float64, milestones []int, gamma float64, steps map[int]float64) nn.Schedule {
	if len(steps) > 0 {
		return nn.Steps{Base: base, At: steps}
	}
	return nn.MultiStep{Base: base, Milestones: milestones, Gamma: gamma}
}
