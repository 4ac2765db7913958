package trainer

import "fmt"
import "math/rand"

import "github.com/neurlang/acoustic/checkpoint"
import "github.com/neurlang/acoustic/config"
import "github.com/neurlang/acoustic/datasets"
import "github.com/neurlang/acoustic/device"
import "github.com/neurlang/acoustic/evaluate"
import "github.com/neurlang/acoustic/features"
import "github.com/neurlang/acoustic/model"
import "github.com/neurlang/acoustic/nn"
import "github.com/pkg/errors"
import "github.com/sirupsen/logrus"

// SequenceResult is the outcome of a sequence run.
type SequenceResult struct {
	Best          checkpoint.Best
	Last          evaluate.Stats
	TrainAccuracy float64 // of the last epoch
	Skipped       []string
}

// Sequence trains a classifier on log-mel segments of one train/test split.
// Test segments are scored in groups of NumSlices, one group per clip.
type Sequence struct {
	Config config.Config
	Device device.Device
	Log    logrus.FieldLogger
}

// Run trains for the configured epochs, evaluating after every epoch.
func (s *Sequence) Run() (SequenceResult, error) {
	var res SequenceResult
	cfg := s.Config
	log := s.Log

	mel := features.NewLogMel(cfg.SampleRate)
	mel.Mels = cfg.SeqBands
	train, skipped, err := datasets.LoadSegments(cfg.SeqTrain, cfg.SampleRate, mel, cfg.NumSlices)
	if err != nil {
		return res, err
	}
	res.Skipped = append(res.Skipped, skipped...)
	test, skipped, err := datasets.LoadSegments(cfg.SeqTest, cfg.SampleRate, mel, cfg.NumSlices)
	if err != nil {
		return res, err
	}
	res.Skipped = append(res.Skipped, skipped...)
	for _, key := range res.Skipped {
		log.WithField("key", key).Warn("recording shorter than its segments, skipping")
	}
	log.WithFields(logrus.Fields{"train": len(train), "test": len(test)}).Info("loaded segments")

	opts := model.Options{NumClasses: cfg.NumClasses, Hidden: cfg.Hidden, Bands: cfg.SeqBands, Seed: cfg.Seed}
	m, err := model.New(cfg.Arch, opts)
	if err != nil {
		return res, err
	}
	if model.UsesAuxiliary(m) {
		return res, errors.Wrapf(model.ErrNeedsAuxiliary, "%s in sequence mode", cfg.Arch)
	}
	if err := Resume(m, cfg.ResumeFrom(0), log); err != nil {
		return res, err
	}

	sched := Schedule(cfg.LR, cfg.Milestones, cfg.Gamma, cfg.LRSteps)
	opt := nn.NewSGD(m.Params(), cfg.LR, cfg.Momentum, cfg.WeightDecay)
	rng := rand.New(rand.NewSource(cfg.Seed))
	order := append([]datasets.Example(nil), train...)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		opt.LR = sched.LR(epoch)
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		_, err := TrainEpoch(m, opt, datasets.Batches(order, cfg.BatchSize), EpochOptions{
			Phase:    1,
			Epoch:    epoch,
			Workers:  s.Device.Workers,
			Progress: cfg.Progress,
			Log:      log,
		})
		if err != nil {
			return res, errors.Wrapf(err, "epoch %d", epoch)
		}

		if epoch%cfg.EvalInterval == 0 {
			res.Last, err = evaluate.EvaluateGrouped(m, test, cfg.NumSlices, log.WithField("epoch", epoch))
			if err != nil {
				return res, errors.Wrapf(err, "epoch %d", epoch)
			}
			res.TrainAccuracy, err = Accuracy(m, train, cfg.BatchSize, nil, s.Device.Workers)
			if err != nil {
				return res, err
			}
			log.WithFields(logrus.Fields{
				"epoch":     epoch,
				"loss":      res.Last.MeanLoss,
				"test_acc":  res.Last.Accuracy,
				"train_acc": res.TrainAccuracy,
			}).Info("test set")

			_, err = res.Best.Offer(epoch, res.Last.Accuracy, func() error {
				return checkpoint.Save(checkpoint.Path(cfg.ModelDir, cfg.Arch, 0, "best"), m, opts)
			})
			if err != nil {
				return res, err
			}
		}

		if epoch%cfg.SaveInterval == 0 {
			name := checkpoint.Path(cfg.ModelDir, cfg.Arch, 0, fmt.Sprintf("epoch%d", epoch))
			if err := checkpoint.Save(name, m, opts); err != nil {
				return res, err
			}
			log.WithField("checkpoint", name).Info("model has been saved")
		}
	}
	return res, nil
}
