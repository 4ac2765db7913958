package trainer

import "time"

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

// FoldResult is the outcome of one cross-validation fold.
type FoldResult struct {
	Fold    int
	Phase1  checkpoint.Best
	Phase2  checkpoint.Best
	Elapsed time.Duration
}

// Waveform trains a waveform classifier per fold, evaluating it with the
// windowed engine and keeping the best checkpoint of every phase.
type Waveform struct {
	Config config.Config
	Device device.Device
	Log    logrus.FieldLogger
}

// Run trains every configured fold in order and stops at the first error.
func (w *Waveform) Run() ([]FoldResult, error) {
	var out []FoldResult
	for _, fold := range w.Config.Folds {
		res, err := w.Fold(fold)
		if err != nil {
			return out, errors.Wrapf(err, "fold %d", fold)
		}
		out = append(out, res)
	}
	return out, nil
}

func (w *Waveform) modelOptions() model.Options {
	return model.Options{
		NumClasses: w.Config.NumClasses,
		Hidden:     w.Config.Hidden,
		Bands:      features.NewLogMel(w.Config.SampleRate).Mels,
		Seed:       w.Config.Seed,
	}
}

// Fold trains and evaluates one fold.
func (w *Waveform) Fold(fold int) (FoldResult, error) {
	cfg := w.Config
	res := FoldResult{Fold: fold}
	log := w.Log.WithField("fold", fold)
	start := time.Now()

	train, err := datasets.Load(cfg.TrainList(fold), cfg.SampleRate)
	if err != nil {
		return res, err
	}
	valid, err := datasets.Load(cfg.ValidList(fold), cfg.SampleRate)
	if err != nil {
		return res, err
	}
	if err := datasets.CheckLabels(train, cfg.NumClasses); err != nil {
		return res, err
	}
	if err := datasets.CheckLabels(valid, cfg.NumClasses); err != nil {
		return res, err
	}
	log.WithFields(logrus.Fields{"train": len(train), "valid": len(valid)}).Info("loaded")

	opts := w.modelOptions()
	m, err := model.New(cfg.Arch, opts)
	if err != nil {
		return res, err
	}
	if err := Resume(m, cfg.ResumeFrom(fold), log); err != nil {
		return res, err
	}

	mel := features.NewLogMel(cfg.SampleRate)
	cache, err := features.NewCache(cfg.FeatureCache)
	if err != nil {
		return res, err
	}
	r := &run{
		cfg:     cfg,
		dev:     w.Device,
		log:     log,
		model:   m,
		opts:    opts,
		fold:    fold,
		sampler: datasets.NewCropSampler(train, cfg.WindowSize(), cfg.TrainSlices, cfg.SilenceThreshold, cfg.Seed+int64(fold)),
		train:   &features.Extractor{Mel: mel},
		valid:   valid,
		eval: evaluate.Options{
			WindowSize: cfg.WindowSize(),
			Stride:     cfg.Stride(),
			Threshold:  cfg.SilenceThreshold,
			MaxBatch:   cfg.TestBatchSize,
			Extractor:  &features.Extractor{Mel: mel, Cache: cache},
			Workers:    w.Device.Workers,
			Logger:     log,
		},
	}

	phased, isPhased := m.(model.Phased)
	if isPhased {
		phased.SetPhase(1)
	}
	res.Phase1, err = r.phase(1, cfg.Epochs, cfg.EvalInterval)
	if err != nil {
		return res, err
	}

	if cfg.Phase2Epochs > 0 && isPhased {
		if res.Phase1.Saves > 0 {
			if err := checkpoint.Resume(m, r.path(1)); err != nil {
				return res, err
			}
		}
		phased.SetPhase(2)
		res.Phase2, err = r.phase(2, cfg.Phase2Epochs, cfg.Phase2EvalInterval)
		if err != nil {
			return res, err
		}
	} else if cfg.Phase2Epochs > 0 {
		log.WithField("arch", cfg.Arch).Warn("architecture has a single phase, skipping phase 2")
	}

	if hits, misses := cache.Stats(); hits+misses > 0 {
		log.WithFields(logrus.Fields{"hits": hits, "misses": misses}).Debug("feature cache")
	}
	res.Elapsed = time.Since(start)
	log.WithFields(logrus.Fields{
		"p1":      res.Phase1.Accuracy,
		"p2":      res.Phase2.Accuracy,
		"elapsed": res.Elapsed.Round(time.Millisecond),
	}).Info("time on fold")
	return res, nil
}

// run is the state shared by the phases of one fold.
type run struct {
	cfg     config.Config
	dev     device.Device
	log     logrus.FieldLogger
	model   model.Trainable
	opts    model.Options
	fold    int
	sampler *datasets.CropSampler
	train   *features.Extractor
	valid   []datasets.Recording
	eval    evaluate.Options
}

func (r *run) path(phase int) string {
	tag := "p1"
	if phase == 2 {
		tag = "p2"
	}
	return checkpoint.Path(r.cfg.ModelDir, r.cfg.Arch, r.fold, tag)
}

// phase trains for epochs epochs with a fresh optimiser, evaluating every
// interval epochs and saving on strict improvement.
func (r *run) phase(phase, epochs, interval int) (checkpoint.Best, error) {
	var best checkpoint.Best
	cfg := r.cfg
	sched := Schedule(cfg.LR, cfg.Milestones, cfg.Gamma, cfg.LRSteps)
	opt := nn.NewSGD(r.model.Params(), cfg.LR, cfg.Momentum, cfg.WeightDecay)
	log := r.log.WithField("phase", phase)
	name := r.path(phase)

	for epoch := 1; epoch <= epochs; epoch++ {
		opt.LR = sched.LR(epoch)
		batches := datasets.Batches(r.sampler.Epoch(), cfg.BatchSize)
		_, err := TrainEpoch(r.model, opt, batches, EpochOptions{
			Phase:     phase,
			Epoch:     epoch,
			Extractor: r.train,
			Workers:   r.dev.Workers,
			Progress:  cfg.Progress,
			Log:       log,
		})
		if err != nil {
			return best, errors.Wrapf(err, "phase %d epoch %d", phase, epoch)
		}
		if epoch%interval != 0 {
			continue
		}
		stats, err := evaluate.Evaluate(r.model, r.valid, r.eval)
		if err != nil {
			return best, errors.Wrapf(err, "phase %d epoch %d", phase, epoch)
		}
		saved, err := best.Offer(epoch, stats.Accuracy, func() error {
			return checkpoint.Save(name, r.model, r.opts)
		})
		if err != nil {
			return best, err
		}
		if saved {
			log.WithFields(logrus.Fields{"epoch": epoch, "acc": stats.Accuracy, "checkpoint": name}).Info("model has been saved")
		}
	}
	return best, nil
}
