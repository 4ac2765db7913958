package evaluate

import (
	"io"

	"github.com/neurlang/acoustic/datasets"
	"github.com/neurlang/acoustic/features"
	"github.com/neurlang/acoustic/model"
	"github.com/neurlang/acoustic/nn"
	"github.com/neurlang/acoustic/parallel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	// ErrLabelRange is returned for a label outside [0, NumClasses).
	ErrLabelRange = errors.New("label out of range")

	// ErrLabelMismatch is returned when a group expected to share one label
	// does not.
	ErrLabelMismatch = errors.New("label mismatch within group")
)

// Options control the windowing of Evaluate.
type Options struct {
	WindowSize int
	Stride     int
	Threshold  float64

	// MaxBatch limits the rows per forward call; 0 runs a clip at once.
	MaxBatch int

	// Extractor computes auxiliary features for models that use them and
	// for windows the recording carries none for.
	Extractor *features.Extractor
	Workers   int
	Logger    logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Clip is the decision on one recording.
type Clip struct {
	Key       string
	Label     int
	Predicted int
	Loss      float64
	Windows   int
	Scores    []float64
}

// Stats summarise one evaluation pass.
type Stats struct {
	MeanLoss float64
	Accuracy float64 // percent of used recordings
	Correct  int
	Used     int // recordings with at least one window
	Total    int
	Skipped  []string
	Digest   [32]byte // over predicted classes in input order
}

func (s *Stats) finish(acc Accumulator, h *parallel.Hasher) {
	s.MeanLoss, s.Accuracy = acc.Finalize()
	s.Correct = acc.Correct
	s.Used = acc.Count
	s.Digest = h.Sum()
}

// Evaluate scores m on recs. Recordings without a single non silent window
// are logged, listed in Skipped and left out of loss and accuracy.
func Evaluate(m model.Model, recs []datasets.Recording, o Options) (Stats, error) {
	log := o.logger()
	stats := Stats{Total: len(recs)}
	if o.WindowSize <= 0 || o.Stride <= 0 {
		return stats, errors.Errorf("window size %d and stride %d must be positive", o.WindowSize, o.Stride)
	}
	if m.NumClasses() >= parallel.Skipped {
		return stats, errors.Errorf("%d classes do not fit the digest", m.NumClasses())
	}

	var acc Accumulator
	h := parallel.NewUint16Hasher(len(recs))
	for i, r := range recs {
		if r.Label < 0 || r.Label >= m.NumClasses() {
			return stats, errors.Wrapf(ErrLabelRange, "recording %s: label %d, classes %d", r.Key, r.Label, m.NumClasses())
		}
		clip, ok, err := Decide(m, r, o)
		if err != nil {
			return stats, err
		}
		if !ok {
			log.WithField("key", r.Key).Warn("no windows above the silence threshold, skipping")
			stats.Skipped = append(stats.Skipped, r.Key)
			continue
		}
		var correct int
		if clip.Predicted == r.Label {
			correct = 1
		}
		acc.Add(clip.Loss, correct, 1)
		h.MustPutUint16(i, uint16(clip.Predicted))
	}
	stats.finish(acc, h)

	log.WithFields(logrus.Fields{
		"loss":    stats.MeanLoss,
		"correct": stats.Correct,
		"used":    stats.Used,
		"total":   stats.Total,
		"skipped": len(stats.Skipped),
		"acc":     stats.Accuracy,
	}).Info("evaluation")
	return stats, nil
}

// Decide windows one recording and sums the model scores of its windows.
// It reports false when no window survives.
func Decide(m model.Model, r datasets.Recording, o Options) (Clip, bool, error) {
	clip := Clip{Key: r.Key, Label: r.Label}
	offsets, windows := Windows(r.Samples, o.WindowSize, o.Stride, o.Threshold)
	if len(windows) == 0 {
		return clip, false, nil
	}
	in := model.Input{Data: windows}
	if model.UsesAuxiliary(m) {
		aux, err := auxiliary(r, offsets, windows, o)
		if err != nil {
			return clip, false, err
		}
		in.Aux = aux
	}
	clip.Windows = len(windows)
	clip.Scores = Aggregate(m, in, o.MaxBatch)
	clip.Loss = nn.CrossEntropy(clip.Scores, r.Label)
	clip.Predicted = nn.ArgMax(clip.Scores)
	return clip, true, nil
}

func auxiliary(r datasets.Recording, offsets []int, windows [][]float64, o Options) ([][]float64, error) {
	rows := make([][]float64, len(windows))
	err := parallel.ForEach(len(windows), o.Workers, func(i int) error {
		if feat, ok := r.Aux[offsets[i]]; ok {
			rows[i] = feat
			return nil
		}
		if o.Extractor == nil {
			return errors.Wrapf(model.ErrNeedsAuxiliary, "recording %s at %d", r.Key, offsets[i])
		}
		rows[i] = o.Extractor.Window(r.Key, offsets[i], windows[i])
		return nil
	})
	return rows, err
}

// Aggregate runs m over in, at most maxBatch rows per call, and returns the
// element-wise sum of the score rows.
func Aggregate(m model.Model, in model.Input, maxBatch int) []float64 {
	if maxBatch <= 0 {
		maxBatch = in.Len()
	}
	sum := make([]float64, m.NumClasses())
	for i := 0; i < in.Len(); i += maxBatch {
		j := i + maxBatch
		if j > in.Len() {
			j = in.Len()
		}
		for _, row := range m.Forward(in.Slice(i, j)) {
			for c, v := range row {
				sum[c] += v
			}
		}
	}
	return sum
}
