// Package config holds the immutable run configuration shared by the drivers,
// the training step and the evaluation engine.
package config

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/neurlang/acoustic/device"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variable overrides, e.g. ACOUSTIC_BATCH_SIZE.
const EnvPrefix = "ACOUSTIC"

// Config is built once at startup and passed by value afterwards.
type Config struct {
	BatchSize     int             `mapstructure:"batch_size" yaml:"batch_size"`
	TestBatchSize int             `mapstructure:"test_batch_size" yaml:"test_batch_size"` // 0 runs a whole clip at once
	Epochs        int             `mapstructure:"epochs" yaml:"epochs"`
	LR            float64         `mapstructure:"lr" yaml:"lr"`
	Momentum      float64         `mapstructure:"momentum" yaml:"momentum"`
	WeightDecay   float64         `mapstructure:"weight_decay" yaml:"weight_decay"`
	Milestones    []int           `mapstructure:"milestones" yaml:"milestones,omitempty"`
	Gamma         float64         `mapstructure:"gamma" yaml:"gamma"`
	LRSteps       map[int]float64 `mapstructure:"lr_steps" yaml:"lr_steps,omitempty"` // overrides Milestones when set

	Device  string `mapstructure:"device" yaml:"device"`
	Workers int    `mapstructure:"workers" yaml:"workers"`
	Seed    int64  `mapstructure:"seed" yaml:"seed"`

	Arch       string `mapstructure:"arch" yaml:"arch"`
	NumClasses int    `mapstructure:"num_classes" yaml:"num_classes"`
	Hidden     int    `mapstructure:"hidden" yaml:"hidden"`

	EvalInterval     int     `mapstructure:"eval_interval" yaml:"eval_interval"`
	TrainSlices      int     `mapstructure:"train_slices" yaml:"train_slices"`
	TestStride       float64 `mapstructure:"test_stride" yaml:"test_stride"` // seconds
	SampleRate       int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	WindowSeconds    float64 `mapstructure:"window_seconds" yaml:"window_seconds"`
	SilenceThreshold float64 `mapstructure:"silence_threshold" yaml:"silence_threshold"`
	FeatureCache     int     `mapstructure:"feature_cache" yaml:"feature_cache"`

	Folds         []int  `mapstructure:"folds" yaml:"folds"`
	DataDir       string `mapstructure:"data_dir" yaml:"data_dir"`
	ModelDir      string `mapstructure:"model_dir" yaml:"model_dir"`
	TrainTemplate string `mapstructure:"train_template" yaml:"train_template"`
	ValidTemplate string `mapstructure:"valid_template" yaml:"valid_template"`

	Phase2Epochs       int `mapstructure:"phase2_epochs" yaml:"phase2_epochs"`
	Phase2EvalInterval int `mapstructure:"phase2_eval_interval" yaml:"phase2_eval_interval"`

	SeqBands     int    `mapstructure:"seq_bands" yaml:"seq_bands"`
	NumSlices    int    `mapstructure:"num_slices" yaml:"num_slices"`
	SaveInterval int    `mapstructure:"save_interval" yaml:"save_interval"`
	SeqTrain     string `mapstructure:"seq_train" yaml:"seq_train"`
	SeqTest      string `mapstructure:"seq_test" yaml:"seq_test"`

	// Resume names a checkpoint to start from; {fold} is replaced by the fold.
	Resume string `mapstructure:"resume" yaml:"resume,omitempty"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Progress bool   `mapstructure:"progress" yaml:"progress"`
}

// Waveform returns the defaults of the cross-validated waveform experiment.
func Waveform() map[string]interface{} {
	return map[string]interface{}{
		"batch_size":           32,
		"test_batch_size":      0,
		"epochs":               180,
		"lr":                   0.01,
		"momentum":             0.9,
		"weight_decay":         5e-4,
		"milestones":           []int{70, 130, 150},
		"gamma":                0.1,
		"lr_steps":             map[int]float64{},
		"device":               "cpu",
		"workers":              0,
		"seed":                 777,
		"arch":                 "wave_mlp",
		"num_classes":          50,
		"hidden":               256,
		"eval_interval":        20,
		"train_slices":         1,
		"test_stride":          0.2,
		"sample_rate":          44100,
		"window_seconds":       1.5,
		"silence_threshold":    0.005,
		"feature_cache":        4096,
		"folds":                []int{0, 1, 2, 3, 4},
		"data_dir":             "../data_wave_44100",
		"model_dir":            "../model",
		"train_template":       "fold{fold}_train.tsv",
		"valid_template":       "fold{fold}_test.tsv",
		"phase2_epochs":        0,
		"phase2_eval_interval": 30,
		"seq_bands":            40,
		"num_slices":           5,
		"save_interval":        40,
		"seq_train":            "",
		"seq_test":             "",
		"resume":               "",
		"log_level":            "info",
		"progress":             true,
	}
}

// Sequence returns the defaults of the single-split log-mel sequence experiment.
func Sequence() map[string]interface{} {
	d := Waveform()
	d["batch_size"] = 64
	d["test_batch_size"] = 5
	d["epochs"] = 80
	d["weight_decay"] = 1e-6
	d["milestones"] = []int{}
	d["lr_steps"] = map[int]float64{1: 0.01, 50: 0.001, 60: 0.0001, 70: 0.00001}
	d["arch"] = "seq_mlp"
	d["eval_interval"] = 1
	d["save_interval"] = 10
	d["seq_train"] = "../segments_logmel/seg.train.tsv"
	d["seq_test"] = "../segments_logmel/seg.test.tsv"
	return d
}

// NewViper returns a viper instance carrying defaults and environment
// overrides. A non-empty file is merged on top of the defaults.
func NewViper(defaults map[string]interface{}, file string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := ReadFile(v, file); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadFile merges the config file into v. An empty name is ignored.
func ReadFile(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	return errors.Wrapf(v.ReadInConfig(), "read config %s", file)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if len(c.Milestones) == 0 {
		c.Milestones = nil
	}
	if len(c.LRSteps) == 0 {
		c.LRSteps = nil
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"batch_size", c.BatchSize},
		{"epochs", c.Epochs},
		{"num_classes", c.NumClasses},
		{"eval_interval", c.EvalInterval},
		{"train_slices", c.TrainSlices},
		{"sample_rate", c.SampleRate},
		{"hidden", c.Hidden},
		{"num_slices", c.NumSlices},
		{"save_interval", c.SaveInterval},
		{"seq_bands", c.SeqBands},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.Errorf("config: %s must be positive, got %d", p.name, p.value)
		}
	}
	if c.TestBatchSize < 0 {
		return errors.Errorf("config: test_batch_size must not be negative, got %d", c.TestBatchSize)
	}
	if c.LR <= 0 {
		return errors.Errorf("config: lr must be positive, got %g", c.LR)
	}
	if c.WindowSeconds <= 0 {
		return errors.Errorf("config: window_seconds must be positive, got %g", c.WindowSeconds)
	}
	if c.WindowSize() < 1 {
		return errors.Errorf("config: window of %gs at %dHz is empty", c.WindowSeconds, c.SampleRate)
	}
	if c.Stride() < 1 {
		return errors.Errorf("config: test_stride %gs at %dHz is below one sample", c.TestStride, c.SampleRate)
	}
	if c.Phase2Epochs < 0 {
		return errors.Errorf("config: phase2_epochs must not be negative, got %d", c.Phase2Epochs)
	}
	if c.Phase2Epochs > 0 && c.Phase2EvalInterval <= 0 {
		return errors.Errorf("config: phase2_eval_interval must be positive, got %d", c.Phase2EvalInterval)
	}
	for i := 1; i < len(c.Milestones); i++ {
		if c.Milestones[i] <= c.Milestones[i-1] {
			return errors.Errorf("config: milestones must increase, got %v", c.Milestones)
		}
	}
	for epoch, lr := range c.LRSteps {
		if epoch < 1 || lr <= 0 {
			return errors.Errorf("config: bad lr step %d:%g", epoch, lr)
		}
	}
	if !knownDevice(c.Device) {
		return errors.Errorf("config: unknown device %q", c.Device)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "config: log_level")
	}
	return nil
}

func knownDevice(name string) bool {
	for _, d := range device.Names {
		if d == name {
			return true
		}
	}
	return false
}

// WindowSize is the number of samples in one analysis window.
func (c Config) WindowSize() int {
	return int(math.Round(float64(c.SampleRate) * c.WindowSeconds))
}

// Stride is the number of samples between evaluation window offsets.
func (c Config) Stride() int {
	return int(math.Round(float64(c.SampleRate) * c.TestStride))
}

// TrainList is the training list file of a fold.
func (c Config) TrainList(fold int) string {
	return filepath.Join(c.DataDir, foldName(c.TrainTemplate, fold))
}

// ValidList is the validation list file of a fold.
func (c Config) ValidList(fold int) string {
	return filepath.Join(c.DataDir, foldName(c.ValidTemplate, fold))
}

func foldName(template string, fold int) string {
	return strings.ReplaceAll(template, "{fold}", strconv.Itoa(fold))
}

// ResumeFrom is the checkpoint a fold starts from, or "".
func (c Config) ResumeFrom(fold int) string {
	return foldName(c.Resume, fold)
}

// StepEpochs returns the epochs of LRSteps in increasing order.
func (c Config) StepEpochs() []int {
	var out []int
	for e := range c.LRSteps {
		out = append(out, e)
	}
	sort.Ints(out)
	return out
}

// NewLogger builds the run logger.
func (c Config) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		l.SetLevel(level)
	}
	return l
}

// Snapshot writes the effective configuration to dir/run-<id>.yaml and returns the run id.
func (c Config) Snapshot(dir string) (string, error) {
	id := uuid.New().String()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "snapshot dir")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "encode snapshot")
	}
	path := filepath.Join(dir, "run-"+id+".yaml")
	if err := os.WriteFile(path, b, 0644); err != nil {
		return "", errors.Wrapf(err, "write snapshot %s", path)
	}
	return id, nil
}

// ReadSnapshot decodes a configuration written by Snapshot.
func ReadSnapshot(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read snapshot %s", path)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, errors.Wrapf(err, "decode snapshot %s", path)
	}
	return c, nil
}
