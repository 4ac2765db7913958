package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, defaults map[string]interface{}, file string) Config {
	v, err := NewViper(defaults, file)
	require.NoError(t, err)
	c, err := Load(v)
	require.NoError(t, err)
	return c
}

func TestWaveformDefaults(t *testing.T) {
	c := load(t, Waveform(), "")

	assert.Equal(t, 32, c.BatchSize)
	assert.Equal(t, 180, c.Epochs)
	assert.Equal(t, 0.01, c.LR)
	assert.Equal(t, 0.9, c.Momentum)
	assert.Equal(t, 5e-4, c.WeightDecay)
	assert.Equal(t, []int{70, 130, 150}, c.Milestones)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, c.Folds)
	assert.Equal(t, 20, c.EvalInterval)
	assert.Equal(t, 66150, c.WindowSize())
	assert.Equal(t, 8820, c.Stride())
	assert.Equal(t, 0.005, c.SilenceThreshold)
	assert.Equal(t, filepath.Join("../data_wave_44100", "fold3_train.tsv"), c.TrainList(3))
	assert.Equal(t, filepath.Join("../data_wave_44100", "fold3_test.tsv"), c.ValidList(3))
	assert.Empty(t, c.LRSteps)
}

func TestSequenceDefaults(t *testing.T) {
	c := load(t, Sequence(), "")

	assert.Equal(t, 64, c.BatchSize)
	assert.Equal(t, 80, c.Epochs)
	assert.Equal(t, 5, c.TestBatchSize)
	assert.Equal(t, []int{1, 50, 60, 70}, c.StepEpochs())
	assert.Equal(t, 0.0001, c.LRSteps[60])
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ACOUSTIC_BATCH_SIZE", "8")
	t.Setenv("ACOUSTIC_ARCH", "wave_linear")
	t.Setenv("ACOUSTIC_TEST_STRIDE", "0.5")

	c := load(t, Waveform(), "")
	assert.Equal(t, 8, c.BatchSize)
	assert.Equal(t, "wave_linear", c.Arch)
	assert.Equal(t, 22050, c.Stride())
}

func TestFileOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("epochs: 3\nfolds: [1]\nlog_level: debug\n"), 0644))

	c := load(t, Waveform(), path)
	assert.Equal(t, 3, c.Epochs)
	assert.Equal(t, []int{1}, c.Folds)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestFlagsWin(t *testing.T) {
	t.Setenv("ACOUSTIC_EPOCHS", "7")
	v, err := NewViper(Waveform(), "")
	require.NoError(t, err)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v, Waveform()))
	require.NoError(t, fs.Parse([]string{"--epochs=2", "--device=avx512"}))

	c, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Epochs)
	assert.Equal(t, "avx512", c.Device)
	assert.Equal(t, 32, c.BatchSize)
}

func TestExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hidden: 64\n"), 0644))
	v, err := NewViper(Waveform(), path)
	require.NoError(t, err)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs, v, Waveform()))
	require.NoError(t, fs.Parse([]string{"--num-slices=3"}))

	assert.False(t, Explicit(fs, v, "seq_bands"))
	assert.True(t, Explicit(fs, v, "num_slices"))
	assert.True(t, Explicit(fs, v, "hidden"))

	t.Setenv("ACOUSTIC_SEQ_BANDS", "64")
	assert.True(t, Explicit(fs, v, "seq_bands"))
}

func TestValidate(t *testing.T) {
	base := load(t, Waveform(), "")

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"batch", func(c *Config) { c.BatchSize = 0 }},
		{"lr", func(c *Config) { c.LR = 0 }},
		{"stride", func(c *Config) { c.TestStride = 0.00001 }},
		{"milestones", func(c *Config) { c.Milestones = []int{10, 10} }},
		{"step", func(c *Config) { c.LRSteps = map[int]float64{0: 0.1} }},
		{"level", func(c *Config) { c.LogLevel = "loud" }},
		{"device", func(c *Config) { c.Device = "tpu" }},
		{"phase2", func(c *Config) { c.Phase2Epochs = 5; c.Phase2EvalInterval = 0 }},
		{"test batch", func(c *Config) { c.TestBatchSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, base.Validate())
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := load(t, Sequence(), "")
	dir := t.TempDir()

	id, err := c.Snapshot(dir)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	back, err := ReadSnapshot(filepath.Join(dir, "run-"+id+".yaml"))
	require.NoError(t, err)
	assert.Equal(t, c, back)
}
