package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/neurlang/acoustic/nn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randRows(rng *rand.Rand, n, width int, scale float64) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, width)
		for j := range out[i] {
			out[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return out
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"fusion_mlp", "logmel_mlp", "seq_mlp", "wave_linear", "wave_mlp"}, Names())

	_, err := New("resnet", Options{NumClasses: 10})
	assert.ErrorIs(t, err, ErrUnknownArchitecture)

	_, err = New("wave_mlp", Options{NumClasses: 1})
	assert.Error(t, err)

	assert.Panics(t, func() {
		Register("wave_mlp", nil)
	})
}

func TestForwardShapes(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := Input{
		Data: randRows(rng, 3, 600, 0.5),
		Aux:  randRows(rng, 3, 8*10, 50),
	}
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			m, err := New(name, Options{NumClasses: 5, Hidden: 16, Bands: 8, Seed: 3})
			require.NoError(t, err)
			assert.Equal(t, name, m.Arch())
			assert.Equal(t, 5, m.NumClasses())
			if name == "fusion_mlp" {
				m.(Phased).SetPhase(2)
			}
			out := m.Forward(in)
			require.Len(t, out, 3)
			for _, row := range out {
				assert.Len(t, row, 5)
			}
		})
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	a, err := New("wave_mlp", Options{NumClasses: 4, Hidden: 8, Seed: 5})
	require.NoError(t, err)
	b, err := New("wave_mlp", Options{NumClasses: 4, Hidden: 8, Seed: 5})
	require.NoError(t, err)
	for i, p := range a.Params() {
		assert.Equal(t, p.Values(), b.Params()[i].Values())
	}
}

func TestUsesAuxiliary(t *testing.T) {
	wave, _ := New("wave_mlp", Options{NumClasses: 3})
	mel, _ := New("logmel_mlp", Options{NumClasses: 3})
	fus, _ := New("fusion_mlp", Options{NumClasses: 3})
	assert.False(t, UsesAuxiliary(wave))
	assert.True(t, UsesAuxiliary(mel))
	assert.False(t, UsesAuxiliary(fus))
	fus.(Phased).SetPhase(2)
	assert.True(t, UsesAuxiliary(fus))
	assert.Equal(t, 2, fus.(Phased).Phase())
}

func loss(m Trainable, in Input, labels []int) float64 {
	var sum float64
	for i, row := range m.Forward(in) {
		sum += nn.CrossEntropy(row, labels[i])
	}
	return sum / float64(len(labels))
}

func TestLogitsMatchForward(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	in := Input{Data: randRows(rng, 2, 256, 0.5), Aux: randRows(rng, 2, 8*6, 40)}
	m, err := New("fusion_mlp", Options{NumClasses: 3, Hidden: 6, Bands: 8, Seed: 7})
	require.NoError(t, err)
	m.(Phased).SetPhase(2)
	assert.Equal(t, nn.Rows(m.Logits(in)), m.Forward(in))
	assert.Empty(t, m.Forward(Input{}))
}

func TestTrainingLowersLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	in := Input{Data: randRows(rng, 4, 256, 0.5), Aux: randRows(rng, 4, 8*6, 40)}
	labels := []int{0, 1, 2, 1}
	for _, name := range []string{"wave_linear", "wave_mlp", "logmel_mlp", "fusion_mlp"} {
		t.Run(name, func(t *testing.T) {
			m, err := New(name, Options{NumClasses: 3, Hidden: 6, Bands: 8, Seed: 7})
			require.NoError(t, err)
			if name == "fusion_mlp" {
				m.(Phased).SetPhase(2)
			}
			frozen := map[string][]float64{}
			for _, p := range m.Params() {
				if p.Frozen {
					frozen[p.Name] = p.Values()
				}
			}

			before := loss(m, in, labels)
			opt := nn.NewSGD(m.Params(), 0.05, 0, 0)
			for i := 0; i < 10; i++ {
				_, _, err := opt.Step(m.Logits(in), labels)
				require.NoError(t, err)
			}
			assert.Less(t, loss(m, in, labels), before)
			for _, p := range m.Params() {
				if want, ok := frozen[p.Name]; ok {
					assert.Equal(t, want, p.Values(), p.Name)
				}
			}
		})
	}
}

func TestFusionPhases(t *testing.T) {
	m, err := New("fusion_mlp", Options{NumClasses: 3, Hidden: 4, Bands: 8})
	require.NoError(t, err)
	trainable := func() (names []string) {
		for _, p := range nn.NewSGD(m.Params(), 0.1, 0, 0).Params() {
			names = append(names, p.Name)
		}
		return
	}
	assert.Equal(t, []string{"wave.0.weight", "wave.0.bias", "head1.weight", "head1.bias"}, trainable())
	m.(Phased).SetPhase(2)
	assert.Equal(t, []string{
		"mel.0.weight", "mel.0.bias",
		"head2.wave.weight", "head2.wave.bias",
		"head2.mel.weight", "head2.mel.bias",
	}, trainable())
}

func TestInputSlice(t *testing.T) {
	in := Input{Data: [][]float64{{1}, {2}, {3}}}
	s := in.Slice(1, 3)
	assert.Equal(t, 2, s.Len())
	assert.Nil(t, s.Aux)
	in.Aux = [][]float64{{4}, {5}, {6}}
	assert.Equal(t, [][]float64{{5}}, in.Slice(1, 2).Aux)
}

func TestPools(t *testing.T) {
	silent := wavePool(make([]float64, 640))
	require.Len(t, silent, waveFeatures)
	assert.InDelta(t, math.Log(1e-6)/10, silent[0], 1e-12)
	assert.Zero(t, silent[1])

	alt := make([]float64, 640)
	for i := range alt {
		alt[i] = 1 - 2*float64(i%2)
	}
	p := wavePool(alt)
	assert.InDelta(t, 0.9, p[1], 1e-12)

	spectrogram := []float64{-100, -100, 0, 20}
	assert.Equal(t, []float64{-1, 0, 0.1, 1}, bandPool(spectrogram, 2))
}
