package model

import (
	"math/rand"

	"github.com/neurlang/acoustic/nn"
)

func init() {
	Register("wave_linear", func(o Options) (Trainable, error) {
		return newPooled("wave_linear", o, false, waveFeatures, wavePool), nil
	})
	Register("wave_mlp", func(o Options) (Trainable, error) {
		return newPooled("wave_mlp", o, false, waveFeatures, wavePool, o.Hidden), nil
	})
	Register("logmel_mlp", func(o Options) (Trainable, error) {
		bands := bandsOr(o, 96)
		return newPooled("logmel_mlp", o, true, 2*bands, func(x []float64) []float64 {
			return bandPool(x, bands)
		}, o.Hidden), nil
	})
	Register("seq_mlp", func(o Options) (Trainable, error) {
		bands := bandsOr(o, 40)
		return newPooled("seq_mlp", o, false, 2*bands, func(x []float64) []float64 {
			return bandPool(x, bands)
		}, o.Hidden, o.Hidden/2), nil
	})
	Register("fusion_mlp", func(o Options) (Trainable, error) {
		return newFusion(o), nil
	})
}

func bandsOr(o Options, def int) int {
	if o.Bands > 0 {
		return o.Bands
	}
	return def
}

// pooled is a fixed front end followed by an MLP. With aux set it reads the
// auxiliary rows instead of the waveform.
type pooled struct {
	arch    string
	classes int
	aux     bool
	pool    func([]float64) []float64
	b       nn.Backend
	net     *mlp
}

func newPooled(arch string, o Options, aux bool, width int, pool func([]float64) []float64, hidden ...int) *pooled {
	sizes := append([]int{width}, hidden...)
	sizes = append(sizes, o.NumClasses)
	b := nn.NewBackend()
	return &pooled{
		arch:    arch,
		classes: o.NumClasses,
		aux:     aux,
		pool:    pool,
		b:       b,
		net:     newMLP(b, arch, rand.New(rand.NewSource(o.Seed)), false, sizes...),
	}
}

func (p *pooled) Arch() string        { return p.arch }
func (p *pooled) NumClasses() int     { return p.classes }
func (p *pooled) UsesAuxiliary() bool { return p.aux }
func (p *pooled) Params() []*nn.Param { return p.net.params() }

func (p *pooled) rows(in Input) [][]float64 {
	if p.aux {
		return in.Aux
	}
	return in.Data
}

func (p *pooled) Forward(in Input) [][]float64 {
	if in.Len() == 0 {
		return [][]float64{}
	}
	return nn.Rows(p.Logits(in))
}

func (p *pooled) Logits(in Input) nn.Tensor {
	return p.net.forward(nn.FromRows(p.b, poolRows(p.rows(in), p.pool)))
}

// fusion trains a waveform branch first; in phase 2 that branch is frozen
// and its hidden features are joined with a log-mel branch. The joint head
// is split in a waveform and a log-mel half whose outputs are summed.
type fusion struct {
	classes int
	bands   int
	phase   int

	b     nn.Backend
	wave  *mlp
	mel   *mlp
	head1 *nn.Dense
	head2 [2]*nn.Dense
}

func newFusion(o Options) *fusion {
	rng := rand.New(rand.NewSource(o.Seed))
	f := &fusion{
		classes: o.NumClasses,
		bands:   bandsOr(o, 96),
		b:       nn.NewBackend(),
	}
	f.wave = newMLP(f.b, "wave", rng, true, waveFeatures, o.Hidden)
	f.mel = newMLP(f.b, "mel", rng, true, 2*f.bands, o.Hidden)
	f.head1 = nn.NewDense(f.b, "head1", o.Hidden, o.NumClasses, rng)
	f.head2[0] = nn.NewDense(f.b, "head2.wave", o.Hidden, o.NumClasses, rng)
	f.head2[1] = nn.NewDense(f.b, "head2.mel", o.Hidden, o.NumClasses, rng)
	f.SetPhase(1)
	return f
}

func (f *fusion) Arch() string        { return "fusion_mlp" }
func (f *fusion) NumClasses() int     { return f.classes }
func (f *fusion) UsesAuxiliary() bool { return f.phase == 2 }
func (f *fusion) Phase() int          { return f.phase }

// SetPhase selects the trainable branch. Phase 1 trains the waveform branch
// and its head; phase 2 trains the log-mel branch and the joint head.
func (f *fusion) SetPhase(phase int) {
	if phase != 2 {
		phase = 1
	}
	f.phase = phase
	first := append(f.wave.params(), f.head1.Params()...)
	second := append(f.mel.params(), f.head2Params()...)
	freeze(first, phase == 2)
	freeze(second, phase == 1)
}

func (f *fusion) head2Params() []*nn.Param {
	return append(f.head2[0].Params(), f.head2[1].Params()...)
}

func (f *fusion) Params() []*nn.Param {
	out := f.wave.params()
	out = append(out, f.head1.Params()...)
	out = append(out, f.mel.params()...)
	return append(out, f.head2Params()...)
}

func (f *fusion) melFeatures(in Input) [][]float64 {
	return poolRows(in.Aux, func(x []float64) []float64 {
		return bandPool(x, f.bands)
	})
}

func (f *fusion) Forward(in Input) [][]float64 {
	if in.Len() == 0 {
		return [][]float64{}
	}
	return nn.Rows(f.Logits(in))
}

func (f *fusion) Logits(in Input) nn.Tensor {
	hw := f.wave.forward(nn.FromRows(f.b, poolRows(in.Data, wavePool)))
	if f.phase == 1 {
		return f.head1.Forward(hw)
	}
	hm := f.mel.forward(nn.FromRows(f.b, f.melFeatures(in)))
	return f.head2[0].Forward(hw).Add(f.head2[1].Forward(hm))
}
