package nn

import (
	"math"
	"math/rand"

	born "github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/pkg/errors"
)

// Param is one named born parameter.
type Param struct {
	Name   string
	Frozen bool // excluded from optimizer steps

	b Backend
	p *born.Parameter[Backend]
}

// Shape is the shape of the underlying tensor.
func (p *Param) Shape() []int {
	return append([]int(nil), p.p.Tensor().Shape()...)
}

// Len is the number of scalars held by the parameter.
func (p *Param) Len() int {
	return len(p.p.Tensor().Data())
}

// Values copies the parameter out in row-major order.
func (p *Param) Values() []float64 {
	data := p.p.Tensor().Data()
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

// SetValues overwrites the parameter with v, which must have Len values.
func (p *Param) SetValues(v []float64) error {
	data := p.p.Tensor().Data()
	if len(v) != len(data) {
		return errors.Errorf("%s: %d values, want %d", p.Name, len(v), len(data))
	}
	for i, x := range v {
		data[i] = float32(x)
	}
	return nil
}

// Uniform fills the parameter from U(-bound, bound).
func (p *Param) Uniform(rng *rand.Rand, bound float64) {
	data := p.p.Tensor().Data()
	for i := range data {
		data[i] = float32((rng.Float64()*2 - 1) * bound)
	}
}

func (p *Param) raw() *tensor.RawTensor {
	return p.p.Tensor().Raw()
}

// Dense is a born linear layer with named parameters.
type Dense struct {
	In, Out int
	W, B    *Param

	layer *born.Linear[Backend]
}

// NewDense creates a linear layer on b initialised like torch.nn.Linear from
// rng, so that equal seeds give equal models.
func NewDense(b Backend, name string, in, out int, rng *rand.Rand) *Dense {
	layer := born.NewLinear(in, out, b)
	params := layer.Parameters()
	d := &Dense{
		In:    in,
		Out:   out,
		W:     &Param{Name: name + ".weight", b: b, p: params[0]},
		B:     &Param{Name: name + ".bias", b: b, p: params[1]},
		layer: layer,
	}
	bound := 1 / math.Sqrt(float64(in))
	d.W.Uniform(rng, bound)
	d.B.Uniform(rng, bound)
	return d
}

// Params returns the weight and the bias.
func (d *Dense) Params() []*Param {
	return []*Param{d.W, d.B}
}

// Forward maps an (n, In) tensor to (n, Out).
func (d *Dense) Forward(x Tensor) Tensor {
	return d.layer.Forward(x)
}

// ReLU applies max(0, x) element-wise.
func ReLU(x Tensor) Tensor {
	return born.NewReLU[Backend]().Forward(x)
}
