package model

import (
	"math/rand"
	"strconv"

	"github.com/neurlang/acoustic/nn"
)

// mlp is a stack of dense layers with ReLU between them and, when hidden is
// set, after the last one too.
type mlp struct {
	layers []*nn.Dense
	hidden bool
}

func newMLP(b nn.Backend, name string, rng *rand.Rand, hidden bool, sizes ...int) *mlp {
	m := &mlp{hidden: hidden}
	for i := 0; i+1 < len(sizes); i++ {
		m.layers = append(m.layers, nn.NewDense(b, name+"."+strconv.Itoa(i), sizes[i], sizes[i+1], rng))
	}
	return m
}

func (m *mlp) forward(x nn.Tensor) nn.Tensor {
	for i, l := range m.layers {
		x = l.Forward(x)
		if m.hidden || i+1 < len(m.layers) {
			x = nn.ReLU(x)
		}
	}
	return x
}

func (m *mlp) params() (out []*nn.Param) {
	for _, l := range m.layers {
		out = append(out, l.Params()...)
	}
	return
}

func freeze(params []*nn.Param, frozen bool) {
	for _, p := range params {
		p.Frozen = frozen
	}
}
