// Package model defines the capabilities a classifier exposes to the trainer
// and the evaluation engine, and a registry of the architectures shipped with
// this module.
package model

import "github.com/neurlang/acoustic/nn"

// Input is a batch: one waveform window (or segment) per row of Data and,
// for models that use it, the aligned auxiliary feature rows in Aux.
type Input struct {
	Data [][]float64
	Aux  [][]float64
}

// Len is the batch size.
func (in Input) Len() int {
	return len(in.Data)
}

// Slice returns rows [i, j).
func (in Input) Slice(i, j int) Input {
	out := Input{Data: in.Data[i:j]}
	if in.Aux != nil {
		out.Aux = in.Aux[i:j]
	}
	return out
}

// Model maps a batch to one score vector of NumClasses per row.
type Model interface {
	Arch() string
	NumClasses() int
	Forward(in Input) [][]float64
}

// Auxiliary is implemented by models that can consume auxiliary features.
type Auxiliary interface {
	UsesAuxiliary() bool
}

// Trainable models expose the recorded forward pass, whose rows are the
// scores of Forward, so that an optimizer can propagate a loss through it.
type Trainable interface {
	Model
	Logits(in Input) nn.Tensor
	Params() []*nn.Param
}

// Phased models are trained in stages.
type Phased interface {
	Phase() int
	SetPhase(phase int)
}

// UsesAuxiliary reports whether m currently wants auxiliary features.
func UsesAuxiliary(m Model) bool {
	a, ok := m.(Auxiliary)
	return ok && a.UsesAuxiliary()
}
