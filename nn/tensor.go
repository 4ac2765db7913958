package nn

import (
	"fmt"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/tensor"
)

// Backend is the cpu backend with gradient recording.
type Backend = *autodiff.Backend[*cpu.Backend]

// Tensor is a float32 tensor on Backend.
type Tensor = *tensor.Tensor[float32, Backend]

// NewBackend returns a fresh recording backend. Models own one each.
func NewBackend() Backend {
	return autodiff.New(cpu.New())
}

// FromRows packs rows of equal width into an (n, width) tensor. It panics on
// ragged rows.
func FromRows(b Backend, rows [][]float64) Tensor {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	data := make([]float32, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			panic(fmt.Sprintf("nn: row %d has %d values, want %d", i, len(row), width))
		}
		for _, v := range row {
			data = append(data, float32(v))
		}
	}
	t, err := tensor.FromSlice(data, tensor.Shape{len(rows), width}, b)
	if err != nil {
		panic(err.Error())
	}
	return t
}

// Rows unpacks a 2-d tensor produced by a layer.
func Rows(t Tensor) [][]float64 {
	shape := t.Shape()
	n, width := shape[0], shape[1]
	data := t.Data()
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, width)
		for j := range row {
			row[j] = float64(data[i*width+j])
		}
		out[i] = row
	}
	return out
}

func labelTensor(b Backend, labels []int) (*tensor.Tensor[int32, Backend], error) {
	data := make([]int32, len(labels))
	for i, l := range labels {
		data[i] = int32(l)
	}
	return tensor.FromSlice(data, tensor.Shape{len(labels)}, b)
}
