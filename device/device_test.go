package device

import (
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCPU(t *testing.T) {
	d, err := Open("cpu", 0)
	require.NoError(t, err)
	assert.Equal(t, "cpu", d.Name)
	assert.Equal(t, runtime.NumCPU(), d.Workers)

	d, err = Open("", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Workers)
}

func TestDescribe(t *testing.T) {
	d, err := Open("cpu", 4)
	require.NoError(t, err)
	assert.Equal(t, "cpu worker pool of 4", d.Describe())
	assert.Equal(t, "cuda present, computing on the cpu worker pool of 2", Device{Name: "cuda", Workers: 2}.Describe())
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("tpu", 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestOpenCudaWithoutTag(t *testing.T) {
	_, err := Open("cuda", 1)
	if err == nil {
		t.Skip("cuda device present")
	}
	assert.True(t, errors.Is(err, ErrUnavailable))
}
