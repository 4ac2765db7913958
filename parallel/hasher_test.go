package parallel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hasher test
func TestHasherOrderIndependent(t *testing.T) {
	h := NewUint16Hasher(100)
	for n := uint16(0); n < 100; n++ {
		h.MustPutUint16(int(n), n%7)
	}
	h2 := NewUint16Hasher(100)
	for n := 99; n >= 0; n-- {
		h2.MustPutUint16(n, uint16(n%7))
	}
	assert.Equal(t, h.Sum(), h2.Sum())
}

func TestHasherDistinguishesValues(t *testing.T) {
	h := NewUint16Hasher(31)
	h2 := NewUint16Hasher(31)
	for n := 0; n < 31; n++ {
		h.MustPutUint16(n, 1)
		h2.MustPutUint16(n, 1)
	}
	h3 := NewUint16Hasher(31)
	for n := 0; n < 31; n++ {
		h3.MustPutUint16(n, 1)
	}
	assert.Equal(t, h.Sum(), h2.Sum())

	h4 := NewUint16Hasher(31)
	for n := 0; n < 31; n++ {
		h4.MustPutUint16(n, uint16(n&1))
	}
	assert.NotEqual(t, h3.Sum(), h4.Sum())
}

func TestHasherMissingIsSkipped(t *testing.T) {
	h := NewUint16Hasher(5)
	h.MustPutUint16(0, 3)
	h.MustPutUint16(2, 4)

	h2 := NewUint16Hasher(5)
	h2.MustPutUint16(0, 3)
	h2.MustPutUint16(1, Skipped)
	h2.MustPutUint16(2, 4)
	h2.MustPutUint16(3, Skipped)
	h2.MustPutUint16(4, Skipped)

	assert.Equal(t, h2.Sum(), h.Sum())
	assert.Equal(t, h.Sum(), h.Sum(), "sum must be stable")
}

func TestHasherDuplicatePanics(t *testing.T) {
	h := NewUint16Hasher(3)
	h.MustPutUint16(1, 1)
	require.Panics(t, func() { h.MustPutUint16(1, 2) })
	require.Panics(t, func() { h.MustPutUint16(3, 2) })
}
