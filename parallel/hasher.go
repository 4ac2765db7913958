package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"sync"
)

// Skipped is the value recorded for a recording that produced no prediction.
const Skipped = 0xffff

// Hasher digests a sequence of uint16 predictions in index order. Values can
// be put in any order; a block of 30 values is fed to the hash as soon as all
// of its slots are filled.
type Hasher struct {
	mut  sync.Mutex
	sha  hash.Hash
	ate  int
	n    int
	data [][64]byte
}

// NewUint16Hasher creates a hasher expecting exactly n values.
func NewUint16Hasher(n int) *Hasher {
	return &Hasher{
		sha:  sha256.New(),
		n:    n,
		data: make([][64]byte, (29+n)/30),
	}
}

// full reports whether block b has a mark for every slot it holds.
func (h *Hasher) full(b int) bool {
	slots := 30
	if b == len(h.data)-1 && h.n%30 != 0 {
		slots = h.n % 30
	}
	lo := binary.BigEndian.Uint16(h.data[b][0:2])
	hi := binary.BigEndian.Uint16(h.data[b][62:64])
	mark := uint32(hi)<<15 | uint32(lo)
	return mark == (uint32(1)<<uint(slots))-1
}

// MustPutUint16 stores value at position n. It panics on out of range or
// repeated positions.
func (h *Hasher) MustPutUint16(n int, value uint16) {
	if n < 0 || n >= h.n {
		panic("uint16 write out of range")
	}
	block := n / 30
	position := n % 30
	offset := 2 + position*2

	h.mut.Lock()
	defer h.mut.Unlock()

	if block < h.ate {
		panic("already consumed block")
	}

	var markBytes []byte
	var pos uint
	if position < 15 {
		markBytes = h.data[block][0:2]
		pos = uint(position)
	} else {
		markBytes = h.data[block][62:64]
		pos = uint(position - 15)
	}
	currentMark := binary.BigEndian.Uint16(markBytes)
	mask := uint16(1) << pos
	if currentMark&mask != 0 {
		panic("duplicate write")
	}
	binary.BigEndian.PutUint16(markBytes, currentMark|mask)
	binary.LittleEndian.PutUint16(h.data[block][offset:], value)

	for h.ate < len(h.data) && h.full(h.ate) {
		h.sha.Write(h.data[h.ate][:])
		h.ate++
	}
}

// Sum returns the digest. Positions never written count as Skipped.
func (h *Hasher) Sum() (ret [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()
	for ; h.ate < len(h.data); h.ate++ {
		for p := 0; p < 30 && h.ate*30+p < h.n; p++ {
			var markBytes []byte
			var pos uint
			if p < 15 {
				markBytes = h.data[h.ate][0:2]
				pos = uint(p)
			} else {
				markBytes = h.data[h.ate][62:64]
				pos = uint(p - 15)
			}
			mark := binary.BigEndian.Uint16(markBytes)
			if mark&(1<<pos) == 0 {
				binary.BigEndian.PutUint16(markBytes, mark|1<<pos)
				binary.LittleEndian.PutUint16(h.data[h.ate][2+p*2:], Skipped)
			}
		}
		h.sha.Write(h.data[h.ate][:])
	}
	copy(ret[:], h.sha.Sum(nil))
	return
}
