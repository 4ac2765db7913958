package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, sampleRate int, hz, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate))
	}
	return out
}

func TestReflectPad(t *testing.T) {
	assert.Equal(t, []float64{3, 2, 1, 2, 3, 2, 1}, reflectPad([]float64{1, 2, 3}, 2))
	assert.Equal(t, []float64{5, 5, 5}, reflectPad([]float64{5}, 1))
	assert.Equal(t, []float64{0, 0}, reflectPad(nil, 1))
	// longer than the signal: keeps bouncing
	assert.Equal(t, []float64{2, 1, 2, 1, 2, 1, 2, 1}, reflectPad([]float64{1, 2}, 3))
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 200, 999, 1000, 4000, 22050} {
		assert.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-9)
	}
	assert.InDelta(t, 15, hzToMel(1000), 1e-12)
}

func TestMelFilters(t *testing.T) {
	filters := MelFilters(44100, 2048, 96, 0, 22050)
	require.Len(t, filters, 96)
	prevPeak := -1
	for i, f := range filters {
		require.Len(t, f, 1025)
		peak := 0
		var sum float64
		for k, w := range f {
			assert.GreaterOrEqual(t, w, 0.0)
			sum += w
			if w > f[peak] {
				peak = k
			}
		}
		assert.Greater(t, sum, 0.0, "filter %d is empty", i)
		assert.GreaterOrEqual(t, peak, prevPeak)
		prevPeak = peak
	}
}

func TestLogMelShape(t *testing.T) {
	m := NewLogMel(44100)
	for _, n := range []int{66150, 1000, 100000} {
		out := m.Compute(sine(n, 44100, 440, 0.5))
		assert.Len(t, out, 96*441)
		assert.Equal(t, m.Len(), len(out))
	}
}

func TestLogMelTonePeak(t *testing.T) {
	m := NewLogMel(44100)
	out := m.Compute(sine(66150, 44100, 2000, 0.5))

	const frame = 200
	best := 0
	for b := 1; b < m.Mels; b++ {
		if out[b*m.Frames+frame] > out[best*m.Frames+frame] {
			best = b
		}
	}

	lo, hi := hzToMel(0), hzToMel(22050)
	nearest, dist := 0, math.Inf(1)
	for b := 0; b < m.Mels; b++ {
		centre := melToHz(lo + (hi-lo)*float64(b+1)/float64(m.Mels+1))
		if d := math.Abs(centre - 2000); d < dist {
			nearest, dist = b, d
		}
	}
	assert.InDelta(t, nearest, best, 1)
}

func TestLogMelSilenceIsFlat(t *testing.T) {
	m := NewLogMel(44100)
	out := m.Compute(make([]float64, 66150))
	assert.InDelta(t, -100, out[0], 1e-9)
	for _, v := range out {
		require.Equal(t, out[0], v)
	}
}

func TestLogMelTopDB(t *testing.T) {
	m := NewLogMel(44100)
	out := m.Compute(sine(66150, 44100, 1000, 0.9))
	peak := math.Inf(-1)
	low := math.Inf(1)
	for _, v := range out {
		peak = math.Max(peak, v)
		low = math.Min(low, v)
	}
	assert.GreaterOrEqual(t, low, peak-80-1e-9)
}

func TestLogMelTruncationKeepsPeak(t *testing.T) {
	m := &LogMel{SampleRate: 8000, NFFT: 256, Hop: 64, Mels: 16, TopDB: 80}
	// a faint tone followed by a loud one; the loudest frame lies past want
	x := append(sine(2048, 8000, 500, 1e-5), sine(2048, 8000, 500, 0.9)...)
	const want = 10

	all := m.NumFrames(len(x))
	full := m.ComputeFrames(x, all)
	cut := m.ComputeFrames(x, want)
	require.Len(t, cut, m.Mels*want)
	for b := 0; b < m.Mels; b++ {
		for f := 0; f < want; f++ {
			assert.Equal(t, full[b*all+f], cut[b*want+f], "band %d frame %d", b, f)
		}
	}

	peak := math.Inf(-1)
	for _, v := range full {
		peak = math.Max(peak, v)
	}
	for _, v := range cut {
		require.InDelta(t, peak-80, v, 1e-9)
	}
}

func TestNilCache(t *testing.T) {
	c, err := NewCache(0)
	require.NoError(t, err)
	assert.Nil(t, c)
	c.Add("k", 0, []float64{1})
	_, ok := c.Get("k", 0)
	assert.False(t, ok)
}

func TestCacheQuantizes(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	feat := []float64{-63.123456, 0.1, 12.5}
	c.Add("a", 10, feat)
	got, ok := c.Get("a", 10)
	require.True(t, ok)
	assert.Equal(t, Quantize(feat), got)
	assert.InDeltaSlice(t, feat, got, 0.05)

	_, ok = c.Get("a", 11)
	assert.False(t, ok)
	hits, misses := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.EqualValues(t, 1, misses)
}

func TestExtractorIsStable(t *testing.T) {
	c, err := NewCache(8)
	require.NoError(t, err)
	e := &Extractor{Mel: NewLogMel(44100), Cache: c}
	w := sine(66150, 44100, 700, 0.3)

	first := e.Window("clip", 0, w)
	second := e.Window("clip", 0, w)
	assert.Equal(t, first, second)

	uncached := (&Extractor{Mel: NewLogMel(44100)}).Window("clip", 0, w)
	assert.Equal(t, first, uncached)
}
