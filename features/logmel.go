package features

import (
	"math"
	"sync"

	"github.com/mjibson/go-dsp/window"
	"github.com/r9y9/gossp/stft"
)

// LogMel describes the log-mel front end.
type LogMel struct {
	SampleRate int
	NFFT       int
	Hop        int
	Mels       int
	Frames     int     // output is truncated or padded to this many frames
	TopDB      float64 // dynamic range below the peak kept in the output

	once    sync.Once
	window  []float64
	filters [][]float64
}

// NewLogMel returns the 2048/150/96/441 front end used for the auxiliary modality.
func NewLogMel(sampleRate int) *LogMel {
	return &LogMel{
		SampleRate: sampleRate,
		NFFT:       2048,
		Hop:        150,
		Mels:       96,
		Frames:     441,
		TopDB:      80,
	}
}

// Len is the number of values returned by Compute.
func (m *LogMel) Len() int {
	return m.Mels * m.Frames
}

func (m *LogMel) init() {
	m.once.Do(func() {
		// periodic Hann
		m.window = window.Hann(m.NFFT + 1)[:m.NFFT]
		m.filters = MelFilters(m.SampleRate, m.NFFT, m.Mels, 0, float64(m.SampleRate)/2)
	})
}

// NumFrames is the number of centred frames covering n samples.
func (m *LogMel) NumFrames(n int) int {
	return n/m.Hop + 1
}

// Compute returns the band-major (Mels x Frames) log-mel spectrogram of samples.
func (m *LogMel) Compute(samples []float64) []float64 {
	return m.ComputeFrames(samples, m.Frames)
}

// ComputeFrames is Compute with an explicit output frame count.
func (m *LogMel) ComputeFrames(samples []float64, want int) []float64 {
	m.init()

	s := stft.New(m.Hop, m.NFFT)
	s.Window = m.window
	spectrum := s.STFT(reflectPad(samples, m.NFFT/2))

	bins := m.NFFT/2 + 1
	power := make([]float64, bins)
	frames := len(spectrum)
	keep := frames
	if keep > want {
		keep = want
	}

	// the top_db floor is relative to the loudest frame of the whole clip,
	// including frames past want
	out := make([]float64, m.Mels*want)
	peak := math.Inf(-1)
	for f := 0; f < frames; f++ {
		for k := 0; k < bins; k++ {
			v := spectrum[f][k]
			power[k] = real(v)*real(v) + imag(v)*imag(v)
		}
		for b, filter := range m.filters {
			var e float64
			for k, w := range filter {
				if w != 0 {
					e += w * power[k]
				}
			}
			db := 10 * math.Log10(math.Max(1e-10, e))
			if f < keep {
				out[b*want+f] = db
			}
			if db > peak {
				peak = db
			}
		}
	}

	floor := peak - m.TopDB
	for b := 0; b < m.Mels; b++ {
		row := out[b*want : (b+1)*want]
		for f := range row {
			if f >= keep || row[f] < floor {
				row[f] = floor
			}
		}
	}
	return out
}

// reflectPad mirrors pad samples at both ends, excluding the edge sample.
// Signals too short to mirror are extended periodically by reflection.
func reflectPad(x []float64, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	if n == 0 {
		return out
	}
	if n == 1 {
		for i := range out {
			out[i] = x[0]
		}
		return out
	}
	period := 2 * (n - 1)
	for i := range out {
		j := (i - pad) % period
		if j < 0 {
			j += period
		}
		if j >= n {
			j = period - j
		}
		out[i] = x[j]
	}
	return out
}

func hzToMel(f float64) float64 {
	const fsp = 200.0 / 3
	const minLogHz = 1000.0
	const minLogMel = minLogHz / fsp
	logstep := math.Log(6.4) / 27
	if f < minLogHz {
		return f / fsp
	}
	return minLogMel + math.Log(f/minLogHz)/logstep
}

func melToHz(m float64) float64 {
	const fsp = 200.0 / 3
	const minLogHz = 1000.0
	const minLogMel = minLogHz / fsp
	logstep := math.Log(6.4) / 27
	if m < minLogMel {
		return m * fsp
	}
	return minLogHz * math.Exp(logstep*(m-minLogMel))
}

// MelFilters builds Slaney-normalised triangular filters over the
// nfft/2+1 bins of a real FFT.
func MelFilters(sampleRate, nfft, mels int, fmin, fmax float64) [][]float64 {
	bins := nfft/2 + 1
	lo, hi := hzToMel(fmin), hzToMel(fmax)
	hz := make([]float64, mels+2)
	for i := range hz {
		hz[i] = melToHz(lo + (hi-lo)*float64(i)/float64(mels+1))
	}
	filters := make([][]float64, mels)
	for i := range filters {
		w := make([]float64, bins)
		enorm := 2 / (hz[i+2] - hz[i])
		for k := range w {
			f := float64(k) * float64(sampleRate) / float64(nfft)
			lower := (f - hz[i]) / (hz[i+1] - hz[i])
			upper := (hz[i+2] - f) / (hz[i+2] - hz[i+1])
			if v := math.Min(lower, upper); v > 0 {
				w[k] = v * enorm
			}
		}
		filters[i] = w
	}
	return filters
}
