package model

import "math"

// waveBlocks is the number of blocks the fixed waveform front end pools over.
const waveBlocks = 64

// waveFeatures is the width of the waveform front end output.
const waveFeatures = 2 * waveBlocks

// wavePool summarises a window as per-block log RMS energy and zero
// crossing rate.
func wavePool(x []float64) []float64 {
	out := make([]float64, waveFeatures)
	if len(x) == 0 {
		return out
	}
	for b := 0; b < waveBlocks; b++ {
		lo := b * len(x) / waveBlocks
		hi := (b + 1) * len(x) / waveBlocks
		if hi <= lo {
			hi = lo + 1
			if hi > len(x) {
				lo, hi = len(x)-1, len(x)
			}
		}
		var energy float64
		var crossings int
		for i := lo; i < hi; i++ {
			energy += x[i] * x[i]
			if i > lo && (x[i] >= 0) != (x[i-1] >= 0) {
				crossings++
			}
		}
		rms := math.Sqrt(energy / float64(hi-lo))
		out[2*b] = math.Log(rms+1e-6) / 10
		out[2*b+1] = float64(crossings) / float64(hi-lo)
	}
	return out
}

// bandPool summarises a band-major spectrogram as per-band mean and
// standard deviation, scaled from dB to roughly unit range.
func bandPool(spectrogram []float64, bands int) []float64 {
	out := make([]float64, 2*bands)
	frames := len(spectrogram) / bands
	if frames == 0 {
		return out
	}
	for b := 0; b < bands; b++ {
		row := spectrogram[b*frames : (b+1)*frames]
		var mean float64
		for _, v := range row {
			mean += v
		}
		mean /= float64(frames)
		var variance float64
		for _, v := range row {
			variance += (v - mean) * (v - mean)
		}
		out[2*b] = mean / 100
		out[2*b+1] = math.Sqrt(variance/float64(frames)) / 10
	}
	return out
}

func poolRows(rows [][]float64, pool func([]float64) []float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = pool(r)
	}
	return out
}
