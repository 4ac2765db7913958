package datasets

import "math/rand"

// MaxAbs returns max(|x|) over samples.
func MaxAbs(samples []float64) float64 {
	var m float64
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > m {
			m = v
		}
	}
	return m
}

// CropSampler draws random fixed-length training crops from recordings.
type CropSampler struct {
	Recordings []Recording
	WindowSize int
	Slices     int     // crops per recording per epoch
	Threshold  float64 // crops quieter than this are redrawn
	Retries    int     // redraws of a silent crop before keeping it

	rng *rand.Rand
}

// NewCropSampler creates a sampler with its own seeded generator.
func NewCropSampler(recs []Recording, windowSize, slices int, threshold float64, seed int64) *CropSampler {
	return &CropSampler{
		Recordings: recs,
		WindowSize: windowSize,
		Slices:     slices,
		Threshold:  threshold,
		Retries:    10,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Len is the number of examples in an epoch.
func (s *CropSampler) Len() int {
	return len(s.Recordings) * s.Slices
}

// Epoch draws a shuffled epoch of crops.
func (s *CropSampler) Epoch() []Example {
	out := make([]Example, 0, s.Len())
	for _, r := range s.Recordings {
		for i := 0; i < s.Slices; i++ {
			out = append(out, s.crop(r))
		}
	}
	s.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (s *CropSampler) crop(r Recording) Example {
	if len(r.Samples) <= s.WindowSize {
		data := make([]float64, s.WindowSize)
		copy(data[(s.WindowSize-len(r.Samples))/2:], r.Samples)
		return Example{Key: r.Key, Label: r.Label, Offset: 0, Data: data}
	}
	var offset int
	for try := 0; try <= s.Retries; try++ {
		offset = s.rng.Intn(len(r.Samples) - s.WindowSize + 1)
		if MaxAbs(r.Samples[offset:offset+s.WindowSize]) >= s.Threshold {
			break
		}
	}
	data := r.Samples[offset : offset+s.WindowSize]
	return Example{Key: r.Key, Label: r.Label, Offset: offset, Data: data}
}
