package datasets

import (
	"github.com/neurlang/acoustic/features"
)

// Segments turns each recording into numSlices consecutive log-mel segments
// of equal length, band-major, in recording order. Recordings with fewer
// frames than numSlices are returned in skipped.
func Segments(recs []Recording, mel *features.LogMel, numSlices int) (out []Example, skipped []string) {
	for _, r := range recs {
		frames := mel.NumFrames(len(r.Samples))
		seg := frames / numSlices
		if len(r.Samples) == 0 || seg == 0 {
			skipped = append(skipped, r.Key)
			continue
		}
		spectrogram := mel.ComputeFrames(r.Samples, frames)
		for s := 0; s < numSlices; s++ {
			data := make([]float64, 0, mel.Mels*seg)
			for b := 0; b < mel.Mels; b++ {
				row := spectrogram[b*frames+s*seg : b*frames+(s+1)*seg]
				data = append(data, row...)
			}
			out = append(out, Example{Key: r.Key, Label: r.Label, Offset: s * seg, Data: data})
		}
	}
	return
}

// LoadSegments loads a list file and returns its segment dataset.
func LoadSegments(filename string, sampleRate int, mel *features.LogMel, numSlices int) ([]Example, []string, error) {
	recs, err := Load(filename, sampleRate)
	if err != nil {
		return nil, nil, err
	}
	out, skipped := Segments(recs, mel, numSlices)
	return out, skipped, nil
}
