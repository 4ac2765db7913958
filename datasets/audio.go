package datasets

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/mewkiz/flac"
	"github.com/pkg/errors"
)

// LoadAudio decodes a WAV or FLAC file to mono samples in [-1, 1], averaging
// channels, and returns them with the file's sample rate.
func LoadAudio(path string) ([]float64, int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return loadWav(path)
	case ".flac":
		return loadFlac(path)
	}
	return nil, 0, errors.Errorf("%s: unsupported audio format", path)
}

func loadWav(path string) (out []float64, rate int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open wav")
	}
	defer file.Close()

	stream, format, err := wav.Decode(file)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "decode wav %s", path)
	}
	defer stream.Close()

	gain := wavGain(format.Precision)
	var samples = make([][2]float64, 4096)
	for {
		n, ok := stream.Stream(samples)
		for i := 0; i < n; i++ {
			out = append(out, gain*(samples[i][0]+samples[i][1])/2)
		}
		if !ok {
			break
		}
	}
	if err := stream.Err(); err != nil {
		return nil, 0, errors.Wrapf(err, "stream wav %s", path)
	}
	return out, int(format.SampleRate), nil
}

// wavGain corrects beep's wav decoder, which divides 16 and 24-bit samples
// by the full unsigned range and so returns them at half amplitude.
func wavGain(precision int) float64 {
	switch precision {
	case 2, 3:
		return 2
	}
	return 1
}

func loadFlac(path string) (out []float64, rate int, err error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "open flac %s", path)
	}
	defer stream.Close()

	scale := 1 / float64(int64(1)<<(stream.Info.BitsPerSample-1))
	for {
		frame, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, errors.Wrapf(err, "decode flac %s", path)
		}
		channels := len(frame.Subframes)
		for i := range frame.Subframes[0].Samples {
			var sum float64
			for c := 0; c < channels; c++ {
				sum += float64(frame.Subframes[c].Samples[i])
			}
			out = append(out, sum*scale/float64(channels))
		}
	}
	return out, int(stream.Info.SampleRate), nil
}

// SaveWav writes mono 16-bit samples to a WAV file.
func SaveWav(path string, samples []float64, rate int) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create wav")
	}
	var pos int
	streamer := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(samples) {
			return 0, false
		}
		n := copy2(buf, samples[pos:])
		pos += n
		return n, true
	})
	format := beep.Format{SampleRate: beep.SampleRate(rate), NumChannels: 1, Precision: 2}
	if err := wav.Encode(file, streamer, format); err != nil {
		file.Close()
		return errors.Wrapf(err, "encode wav %s", path)
	}
	return errors.Wrap(file.Close(), "close wav")
}

func copy2(dst [][2]float64, src []float64) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		dst[i] = [2]float64{src[i], src[i]}
	}
	return n
}
