package datasets

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/neurlang/acoustic/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*440*float64(i)/8000)
	}
	return out
}

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.wav")
	in := tone(1234, 0.5)
	require.NoError(t, SaveWav(path, in, 8000))

	out, rate, err := LoadAudio(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, rate)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 2.0/32768)
	}
}

func TestWavKeepsAmplitude(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiet.wav")
	in := make([]float64, 4410)
	for i := range in {
		in[i] = 0.007
	}
	require.NoError(t, SaveWav(path, in, 44100))

	out, rate, err := LoadAudio(path)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	assert.InDelta(t, 0.007, MaxAbs(out), 1.0/32768)

	assert.Equal(t, 1.0, wavGain(1))
	assert.Equal(t, 2.0, wavGain(2))
	assert.Equal(t, 2.0, wavGain(3))
}

func TestLoadAudioRejectsUnknownExtension(t *testing.T) {
	_, _, err := LoadAudio("clip.mp3")
	assert.Error(t, err)
}

func TestLoadList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveWav(filepath.Join(dir, "a.wav"), tone(800, 0.3), 8000))
	require.NoError(t, SaveWav(filepath.Join(dir, "b.wav"), tone(900, 0.3), 8000))
	list := filepath.Join(dir, "fold0.tsv")
	require.NoError(t, os.WriteFile(list, []byte("# key label path\n\nA\t1\ta.wav\nB\t3\tb.wav\n"), 0644))

	recs, err := Load(list, 8000)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].Key)
	assert.Equal(t, 1, recs[0].Label)
	assert.Len(t, recs[0].Samples, 800)
	assert.Equal(t, 3, recs[1].Label)

	_, err = Load(list, 16000)
	assert.Error(t, err)
}

func TestListErrors(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"columns": "A\t1\n",
		"label":   "A\tx\ta.wav\n",
	} {
		t.Run(name, func(t *testing.T) {
			list := filepath.Join(dir, name+".tsv")
			require.NoError(t, os.WriteFile(list, []byte(body), 0644))
			_, err := ReadList(list)
			assert.Error(t, err)
		})
	}

	empty := filepath.Join(dir, "empty.tsv")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0644))
	_, err := Load(empty, 8000)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestWriteListReadBack(t *testing.T) {
	list := filepath.Join(t.TempDir(), "l.tsv")
	in := []Entry{{Key: "x", Label: 2, Path: "/abs/x.wav"}, {Key: "y", Label: 0, Path: "/abs/y.flac"}}
	require.NoError(t, WriteList(list, in))
	out, err := ReadList(list)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBatches(t *testing.T) {
	ex := make([]Example, 7)
	b := Batches(ex, 3)
	require.Len(t, b, 3)
	assert.Len(t, b[2], 1)
	assert.Len(t, Batches(ex, 0), 1)
	assert.Empty(t, Batches(nil, 3))
}

func TestCheckLabels(t *testing.T) {
	recs := []Recording{{Key: "a", Label: 0}, {Key: "b", Label: 4}}
	assert.NoError(t, CheckLabels(recs, 5))
	assert.Error(t, CheckLabels(recs, 4))
}

func TestCropSampler(t *testing.T) {
	loud := tone(1000, 0.5)
	recs := []Recording{
		{Key: "long", Label: 0, Samples: loud},
		{Key: "short", Label: 1, Samples: []float64{1, 1}},
	}
	s := NewCropSampler(recs, 100, 3, 0.005, 1)
	epoch := s.Epoch()
	require.Len(t, epoch, s.Len())

	var short int
	for _, e := range epoch {
		require.Len(t, e.Data, 100)
		if e.Key == "short" {
			short++
			assert.Equal(t, []float64{1, 1}, e.Data[49:51])
			assert.Zero(t, e.Data[0])
			continue
		}
		assert.Equal(t, loud[e.Offset:e.Offset+100], e.Data)
	}
	assert.Equal(t, 3, short)
}

func TestCropSamplerIsSeeded(t *testing.T) {
	recs := []Recording{{Key: "a", Samples: tone(5000, 0.5)}, {Key: "b", Samples: tone(5000, 0.5)}}
	a := NewCropSampler(recs, 100, 4, 0.005, 9).Epoch()
	b := NewCropSampler(recs, 100, 4, 0.005, 9).Epoch()
	assert.Equal(t, a, b)
}

func TestCropSamplerAvoidsSilence(t *testing.T) {
	samples := make([]float64, 2000)
	copy(samples[1000:], tone(1000, 0.5))
	s := NewCropSampler([]Recording{{Key: "a", Samples: samples}}, 200, 50, 0.005, 3)
	s.Retries = 1000
	for _, e := range s.Epoch() {
		assert.GreaterOrEqual(t, MaxAbs(e.Data), 0.005)
	}
}

func TestSegments(t *testing.T) {
	mel := features.NewLogMel(8000)
	mel.NFFT = 256
	mel.Hop = 64
	mel.Mels = 8
	recs := []Recording{
		{Key: "a", Label: 2, Samples: tone(64*49, 0.5)},
		{Key: "tiny", Label: 1, Samples: tone(10, 0.5)},
	}
	out, skipped := Segments(recs, mel, 5)
	assert.Equal(t, []string{"tiny"}, skipped)
	require.Len(t, out, 5)
	frames := mel.NumFrames(64 * 49)
	seg := frames / 5
	for i, e := range out {
		assert.Equal(t, "a", e.Key)
		assert.Equal(t, 2, e.Label)
		assert.Equal(t, i*seg, e.Offset)
		assert.Len(t, e.Data, mel.Mels*seg)
	}
}
