package source

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSine(t *testing.T, freq, seconds float64, rate int) string {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}

	path := filepath.Join(t.TempDir(), "sine.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, WriteWAV(f, samples, rate))
	return path
}

func TestWAVRoundTripThroughEstimator(t *testing.T) {
	path := writeSine(t, 246.94, 0.5, 48000)

	clip, err := OpenWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 48000.0, clip.SampleRate)
	assert.Len(t, clip.Samples, 24000)
	assert.InDelta(t, 0.5, clip.Duration(), 1e-9)

	peak := 0.0
	for _, s := range clip.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	assert.InDelta(t, 0.5, peak, 1e-3)

	cfg := config.Default()
	estimator := tuner.CreateEstimator(tuner.SettingsFrom(cfg))
	res, reason := estimator.Estimate(clip.FrameAt(0.25, cfg.FrameSize, nil))
	require.Equal(t, tuner.Detected, reason)
	assert.InDelta(t, 0, tuner.Cents(res.Frequency, 246.94), 2)
}

func TestFrameAtPadsWithSilence(t *testing.T) {
	clip := &Clip{Samples: []float64{1, 2, 3, 4}, SampleRate: 4}

	frame := clip.FrameAt(0.5, 4, nil)
	assert.Equal(t, []float64{0, 0, 1, 2}, frame.Samples)
	assert.Equal(t, 4.0, frame.SampleRate)

	dst := make([]float64, 8)
	frame = clip.FrameAt(2, 3, dst)
	assert.Equal(t, []float64{0, 0, 0}, frame.Samples)
	assert.Same(t, &dst[0], &frame.Samples[0])

	frame = clip.FrameAt(1, 2, dst)
	assert.Equal(t, []float64{3, 4}, frame.Samples)
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	_, err := ReadWAV(bytes.NewReader([]byte("definitely not a riff header")))
	assert.Error(t, err)

	_, err = OpenWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestClipDurationWithoutRate(t *testing.T) {
	assert.Equal(t, 0.0, (&Clip{Samples: make([]float64, 10)}).Duration())
}

func TestReadWAVCentresUnsigned8Bit(t *testing.T) {
	const rate = 48000
	data := make([]int, rate/4)
	for i := range data {
		data[i] = 128
	}

	path := filepath.Join(t.TempDir(), "silence8.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 8, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{Data: data, Format: &audio.Format{SampleRate: rate, NumChannels: 1}, SourceBitDepth: 8}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	clip, err := OpenWAV(path)
	require.NoError(t, err)
	require.Len(t, clip.Samples, len(data))
	for _, s := range clip.Samples {
		require.Equal(t, 0.0, s)
	}

	cfg := config.Default()
	estimator := tuner.CreateEstimator(tuner.SettingsFrom(cfg))
	_, reason := estimator.Estimate(clip.FrameAt(0.2, cfg.FrameSize, nil))
	assert.Equal(t, tuner.TooQuiet, reason)
}
