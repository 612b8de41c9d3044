package tone

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGainEnvelope(t *testing.T) {
	assert.InDelta(t, floorGain, Gain(0, 1), 1e-12)
	assert.InDelta(t, peakGain, Gain(attackSeconds, 1), 1e-12)
	assert.InDelta(t, math.Sqrt(floorGain*peakGain), Gain(attackSeconds/2, 1), 1e-12)
	assert.InDelta(t, floorGain, Gain(1, 1), 1e-12)
	assert.Equal(t, floorGain, Gain(-1, 1))

	// Decay is monotonic.
	prev := Gain(attackSeconds, 1)
	for ti := attackSeconds + 0.05; ti < 1; ti += 0.05 {
		g := Gain(ti, 1)
		assert.Less(t, g, prev)
		prev = g
	}
}

func TestSynthIsDetectable(t *testing.T) {
	cfg := config.Default()
	rate := int(cfg.SampleRate)
	samples := Synth(220, 1, rate)
	require.InDelta(t, 1.02*cfg.SampleRate, len(samples), 1)

	// Right after the attack the tone is loud and clean.
	start := int(attackSeconds * cfg.SampleRate)
	frame := tuner.Frame{Samples: samples[start : start+cfg.FrameSize], SampleRate: cfg.SampleRate}
	res, reason := tuner.CreateEstimator(tuner.SettingsFrom(cfg)).Estimate(frame)
	require.Equal(t, tuner.Detected, reason)
	assert.InDelta(t, 0, tuner.Cents(res.Frequency, 220), 5)

	for _, s := range samples {
		require.LessOrEqual(t, math.Abs(s), peakGain)
	}
}

func TestSynthRejectsInvalid(t *testing.T) {
	assert.Nil(t, Synth(0, 1, 48000))
	assert.Nil(t, Synth(220, 0, 48000))
	assert.Nil(t, Synth(220, 1, 0))
}

func TestEncodePCM(t *testing.T) {
	out := EncodePCM([]float64{0, 1, -1, 2, 0.5})
	require.Len(t, out, 10)

	values := make([]int16, 5)
	for i := range values {
		values[i] = int16(binary.LittleEndian.Uint16(out[2*i:]))
	}
	assert.Equal(t, []int16{0, math.MaxInt16, -math.MaxInt16, math.MaxInt16, 16384}, values)
}
