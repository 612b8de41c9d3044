package tuner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		freq  float64
		label string
		cents float64
	}{
		{440, "A4", 0},
		{261.625565, "C4", 0},
		{110, "A2", 0},
		{466.163762, "A#4", 0},
		{445, "A4", 19.56},
		{430, "A4", -39.80},
	}
	for _, tt := range tests {
		note, ok := Describe(tt.freq)
		require.True(t, ok)
		assert.Equal(t, tt.label, note.Label(), "%v Hz", tt.freq)
		assert.InDelta(t, tt.cents, note.Cents, 0.01, "%v Hz", tt.freq)
	}

	_, ok := Describe(0)
	assert.False(t, ok)
	_, ok = Describe(-3)
	assert.False(t, ok)
}

func TestNearestOfClass(t *testing.T) {
	target, ok := NearestOfClass(250, 0)
	require.True(t, ok)
	assert.Equal(t, "C4", target.Label)
	assert.Equal(t, 60, target.Midi)
	assert.InDelta(t, 261.6256, target.Frequency, 1e-3)
	assert.InDelta(t, Cents(250, target.Frequency), target.Cents, 1e-9)

	// 160 Hz sits closer to C3 than to C4 in cents.
	target, ok = NearestOfClass(160, 0)
	require.True(t, ok)
	assert.Equal(t, "C3", target.Label)

	_, ok = NearestOfClass(250, 12)
	assert.False(t, ok)
}

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"A4", 440},
		{"C4", 261.6256},
		{"c3", 130.8128},
		{"F#3", 184.9972},
		{"Bb2", 116.5409},
		{"220", 220},
		{" 196.5 ", 196.5},
	}
	for _, tt := range tests {
		got, err := ParseNote(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-3, tt.in)
	}

	for _, in := range []string{"", "H2", "C", "-5", "X#4", "Cx", "NaN"} {
		_, err := ParseNote(in)
		assert.Error(t, err, in)
	}
}

func TestMidiRoundTrip(t *testing.T) {
	assert.InDelta(t, 69, FreqToMidi(440), 1e-12)
	assert.InDelta(t, 880, MidiToFreq(81), 1e-9)
	assert.InDelta(t, 1200, Cents(880, 440), 1e-9)
}
