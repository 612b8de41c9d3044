package main

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/source"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	// Disable the logger during all tests.
	olw := logger.Switch(io.Discard)
	code := m.Run()
	logger.Switch(olw)
	os.Exit(code)
}

// melody writes one WAV with each degree of the C3 scale held for half a second.
func melody(t *testing.T, degrees ...scale.Degree) string {
	const rate = 48000
	s := scale.BuildFromRoot(tuner.MidiToFreq(48))

	var samples []float64
	for _, d := range degrees {
		for i := 0; i < rate/2; i++ {
			samples = append(samples, 0.3*math.Sin(2*math.Pi*s[d]*float64(i)/rate))
		}
	}

	path := filepath.Join(t.TempDir(), "melody.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, source.WriteWAV(f, samples, rate))
	return path
}

func TestAnalyzeFollowsMelody(t *testing.T) {
	ctx := logger.WithContext(context.Background())
	a := melody(t, scale.Do, scale.Re, scale.Mi)
	b := melody(t, scale.Sol, scale.Fa)

	assert.NoError(t, run(ctx, "", "C3", 60, "", []string{a, b}))
	assert.NoError(t, run(ctx, "", "C3", 60, "do re mi", []string{a}))
	assert.NoError(t, run(ctx, "", "130.81", 30, "sol-fa", []string{b}))
	assert.Error(t, run(ctx, "", "C3", 60, "do mi", []string{a}))
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	ctx := logger.WithContext(context.Background())
	a := melody(t, scale.Do)

	assert.Error(t, run(ctx, "", "C3", 60, "", nil))
	assert.Error(t, run(ctx, "", "C3", 0, "", []string{a}))
	assert.Error(t, run(ctx, "", "H3", 60, "", []string{a}))
	assert.Error(t, run(ctx, "", "C3", 60, "do xa", []string{a}))
	assert.Error(t, run(ctx, "", "C3", 60, "", []string{filepath.Join(t.TempDir(), "missing.wav")}))
}
