package source

import (
	"testing"

	"github.com/metalblueberry/solfege/pkg/circular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicFrameKeepsLatestSamples(t *testing.T) {
	m := newMic(8, 4)

	frame, err := m.Frame(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, frame.Samples)
	assert.Equal(t, 8.0, frame.SampleRate)

	m.process([]float32{1, 2, 3})
	m.process([]float32{4, 5})

	dst := make([]float64, 4)
	frame, err = m.Frame(dst)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4, 5}, frame.Samples)
	assert.Same(t, &dst[0], &frame.Samples[0])
}

func TestMicFrameReportsBufferMismatch(t *testing.T) {
	m := newMic(8, 4)
	m.ring = circular.CreateBuffer[float32](3)

	_, err := m.Frame(nil)
	assert.Error(t, err)
}
