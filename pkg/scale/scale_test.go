package scale

import (
	"math"
	"testing"

	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFromRootIsExact(t *testing.T) {
	for _, root := range []float64{65.41, 110, 220, 261.625565, 301.7} {
		s := BuildFromRoot(root)
		for i, semis := range []float64{0, 2, 4, 5, 7, 9, 11} {
			assert.Equal(t, root*math.Pow(2, semis/12), s[i])
		}
		assert.True(t, s.Increasing())
		assert.Equal(t, root, s.Root())
	}
}

func TestBuildFromRoot220(t *testing.T) {
	s := BuildFromRoot(220)
	want := []float64{220, 246.94, 277.18, 293.66, 329.63, 369.99, 415.30}
	for i, f := range want {
		assert.InDelta(t, f, s[i], 0.01, Degree(i).String())
	}
}

func TestBuildFromRootInvalid(t *testing.T) {
	assert.True(t, BuildFromRoot(0).IsZero())
	assert.True(t, BuildFromRoot(-1).IsZero())
	assert.True(t, BuildFromRoot(math.NaN()).IsZero())
	assert.True(t, BuildFromRoot(math.Inf(1)).IsZero())
}

func TestBoundariesStrictlyIncreasing(t *testing.T) {
	for root := 60.0; root < 1200; root *= 1.07 {
		s := BuildFromRoot(root)
		b := s.Boundaries()
		for i := range b {
			assert.Greater(t, b[i], s[i])
			assert.Less(t, b[i], s[i+1])
			if i > 0 {
				assert.Greater(t, b[i], b[i-1])
			}
		}
	}

	// Still increasing after uneven overrides.
	s := BuildFromRoot(220)
	s[2] = 270
	s[5] = 380
	require.True(t, s.Increasing())
	b := s.Boundaries()
	for i := 1; i < len(b); i++ {
		assert.Greater(t, b[i], b[i-1])
	}
}

func TestOverrideSnapsOctave(t *testing.T) {
	s := BuildFromRoot(220)

	tests := []struct {
		name     string
		degree   Degree
		measured float64
		want     float64
	}{
		{"as sung", Mi, 280, 280},
		{"an octave low", Sol, 165, 330},
		{"an octave high", Re, 496, 248},
		{"top degree", Ti, 412, 412},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.Override(tt.degree, tt.measured)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, next[tt.degree], 1e-9)
			assert.True(t, next.Increasing())

			for d := Do; d <= Ti; d++ {
				if d != tt.degree {
					assert.Equal(t, s[d], next[d])
				}
			}
		})
	}
}

func TestOverrideErrors(t *testing.T) {
	s := BuildFromRoot(220)

	_, err := Scale{}.Override(Re, 247)
	assert.Equal(t, ErrNoRoot, errors.Cause(err))

	_, err = s.Override(Degree(7), 247)
	assert.Equal(t, ErrDegreeRange, errors.Cause(err))

	_, err = s.Override(NoDegree, 247)
	assert.Equal(t, ErrDegreeRange, errors.Cause(err))

	_, err = s.Override(Re, math.NaN())
	assert.Equal(t, ErrInvalidFrequency, errors.Cause(err))

	_, err = s.Override(Re, 0)
	assert.Equal(t, ErrInvalidFrequency, errors.Cause(err))

	// Re pushed above Mi breaks the ordering and leaves the scale alone.
	next, err := s.Override(Re, 285)
	assert.Equal(t, ErrNotIncreasing, errors.Cause(err))
	assert.Equal(t, s, next)
}

func TestResolveOctave(t *testing.T) {
	o := ResolveOctave(330, 330)
	assert.False(t, o.Shifted())
	assert.InDelta(t, 0, o.Cents, 1e-9)

	o = ResolveOctave(330, 168)
	assert.Equal(t, 2.0, o.Factor)
	assert.InDelta(t, 336, o.Adjusted, 1e-9)
	assert.InDelta(t, 1200*math.Log2(336.0/330), o.Cents, 1e-9)

	o = ResolveOctave(330, 650)
	assert.Equal(t, 0.5, o.Factor)
	assert.True(t, o.Shifted())
}

func TestParseDegree(t *testing.T) {
	tests := map[string]Degree{
		"do": Do, "RE": Re, " mi ": Mi, "Fa": Fa, "SOL": Sol, "so": Sol,
		"la": La, "ti": Ti, "SI": Ti,
	}
	for in, want := range tests {
		got, err := ParseDegree(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	d, err := ParseDegree("ut")
	assert.Equal(t, NoDegree, d)
	assert.Equal(t, ErrUnknownDegree, errors.Cause(err))
}

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence("DO RE MI-FA,SO la  si")
	require.NoError(t, err)
	assert.Equal(t, []Degree{Do, Re, Mi, Fa, Sol, La, Ti}, seq)

	_, err = ParseSequence("DO RE XX")
	assert.Error(t, err)

	seq, err = ParseSequence("")
	require.NoError(t, err)
	assert.Empty(t, seq)
}

func TestDegreeString(t *testing.T) {
	assert.Equal(t, "DO", Do.String())
	assert.Equal(t, "SOL", Sol.String())
	assert.Equal(t, "TI", Ti.String())
	assert.Equal(t, "--", NoDegree.String())
	assert.False(t, NoDegree.Valid())
	assert.Equal(t, 11.0, Ti.Semitones())
}
