package scale

import (
	"math"

	"github.com/ossrs/go-oryx-lib/errors"
)

// Scale holds the frequencies of Do..Ti. A zero Scale means no root has been captured.
type Scale [Degrees]float64

// Boundaries are the geometric means of adjacent scale frequencies.
type Boundaries [Degrees - 1]float64

var (
	ErrNoRoot           = errors.New("no root captured")
	ErrDegreeRange      = errors.New("degree out of range")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrNotIncreasing    = errors.New("scale would not be strictly increasing")
)

// ValidFrequency reports whether f is a finite positive frequency.
func ValidFrequency(f float64) bool {
	return f > 0 && !math.IsInf(f, 0)
}

// BuildFromRoot computes every degree directly from the root. An invalid root
// yields the zero Scale.
func BuildFromRoot(root float64) Scale {
	var s Scale
	if !ValidFrequency(root) {
		return s
	}

	for i := range s {
		s[i] = root * math.Pow(2, semitones[i]/12)
	}
	return s
}

func (s Scale) IsZero() bool {
	return s == Scale{}
}

func (s Scale) Root() float64 {
	return s[Do]
}

// Theoretical is the equal-tempered frequency of d above the current root.
func (s Scale) Theoretical(d Degree) float64 {
	return s.Root() * math.Pow(2, d.Semitones()/12)
}

// Increasing reports whether every frequency is valid and strictly above the previous one.
func (s Scale) Increasing() bool {
	for i, f := range s {
		if !ValidFrequency(f) {
			return false
		}
		if i > 0 && !(f > s[i-1]) {
			return false
		}
	}
	return true
}

// Override replaces the frequency of one degree with a measured one, snapped to
// the octave closest to the theoretical degree. On error the receiver is
// returned unchanged.
func (s Scale) Override(d Degree, measured float64) (Scale, error) {
	if s.IsZero() {
		return s, ErrNoRoot
	}
	if !d.Valid() {
		return s, errors.Wrapf(ErrDegreeRange, "degree %d", int(d))
	}
	if !ValidFrequency(measured) {
		return s, errors.Wrapf(ErrInvalidFrequency, "%v Hz", measured)
	}

	o := ResolveOctave(s.Theoretical(d), measured)
	next := s
	next[d] = o.Adjusted

	if !next.Increasing() {
		return s, errors.Wrapf(ErrNotIncreasing, "%v at %v Hz", d, o.Adjusted)
	}
	return next, nil
}

// Boundaries returns the six lane thresholds of the scale.
func (s Scale) Boundaries() Boundaries {
	var b Boundaries
	for i := range b {
		b[i] = math.Sqrt(s[i] * s[i+1])
	}
	return b
}

// Octave is the outcome of matching a measured frequency against a target in
// three registers.
type Octave struct {
	// Factor is applied to the measured frequency: 1 as sung, 2 when sung an
	// octave low, 0.5 when sung an octave high.
	Factor   float64
	Adjusted float64
	// Cents of the adjusted frequency against the target.
	Cents float64
}

// Shifted reports whether the measured frequency had to be moved to another octave.
func (o Octave) Shifted() bool {
	return o.Factor != 1
}

// ResolveOctave picks the register of freq closest to target in cents. Ties
// keep the frequency as sung.
func ResolveOctave(target float64, freq float64) Octave {
	best := Octave{Factor: 1, Adjusted: freq, Cents: cents(freq, target)}

	for _, factor := range []float64{2, 0.5} {
		adjusted := freq * factor
		c := cents(adjusted, target)
		if math.Abs(c) < math.Abs(best.Cents) {
			best = Octave{Factor: factor, Adjusted: adjusted, Cents: c}
		}
	}
	return best
}

func cents(freq float64, ref float64) float64 {
	return 1200 * math.Log2(freq/ref)
}
