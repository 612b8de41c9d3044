package voice

import (
	"math"
	"sort"
)

// Smoother is a one-pole low-pass filter whose response does not depend on the
// update rate: alpha = 1 - exp(-dt/tau). The first sample after a reset is
// taken as is.
type Smoother struct {
	Tau   float64
	value float64
	ok    bool
}

func (s *Smoother) Update(dt float64, x float64) float64 {
	if !s.ok || !(s.Tau > 0) {
		s.value = x
		s.ok = true
		return x
	}

	if dt > 0 {
		alpha := 1 - math.Exp(-dt/s.Tau)
		s.value += alpha * (x - s.value)
	}
	return s.value
}

// Value returns the filtered value and whether there is one.
func (s *Smoother) Value() (float64, bool) {
	return s.value, s.ok
}

func (s *Smoother) Reset() {
	s.value = 0
	s.ok = false
}

// Median of the values, averaging the middle pair for even counts. Returns 0
// for no values. The input is left untouched.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
