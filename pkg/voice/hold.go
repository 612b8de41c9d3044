package voice

import (
	"github.com/metalblueberry/solfege/pkg/circular"
	"github.com/metalblueberry/solfege/pkg/tuner"
)

// tolerance for accumulated tick durations that should add up to the hold time
const holdEpsilon = 1e-9

// Capture is fired when a hold completes.
type Capture struct {
	// Frequency is the value to adopt: the median of the held samples, or the
	// note it was snapped to.
	Frequency float64
	Median    float64
	Samples   int
}

// Hold accumulates time while a predicate holds and fires once the total
// reaches Seconds. Any interruption discards all progress.
type Hold struct {
	Seconds float64
	acc     float64
	samples []float64
}

// Update feeds one tick. freq is buffered when it is a valid frequency. On
// completion a capture carrying the median of the buffered samples is returned
// and the hold starts over.
func (h *Hold) Update(dt float64, ok bool, freq float64) (float64, *Capture) {
	if !ok {
		h.Reset()
		return 0, nil
	}

	if dt > 0 {
		h.acc += dt
	}
	if freq > 0 {
		h.samples = append(h.samples, freq)
	}

	if h.acc+holdEpsilon < h.Seconds {
		return h.Progress(), nil
	}

	c := &Capture{Median: Median(h.samples), Samples: len(h.samples)}
	if c.Median == 0 {
		c.Median = freq
	}
	c.Frequency = c.Median
	h.Reset()
	return 1, c
}

// Progress is min(1, accumulated/Seconds).
func (h *Hold) Progress() float64 {
	if !(h.Seconds > 0) {
		return 0
	}
	p := h.acc / h.Seconds
	if p > 1 {
		return 1
	}
	return p
}

// Samples returns how many samples are buffered.
func (h *Hold) Samples() int {
	return len(h.samples)
}

func (h *Hold) Reset() {
	h.acc = 0
	h.samples = h.samples[:0]
}

// StabilityWindow keeps the latest frequencies and reports whether they stay
// close together, without reference to any target.
type StabilityWindow struct {
	MaxDevCents float64
	buf         *circular.Buffer[float64]
	scratch     []float64
}

func NewStabilityWindow(size int, maxDevCents float64) *StabilityWindow {
	return &StabilityWindow{
		MaxDevCents: maxDevCents,
		buf:         circular.CreateBuffer[float64](size),
	}
}

// Push adds a sample and returns the current verdict.
func (w *StabilityWindow) Push(freq float64) (stable bool, deviation float64) {
	w.buf.Enqueue(freq)
	return w.Stable()
}

// Stable reports whether the window is at least three quarters full and every
// sample lies within MaxDevCents of the window median. deviation is the largest
// distance from the median in cents.
func (w *StabilityWindow) Stable() (stable bool, deviation float64) {
	w.scratch = w.buf.Snapshot(w.scratch[:0])
	if len(w.scratch) < w.buf.Length()*3/4 || len(w.scratch) == 0 {
		return false, 0
	}

	med := Median(w.scratch)
	for _, f := range w.scratch {
		dev := tuner.Cents(f, med)
		if dev < 0 {
			dev = -dev
		}
		if dev > deviation {
			deviation = dev
		}
	}
	return deviation <= w.MaxDevCents, deviation
}

func (w *StabilityWindow) Len() int {
	return w.buf.Count()
}

func (w *StabilityWindow) Reset() {
	w.buf.Reset()
}
