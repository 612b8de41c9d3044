package voice

import (
	"github.com/metalblueberry/solfege/pkg/scale"
)

// Debouncer turns per-tick lanes into a committed lane once the same lane has
// been seen in tune for Needed consecutive ticks.
type Debouncer struct {
	Needed    int
	candidate scale.Degree
	streak    int
	committed scale.Degree
}

func NewDebouncer(needed int) Debouncer {
	return Debouncer{
		Needed:    needed,
		candidate: scale.NoDegree,
		committed: scale.NoDegree,
	}
}

// Update feeds one tick. An out-of-tune or missing lane clears both the streak
// and the committed lane.
func (d *Debouncer) Update(l scale.Degree, inTune bool) scale.Degree {
	if !inTune || !l.Valid() {
		d.Reset()
		return d.committed
	}

	if l == d.candidate {
		d.streak++
	} else {
		d.candidate = l
		d.streak = 1
	}

	if d.streak >= d.Needed {
		d.committed = l
	}
	return d.committed
}

func (d *Debouncer) Committed() scale.Degree {
	return d.committed
}

func (d *Debouncer) Streak() int {
	return d.streak
}

func (d *Debouncer) Reset() {
	d.candidate = scale.NoDegree
	d.streak = 0
	d.committed = scale.NoDegree
}
