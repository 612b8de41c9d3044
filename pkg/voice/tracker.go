package voice

import (
	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/lane"
	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/errors"
)

// pitch class of C
const classC = 0

// Control is the gameplay outcome of one analysis tick.
type Control struct {
	Frequency      float64 // smoothed, 0 without pitch
	Classification lane.Classification
	InTune         bool
	Committed      scale.Degree
}

// Reading is the calibration outcome of one analysis tick.
type Reading struct {
	Frequency float64 // smoothed, 0 without pitch
	Target    float64 // frequency being matched, 0 while looking for a free root
	Cents     float64 // deviation from Target, or the stability spread for a free root
	Octave    scale.Octave
	Ok        bool
	Progress  float64
	Capture   *Capture
}

// Tracker owns every piece of sequencing state between analysis ticks:
// smoothing, the lane debounce, the hold timer and the stability window.
type Tracker struct {
	cfg         config.Config
	classifier  lane.Classifier
	calibration Smoother
	gameplay    Smoother
	debounce    Debouncer
	hold        Hold
	stability   *StabilityWindow
}

func NewTracker(cfg config.Config) *Tracker {
	return &Tracker{
		cfg:         cfg,
		classifier:  lane.NewClassifier(cfg),
		calibration: Smoother{Tau: cfg.CalibrationSmoothing},
		gameplay:    Smoother{Tau: cfg.GameplaySmoothing},
		debounce:    NewDebouncer(cfg.StableFramesNeeded),
		hold:        Hold{Seconds: cfg.HoldSeconds},
		stability:   NewStabilityWindow(cfg.StabilityWindow, cfg.StabilityMaxDevCents),
	}
}

// SetTolerance changes the in-tune window used during play.
func (t *Tracker) SetTolerance(cents float64) error {
	if !(cents > 0) {
		return errors.Errorf("tolerance %v must be positive", cents)
	}
	t.classifier.ToleranceCents = cents
	return nil
}

func (t *Tracker) Tolerance() float64 {
	return t.classifier.ToleranceCents
}

func (t *Tracker) Classifier() lane.Classifier {
	return t.classifier
}

// Play advances the gameplay debounce by one analysis tick. A nil result clears
// the streak and the committed lane but keeps the smoothed frequency.
func (t *Tracker) Play(dt float64, res *tuner.Result, s scale.Scale, b scale.Boundaries) Control {
	if res == nil || s.IsZero() {
		return Control{Classification: lane.None, Committed: t.debounce.Update(scale.NoDegree, false)}
	}

	freq := t.gameplay.Update(dt, res.Frequency)
	cl := t.classifier.Classify(freq, s, b)
	inTune := t.classifier.InTune(cl)

	return Control{
		Frequency:      freq,
		Classification: cl,
		InTune:         inTune,
		Committed:      t.debounce.Update(cl.Lane, inTune),
	}
}

// Committed returns the current gameplay lane.
func (t *Tracker) Committed() scale.Degree {
	return t.debounce.Committed()
}

// Smooth runs a result through the calibration smoother.
func (t *Tracker) Smooth(dt float64, res *tuner.Result) (float64, bool) {
	if res == nil {
		return 0, false
	}
	return t.calibration.Update(dt, res.Frequency), true
}

// CaptureRoot advances root capture. With fixed set the singer must match a C in
// any octave and the capture snaps to that C; otherwise any steady pitch is
// taken as the root.
func (t *Tracker) CaptureRoot(dt float64, res *tuner.Result, fixed bool) Reading {
	freq, ok := t.Smooth(dt, res)
	if !ok {
		t.ResetCapture()
		return Reading{}
	}

	r := Reading{Frequency: freq}
	if fixed {
		target, _ := tuner.NearestOfClass(freq, classC)
		r.Target = target.Frequency
		r.Cents = target.Cents
		r.Ok = abs(target.Cents) <= t.cfg.CaptureToleranceCents
	} else {
		r.Ok, r.Cents = t.stability.Push(freq)
	}

	r.Progress, r.Capture = t.hold.Update(dt, r.Ok, freq)
	if r.Capture != nil {
		if fixed {
			c, _ := tuner.NearestOfClass(r.Capture.Median, classC)
			r.Capture.Frequency = c.Frequency
		}
		t.stability.Reset()
	}
	return r
}

// CaptureDegree advances capture of one degree against the theoretical
// frequency of s. The sample is moved to whichever octave lies closest to
// the target before it is tested and buffered.
func (t *Tracker) CaptureDegree(dt float64, res *tuner.Result, s scale.Scale, d scale.Degree) Reading {
	freq, ok := t.Smooth(dt, res)
	if !ok || s.IsZero() || !d.Valid() {
		t.hold.Reset()
		return Reading{Frequency: freq}
	}

	tolerance := t.CaptureTolerance(d)
	target := s.Theoretical(d)
	o := scale.ResolveOctave(target, freq)
	r := Reading{
		Frequency: freq,
		Target:    target,
		Cents:     o.Cents,
		Octave:    o,
		Ok:        abs(o.Cents) <= tolerance,
	}

	r.Progress, r.Capture = t.hold.Update(dt, r.Ok, o.Adjusted)
	return r
}

// CaptureTolerance returns the capture window for a degree.
func (t *Tracker) CaptureTolerance(d scale.Degree) float64 {
	if d == scale.Ti {
		return t.cfg.CaptureToleranceCents + t.cfg.TopCaptureBonusCents
	}
	return t.cfg.CaptureToleranceCents
}

// Progress of the running hold.
func (t *Tracker) Progress() float64 {
	return t.hold.Progress()
}

// ResetCapture drops hold progress and the stability window.
func (t *Tracker) ResetCapture() {
	t.hold.Reset()
	t.stability.Reset()
}

// ClearSmoothing forgets both smoothed frequencies.
func (t *Tracker) ClearSmoothing() {
	t.calibration.Reset()
	t.gameplay.Reset()
}

// Reset returns the tracker to its initial state.
func (t *Tracker) Reset() {
	t.ResetCapture()
	t.ClearSmoothing()
	t.debounce.Reset()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
