package calibration

import (
	"context"
	"math"

	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/lane"
	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/metalblueberry/solfege/pkg/voice"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// State is a step of the calibration wizard.
type State int

const (
	Idle State = iota
	Intro
	MicCheck
	ChooseMethod
	CaptureRoot
	CaptureDegrees
	Test
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Intro:
		return "intro"
	case MicCheck:
		return "mic-check"
	case ChooseMethod:
		return "choose-method"
	case CaptureRoot:
		return "capture-root"
	case CaptureDegrees:
		return "capture-degrees"
	case Test:
		return "test"
	case Done:
		return "done"
	}
	return "unknown"
}

// Title is the heading a host shows for the step.
func (s State) Title() string {
	switch s {
	case Intro:
		return "Let's tune the game to your voice"
	case MicCheck:
		return "Mic check"
	case ChooseMethod:
		return "Choose a calibration method"
	case CaptureRoot:
		return "Capture your DO"
	case CaptureDegrees:
		return "Calibrate the scale (DO to TI)"
	case Test:
		return "Test it"
	}
	return ""
}

// Method selects how the root is captured.
type Method int

const (
	MethodNone Method = iota
	// MethodFixedC asks for a C in any octave and snaps the root to it.
	MethodFixedC
	// MethodMovable takes any steady pitch as the root.
	MethodMovable
)

func (m Method) String() string {
	switch m {
	case MethodFixedC:
		return "fixed-c"
	case MethodMovable:
		return "movable"
	}
	return "none"
}

var (
	ErrNoMethod          = errors.New("choose a calibration method first")
	ErrInvalidTransition = errors.New("invalid transition")
)

// default tone when nothing has been heard yet: C4
const defaultVoiceEstimate = 261.625565

// share of each new reading blended into the voice estimate
const voiceEstimateBlend = 0.08

type transition struct {
	next State
	back State
}

var transitions = map[State]transition{
	Intro:          {next: MicCheck, back: Idle},
	MicCheck:       {next: ChooseMethod, back: Intro},
	ChooseMethod:   {next: CaptureRoot, back: MicCheck},
	CaptureRoot:    {next: CaptureDegrees, back: ChooseMethod},
	CaptureDegrees: {next: Test, back: CaptureRoot},
	Test:           {next: Done, back: CaptureDegrees},
}

// Step is what the wizard reports after a tick.
type Step struct {
	State          State        // after the tick
	Degree         scale.Degree // next degree to capture in CaptureDegrees
	Frequency      float64      // smoothed, 0 without pitch
	Note           tuner.Note
	Classification lane.Classification
	NeedleCents    float64
	Progress       float64
	Hint           string
	Guidance       string // why nothing was heard, empty with pitch
	Capture        *voice.Capture
	// Err reports a capture that could not be applied; the wizard stays usable.
	Err error
}

// Wizard walks a singer through calibration. It is driven by the engine and
// must not be used concurrently.
type Wizard struct {
	cfg      config.Config
	tracker  *voice.Tracker
	state    State
	method   Method
	scale    scale.Scale
	degree   scale.Degree
	checks   [scale.Degrees]bool
	estimate float64
}

func New(cfg config.Config, tracker *voice.Tracker) *Wizard {
	return &Wizard{
		cfg:     cfg,
		tracker: tracker,
		degree:  scale.Re,
	}
}

func (w *Wizard) State() State {
	return w.state
}

func (w *Wizard) Method() Method {
	return w.method
}

// Scale returns the calibration so far; zero until a root is captured.
func (w *Wizard) Scale() scale.Scale {
	return w.scale
}

// Degree returns the degree being captured.
func (w *Wizard) Degree() scale.Degree {
	return w.degree
}

// Checklist reports which lanes were hit during the test step.
func (w *Wizard) Checklist() [scale.Degrees]bool {
	return w.checks
}

// VoiceEstimate is a slow average of what was heard during the mic check.
func (w *Wizard) VoiceEstimate() (float64, bool) {
	return w.estimate, w.estimate > 0
}

// Start resets everything and enters the intro.
func (w *Wizard) Start(ctx context.Context) {
	w.method = MethodNone
	w.scale = scale.Scale{}
	w.estimate = 0
	w.degree = scale.Re
	w.checks = [scale.Degrees]bool{}
	w.tracker.Reset()
	w.enter(ctx, Intro)
}

// SetRoot installs a root captured elsewhere, e.g. typed in by the user.
func (w *Wizard) SetRoot(ctx context.Context, root float64) error {
	s := scale.BuildFromRoot(root)
	if s.IsZero() {
		return errors.Wrapf(scale.ErrInvalidFrequency, "root %v", root)
	}
	w.scale = s
	logger.Tf(ctx, "calibration root set to %.2fHz", root)
	return nil
}

// Next advances one step. Leaving CaptureDegrees early keeps the theoretical
// frequencies of the remaining degrees.
func (w *Wizard) Next(ctx context.Context) error {
	t, ok := transitions[w.state]
	if !ok {
		return errors.Wrapf(ErrInvalidTransition, "next from %v", w.state)
	}
	if err := w.guard(t.next); err != nil {
		return errors.Wrapf(err, "next from %v", w.state)
	}
	w.enter(ctx, t.next)
	return nil
}

// Back returns to the previous step, discarding what the current step built.
func (w *Wizard) Back(ctx context.Context) error {
	t, ok := transitions[w.state]
	if !ok {
		return errors.Wrapf(ErrInvalidTransition, "back from %v", w.state)
	}

	switch w.state {
	case CaptureRoot:
		w.scale = scale.Scale{}
		w.method = MethodNone
	case CaptureDegrees:
		w.scale = scale.Scale{}
	}

	w.enter(ctx, t.back)
	return nil
}

// Skip jumps from the introduction straight to choosing a method.
func (w *Wizard) Skip(ctx context.Context) error {
	if w.state != Intro && w.state != MicCheck {
		return errors.Wrapf(ErrInvalidTransition, "skip from %v", w.state)
	}
	w.enter(ctx, ChooseMethod)
	return nil
}

// ChooseMethod picks the root capture method and moves on to capturing it.
func (w *Wizard) ChooseMethod(ctx context.Context, m Method) error {
	if w.state != ChooseMethod {
		return errors.Wrapf(ErrInvalidTransition, "choose method in %v", w.state)
	}
	if m != MethodFixedC && m != MethodMovable {
		return errors.Wrapf(ErrNoMethod, "method %v", m)
	}

	w.method = m
	w.scale = scale.Scale{}
	logger.Tf(ctx, "calibration method %v", m)
	w.enter(ctx, CaptureRoot)
	return nil
}

func (w *Wizard) guard(to State) error {
	switch to {
	case CaptureRoot:
		if w.method == MethodNone {
			return ErrNoMethod
		}
	case CaptureDegrees, Test, Done:
		if w.scale.IsZero() {
			return scale.ErrNoRoot
		}
	}
	return nil
}

// enter switches state and applies its entry resets before the next tick.
func (w *Wizard) enter(ctx context.Context, to State) {
	from := w.state
	w.state = to
	w.tracker.ResetCapture()
	w.tracker.ClearSmoothing()

	switch to {
	case CaptureDegrees:
		w.degree = scale.Re
	case Test:
		w.degree = scale.Re
		w.checks = [scale.Degrees]bool{}
	}

	logger.Tf(ctx, "calibration %v -> %v", from, to)
}

// Tick consumes one analysis result. dt is the time since the previous analysis.
func (w *Wizard) Tick(ctx context.Context, dt float64, res *tuner.Result, reason tuner.Reason) Step {
	step := Step{State: w.state, Degree: w.degree, Classification: lane.None}

	var r voice.Reading
	switch w.state {
	case Idle, Done:
		return step
	case CaptureRoot:
		r = w.tracker.CaptureRoot(dt, res, w.method == MethodFixedC)
	case CaptureDegrees:
		r = w.tracker.CaptureDegree(dt, res, w.scale, w.degree)
	default:
		r.Frequency, _ = w.tracker.Smooth(dt, res)
	}

	step.Frequency = r.Frequency
	step.Progress = r.Progress
	step.Capture = r.Capture

	if note, ok := tuner.Describe(r.Frequency); ok {
		step.Note = note
		step.NeedleCents = note.Cents
	}
	if !w.scale.IsZero() {
		step.Classification = lane.Classify(r.Frequency, w.scale, w.scale.Boundaries())
	}

	switch w.state {
	case Intro:
		step.Hint = "Sing any note to make sure the mic hears you."
	case MicCheck:
		w.micCheck(r.Frequency, &step)
	case ChooseMethod:
		step.Hint = "Match a C first, or use any comfortable note as DO."
	case CaptureRoot:
		w.captureRoot(ctx, r, &step)
	case CaptureDegrees:
		w.captureDegree(ctx, r, &step)
	case Test:
		if step.Classification.Ok() {
			w.checks[step.Classification.Lane] = true
			step.NeedleCents = step.Classification.CentsOff
			step.Hint = "Try hitting the others..."
		} else {
			step.Hint = "Sing higher and lower: the note should follow you."
		}
	}

	if res == nil {
		step.Guidance = reason.Hint()
	}

	step.State = w.state
	step.Degree = w.degree
	limit := w.cfg.TunerNeedleRangeCents
	step.NeedleCents = math.Max(-limit, math.Min(limit, step.NeedleCents))
	return step
}

func (w *Wizard) micCheck(freq float64, step *Step) {
	if freq <= 0 {
		step.Hint = "Sing a steady \"doo\"."
		return
	}

	if w.estimate > 0 {
		w.estimate += voiceEstimateBlend * (freq - w.estimate)
	} else {
		w.estimate = freq
	}
	step.Hint = "If the note jumps around, try a steady vowel (\"doo\")."
}

func (w *Wizard) captureRoot(ctx context.Context, r voice.Reading, step *Step) {
	fixed := w.method == MethodFixedC

	switch {
	case r.Frequency <= 0 && fixed:
		step.Hint = "Sing a steady C..."
	case r.Frequency <= 0:
		step.Hint = "Sing a steady note..."
	case fixed && r.Ok:
		step.Hint = "Good - hold steady..."
	case fixed:
		step.Hint = "Aim for C... If you are far, try the reference tone."
	case r.Ok:
		step.Hint = "Steady - hold..."
	default:
		step.Hint = "Hold a steadier pitch. Avoid sliding up or down."
	}
	if fixed && r.Frequency > 0 {
		step.NeedleCents = r.Cents
	}

	if r.Capture == nil {
		return
	}

	w.scale = scale.BuildFromRoot(r.Capture.Frequency)
	logger.Tf(ctx, "calibration captured DO %.2fHz from %d samples, median %.2fHz",
		r.Capture.Frequency, r.Capture.Samples, r.Capture.Median)
	w.enter(ctx, CaptureDegrees)
}

func (w *Wizard) captureDegree(ctx context.Context, r voice.Reading, step *Step) {
	if r.Frequency <= 0 {
		step.Hint = "Sing and hold..."
		return
	}

	step.NeedleCents = r.Cents
	switch {
	case r.Ok && r.Octave.Factor > 1:
		step.Hint = "Good - using lower octave (auto-adjusted)..."
	case r.Ok && r.Octave.Factor < 1:
		step.Hint = "Good - using higher octave (auto-adjusted)..."
	case r.Ok:
		step.Hint = "Good - hold steady..."
	default:
		step.Hint = "Aim for the target..."
	}

	if r.Capture == nil {
		return
	}

	next, err := w.scale.Override(w.degree, r.Capture.Frequency)
	if err != nil {
		logger.Wf(ctx, "calibration drop %v at %.2fHz, err %+v", w.degree, r.Capture.Frequency, err)
		step.Err = errors.Wrapf(err, "capture %v", w.degree)
		step.Hint = "That did not fit between its neighbours. Try again."
		return
	}

	w.scale = next
	logger.Tf(ctx, "calibration captured %v %.2fHz from %d samples", w.degree, r.Capture.Frequency, r.Capture.Samples)

	if w.degree == scale.Ti {
		w.enter(ctx, Test)
		return
	}
	w.degree++
	w.tracker.ResetCapture()
	w.tracker.ClearSmoothing()
}

// ReferenceTone is the frequency a host should play for the current target,
// an octave higher with alt.
func (w *Wizard) ReferenceTone(alt bool) (float64, bool) {
	f := 0.0

	switch {
	case w.state == CaptureRoot && w.method == MethodFixedC:
		base := defaultVoiceEstimate
		if w.estimate > 0 {
			base = w.estimate
		}
		c, _ := tuner.NearestOfClass(base, 0)
		f = c.Frequency
	case w.state == CaptureDegrees && !w.scale.IsZero():
		f = w.scale[w.degree]
	default:
		return 0, false
	}

	if alt {
		f *= 2
	}
	return f, true
}
