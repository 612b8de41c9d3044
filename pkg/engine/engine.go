package engine

import (
	"context"

	"github.com/metalblueberry/solfege/pkg/calibration"
	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/lane"
	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/metalblueberry/solfege/pkg/voice"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

// Mode is what the engine does with detected pitch.
type Mode int

const (
	Idle Mode = iota
	Calibrating
	Playing
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Calibrating:
		return "calibrating"
	case Playing:
		return "playing"
	}
	return "unknown"
}

var ErrNotCalibrated = errors.New("not calibrated")

// Output is the engine state after a tick.
type Output struct {
	Mode Mode
	// Analyzed is true when the estimator ran on this tick. Otherwise the
	// fields below repeat the previous analysis, without capture events.
	Analyzed bool
	Result   *tuner.Result
	Reason   tuner.Reason

	// Playing
	Frequency      float64
	Classification lane.Classification
	InTune         bool
	Lane           scale.Degree

	// Calibrating
	Calibration *calibration.Step

	Scale scale.Scale
}

// Engine owns all mutable voice-control state. It is driven by a single loop
// calling Tick and must not be shared between goroutines.
type Engine struct {
	cfg      config.Config
	analyzer *tuner.Analyzer
	tracker  *voice.Tracker
	wizard   *calibration.Wizard
	mode     Mode
	scale    scale.Scale
	bounds   scale.Boundaries
	silence  float64
	last     Output
}

func New(cfg config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config")
	}

	estimator := tuner.CreateEstimator(tuner.SettingsFrom(cfg))
	tracker := voice.NewTracker(cfg)

	e := &Engine{
		cfg:      cfg,
		analyzer: tuner.CreateAnalyzer(estimator, cfg.AnalysisHz),
		tracker:  tracker,
		wizard:   calibration.New(cfg, tracker),
	}
	e.last = Output{Lane: scale.NoDegree, Classification: lane.None, Reason: tuner.TooQuiet}
	return e, nil
}

func (e *Engine) Config() config.Config {
	return e.cfg
}

func (e *Engine) Mode() Mode {
	return e.mode
}

func (e *Engine) Wizard() *calibration.Wizard {
	return e.wizard
}

// Scale returns the calibration in use; zero before one exists.
func (e *Engine) Scale() scale.Scale {
	return e.scale
}

func (e *Engine) Tolerance() float64 {
	return e.tracker.Tolerance()
}

// SetTolerance changes the in-tune window for play.
func (e *Engine) SetTolerance(cents float64) error {
	return e.tracker.SetTolerance(cents)
}

// StartCalibration discards any running session and starts the wizard.
func (e *Engine) StartCalibration(ctx context.Context) {
	e.reset()
	e.mode = Calibrating
	e.wizard.Start(ctx)
	logger.Tf(ctx, "engine calibrating")
}

// SetRoot calibrates from a known root, bypassing the wizard.
func (e *Engine) SetRoot(ctx context.Context, root float64) error {
	s := scale.BuildFromRoot(root)
	if s.IsZero() {
		return errors.Wrapf(scale.ErrInvalidFrequency, "root %v", root)
	}

	e.adopt(s)
	logger.Tf(ctx, "engine root %.2fHz", root)
	return nil
}

// StartRun begins play with the current calibration.
func (e *Engine) StartRun(ctx context.Context) error {
	if e.scale.IsZero() {
		return ErrNotCalibrated
	}

	e.reset()
	e.mode = Playing
	logger.Tf(ctx, "engine run started, DO=%.2fHz tolerance=%vc", e.scale.Root(), e.tracker.Tolerance())
	return nil
}

// Restart clears the lane state of a run in progress.
func (e *Engine) Restart(ctx context.Context) error {
	return e.StartRun(ctx)
}

// Stop leaves play or calibration. The calibration is kept.
func (e *Engine) Stop(ctx context.Context) {
	e.reset()
	e.mode = Idle
	logger.Tf(ctx, "engine stopped")
}

func (e *Engine) adopt(s scale.Scale) {
	e.scale = s
	e.bounds = s.Boundaries()
}

// reset clears every per-session state, before the next tick is processed.
func (e *Engine) reset() {
	e.tracker.Reset()
	e.analyzer.Reset()
	e.silence = 0
	e.last = Output{Lane: scale.NoDegree, Classification: lane.None, Reason: tuner.TooQuiet}
}

// Tick advances the engine by dt seconds with the latest audio frame.
func (e *Engine) Tick(ctx context.Context, dt float64, frame tuner.Frame) Output {
	if e.mode == Calibrating {
		switch e.wizard.State() {
		case calibration.Done:
			e.adopt(e.wizard.Scale())
			if err := e.StartRun(ctx); err != nil {
				logger.Wf(ctx, "engine calibration finished without a scale, err %+v", err)
				e.mode = Idle
			}
		case calibration.Idle:
			logger.Tf(ctx, "engine calibration left")
			e.Stop(ctx)
		}
	}

	res, reason, elapsed, analyzed := e.analyzer.Update(dt, frame)
	if !analyzed {
		return e.repeat()
	}

	if res == nil {
		e.silence += elapsed
		if e.silence >= e.cfg.SilenceResetSeconds {
			e.tracker.ClearSmoothing()
		}
	} else {
		e.silence = 0
	}

	out := Output{
		Mode:           e.mode,
		Analyzed:       true,
		Result:         res,
		Reason:         reason,
		Classification: lane.None,
		Lane:           scale.NoDegree,
	}

	switch e.mode {
	case Playing:
		c := e.tracker.Play(elapsed, res, e.scale, e.bounds)
		out.Frequency = c.Frequency
		out.Classification = c.Classification
		out.InTune = c.InTune
		out.Lane = c.Committed
	case Calibrating:
		step := e.wizard.Tick(ctx, elapsed, res, reason)
		out.Calibration = &step
		out.Frequency = step.Frequency
		out.Classification = step.Classification
	}

	out.Scale = e.scale
	if e.mode == Calibrating {
		out.Scale = e.wizard.Scale()
	}

	e.last = out
	return out
}

func (e *Engine) repeat() Output {
	out := e.last
	out.Mode = e.mode
	out.Analyzed = false

	if out.Calibration != nil {
		step := *out.Calibration
		step.Capture = nil
		step.Err = nil
		out.Calibration = &step
	}
	return out
}
