package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/ossrs/go-oryx-lib/errors"
)

// Config holds every tunable of the voice engine. It is built once, validated and
// then passed by value; nothing mutates it afterwards.
type Config struct {
	// Pitch detection gates
	MinFreqHz   float64 // lowest detectable fundamental
	MaxFreqHz   float64 // highest detectable fundamental
	MinRMS      float64 // silence gate on raw frame RMS
	MinClarity  float64 // normalized autocorrelation peak needed to call a frame voiced
	OctaveRatio float64 // sub-multiple lag wins when its correlation reaches this share of the best
	AnalysisHz  float64 // estimator runs at most this often, independent of the tick rate

	// Gameplay control
	StableFramesNeeded    int     // consecutive in-tune analysis ticks before a lane commits
	ControlToleranceCents float64 // in-tune window around a degree
	TopFloorRatio         float64 // Ti widening applies above this share of La
	TopWidening           float64 // Ti accepts ControlToleranceCents * TopWidening

	// Calibration
	HoldSeconds           float64 // hold-to-confirm duration
	CaptureToleranceCents float64 // root (fixed C) and per-degree capture window
	TopCaptureBonusCents  float64 // extra capture window for Ti
	StabilityWindow       int     // rolling samples inspected for a free root
	StabilityMaxDevCents  float64 // max deviation from the window median
	TunerNeedleRangeCents float64 // clamp for the needle readout

	// Smoothing time constants, seconds
	CalibrationSmoothing float64
	GameplaySmoothing    float64
	SilenceResetSeconds  float64 // smoothing is cleared after this much continuous no-pitch

	// Audio host
	SampleRate float64
	FrameSize  int
}

// Default returns the tuning the game shipped with.
func Default() Config {
	return Config{
		MinFreqHz:   80,
		MaxFreqHz:   1100,
		MinRMS:      0.012,
		MinClarity:  0.28,
		OctaveRatio: 0.92,
		AnalysisHz:  30,

		StableFramesNeeded:    3,
		ControlToleranceCents: 90,
		TopFloorRatio:         0.98,
		TopWidening:           1.2,

		HoldSeconds:           0.6,
		CaptureToleranceCents: 120,
		TopCaptureBonusCents:  20,
		StabilityWindow:       14,
		StabilityMaxDevCents:  65,
		TunerNeedleRangeCents: 180,

		CalibrationSmoothing: 0.205,
		GameplaySmoothing:    0.134,
		SilenceResetSeconds:  0.5,

		SampleRate: 48000,
		FrameSize:  2048,
	}
}

// Load reads an optional .env file, then overrides the defaults from SOLFEGE_*
// environment variables. Unparseable values keep the default.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, errors.Wrapf(err, "load %v", envFile)
			}
		}
	}

	d := Default()
	cfg := Config{
		MinFreqHz:   envFloat("SOLFEGE_MIN_FREQ_HZ", d.MinFreqHz),
		MaxFreqHz:   envFloat("SOLFEGE_MAX_FREQ_HZ", d.MaxFreqHz),
		MinRMS:      envFloat("SOLFEGE_MIN_RMS", d.MinRMS),
		MinClarity:  envFloat("SOLFEGE_MIN_CLARITY", d.MinClarity),
		OctaveRatio: envFloat("SOLFEGE_OCTAVE_RATIO", d.OctaveRatio),
		AnalysisHz:  envFloat("SOLFEGE_ANALYSIS_HZ", d.AnalysisHz),

		StableFramesNeeded:    envInt("SOLFEGE_STABLE_FRAMES", d.StableFramesNeeded),
		ControlToleranceCents: envFloat("SOLFEGE_CONTROL_TOLERANCE_CENTS", d.ControlToleranceCents),
		TopFloorRatio:         envFloat("SOLFEGE_TOP_FLOOR_RATIO", d.TopFloorRatio),
		TopWidening:           envFloat("SOLFEGE_TOP_WIDENING", d.TopWidening),

		HoldSeconds:           envFloat("SOLFEGE_HOLD_SECONDS", d.HoldSeconds),
		CaptureToleranceCents: envFloat("SOLFEGE_CAPTURE_TOLERANCE_CENTS", d.CaptureToleranceCents),
		TopCaptureBonusCents:  envFloat("SOLFEGE_TOP_CAPTURE_BONUS_CENTS", d.TopCaptureBonusCents),
		StabilityWindow:       envInt("SOLFEGE_STABILITY_WINDOW", d.StabilityWindow),
		StabilityMaxDevCents:  envFloat("SOLFEGE_STABILITY_MAX_DEV_CENTS", d.StabilityMaxDevCents),
		TunerNeedleRangeCents: envFloat("SOLFEGE_NEEDLE_RANGE_CENTS", d.TunerNeedleRangeCents),

		CalibrationSmoothing: envFloat("SOLFEGE_CALIBRATION_SMOOTHING", d.CalibrationSmoothing),
		GameplaySmoothing:    envFloat("SOLFEGE_GAMEPLAY_SMOOTHING", d.GameplaySmoothing),
		SilenceResetSeconds:  envFloat("SOLFEGE_SILENCE_RESET_SECONDS", d.SilenceResetSeconds),

		SampleRate: envFloat("SOLFEGE_SAMPLE_RATE", d.SampleRate),
		FrameSize:  envInt("SOLFEGE_FRAME_SIZE", d.FrameSize),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "validate")
	}

	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case !(c.MinFreqHz > 0):
		return errors.Errorf("min frequency %v must be positive", c.MinFreqHz)
	case !(c.MaxFreqHz > c.MinFreqHz):
		return errors.Errorf("max frequency %v must exceed min frequency %v", c.MaxFreqHz, c.MinFreqHz)
	case c.MinRMS < 0:
		return errors.Errorf("min rms %v is negative", c.MinRMS)
	case c.MinClarity < 0 || c.MinClarity > 1:
		return errors.Errorf("min clarity %v outside [0,1]", c.MinClarity)
	case !(c.OctaveRatio > 0 && c.OctaveRatio <= 1):
		return errors.Errorf("octave ratio %v outside (0,1]", c.OctaveRatio)
	case !(c.AnalysisHz > 0):
		return errors.Errorf("analysis rate %v must be positive", c.AnalysisHz)
	case c.StableFramesNeeded < 1:
		return errors.Errorf("stable frames %v must be at least 1", c.StableFramesNeeded)
	case !(c.ControlToleranceCents > 0):
		return errors.Errorf("control tolerance %v must be positive", c.ControlToleranceCents)
	case !(c.TopFloorRatio > 0):
		return errors.Errorf("top floor ratio %v must be positive", c.TopFloorRatio)
	case c.TopWidening < 1:
		return errors.Errorf("top widening %v must be at least 1", c.TopWidening)
	case !(c.HoldSeconds > 0):
		return errors.Errorf("hold seconds %v must be positive", c.HoldSeconds)
	case !(c.CaptureToleranceCents > 0):
		return errors.Errorf("capture tolerance %v must be positive", c.CaptureToleranceCents)
	case c.TopCaptureBonusCents < 0:
		return errors.Errorf("top capture bonus %v is negative", c.TopCaptureBonusCents)
	case c.StabilityWindow < 2:
		return errors.Errorf("stability window %v must hold at least 2 samples", c.StabilityWindow)
	case !(c.StabilityMaxDevCents > 0):
		return errors.Errorf("stability deviation %v must be positive", c.StabilityMaxDevCents)
	case !(c.TunerNeedleRangeCents > 0):
		return errors.Errorf("needle range %v must be positive", c.TunerNeedleRangeCents)
	case c.CalibrationSmoothing < 0 || c.GameplaySmoothing < 0:
		return errors.Errorf("smoothing constants %v/%v are negative", c.CalibrationSmoothing, c.GameplaySmoothing)
	case !(c.SilenceResetSeconds > 0):
		return errors.Errorf("silence reset %v must be positive", c.SilenceResetSeconds)
	case !(c.SampleRate > 0):
		return errors.Errorf("sample rate %v must be positive", c.SampleRate)
	}

	// The longest period must fit in a frame with room for the lag+1 neighbour.
	if maxLag := int(c.SampleRate / c.MinFreqHz); c.FrameSize < maxLag+2 {
		return errors.Errorf("frame size %v too short for %v Hz at %v Hz (need %v)",
			c.FrameSize, c.MinFreqHz, c.SampleRate, maxLag+2)
	}

	return nil
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
