package lane

import (
	"math"

	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/scale"
)

// InTuneCents is the deviation still reported as "in tune" to the singer.
const InTuneCents = 18

// Classification is a frequency placed on a lane with its tuning deviation.
type Classification struct {
	Lane     scale.Degree
	CentsOff float64
}

// None is the classification of "no pitch".
var None = Classification{Lane: scale.NoDegree}

func (c Classification) Ok() bool {
	return c.Lane.Valid()
}

// Tuning describes the deviation for display: "in tune", "sharp" or "flat".
func (c Classification) Tuning() string {
	switch {
	case !c.Ok():
		return ""
	case math.Abs(c.CentsOff) < InTuneCents:
		return "in tune"
	case c.CentsOff > 0:
		return "sharp"
	default:
		return "flat"
	}
}

// Classify places freq on the lane given by the number of boundaries below it
// and measures cents against that lane's degree.
func Classify(freq float64, s scale.Scale, b scale.Boundaries) Classification {
	if !scale.ValidFrequency(freq) || s.IsZero() {
		return None
	}

	l := 0
	for _, limit := range b {
		if limit < freq {
			l++
		}
	}

	return Classification{
		Lane:     scale.Degree(l),
		CentsOff: 1200 * math.Log2(freq/s[l]),
	}
}

// Classifier adds top-degree widening to Classify. Ti has no upper boundary,
// so a pitch just around it is pulled onto Ti from a wider band.
type Classifier struct {
	ToleranceCents float64
	TopFloorRatio  float64
	TopWidening    float64
}

func NewClassifier(cfg config.Config) Classifier {
	return Classifier{
		ToleranceCents: cfg.ControlToleranceCents,
		TopFloorRatio:  cfg.TopFloorRatio,
		TopWidening:    cfg.TopWidening,
	}
}

// InTune reports whether the classification lies within the tolerance.
func (c Classifier) InTune(cl Classification) bool {
	return cl.Ok() && math.Abs(cl.CentsOff) <= c.ToleranceCents
}

func (c Classifier) Classify(freq float64, s scale.Scale, b scale.Boundaries) Classification {
	cl := Classify(freq, s, b)
	if !cl.Ok() {
		return cl
	}

	ti := 1200 * math.Log2(freq/s[scale.Ti])
	if freq >= s[scale.La]*c.TopFloorRatio && math.Abs(ti) <= c.ToleranceCents*c.TopWidening {
		return Classification{Lane: scale.Ti, CentsOff: ti}
	}
	return cl
}
