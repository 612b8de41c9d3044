package scale

import (
	"strings"

	"github.com/ossrs/go-oryx-lib/errors"
)

// Degree is a solfège scale position, Do (0) through Ti (6).
type Degree int

// NoDegree stands for "no lane".
const NoDegree Degree = -1

const (
	Do Degree = iota
	Re
	Mi
	Fa
	Sol
	La
	Ti
)

// Degrees is the number of positions in a scale.
const Degrees = 7

var degreeNames = [Degrees]string{"DO", "RE", "MI", "FA", "SOL", "LA", "TI"}

// semitone offsets from Do
var semitones = [Degrees]float64{0, 2, 4, 5, 7, 9, 11}

// alternative spellings accepted in level sequences
var aliases = map[string]Degree{
	"SO": Sol,
	"SI": Ti,
}

var ErrUnknownDegree = errors.New("unknown degree")

func (d Degree) String() string {
	if !d.Valid() {
		return "--"
	}
	return degreeNames[d]
}

func (d Degree) Valid() bool {
	return d >= Do && d <= Ti
}

// Semitones returns the offset of the degree above Do.
func (d Degree) Semitones() float64 {
	if !d.Valid() {
		return 0
	}
	return semitones[d]
}

// ParseDegree resolves a degree name, case-insensitive, including aliases.
func ParseDegree(name string) (Degree, error) {
	token := strings.ToUpper(strings.TrimSpace(name))

	if d, ok := aliases[token]; ok {
		return d, nil
	}

	for i, n := range degreeNames {
		if n == token {
			return Degree(i), nil
		}
	}

	return NoDegree, errors.Wrapf(ErrUnknownDegree, "%q", name)
}

// ParseSequence resolves a whitespace, comma or dash separated list of degree names.
func ParseSequence(seq string) ([]Degree, error) {
	tokens := strings.FieldsFunc(seq, func(r rune) bool {
		return r == ',' || r == '-' || r == ' ' || r == '\t' || r == '\n'
	})

	out := make([]Degree, 0, len(tokens))
	for i, tok := range tokens {
		d, err := ParseDegree(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "token %d", i)
		}
		out = append(out, d)
	}

	return out, nil
}
