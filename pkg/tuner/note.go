package tuner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ossrs/go-oryx-lib/errors"
)

const (
	A4Frequency = 440.0
	A4Midi      = 69
)

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]int{
	"DB": 1, "EB": 3, "GB": 6, "AB": 8, "BB": 10,
}

/*
 * Data structure representing the closest chromatic note to a frequency.
 */
type Note struct {
	Frequency float64
	Midi      float64
	Nearest   int
	Class     int
	Octave    int
	Name      string
	Cents     float64
}

/*
 * Returns the note name with octave, e.g. "A4".
 */
func (this Note) Label() string {
	return fmt.Sprintf("%s%d", this.Name, this.Octave)
}

/*
 * The note of a given pitch class closest to a frequency.
 */
type Target struct {
	Midi      int
	Frequency float64
	Cents     float64
	Label     string
}

/*
 * Returns the deviation of freq from ref in cents.
 */
func Cents(freq float64, ref float64) float64 {
	return 1200.0 * math.Log2(freq/ref)
}

/*
 * Fractional MIDI note number of a frequency.
 */
func FreqToMidi(freq float64) float64 {
	return A4Midi + 12.0*math.Log2(freq/A4Frequency)
}

/*
 * Frequency of a (possibly fractional) MIDI note number.
 */
func MidiToFreq(midi float64) float64 {
	return A4Frequency * math.Pow(2.0, (midi-A4Midi)/12.0)
}

func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

func octaveOf(midi int) int {
	return int(math.Floor(float64(midi)/12.0)) - 1
}

func classOf(midi int) int {
	return ((midi % 12) + 12) % 12
}

/*
 * Describe a frequency tuner-style. Returns false for non-positive or
 * non-finite input.
 */
func Describe(freq float64) (Note, bool) {

	if !(freq > 0) || math.IsInf(freq, 0) {
		return Note{}, false
	}

	midi := FreqToMidi(freq)
	nearest := round(midi)
	class := classOf(nearest)

	note := Note{
		Frequency: freq,
		Midi:      midi,
		Nearest:   nearest,
		Class:     class,
		Octave:    octaveOf(nearest),
		Name:      noteNames[class],
		Cents:     (midi - float64(nearest)) * 100.0,
	}

	return note, true
}

/*
 * Find the note of pitch class (0 = C .. 11 = B) closest to freq.
 */
func NearestOfClass(freq float64, class int) (Target, bool) {

	if !(freq > 0) || math.IsInf(freq, 0) || class < 0 || class > 11 {
		return Target{}, false
	}

	midi := FreqToMidi(freq)
	k := round((midi - float64(class)) / 12.0)
	targetMidi := class + 12*k

	target := Target{
		Midi:      targetMidi,
		Frequency: MidiToFreq(float64(targetMidi)),
		Cents:     (midi - float64(targetMidi)) * 100.0,
		Label:     fmt.Sprintf("%s%d", noteNames[class], octaveOf(targetMidi)),
	}

	return target, true
}

/*
 * Parse a note like "C4", "F#3" or "Bb2", or a plain frequency in Hz.
 */
func ParseNote(s string) (float64, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, errors.New("empty note")
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {

		if !(f > 0) || math.IsInf(f, 0) {
			return 0, errors.Errorf("invalid frequency %v", s)
		}

		return f, nil
	}

	upper := strings.ToUpper(s)
	split := strings.IndexAny(upper, "-0123456789")

	if split <= 0 {
		return 0, errors.Errorf("invalid note %v", s)
	}

	name := upper[:split]
	octave, err := strconv.Atoi(upper[split:])

	if err != nil {
		return 0, errors.Wrapf(err, "parse octave of %v", s)
	}

	class := -1

	for i, n := range noteNames {

		if n == name {
			class = i
			break
		}

	}

	if c, ok := flatNames[name]; ok {
		class = c
	}

	if class < 0 {
		return 0, errors.Errorf("unknown note name %v", s)
	}

	midi := (octave+1)*12 + class
	return MidiToFreq(float64(midi)), nil
}
