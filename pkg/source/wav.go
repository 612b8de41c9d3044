package source

import (
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/errors"
)

/*
 * A decoded recording, mono, normalized to [-1, 1].
 */
type Clip struct {
	Samples    []float64
	SampleRate float64
}

/*
 * Length of the clip in seconds.
 */
func (this *Clip) Duration() float64 {

	if this.SampleRate <= 0 {
		return 0.0
	}

	return float64(len(this.Samples)) / this.SampleRate
}

/*
 * Returns the size samples that end at time t, like a microphone would
 * deliver them at that moment. Samples before the start of the clip are
 * silent. The frame is written into dst when it has the right capacity.
 */
func (this *Clip) FrameAt(t float64, size int, dst []float64) tuner.Frame {

	if cap(dst) < size {
		dst = make([]float64, size)
	}

	dst = dst[:size]
	end := int(math.Round(t * this.SampleRate))
	start := end - size

	for i := range dst {
		idx := start + i

		if idx >= 0 && idx < len(this.Samples) {
			dst[i] = this.Samples[idx]
		} else {
			dst[i] = 0.0
		}

	}

	return tuner.Frame{Samples: dst, SampleRate: this.SampleRate}
}

/*
 * Decode a PCM WAV stream. Only the first channel is kept.
 */
func ReadWAV(r io.ReadSeeker) (*Clip, error) {
	dec := wav.NewDecoder(r)

	if !dec.IsValidFile() {
		return nil, errors.New("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()

	if err != nil {
		return nil, errors.Wrapf(err, "decode pcm")
	}

	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, errors.Errorf("invalid format %+v", buf.Format)
	}

	depth := buf.SourceBitDepth

	if depth <= 0 {
		depth = int(dec.BitDepth)
	}

	if depth <= 0 || depth > 32 {
		return nil, errors.Errorf("unsupported bit depth %v", depth)
	}

	full := float64(int64(1) << uint(depth-1))
	offset := 0.0

	/*
	 * 8 bit PCM is unsigned, centred on 128.
	 */
	if depth == 8 {
		offset = full
	}

	channels := buf.Format.NumChannels
	n := len(buf.Data) / channels
	samples := make([]float64, n)

	for i := range samples {
		samples[i] = (float64(buf.Data[i*channels]) - offset) / full
	}

	c := Clip{
		Samples:    samples,
		SampleRate: float64(buf.Format.SampleRate),
	}

	return &c, nil
}

/*
 * Open and decode a WAV file.
 */
func OpenWAV(path string) (*Clip, error) {
	f, err := os.Open(path)

	if err != nil {
		return nil, errors.Wrapf(err, "open %v", path)
	}

	defer f.Close()
	c, err := ReadWAV(f)

	if err != nil {
		return nil, errors.Wrapf(err, "read %v", path)
	}

	return c, nil
}

/*
 * Encode mono samples as 16 bit PCM WAV.
 */
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	format := &audio.Format{SampleRate: sampleRate, NumChannels: 1}
	data := make([]int, len(samples))

	for i, s := range samples {
		s = math.Max(-1.0, math.Min(1.0, s))
		data[i] = int(math.Round(s * math.MaxInt16))
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{Data: data, Format: format, SourceBitDepth: 16}

	if err := enc.Write(buf); err != nil {
		return errors.Wrapf(err, "write samples")
	}

	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "close encoder")
	}

	return nil
}
