package source

import (
	"github.com/gordonklaus/portaudio"
	"github.com/metalblueberry/solfege/pkg/circular"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/errors"
)

/*
 * Live capture from the default input device.
 *
 * The audio callback writes into a ring buffer; Frame copies out the most
 * recent samples. Frame is meant for a single reader, the tick loop.
 */
type Mic struct {
	stream     *portaudio.Stream
	ring       *circular.Buffer[float32]
	scratch    []float32
	sampleRate float64
}

/*
 * Stream callback, runs on the audio thread.
 */
func (this *Mic) process(in []float32) {
	this.ring.Enqueue(in...)
}

/*
 * Start capturing.
 */
func (this *Mic) Start() error {
	err := this.stream.Start()

	if err != nil {
		return errors.Wrapf(err, "start stream")
	}

	return nil
}

/*
 * The latest frameSize samples, oldest first. Before the buffer has filled
 * up, the oldest samples are silent.
 */
func (this *Mic) Frame(dst []float64) (tuner.Frame, error) {
	n := len(this.scratch)

	if cap(dst) < n {
		dst = make([]float64, n)
	}

	dst = dst[:n]
	err := this.ring.Retrieve(this.scratch)

	if err != nil {
		return tuner.Frame{}, errors.Wrapf(err, "read capture buffer")
	}

	for i, s := range this.scratch {
		dst[i] = float64(s)
	}

	return tuner.Frame{Samples: dst, SampleRate: this.sampleRate}, nil
}

/*
 * Stop capturing and release the audio host.
 */
func (this *Mic) Close() error {
	errStop := this.stream.Stop()
	errClose := this.stream.Close()
	errTerminate := portaudio.Terminate()

	switch {
	case errStop != nil:
		return errors.Wrapf(errStop, "stop stream")
	case errClose != nil:
		return errors.Wrapf(errClose, "close stream")
	case errTerminate != nil:
		return errors.Wrapf(errTerminate, "terminate")
	}

	return nil
}

func newMic(sampleRate float64, frameSize int) *Mic {
	return &Mic{
		ring:       circular.CreateBuffer[float32](frameSize),
		scratch:    make([]float32, frameSize),
		sampleRate: sampleRate,
	}
}

/*
 * Open the default input device, mono, at the given rate, keeping the last
 * frameSize samples.
 */
func OpenMic(sampleRate float64, frameSize int) (*Mic, error) {

	if sampleRate <= 0 || frameSize <= 0 {
		return nil, errors.Errorf("invalid capture format rate=%v frame=%v", sampleRate, frameSize)
	}

	err := portaudio.Initialize()

	if err != nil {
		return nil, errors.Wrapf(err, "initialize portaudio")
	}

	m := newMic(sampleRate, frameSize)

	m.stream, err = portaudio.OpenDefaultStream(1, 0, sampleRate, 0, m.process)

	if err != nil {
		portaudio.Terminate()
		return nil, errors.Wrapf(err, "open default input")
	}

	return m, nil
}
