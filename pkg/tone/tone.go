package tone

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"

	"github.com/hajimehoshi/oto/v2"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
)

const (
	attackSeconds = 0.02
	floorGain     = 0.0001
	peakGain      = 0.2
	// The oscillator keeps running at floor gain briefly after the decay.
	tailSeconds = 0.02
)

var ErrNotReady = errors.New("audio device not ready")

// Gain returns the envelope at t seconds into a tone of the given length:
// exponential attack to peakGain, then exponential decay back to floorGain.
func Gain(t, seconds float64) float64 {
	switch {
	case t < 0:
		return floorGain
	case t < attackSeconds:
		return floorGain * math.Pow(peakGain/floorGain, t/attackSeconds)
	case t < seconds:
		return peakGain * math.Pow(floorGain/peakGain, (t-attackSeconds)/(seconds-attackSeconds))
	}
	return floorGain
}

// Synth renders a sine reference tone.
func Synth(freq, seconds float64, sampleRate int) []float64 {
	if freq <= 0 || seconds <= 0 || sampleRate <= 0 {
		return nil
	}

	rate := float64(sampleRate)
	samples := make([]float64, int((seconds+tailSeconds)*rate))
	for i := range samples {
		t := float64(i) / rate
		samples[i] = Gain(t, seconds) * math.Sin(2*math.Pi*freq*t)
	}
	return samples
}

// EncodePCM converts samples to signed 16 bit little endian.
func EncodePCM(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(math.Round(s*math.MaxInt16))))
	}
	return out
}

// Player plays reference tones on the default output device. A new tone
// cuts off the one still playing.
type Player struct {
	ctx        *oto.Context
	ready      chan struct{}
	sampleRate int

	lock    sync.Mutex
	current oto.Player
}

func NewPlayer(sampleRate int) (*Player, error) {
	ctx, ready, err := oto.NewContext(sampleRate, 1, 2)
	if err != nil {
		return nil, errors.Wrapf(err, "open audio output rate=%v", sampleRate)
	}

	return &Player{ctx: ctx, ready: ready, sampleRate: sampleRate}, nil
}

// Play starts a tone and returns immediately.
func (p *Player) Play(ctx context.Context, freq, seconds float64) error {
	select {
	case <-p.ready:
	default:
		return ErrNotReady
	}

	samples := Synth(freq, seconds, p.sampleRate)
	if len(samples) == 0 {
		return errors.Errorf("invalid tone %vHz for %vs", freq, seconds)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	if p.current != nil {
		if err := p.current.Close(); err != nil {
			logger.Wf(ctx, "close previous tone, err %+v", err)
		}
	}

	p.current = p.ctx.NewPlayer(bytes.NewReader(EncodePCM(samples)))
	p.current.Play()
	logger.Tf(ctx, "tone %.2fHz for %.1fs", freq, seconds)
	return nil
}

// Close stops the tone in progress.
func (p *Player) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if p.current == nil {
		return nil
	}

	err := p.current.Close()
	p.current = nil
	return err
}
