package tuner

import (
	"math"
	"math/cmplx"

	"github.com/andrepxx/go-dsp-guitar/fft"
	"github.com/metalblueberry/solfege/pkg/config"
)

/*
 * Data structure representing one frame of audio handed over by the host.
 */
type Frame struct {
	Samples    []float64
	SampleRate float64
}

/*
 * Data structure representing the result of a pitch analysis.
 */
type Result struct {
	Frequency float64
	RMS       float64
	Clarity   float64
}

/*
 * Why a frame produced no pitch.
 */
type Reason int

const (
	Detected Reason = iota
	TooQuiet
	NotPeriodic
	OutOfRange
	Malformed
)

/*
 * Returns a short identifier for the reason.
 */
func (r Reason) String() string {
	switch r {
	case Detected:
		return "detected"
	case TooQuiet:
		return "too-quiet"
	case NotPeriodic:
		return "not-periodic"
	case OutOfRange:
		return "out-of-range"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

/*
 * Returns guidance text a host may show the singer.
 */
func (r Reason) Hint() string {
	switch r {
	case TooQuiet:
		return "Sing a little louder or move closer to the mic."
	case NotPeriodic:
		return "Try a steady vowel (\"doo\") instead of speaking."
	case OutOfRange:
		return "That pitch is outside the range we can track."
	case Malformed:
		return "No usable audio from the input."
	default:
		return ""
	}
}

/*
 * One cent, the tolerance on the frequency range after refinement.
 */
const rangeSlack = 1.0005777895065548

/*
 * Detection gates of the estimator.
 */
type Settings struct {
	MinFreq     float64
	MaxFreq     float64
	MinRMS      float64
	MinClarity  float64
	OctaveRatio float64
}

/*
 * Extracts the estimator settings from the engine configuration.
 */
func SettingsFrom(cfg config.Config) Settings {
	return Settings{
		MinFreq:     cfg.MinFreqHz,
		MaxFreq:     cfg.MaxFreqHz,
		MinRMS:      cfg.MinRMS,
		MinClarity:  cfg.MinClarity,
		OctaveRatio: cfg.OctaveRatio,
	}
}

/*
 * Data structure representing a pitch estimator.
 *
 * It holds no state besides scratch buffers, which are sized on the first
 * call and reused while the frame length stays the same. An estimator must
 * not be shared between goroutines.
 */
type Estimator struct {
	settings         Settings
	fourierTransform fft.FourierTransform
	bufSignal        []float64
	bufEnergy        []float64
	bufCorrelation   []float64
	bufFFT           []complex128
	scale            float64
}

/*
 * Returns the settings the estimator was created with.
 */
func (this *Estimator) Settings() Settings {
	return this.settings
}

/*
 * Make sure the scratch buffers fit a frame of n samples.
 */
func (this *Estimator) prepare(n int) {
	twoN := uint64(2 * n)
	fftSize, _ := fft.NextPowerOfTwo(twoN)

	/*
	 * Ensure that signal and energy buffers are of correct length.
	 */
	if len(this.bufSignal) != n {
		this.bufSignal = make([]float64, n)
		this.bufEnergy = make([]float64, n+1)
	}

	/*
	 * Ensure that correlation buffer is of correct length.
	 */
	if uint64(len(this.bufCorrelation)) != fftSize {
		this.bufCorrelation = make([]float64, fftSize)
	}

	/*
	 * Ensure that FFT buffer is of correct length.
	 */
	if uint64(len(this.bufFFT)) != fftSize {
		this.bufFFT = make([]complex128, fftSize)
	}

}

/*
 * Calculate the raw autocorrelation of the signal buffer.
 *
 * The signal is zero-padded to at least twice its length so the circular
 * correlation of the FFT equals the linear one.
 */
func (this *Estimator) autocorrelate() bool {
	n := len(this.bufSignal)
	bufCorrelation := this.bufCorrelation
	bufFFT := this.bufFFT
	copy(bufCorrelation[0:n], this.bufSignal)
	fft.ZeroFloat(bufCorrelation[n:])
	ft := this.fourierTransform
	err := ft.RealFourier(bufCorrelation, bufFFT, fft.SCALING_DEFAULT)

	/*
	 * Verify that the forward FFT was calculated successfully.
	 */
	if err != nil {
		return false
	}

	/*
	 * Multiply each element of the spectrum with its complex conjugate.
	 */
	for i, elem := range bufFFT {
		elemConj := cmplx.Conj(elem)
		bufFFT[i] = elem * elemConj
	}

	err = ft.RealInverseFourier(bufFFT, bufCorrelation, fft.SCALING_DEFAULT)

	/*
	 * Verify that the inverse FFT was calculated successfully.
	 */
	if err != nil {
		return false
	}

	/*
	 * Lag zero holds the signal energy up to the transform's scaling, which
	 * lets us undo that scaling without depending on its convention.
	 */
	energy := this.bufEnergy[n]
	zeroLag := bufCorrelation[0]

	if !(zeroLag > 0) || !(energy > 0) {
		return false
	}

	this.scale = energy / zeroLag
	return true
}

/*
 * Normalized autocorrelation at a lag: the inner product of the signal with
 * its shifted copy over the square root of both windows' energies.
 */
func (this *Estimator) correlation(lag int) float64 {
	n := len(this.bufSignal)

	if lag < 1 || lag >= n {
		return 0.0
	}

	energy := this.bufEnergy
	head := energy[n-lag]
	tail := energy[n] - energy[lag]
	denom := head * tail

	if !(denom > 0) {
		return 0.0
	}

	return this.bufCorrelation[lag] * this.scale / math.Sqrt(denom)
}

/*
 * A periodic signal correlates nearly as well at every multiple of its
 * period. Returns the shortest lag up to bestLag that is a local maximum of
 * the correlation and reaches threshold, so the fundamental wins over a
 * lock on a multiple of its period.
 *
 * A peak at minLag only needs to beat its right neighbour: the true period
 * may lie just below the range, and refinement then moves it out.
 */
func (this *Estimator) firstPeak(minLag int, bestLag int, threshold float64) int {

	for lag := minLag; lag < bestLag; lag++ {
		corr := this.correlation(lag)

		if corr < threshold || corr < this.correlation(lag+1) {
			continue
		}

		if lag > minLag && corr < this.correlation(lag-1) {
			continue
		}

		return lag
	}

	return bestLag
}

/*
 * Estimate the fundamental frequency of a frame.
 *
 * Returns the result and Detected, or nil and the reason nothing was found.
 */
func (this *Estimator) Estimate(frame Frame) (*Result, Reason) {
	samples := frame.Samples
	n := len(samples)
	sampleRate := frame.SampleRate
	settings := this.settings

	/*
	 * Reject frames we cannot analyze at all.
	 */
	if n == 0 || !(sampleRate > 0) || math.IsInf(sampleRate, 0) {
		return nil, Malformed
	}

	sum := 0.0
	sumSq := 0.0

	/*
	 * Calculate mean and RMS of the raw signal.
	 */
	for _, v := range samples {

		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, Malformed
		}

		sum += v
		sumSq += v * v
	}

	nFloat := float64(n)
	mean := sum / nFloat
	rms := math.Sqrt(sumSq / nFloat)

	if rms < settings.MinRMS {
		return nil, TooQuiet
	}

	minLag := int(sampleRate / settings.MaxFreq)
	maxLag := int(sampleRate / settings.MinFreq)

	/*
	 * Keep a neighbour on each side of every lag for the refinement.
	 */
	if minLag < 1 {
		minLag = 1
	}

	if maxLag > n-2 {
		maxLag = n - 2
	}

	if maxLag < minLag {
		return nil, Malformed
	}

	this.prepare(n)
	signal := this.bufSignal
	energy := this.bufEnergy
	energy[0] = 0.0

	/*
	 * Remove DC and accumulate the energy prefix sums.
	 */
	for i, v := range samples {
		x := v - mean
		signal[i] = x
		energy[i+1] = energy[i] + x*x
	}

	if !this.autocorrelate() {
		return nil, NotPeriodic
	}

	bestLag := -1
	bestCorr := 0.0

	/*
	 * Find the lag with the strongest normalized correlation.
	 */
	for lag := minLag; lag <= maxLag; lag++ {
		corr := this.correlation(lag)

		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}

	}

	if bestLag < 0 || bestCorr < settings.MinClarity {
		return nil, NotPeriodic
	}

	lag := this.firstPeak(minLag, bestLag, settings.OctaveRatio*bestCorr)

	valueLeft := this.correlation(lag - 1)
	value := this.correlation(lag)
	valueRight := this.correlation(lag + 1)
	denominator := valueLeft - 2.0*value + valueRight
	shiftEstimation := 0.0

	/*
	 * Fit a parabola through the peak and its neighbours and limit the
	 * shift estimation to plus/minus one sample.
	 */
	if math.Abs(denominator) > 1e-9 {
		shiftEstimation = 0.5 * (valueLeft - valueRight) / denominator

		if shiftEstimation < -1.0 {
			shiftEstimation = -1.0
		} else if shiftEstimation > 1.0 {
			shiftEstimation = 1.0
		}

	}

	frequency := sampleRate / (float64(lag) + shiftEstimation)

	if math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, OutOfRange
	}

	/*
	 * The refinement may land a hair outside the range for a tone right at
	 * its edge.
	 */
	if frequency < settings.MinFreq/rangeSlack || frequency > settings.MaxFreq*rangeSlack {
		return nil, OutOfRange
	}

	result := Result{
		Frequency: frequency,
		RMS:       rms,
		Clarity:   bestCorr,
	}

	return &result, Detected
}

/*
 * Creates a pitch estimator.
 */
func CreateEstimator(settings Settings) *Estimator {
	ft := fft.CreateFourierTransform()

	/*
	 * Create data structure for a pitch estimator.
	 */
	e := Estimator{
		settings:         settings,
		fourierTransform: ft,
	}

	return &e
}
