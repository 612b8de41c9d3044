package tuner

import (
	"math"
)

/*
 * Runs an estimator at a bounded rate, independent of how often the host
 * ticks, and remembers the latest outcome in between.
 */
type Analyzer struct {
	estimator *Estimator
	interval  float64
	acc       float64
	result    *Result
	reason    Reason
}

/*
 * Feed elapsed time and the current frame.
 *
 * When enough time has accumulated the estimator runs and analyzed is true;
 * elapsed is then the time since the previous analysis. Otherwise the cached
 * outcome is returned with analyzed set to false.
 */
func (this *Analyzer) Update(dt float64, frame Frame) (result *Result, reason Reason, elapsed float64, analyzed bool) {

	if dt > 0 && !math.IsInf(dt, 0) {
		this.acc += dt
	}

	/*
	 * Tolerate rounding when the tick rate is an exact multiple of the
	 * analysis rate.
	 */
	if this.acc+1e-9 < this.interval {
		return this.result, this.reason, 0.0, false
	}

	elapsed = this.acc
	this.acc = 0.0
	this.result, this.reason = this.estimator.Estimate(frame)
	return this.result, this.reason, elapsed, true
}

/*
 * Returns the latest outcome without advancing time.
 */
func (this *Analyzer) Latest() (*Result, Reason) {
	return this.result, this.reason
}

/*
 * Drop the cached outcome and the accumulated time.
 */
func (this *Analyzer) Reset() {
	this.acc = 0.0
	this.result = nil
	this.reason = TooQuiet
}

/*
 * Creates an analyzer running the estimator at most rate times per second.
 */
func CreateAnalyzer(estimator *Estimator, rate float64) *Analyzer {
	interval := 0.0

	if rate > 0 {
		interval = 1.0 / rate
	}

	a := Analyzer{
		estimator: estimator,
		interval:  interval,
		reason:    TooQuiet,
	}

	return &a
}
