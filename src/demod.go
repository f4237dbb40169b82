/* Recover cycle timings from the sampled waveform */
package tapewolf

/*------------------------------------------------------------------
 *
 * Purpose:	Turn raw PCM samples into classified FSK cycles.
 *
 * Description:	A 0 is one cycle of 1200 Hz, a 1 is one cycle of
 *		2400 Hz, giving roughly 1500 baud.  At 44100 samples
 *		per second a 1 is ~18.4 samples per cycle and a 0 is
 *		~36.8, so measuring the distance between falling zero
 *		crossings identifies the frequency without any real
 *		DSP.  Cheap recordings wobble, hence the ranges.
 *
 *------------------------------------------------------------------*/

import (
	"github.com/charmbracelet/log"
)

type cycleClass int

const (
	cycleNoise cycleClass = iota /* Outside both ranges - dropped. */
	cycleZero
	cycleOne
)

// classifyCycle buckets a measured cycle length, in samples, using the
// configured closed intervals.  Lengths in the gap between ranges (or
// below both) are noise.
func classifyCycle(n int, c *Config) cycleClass {
	switch {
	case n >= c.OneLow && n <= c.OneHigh:
		return cycleOne
	case n >= c.ZeroLow && (c.ZeroHigh == 0 || n <= c.ZeroHigh):
		return cycleZero
	default:
		return cycleNoise
	}
}

// demodulator measures the sample count between falling zero crossings.
// One instance per decode run; it is not safe for concurrent use and
// doesn't need to be.
type demodulator struct {
	prev    int16 /* Previous sample, for edge detection. */
	count   int   /* Samples since the last falling crossing. */
	started bool  /* Seen a crossing yet?  The first one only starts the counter. */
}

// Feed consumes one sample.  At each falling zero crossing after the
// first it reports the completed cycle length.
func (d *demodulator) Feed(s int16) (int, bool) {
	var n int
	var complete bool

	if s < 0 && d.prev >= 0 {
		/* Falling zero crossing */
		if d.started {
			n = d.count
			complete = true
		} else {
			d.started = true
		}

		d.count = 0
	}

	d.count++
	d.prev = s

	return n, complete
}

// debugCycle logs a rejected cycle measurement.  Separate function so the
// hot loop stays tidy.
func debugCycle(n int) {
	log.Debug("not a 1200/2400 Hz waveform", "samples", n)
}
