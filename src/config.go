/* Decode configuration */
package tapewolf

/*------------------------------------------------------------------
 *
 * Purpose:	Hold the tunable knobs for one decode run.
 *
 * Description:	The 1200/2400 Hz cycle boundaries were determined
 *		empirically and drift a little from recording to
 *		recording (6 bit A/D converters, stretched tape,
 *		noise...), so all four are runtime tunable rather
 *		than canonical constants.
 *
 *		Everything is an explicit value handed to the decoder;
 *		nothing persists across runs.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cycle length boundaries, in samples at 44100 Hz, found by testing
// against real recordings rather than computed from 44100/2400 and
// 44100/1200.
const (
	DefaultOneLow  = 18
	DefaultOneHigh = 31
	DefaultZeroLow = 32
)

// Sanity limit on any threshold.
const maxThreshold = 10000

// Config is passed to the decode entry point and affects only the cycle
// classifier boundaries and the diagnostic volume.
type Config struct {
	OneLow   int `yaml:"one_low"`   /* Shortest cycle accepted as a 1. */
	OneHigh  int `yaml:"one_high"`  /* Longest cycle accepted as a 1. */
	ZeroLow  int `yaml:"zero_low"`  /* Shortest cycle accepted as a 0. */
	ZeroHigh int `yaml:"zero_high"` /* Longest cycle accepted as a 0.  0 means unbounded. */

	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`

	// If set, each decoded program is preceded by a time stamp in
	// "strftime" format.
	TimestampFormat string `yaml:"timestamp_format"`
}

func DefaultConfig() Config {
	return Config{
		OneLow:  DefaultOneLow,
		OneHigh: DefaultOneHigh,
		ZeroLow: DefaultZeroLow,
	}
}

// LoadConfig reads a YAML decode profile over the defaults.  Profiles keep
// per-recording threshold tweaks out of your shell history.
func LoadConfig(path string) (Config, error) {
	var config = DefaultConfig()

	var data, readErr = os.ReadFile(path)
	if readErr != nil {
		return config, fmt.Errorf("reading decode profile %s: %w", path, readErr)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing decode profile %s: %w", path, err)
	}

	return config, nil
}

// Validate is for callers.  The classifier itself does no cross checking
// of the ranges - garbage in, garbage classification out.
func (c Config) Validate() error {
	if c.OneLow <= 0 {
		return fmt.Errorf("one-low must be positive, got %d", c.OneLow)
	}

	if c.OneHigh < 0 || c.ZeroLow < 0 || c.ZeroHigh < 0 {
		return fmt.Errorf("thresholds may not be negative")
	}

	for _, v := range []int{c.OneLow, c.OneHigh, c.ZeroLow, c.ZeroHigh} {
		if v > maxThreshold {
			return fmt.Errorf("threshold %d too large (max %d)", v, maxThreshold)
		}
	}

	if c.OneHigh < c.OneLow {
		return fmt.Errorf("one range inverted: %d..%d", c.OneLow, c.OneHigh)
	}

	if c.ZeroHigh != 0 && c.ZeroHigh < c.ZeroLow {
		return fmt.Errorf("zero range inverted: %d..%d", c.ZeroLow, c.ZeroHigh)
	}

	var oneBelowZero = c.OneHigh < c.ZeroLow
	var zeroBelowOne = c.ZeroHigh != 0 && c.ZeroHigh < c.OneLow

	if !oneBelowZero && !zeroBelowOne {
		return fmt.Errorf("one range %d..%d overlaps zero range %d..%d",
			c.OneLow, c.OneHigh, c.ZeroLow, c.ZeroHigh)
	}

	return nil
}
