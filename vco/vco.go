/*
NAME
  vco.go

DESCRIPTION
  vco.go implements a table-lookup sine oscillator with linear
  frequency mapping from a normalized control input, used to synthesize
  the VIS/picture tones on transmit. The receive side does not use it.
*/

// Package vco provides the voltage-controlled-oscillator abstraction
// the TX driver (encoder.Encoder) renders both the VIS tones and the
// scanline segments through: a table-lookup sine
// whose instantaneous frequency is a linear function of a normalized
// [0,1] control input.
package vco

import "math"

// tableSizeFactor sets the number of entries in the sine lookup table
// to twice the sample rate so no control frequency aliases across a
// single cycle, computed per-instance from the sample rate passed to
// New.
const tableSizeFactor = 2

// Oscillator is a table-lookup sine wave generator whose output frequency
// at each sample is base + gain*u table-entries per sample, where base
// and gain are derived from (FMin, Span) and the sample rate.
type Oscillator struct {
	table []float64
	fs    float64
	fMin  float64
	span  float64
	base  float64
	gain  float64
	phase float64
}

// New returns an Oscillator at sample rate fs (Hz) mapping a control
// input u in [0,1] linearly onto the frequency range [fMin, fMin+span].
// Two pairs are in common use for MMSSTV interoperability: (1080, 1220)
// for VIS/sync tones, and (1500, 800) or (2044, 256) for picture data
//.
func New(fs, fMin, span float64) *Oscillator {
	n := int(tableSizeFactor * fs)
	table := make([]float64, n)
	for i := range table {
		table[i] = math.Sin(2 * math.Pi * float64(i) / float64(n))
	}
	return &Oscillator{
		table: table,
		fs:    fs,
		fMin:  fMin,
		span:  span,
		base:  fs * fMin / fs * (float64(n) / fs),
		gain:  fs * span / fs * (float64(n) / fs),
	}
}

// Step advances the oscillator by one sample using control input u
// (conceptually in [0,1]; values outside that range are not clamped here
// so a caller can intentionally drive a precise target frequency) and
// returns the sine output for the resulting phase. A caller wanting bare
// frequency synthesis (rather than a normalized-control sweep) can pass
// u = (freq-FMin)/Span.
func (o *Oscillator) Step(u float64) float64 {
	o.phase += o.base + o.gain*u
	n := float64(len(o.table))
	for o.phase >= n {
		o.phase -= n
	}
	for o.phase < 0 {
		o.phase += n
	}
	return o.table[int(o.phase)]
}

// StepFreq advances the oscillator directly at freq Hz, independent of
// the (FMin, Span) mapping; this is how the TX scheduler drives a
// scheduled segment's exact frequency without reverse-deriving a control
// value.
func (o *Oscillator) StepFreq(freqHz float64) float64 {
	u := (freqHz - o.fMin) / o.span
	return o.Step(u)
}

// Reset zeroes the oscillator's phase.
func (o *Oscillator) Reset() { o.phase = 0 }

// FMin and Span return the oscillator's configured frequency mapping.
func (o *Oscillator) FMin() float64 { return o.fMin }
func (o *Oscillator) Span() float64 { return o.span }
