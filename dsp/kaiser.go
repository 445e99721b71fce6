/*
NAME
  kaiser.go

DESCRIPTION
  kaiser.go implements a Kaiser-windowed FIR filter designer for
  lowpass, highpass, bandpass, and bandstop responses.
*/

package dsp

import (
	"fmt"
	"math"
)

// Kind selects the frequency response shape a Kaiser-windowed FIR is
// designed for.
type Kind int

const (
	LowPass Kind = iota
	HighPass
	BandPass
	BandStop
)

// KaiserTaps designs a symmetric, linear-phase FIR filter of the given
// Kind using the Kaiser window method. cutoff holds one cutoff frequency
// for LowPass/HighPass (cutoff[0]) or the lower/upper band edges for
// BandPass/BandStop. transitionHz is the desired transition bandwidth,
// attenDB the desired stopband attenuation, and gain the desired DC (or
// passband) gain. The returned slice has N+1 taps, symmetric about its
// midpoint.
func KaiserTaps(kind Kind, fs float64, cutoff [2]float64, transitionHz, attenDB, gain float64) ([]float64, error) {
	if fs <= 0 {
		return nil, fmt.Errorf("dsp: sample rate must be positive, got %v", fs)
	}
	nyq := fs / 2
	for _, c := range cutoff {
		if kind == BandPass || kind == BandStop {
			if c <= 0 || c >= nyq {
				return nil, fmt.Errorf("dsp: band edge %v out of range (0, %v)", c, nyq)
			}
		}
	}
	if (kind == LowPass || kind == HighPass) && (cutoff[0] <= 0 || cutoff[0] >= nyq) {
		return nil, fmt.Errorf("dsp: cutoff %v out of range (0, %v)", cutoff[0], nyq)
	}
	if transitionHz <= 0 {
		return nil, fmt.Errorf("dsp: transition width must be positive, got %v", transitionHz)
	}

	beta := kaiserBeta(attenDB)
	n := kaiserLength(attenDB, transitionHz, fs)
	if n%2 == 1 {
		n++ // Keep an odd tap count (even N) for a Type I linear-phase filter.
	}
	taps := make([]float64, n+1)
	mid := float64(n) / 2

	for i := 0; i <= n; i++ {
		m := float64(i) - mid
		taps[i] = idealImpulse(kind, cutoff, fs, m) * kaiserWindow(beta, float64(i), float64(n))
	}

	normalizeGain(taps, kind, cutoff, fs, gain)
	return taps, nil
}

// idealImpulse evaluates the ideal (infinite-length) impulse response of
// the requested filter shape at sample offset m from the center tap.
func idealImpulse(kind Kind, cutoff [2]float64, fs, m float64) float64 {
	switch kind {
	case LowPass:
		return sinc(2 * cutoff[0] / fs * m) * 2 * cutoff[0] / fs
	case HighPass:
		lp := sinc(2*cutoff[0]/fs*m) * 2 * cutoff[0] / fs
		return dirac(m) - lp
	case BandPass:
		lo := sinc(2*cutoff[0]/fs*m) * 2 * cutoff[0] / fs
		hi := sinc(2*cutoff[1]/fs*m) * 2 * cutoff[1] / fs
		return hi - lo
	case BandStop:
		lo := sinc(2*cutoff[0]/fs*m) * 2 * cutoff[0] / fs
		hi := sinc(2*cutoff[1]/fs*m) * 2 * cutoff[1] / fs
		return dirac(m) - (hi - lo)
	default:
		return 0
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

func dirac(m float64) float64 {
	if m == 0 {
		return 1
	}
	return 0
}

// kaiserBeta returns the Kaiser window shape parameter for the desired
// stopband attenuation, per Kaiser's empirical formula.
func kaiserBeta(attenDB float64) float64 {
	switch {
	case attenDB > 50:
		return 0.1102 * (attenDB - 8.7)
	case attenDB >= 21:
		return 0.5842*math.Pow(attenDB-21, 0.4) + 0.07886*(attenDB-21)
	default:
		return 0
	}
}

// kaiserLength returns the filter order N (tap count N+1) needed to reach
// the desired stopband attenuation over the desired transition width.
func kaiserLength(attenDB, transitionHz, fs float64) int {
	deltaOmega := 2 * math.Pi * transitionHz / fs
	n := (attenDB - 8) / (2.285 * deltaOmega)
	if n < 2 {
		n = 2
	}
	return int(math.Ceil(n))
}

// kaiserWindow evaluates the Kaiser window of length n+1 (tap count) at
// index i.
func kaiserWindow(beta, i, n float64) float64 {
	r := (2*i - n) / n
	return besselI0(beta*math.Sqrt(1-r*r)) / besselI0(beta)
}

// besselI0 evaluates the zeroth-order modified Bessel function of the
// first kind via its power series; this converges quickly for the beta
// values Kaiser design ever produces.
func besselI0(x float64) float64 {
	sum := 1.0
	term := 1.0
	for k := 1; k < 50; k++ {
		term *= (x / (2 * float64(k))) * (x / (2 * float64(k)))
		sum += term
		if term < 1e-15*sum {
			break
		}
	}
	return sum
}

// normalizeGain scales taps so the response at the filter's reference
// frequency (DC for LowPass/BandStop, Nyquist for HighPass, band center
// for BandPass) equals gain.
func normalizeGain(taps []float64, kind Kind, cutoff [2]float64, fs, gain float64) {
	var refHz float64
	switch kind {
	case LowPass, BandStop:
		refHz = 0
	case HighPass:
		refHz = fs / 2
	case BandPass:
		refHz = (cutoff[0] + cutoff[1]) / 2
	}
	mag := magnitudeAt(taps, refHz, fs)
	if mag == 0 {
		return
	}
	scale := gain / mag
	for i := range taps {
		taps[i] *= scale
	}
}

// magnitudeAt evaluates |H(e^jw)| for the given taps at frequency hz.
func magnitudeAt(taps []float64, hz, fs float64) float64 {
	w := 2 * math.Pi * hz / fs
	var re, im float64
	for n, h := range taps {
		re += h * math.Cos(w*float64(n))
		im -= h * math.Sin(w*float64(n))
	}
	return math.Hypot(re, im)
}
