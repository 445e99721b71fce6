/*
NAME
  biquad.go

DESCRIPTION
  biquad.go implements cascaded biquad IIR filters (Butterworth and
  Chebyshev Type I families, up to order 16) built via the analog
  prototype + bilinear transform, the standard construction for
  realizing an arbitrary-order filter as a cascade of second-order
  sections.
*/

package dsp

import (
	"fmt"
	"math"
)

// Family selects the analog prototype a Cascade is designed from.
type Family int

const (
	Butterworth Family = iota
	Chebyshev
)

// MaxOrder is the largest filter order Cascade supports.
const MaxOrder = 16

// stage is one second-order section of a Cascade: three numerator
// coefficients (b0, b1, b2) and two denominator coefficients (a1, a2,
// with a0 normalized to 1), plus the two delay elements the section owns.
type stage struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func (s *stage) process(x float64) float64 {
	y := s.b0*x + s.z1
	y = flushDenormal(y)
	s.z1 = s.b1*x - s.a1*y + s.z2
	s.z2 = s.b2*x - s.a2*y
	return y
}

// Cascade is a cascaded biquad IIR lowpass filter of even or odd order,
// realized as ceil(order/2) second-order sections in transposed direct
// form II.
type Cascade struct {
	stages []stage
}

// NewButterworthLowPass designs a Butterworth lowpass Cascade of the given
// order with cutoff frequency cutoffHz at sample rate fs.
func NewButterworthLowPass(order int, cutoffHz, fs float64) (*Cascade, error) {
	poles, err := butterworthPoles(order)
	if err != nil {
		return nil, err
	}
	return newCascadeFromPoles(poles, cutoffHz, fs)
}

// NewChebyshevLowPass designs a Chebyshev Type I lowpass Cascade of the
// given order, passband ripple rippleDB, and cutoff frequency cutoffHz at
// sample rate fs.
func NewChebyshevLowPass(order int, rippleDB, cutoffHz, fs float64) (*Cascade, error) {
	poles, err := chebyshevPoles(order, rippleDB)
	if err != nil {
		return nil, err
	}
	return newCascadeFromPoles(poles, cutoffHz, fs)
}

// Process runs one sample through every stage of the cascade in order and
// returns the final stage's output.
func (c *Cascade) Process(x float64) float64 {
	y := x
	for i := range c.stages {
		y = c.stages[i].process(y)
	}
	return y
}

// Reset zeroes every stage's delay elements.
func (c *Cascade) Reset() {
	for i := range c.stages {
		c.stages[i].z1, c.stages[i].z2 = 0, 0
	}
}

func validateOrder(order int) error {
	if order < 1 || order > MaxOrder {
		return fmt.Errorf("dsp: order %d out of range [1,%d]", order, MaxOrder)
	}
	return nil
}

// butterworthPoles returns the left-half-plane poles of a normalized
// (wc=1) analog Butterworth lowpass prototype of the given order.
func butterworthPoles(order int) ([]complex128, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+order+1) / float64(2*order)
		poles[k] = complex(math.Cos(theta), math.Sin(theta))
	}
	return poles, nil
}

// chebyshevPoles returns the left-half-plane poles of a normalized analog
// Chebyshev Type I lowpass prototype of the given order and ripple.
func chebyshevPoles(order int, rippleDB float64) ([]complex128, error) {
	if err := validateOrder(order); err != nil {
		return nil, err
	}
	if rippleDB <= 0 {
		return nil, fmt.Errorf("dsp: ripple must be positive, got %v", rippleDB)
	}
	eps := math.Sqrt(math.Pow(10, rippleDB/10) - 1)
	v0 := math.Asinh(1/eps) / float64(order)
	sinhV0, coshV0 := math.Sinh(v0), math.Cosh(v0)
	poles := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+1) / float64(2*order)
		re := -sinhV0 * math.Sin(theta)
		im := coshV0 * math.Cos(theta)
		poles[k] = complex(re, im)
	}
	return poles, nil
}

// newCascadeFromPoles pairs conjugate analog poles (normalized to wc=1)
// into second-order sections, scales each pole pair by the prewarped
// cutoff frequency, and bilinear-transforms the result into a digital
// biquad cascade.
func newCascadeFromPoles(poles []complex128, cutoffHz, fs float64) (*Cascade, error) {
	if cutoffHz <= 0 || cutoffHz >= fs/2 {
		return nil, fmt.Errorf("dsp: cutoff %v out of range (0, %v)", cutoffHz, fs/2)
	}
	wc := 2 * fs * math.Tan(math.Pi*cutoffHz/fs)

	// Pair poles: complex-conjugate pairs form one 2nd order section; a
	// lone real pole (possible for odd order) is paired with itself,
	// forming a 2nd order section with a doubled real pole.
	paired := pairConjugates(poles)

	c := &Cascade{stages: make([]stage, len(paired))}
	for i, pair := range paired {
		c.stages[i] = bilinearSection(pair[0], pair[1], wc, fs)
	}
	return c, nil
}

// pairConjugates groups poles into conjugate pairs (or singletons for an
// unpaired real pole), each returned as a two-element array; an unpaired
// slot is filled with its own value, folding the section into one with a
// doubled real pole (harmless for our purposes since this module only
// ever designs even-order envelope filters).
func pairConjugates(poles []complex128) [][2]complex128 {
	used := make([]bool, len(poles))
	var pairs [][2]complex128
	for i := range poles {
		if used[i] {
			continue
		}
		used[i] = true
		if imag(poles[i]) == 0 {
			pairs = append(pairs, [2]complex128{poles[i], poles[i]})
			continue
		}
		matched := false
		for j := i + 1; j < len(poles); j++ {
			if used[j] {
				continue
			}
			if math.Abs(imag(poles[j])+imag(poles[i])) < 1e-9 && math.Abs(real(poles[j])-real(poles[i])) < 1e-9 {
				used[j] = true
				pairs = append(pairs, [2]complex128{poles[i], poles[j]})
				matched = true
				break
			}
		}
		if !matched {
			pairs = append(pairs, [2]complex128{poles[i], poles[i]})
		}
	}
	return pairs
}

// bilinearSection builds the digital biquad for one analog second-order
// section with poles p1, p2 (a conjugate pair, or a repeated real pole),
// scaled by the prewarped cutoff wc, then bilinear-transformed at sample
// rate fs. The analog section is H(s) = wc^2 / (s^2 - 2*Re(p)*wc*s + |p|^2*wc^2).
func bilinearSection(p1, p2 complex128, wc, fs float64) stage {
	// For a conjugate pair p2 = conj(p1); for a repeated real pole p1==p2.
	reP := real(p1)
	magSq := real(p1)*real(p1) + imag(p1)*imag(p1)

	b2Analog := wc * wc
	a1Analog := -2 * reP * wc
	a2Analog := magSq * wc * wc

	// Bilinear transform s = 2*fs*(1-z^-1)/(1+z^-1).
	k := 2 * fs
	k2 := k * k
	d := k2 + a1Analog*k + a2Analog

	b0 := b2Analog / d
	b1 := 2 * b2Analog / d
	b2 := b2Analog / d
	a1 := (2*a2Analog - 2*k2) / d
	a2 := (k2 - a1Analog*k + a2Analog) / d

	return stage{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}
