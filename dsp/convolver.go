/*
NAME
  convolver.go

DESCRIPTION
  convolver.go implements an FIR convolver backed by a circular delay
  line, addressed by index arithmetic over an owned slice rather than
  pointer arithmetic.
*/

package dsp

// Convolver is a direct-form FIR filter: a circular delay line of length
// len(taps) whose output on each Step is the dot product of the delay
// line with taps.
type Convolver struct {
	taps  []float64
	line  []float64
	pos   int
}

// NewConvolver returns a Convolver that owns a copy of taps.
func NewConvolver(taps []float64) *Convolver {
	c := &Convolver{
		taps: append([]float64(nil), taps...),
		line: make([]float64, len(taps)),
	}
	return c
}

// Step writes x into the delay line and returns the convolution output.
func (c *Convolver) Step(x float64) float64 {
	return c.StepWithTaps(x, c.taps)
}

// StepWithTaps writes x into the delay line and returns the convolution
// output against externally supplied taps, which must be the same length
// as the Convolver's delay line. This lets one delay line feed two
// differently tuned filters without duplicating the sample history.
func (c *Convolver) StepWithTaps(x float64, taps []float64) float64 {
	c.line[c.pos] = x
	var sum float64
	// line[pos] holds the newest sample; taps[0] is the newest tap.
	idx := c.pos
	for i := 0; i < len(taps); i++ {
		sum += taps[i] * c.line[idx]
		idx--
		if idx < 0 {
			idx = len(c.line) - 1
		}
	}
	c.pos++
	if c.pos == len(c.line) {
		c.pos = 0
	}
	return sum
}

// Reset zeroes the delay line.
func (c *Convolver) Reset() {
	for i := range c.line {
		c.line[i] = 0
	}
	c.pos = 0
}

// Len returns the number of taps (and delay line length).
func (c *Convolver) Len() int { return len(c.taps) }
