/*
NAME
  encoder.go

DESCRIPTION
  encoder.go is the TX driver: it pulls segments from the
  VIS encoder and the per-mode Scheduler and feeds them through a single
  vco.Oscillator, one sample per iteration, staging preamble -> VIS ->
  scanlines behind a four-valued stage counter.
*/

// Package encoder implements the SSTV transmit core: a time-accurate,
// sample-driven FM waveform synthesizer that renders a borrowed image
// into a mono float64 audio stream per a chosen mode's timing and VIS
// header.
package encoder

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/mode"
	"github.com/vk2dsp/gosstv/vco"
	"github.com/vk2dsp/gosstv/vis"
)

// stage is the TX driver's four-valued pipeline position.
type stage int

const (
	stagePreamble stage = iota
	stageVIS
	stageLine
	stageDone
)

// ErrInvalidSampleRate is returned by New for a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("encoder: sample rate must be positive")

// ErrDimensionMismatch is returned by SetImage when the frame's
// dimensions do not match the mode's geometry.
var ErrDimensionMismatch = errors.New("encoder: image dimensions do not match mode geometry")

// preambleStd and preambleNarrow are the 8-tone and 4-tone calibration
// sequences emitted before VIS, each tone 100ms.
var (
	preambleStd     = []float64{1900, 1500, 1900, 1500, 2300, 1500, 2300, 1500}
	preambleNarrow  = []float64{1900, 1500, 1900, 1500}
	preambleToneMs  = 100.0
	oscFMin, oscSpan = 1080.0, 1220.0 // matches the VIS encoder's mark/space tone pair.
)

// Encoder is the TX core: a sealed, owning type driven synchronously by
// Generate. Two concurrent calls on the same Encoder are a contract
// violation; separate Encoders are fully independent.
type Encoder struct {
	desc mode.Descriptor
	fs   float64
	log  *zap.SugaredLogger

	visEnabled bool
	frame      image.Frame
	hasFrame   bool

	osc   *vco.Oscillator
	sched *Scheduler

	st      stage
	lineIdx int

	preambleIdx, preambleRemaining int

	visEnc *vis.Encoder

	segs                  []Segment
	segIdx, segRemaining  int

	totalSamples     int
	samplesGenerated int
}

// New returns an Encoder for mode id at sample rate fs. log may be nil,
// in which case the encoder runs silently.
func New(id mode.ID, fs float64, log *zap.SugaredLogger) (*Encoder, error) {
	if fs <= 0 {
		return nil, ErrInvalidSampleRate
	}
	desc, ok := mode.Get(id)
	if !ok {
		return nil, errors.Errorf("encoder: unknown mode id %d", id)
	}
	e := &Encoder{
		desc:       desc,
		fs:         fs,
		log:        log,
		visEnabled: true,
	}
	e.reinit()
	return e, nil
}

// reinit (re)builds every piece of per-transmission state from scratch:
// the oscillator's phase, the scheduler's residue, and the
// preamble/VIS/line stage cursors. The borrowed frame, if any, survives
// a reinit — Reset calls this so that generate, reset, generate
// produces bit-identical output.
func (e *Encoder) reinit() {
	e.osc = vco.New(e.fs, oscFMin, oscSpan)
	e.sched = NewScheduler(e.desc, e.fs)
	e.st = stagePreamble
	e.lineIdx = 0
	e.segs, e.segIdx, e.segRemaining = nil, 0, 0
	e.samplesGenerated = 0

	if e.visEnabled && e.desc.VISDefined {
		e.preambleIdx = 0
		e.preambleRemaining = e.msSamples(preambleToneMs)
		if e.desc.Extended {
			e.visEnc = vis.NewExtendedEncoder(e.fs, e.desc.VISCode)
		} else {
			e.visEnc = vis.NewEncoder(e.fs, e.desc.VISCode)
		}
	} else {
		e.visEnc = nil
		e.st = stageLine
	}
	e.totalSamples = e.computeTotalSamples()
}

func (e *Encoder) msSamples(ms float64) int {
	n := int(ms * e.fs / 1000)
	if n < 1 {
		n = 1
	}
	return n
}

func (e *Encoder) preambleTones() []float64 {
	if e.desc.Family == mode.FamilyMC {
		return preambleNarrow
	}
	return preambleStd
}

func (e *Encoder) computeTotalSamples() int {
	total := int(e.desc.DurationSec * e.fs)
	if e.visEnabled && e.desc.VISDefined {
		total += len(e.preambleTones()) * e.msSamples(preambleToneMs)
		var v *vis.Encoder
		if e.desc.Extended {
			v = vis.NewExtendedEncoder(e.fs, e.desc.VISCode)
		} else {
			v = vis.NewEncoder(e.fs, e.desc.VISCode)
		}
		total += v.TotalSamples()
	}
	return total
}

// SetImage borrows frame for the lifetime of one encoding pass. It fails
// if frame's dimensions do not match the mode's geometry.
func (e *Encoder) SetImage(frame image.Frame) error {
	if frame.Width != e.desc.Width || frame.Height != e.desc.Height {
		return errors.Wrapf(ErrDimensionMismatch, "got %dx%d, want %dx%d", frame.Width, frame.Height, e.desc.Width, e.desc.Height)
	}
	e.frame = frame
	e.hasFrame = true
	return nil
}

// SetVISEnabled toggles whether the preamble and VIS header are emitted.
// Before any sample has been generated it takes effect at once; after
// that it takes effect on the next Reset (mid-transmission changes would
// invalidate GetTotalSamples' already-reported progress denominator).
func (e *Encoder) SetVISEnabled(enabled bool) {
	e.visEnabled = enabled
	if e.samplesGenerated == 0 {
		e.reinit()
	}
}

// Reset returns the Encoder to the state it had immediately after New
// (or after the last SetImage), discarding all progress.
func (e *Encoder) Reset() { e.reinit() }

// IsComplete reports whether every stage — preamble, VIS, and every
// scanline — has been fully generated.
func (e *Encoder) IsComplete() bool { return e.st == stageDone }

// GetProgress returns samples_generated / total_samples, monotonically
// non-decreasing.
func (e *Encoder) GetProgress() float64 {
	if e.totalSamples == 0 {
		return 1
	}
	return float64(e.samplesGenerated) / float64(e.totalSamples)
}

// GetTotalSamples returns the pre-computed sample count for this
// transmission (preamble + VIS + picture).
func (e *Encoder) GetTotalSamples() int { return e.totalSamples }

// Generate fills buf with up to len(buf) samples in [-1,1] and returns
// the count actually written. It returns (0, nil) if no image has been
// set or once IsComplete is true.
func (e *Encoder) Generate(buf []float64) (int, error) {
	if !e.hasFrame {
		if e.log != nil {
			e.log.Debug("encoder.Generate called with no image set")
		}
		return 0, nil
	}
	n := 0
	for n < len(buf) && e.st != stageDone {
		var f float64
		switch e.st {
		case stagePreamble:
			f = e.stepPreamble()
		case stageVIS:
			f = e.stepVIS()
		case stageLine:
			f = e.stepLine()
		}
		if e.st == stageDone {
			break
		}
		buf[n] = e.osc.StepFreq(f)
		n++
		e.samplesGenerated++
	}
	return n, nil
}

func (e *Encoder) stepPreamble() float64 {
	tones := e.preambleTones()
	f := tones[e.preambleIdx]
	e.preambleRemaining--
	if e.preambleRemaining <= 0 {
		e.preambleIdx++
		if e.preambleIdx < len(tones) {
			e.preambleRemaining = e.msSamples(preambleToneMs)
		} else {
			e.st = stageVIS
		}
	}
	return f
}

func (e *Encoder) stepVIS() float64 {
	f, ok := e.visEnc.NextFrequency()
	if !ok {
		e.st = stageLine
		return e.stepLine()
	}
	return f
}

func (e *Encoder) stepLine() float64 {
	for len(e.segs) == 0 {
		if e.lineIdx >= e.desc.Height {
			e.st = stageDone
			return 0
		}
		row := e.frame.Row(e.lineIdx)
		next := e.frame.RowOrNil(e.lineIdx + 1)
		e.segs = e.sched.Line(row, next, e.lineIdx, e.lineIdx == 0)
		e.segIdx = 0
		e.lineIdx++
		if len(e.segs) > 0 {
			e.segRemaining = e.segs[0].Samples
		}
	}
	f := e.segs[e.segIdx].FreqHz
	e.segRemaining--
	if e.segRemaining <= 0 {
		e.segIdx++
		if e.segIdx < len(e.segs) {
			e.segRemaining = e.segs[e.segIdx].Samples
		} else {
			e.segs = nil
		}
	}
	return f
}
