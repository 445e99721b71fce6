/*
NAME
  decoder.go

DESCRIPTION
  decoder.go is the RX public API: a sealed, owning
  Decoder type wiring the front end, tone-energy bank, sync/VIS FSM, and
  per-mode image assembler into a single synchronous feed(samples)
  entry point.
*/

// Package decoder implements the SSTV receive core: a streaming DSP and
// state-machine pipeline that recovers a transmission's mode (via VIS)
// and pixel data from a mono float64 audio stream.
package decoder

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/mode"
)

// ResultCode is Feed/FeedSample's outcome.
type ResultCode int

const (
	ResultOK ResultCode = iota
	ResultNeedMore
	ResultImageReady
	ResultError
)

func (r ResultCode) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultNeedMore:
		return "NEED_MORE"
	case ResultImageReady:
		return "IMAGE_READY"
	case ResultError:
		return "ERROR"
	default:
		return "?"
	}
}

// AGCMode selects the front end's gain-control strategy. Only Fast is
// implemented; the type exists
// so SetAgcMode has somewhere to grow.
type AGCMode int

const AGCFast AGCMode = 0

// ErrInvalidSampleRate is returned by New for a non-positive sample rate.
var ErrInvalidSampleRate = errors.New("decoder: sample rate must be positive")

// ErrImageNotReady is returned by GetImage before the decoder has
// reached IMAGE_READY.
var ErrImageNotReady = errors.New("decoder: image not ready")

// errDecoderErrored is Feed's sentinel once the decoder has entered
// StateError; the caller must Reset before feeding further samples.
var errDecoderErrored = errors.New("decoder: in error state, reset required")

// State is the RX-facing state snapshot returned by GetState.
type State struct {
	CurrentMode  mode.ID
	ModeLocked   bool
	VISEnabled   bool
	SyncDetected bool
	ImageReady   bool
	CurrentLine  int
	TotalLines   int
}

// Decoder is the RX core: a sealed, owning type driven synchronously by
// Feed/FeedSample. Two concurrent calls on the same Decoder are a
// contract violation; separate Decoders are fully
// independent.
type Decoder struct {
	fs  float64
	log *zap.SugaredLogger

	front *FrontEnd
	tones *ToneBank
	fsm   *FSM
	asm   *Assembler

	visEnabled bool
	modeHint   *mode.ID
	debugLevel int

	imageReady bool
	errored    bool
}

// New returns a Decoder for sample rate fs. log may be nil.
func New(fs float64, log *zap.SugaredLogger) (*Decoder, error) {
	if fs <= 0 {
		return nil, ErrInvalidSampleRate
	}
	front, err := NewFrontEnd(fs)
	if err != nil {
		return nil, err
	}
	tones, err := NewToneBank(fs)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		fs:         fs,
		log:        log,
		front:      front,
		tones:      tones,
		fsm:        NewFSM(fs),
		visEnabled: true,
	}
	return d, nil
}

// SetModeHint records a mode to fall back on. For VIS-less families
// (MN/MC) the hint locks the assembler immediately since no VIS header
// will ever arrive to do it.
func (d *Decoder) SetModeHint(id mode.ID) {
	d.modeHint = &id
	if d.asm != nil {
		return
	}
	if desc, ok := mode.Get(id); ok && !desc.VISDefined {
		d.lock(desc)
	}
}

// SetVISEnabled toggles VIS-based mode acquisition. Disabling it without
// a mode hint leaves the decoder permanently in IDLE.
func (d *Decoder) SetVISEnabled(enabled bool) {
	d.visEnabled = enabled
	if !enabled && d.asm == nil && d.modeHint != nil {
		if desc, ok := mode.Get(*d.modeHint); ok {
			d.lock(desc)
		}
	}
}

// SetVISTones retunes the FSM's mark/space resonators.
func (d *Decoder) SetVISTones(markHz, spaceHz float64) { d.tones.SetVISTones(markHz, spaceHz) }

// SetAgcMode has no effect: the front end has a single gain-control
// strategy (AGCFast) and ignores the argument.
func (d *Decoder) SetAgcMode(AGCMode) {}

// SetDenoiseEnabled toggles the front end's spectral-subtraction noise
// reduction stage. Off by default.
func (d *Decoder) SetDenoiseEnabled(enabled bool) { d.front.SetDenoise(enabled) }

// SetDebugLevel sets the verbosity of zap debug logging emitted during
// decode (0 disables it).
func (d *Decoder) SetDebugLevel(level int) { d.debugLevel = level }

func (d *Decoder) lock(desc mode.Descriptor) {
	d.asm = NewAssembler(desc, d.fs)
	if d.log != nil && d.debugLevel > 0 {
		d.log.Debugw("mode locked", "mode", desc.Name)
	}
}

// Feed processes buf in order and returns the aggregate outcome:
// IMAGE_READY the call in which the image completes, OK on later calls
// once it is already complete, NEED_MORE while still acquiring, ERROR
// once the decoder has entered its error state.
func (d *Decoder) Feed(buf []float64) (ResultCode, error) {
	if len(buf) == 0 {
		return ResultOK, nil
	}
	if d.errored {
		return ResultError, errDecoderErrored
	}
	wasReady := d.imageReady
	for _, s := range buf {
		d.step(s)
		if d.errored {
			return ResultError, errDecoderErrored
		}
	}
	switch {
	case d.imageReady && !wasReady:
		return ResultImageReady, nil
	case d.imageReady:
		return ResultOK, nil
	default:
		return ResultNeedMore, nil
	}
}

// FeedSample is the one-sample convenience form of Feed.
func (d *Decoder) FeedSample(s float64) ResultCode {
	if d.errored {
		return ResultError
	}
	wasReady := d.imageReady
	d.step(s)
	switch {
	case d.errored:
		return ResultError
	case d.imageReady && !wasReady:
		return ResultImageReady
	case d.imageReady:
		return ResultOK
	default:
		return ResultNeedMore
	}
}

// sampleScale converts a [-1,1] float sample into the fixed-point-ish
// domain the front end's hard-clip and AGC constants assume.
const sampleScale = 32768.0

func (d *Decoder) step(s float64) {
	y := d.front.Process(s * sampleScale)
	m, sy, p, l := d.tones.Process(y)

	if d.asm != nil {
		if d.asm.Step(m, p) {
			d.imageReady = true
		}
		return
	}

	if !d.visEnabled {
		d.front.SetNarrow(false)
		return
	}

	ev, id := d.fsm.Step(m, sy, p, l)
	d.front.SetNarrow(d.fsm.Narrowed())
	if ev == EventModeLocked {
		desc, ok := mode.Get(id)
		if !ok {
			d.errored = true
			return
		}
		d.lock(desc)
	}
}

// GetState returns the decoder's current snapshot.
func (d *Decoder) GetState() State {
	st := State{VISEnabled: d.visEnabled, SyncDetected: d.fsm.Narrowed(), ImageReady: d.imageReady}
	if d.asm != nil {
		st.ModeLocked = true
		st.CurrentMode = d.asm.desc.ID
		st.CurrentLine = d.asm.rowIdx
		st.TotalLines = d.asm.desc.Height
	}
	return st
}

// GetImage returns a read-only view of the decoded image. It fails
// until the decoder has reached IMAGE_READY.
func (d *Decoder) GetImage() (image.Frame, error) {
	if !d.imageReady || d.asm == nil {
		return image.Frame{}, ErrImageNotReady
	}
	return d.asm.Buffer().View(), nil
}

// Reset returns the Decoder to the state it had immediately after New,
// releasing any in-flight image buffer.
func (d *Decoder) Reset() {
	d.front.Reset()
	d.tones.Reset()
	d.fsm.Reset()
	d.asm = nil
	d.imageReady = false
	d.errored = false
}
