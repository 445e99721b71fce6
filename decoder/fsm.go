/*
NAME
  fsm.go

DESCRIPTION
  fsm.go implements the RX sync/VIS state machine:
  start-bit detection with a 12 ms candidate window and a 15 ms
  validation window, then 30 ms-boundary bit sampling into an 8-bit VIS
  accumulator, with extended (16-bit) VIS handled as a second full
  candidate/validate/sample cycle gated by a pending-extended flag —
  matching vis.NewExtendedEncoder, which retransmits a full
  leader/break/leader/start sequence ahead of the second byte rather
  than continuing the first byte's tone stream.
*/

package decoder

import (
	"math"

	"github.com/vk2dsp/gosstv/mode"
)

// State names the FSM's externally visible position.
// StartBitCandidate/StartBitValidated together cover what is
// conventionally called VALIDATING, and BitSample covers DECODING.
type State int

const (
	StateIdle State = iota
	StateStartBitCandidate
	StateStartBitValidated
	StateBitSample
	StateExtendedWait
	StateLineData
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStartBitCandidate:
		return "START_BIT_CANDIDATE"
	case StateStartBitValidated:
		return "START_BIT_VALIDATED"
	case StateBitSample:
		return "BIT_SAMPLE"
	case StateExtendedWait:
		return "EXTENDED_WAIT"
	case StateLineData:
		return "LINE_DATA"
	case StateError:
		return "ERROR"
	default:
		return "?"
	}
}

// Event reports what happened on a given FSM.Step call.
type Event int

const (
	EventNone Event = iota
	EventNoise
	EventModeLocked
	EventLookupFailed
)

// Default sensitivity thresholds.
const (
	DefaultSenseLevel  = 2400.0
	DefaultSenseLevel2 = 80.0

	candidateMs  = 12.0
	validateMs   = 15.0
	bitWindowMs  = 30.0
)

type phase int

const (
	phaseIdle phase = iota
	phaseCandidate
	phaseValidated
	phaseBitSample
)

// FSM is the RX sync/VIS start-bit detector and bit sampler.
type FSM struct {
	fs float64

	senseLevel  float64
	senseLevel2 float64

	phase    phase
	counter  int // samples remaining in the current phase window or bit cell.

	visAcc        byte
	bitsRemaining int

	pendingExtended bool
}

// NewFSM returns an FSM at sample rate fs with default sensitivity.
func NewFSM(fs float64) *FSM {
	return &FSM{fs: fs, senseLevel: DefaultSenseLevel, senseLevel2: DefaultSenseLevel2}
}

// SetSenseLevel overrides the primary sensitivity threshold; common
// values are {2400, 3500, 4800, 6000}, but any positive value is
// accepted since this is exposed as plain configuration rather than an
// enum.
func (f *FSM) SetSenseLevel(level float64) { f.senseLevel = level }

// SetSenseLevel2 overrides the noise-rejection tolerance used during bit
// sampling.
func (f *FSM) SetSenseLevel2(level float64) { f.senseLevel2 = level }

func (f *FSM) msSamples(ms float64) int {
	n := int(ms*f.fs/1000 + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

// Narrowed reports whether the RX front end should be using its narrow
// band-pass response: true during start-bit validation and bit sampling,
// false again once a VIS byte completes. It doubles as the
// decoder's sync_detected signal.
func (f *FSM) Narrowed() bool {
	return f.phase == phaseValidated || f.phase == phaseBitSample
}

// PublicState maps the FSM's internal phase onto the reconciled State
// enum.
func (f *FSM) PublicState() State {
	if f.pendingExtended {
		return StateExtendedWait
	}
	switch f.phase {
	case phaseCandidate:
		return StateStartBitCandidate
	case phaseValidated:
		return StateStartBitValidated
	case phaseBitSample:
		return StateBitSample
	default:
		return StateIdle
	}
}

func (f *FSM) startPredicate(m, s, p, l float64) bool {
	return s > l && s > f.senseLevel && (s-l) >= f.senseLevel
}

// Step advances the FSM by one working-signal sample's tone-energy
// quadruple and reports what happened. On EventModeLocked the returned
// mode.ID is the resolved mode; the caller is responsible for acting on
// it (allocating the image assembler) since the FSM has no knowledge of
// the image buffer.
func (f *FSM) Step(m, s, p, l float64) (Event, mode.ID) {
	switch f.phase {
	case phaseIdle:
		if f.startPredicate(m, s, p, l) {
			f.phase = phaseCandidate
			f.counter = f.msSamples(candidateMs)
		}
	case phaseCandidate:
		if f.startPredicate(m, s, p, l) {
			f.counter--
			if f.counter <= 0 {
				f.phase = phaseValidated
				f.counter = f.msSamples(validateMs)
			}
		} else {
			f.phase = phaseIdle
		}
	case phaseValidated:
		if f.startPredicate(m, s, p, l) {
			f.counter--
			if f.counter <= 0 {
				f.phase = phaseBitSample
				f.counter = f.msSamples(bitWindowMs)
				f.visAcc = 0
				f.bitsRemaining = 8
			}
		} else {
			f.phase = phaseIdle
		}
	case phaseBitSample:
		f.counter--
		if f.counter <= 0 {
			noise := m < l && p < l && math.Abs(m-p) < f.senseLevel2
			if noise {
				f.phase = phaseIdle
				f.pendingExtended = false
				return EventNoise, 0
			}
			f.bitsRemaining--
			idx := 7 - f.bitsRemaining
			if m > p {
				f.visAcc |= 1 << uint(idx)
			}
			f.counter = f.msSamples(bitWindowMs)
			if f.bitsRemaining == 0 {
				return f.finishByte()
			}
		}
	}
	return EventNone, 0
}

// finishByte parses the completed 8-bit VIS accumulator and resolves a
// mode, handling the 0x23 extended-VIS sentinel by starting a fresh
// candidate/validate/sample cycle for the second byte.
func (f *FSM) finishByte() (Event, mode.ID) {
	data := f.visAcc & 0x7f
	f.phase = phaseIdle

	if !f.pendingExtended && data == mode.ExtendedPrefix {
		f.pendingExtended = true
		return EventNone, 0
	}

	var id mode.ID
	var ok bool
	if f.pendingExtended {
		id, ok = mode.ByExtendedVIS(data)
	} else {
		id, ok = mode.ByVIS(data)
	}
	f.pendingExtended = false
	if ok {
		return EventModeLocked, id
	}
	return EventLookupFailed, 0
}

// Reset returns the FSM to its initial IDLE state.
func (f *FSM) Reset() {
	f.phase = phaseIdle
	f.counter = 0
	f.visAcc = 0
	f.bitsRemaining = 0
	f.pendingExtended = false
}
