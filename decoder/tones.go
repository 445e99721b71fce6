/*
NAME
  tones.go

DESCRIPTION
  tones.go implements the RX tone-energy bank: four tank
  resonators tuned to mark/sync/space/leader, each followed by a 50 Hz
  Butterworth envelope low-pass.
*/

package decoder

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vk2dsp/gosstv/dsp"
)

const (
	markHz, markBw     = 1080.0, 80.0
	syncHz, syncBw     = 1200.0, 100.0
	spaceHz, spaceBw   = 1320.0, 80.0
	leaderHz, leaderBw = 1900.0, 100.0

	envelopeCutoffHz = 50.0
	envelopeOrder    = 2
)

// ToneBank runs the working signal through four tank resonators and
// rectifies+smooths each into an envelope: m (mark), s (sync/start), p
// (space), l (leader) — the decision variables the sync/VIS FSM and the
// image assembler both read.
type ToneBank struct {
	fs float64

	mark, sync, space, leader *dsp.Resonator
	envMark, envSync, envSpace, envLeader *dsp.Cascade
}

// NewToneBank builds a ToneBank at sample rate fs.
func NewToneBank(fs float64) (*ToneBank, error) {
	tb := &ToneBank{
		fs:    fs,
		mark:  dsp.NewResonator(markHz, markBw, fs),
		sync:  dsp.NewResonator(syncHz, syncBw, fs),
		space: dsp.NewResonator(spaceHz, spaceBw, fs),
		leader: dsp.NewResonator(leaderHz, leaderBw, fs),
	}
	var err error
	if tb.envMark, err = dsp.NewButterworthLowPass(envelopeOrder, envelopeCutoffHz, fs); err != nil {
		return nil, errors.Wrap(err, "decoder: mark envelope filter")
	}
	if tb.envSync, err = dsp.NewButterworthLowPass(envelopeOrder, envelopeCutoffHz, fs); err != nil {
		return nil, errors.Wrap(err, "decoder: sync envelope filter")
	}
	if tb.envSpace, err = dsp.NewButterworthLowPass(envelopeOrder, envelopeCutoffHz, fs); err != nil {
		return nil, errors.Wrap(err, "decoder: space envelope filter")
	}
	if tb.envLeader, err = dsp.NewButterworthLowPass(envelopeOrder, envelopeCutoffHz, fs); err != nil {
		return nil, errors.Wrap(err, "decoder: leader envelope filter")
	}
	return tb, nil
}

// Process runs one working-signal sample through the bank and returns
// the four rectified, smoothed envelopes (mark, sync, space, leader).
func (tb *ToneBank) Process(x float64) (m, s, p, l float64) {
	m = tb.envMark.Process(math.Abs(tb.mark.Process(x)))
	s = tb.envSync.Process(math.Abs(tb.sync.Process(x)))
	p = tb.envSpace.Process(math.Abs(tb.space.Process(x)))
	l = tb.envLeader.Process(math.Abs(tb.leader.Process(x)))
	return
}

// SetVISTones retunes the mark and space resonators; the sync and
// leader tones are fixed by the VIS convention and are not
// user-configurable.
func (tb *ToneBank) SetVISTones(markHz, spaceHz float64) {
	tb.mark.Retune(markHz, markBw, tb.fs)
	tb.space.Retune(spaceHz, spaceBw, tb.fs)
}

// Reset zeroes every resonator's and envelope filter's delay state.
func (tb *ToneBank) Reset() {
	tb.mark.Reset()
	tb.sync.Reset()
	tb.space.Reset()
	tb.leader.Reset()
	tb.envMark.Reset()
	tb.envSync.Reset()
	tb.envSpace.Reset()
	tb.envLeader.Reset()
}
