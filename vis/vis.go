/*
NAME
  vis.go

DESCRIPTION
  vis.go implements the VIS (Vertical Interval Signalling) header as a
  deterministic (frequency, duration) tone sequence, per the tone table
  in original_source/src/vis_encoder.cpp, exposed as a pull interface
  the TX driver samples one window at a time.
*/

// Package vis builds the VIS header: the tone-coded
// preamble that identifies an SSTV transmission's mode before its
// picture data begins.
package vis

import "math/bits"

const (
	leaderHz   = 1900.0
	breakHz    = 1200.0
	startHz    = 1200.0
	stopHz     = 1200.0
	bitOneHz   = 1080.0
	bitZeroHz  = 1320.0
	leaderMs   = 300.0
	breakMs    = 10.0
	bitMs      = 30.0
	stopMs     = 30.0
	dataBits   = 7
	extPrefix  = 0x23
)

// Parity returns the transmitted parity bit for a 7-bit VIS data value:
// popcount(data) & 1. Decoders never reject mismatched parity on
// receipt; encoders always emit the canonical bit.
func Parity(data byte) byte {
	return byte(bits.OnesCount8(data&0x7f)) & 1
}

// tone is one scheduled (frequency, duration) step in a VIS sequence.
type tone struct {
	freqHz float64
	ms     float64
}

// Encoder is a pull-interface VIS tone sequencer: NextFrequency advances
// internal state and returns the frequency in force for the current
// sample window, or 0 once the sequence is exhausted.
type Encoder struct {
	tones []tone
	idx   int
	// remaining is the sample budget left in the current tone, tracked
	// in samples rather than ms so the driver can call NextFrequency once per
	// sample without re-deriving timing.
	remaining int
	fs        float64
}

// NewEncoder builds the 8-bit VIS tone sequence for data (the 7-bit mode
// code, MSB unused).
func NewEncoder(fs float64, data byte) *Encoder {
	e := &Encoder{fs: fs}
	e.tones = append(e.tones, sequence8(data)...)
	e.remaining = e.tones[0].sampleCount(fs)
	return e
}

// NewExtendedEncoder builds the 16-bit extended VIS sequence: the 8-bit
// sequence for the 0x23 sentinel without its stop bit, then a complete
// 8-bit sequence for extData (its own leader, break, leader and start
// bit ahead of the data and parity bits), ending in a single stop bit.
func NewExtendedEncoder(fs float64, extData byte) *Encoder {
	e := &Encoder{fs: fs}
	e.tones = append(e.tones, sequence8NoStop(extPrefix)...)
	e.tones = append(e.tones, sequence8(extData)...)
	e.remaining = e.tones[0].sampleCount(fs)
	return e
}

func sequence8(data byte) []tone {
	return append(sequence8NoStop(data), tone{stopHz, stopMs})
}

func sequence8NoStop(data byte) []tone {
	seq := make([]tone, 0, 11)
	seq = append(seq,
		tone{leaderHz, leaderMs},
		tone{breakHz, breakMs},
		tone{leaderHz, leaderMs},
		tone{startHz, bitMs},
	)
	for i := 0; i < dataBits; i++ {
		bit := (data >> uint(i)) & 1
		seq = append(seq, tone{bitFreq(bit), bitMs})
	}
	seq = append(seq, tone{bitFreq(Parity(data)), bitMs})
	return seq
}

func bitFreq(bit byte) float64 {
	if bit == 1 {
		return bitOneHz
	}
	return bitZeroHz
}

func (t tone) sampleCount(fs float64) int {
	n := int(t.ms * fs / 1000)
	if n < 1 {
		n = 1
	}
	return n
}

// NextFrequency returns the frequency for the current sample and
// advances the encoder's window accounting by one sample. It returns 0,
// false once the sequence is exhausted.
func (e *Encoder) NextFrequency() (float64, bool) {
	if e.idx >= len(e.tones) {
		return 0, false
	}
	f := e.tones[e.idx].freqHz
	e.remaining--
	if e.remaining <= 0 {
		e.idx++
		if e.idx < len(e.tones) {
			e.remaining = e.tones[e.idx].sampleCount(e.fs)
		}
	}
	return f, true
}

// Done reports whether the sequence has been fully consumed.
func (e *Encoder) Done() bool { return e.idx >= len(e.tones) }

// TotalSamples returns the total sample count this sequence occupies at
// its configured sample rate, for the TX driver's progress accounting.
func (e *Encoder) TotalSamples() int {
	var n int
	for _, t := range e.tones {
		n += t.sampleCount(e.fs)
	}
	return n
}
