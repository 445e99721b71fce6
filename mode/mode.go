/*
NAME
  mode.go

DESCRIPTION
  mode.go defines the SSTV mode descriptor and timing types shared by
  the TX scheduler and the RX assembler.
*/

// Package mode provides the static registry of standardized SSTV modes:
// geometry, VIS identification, color model, and per-family scanline
// timing, looked up by id or name.
package mode

// ColorModel names the color space a mode's active-picture channels are
// encoded in.
type ColorModel int

const (
	RGB ColorModel = iota
	YCbCr
	Mono
)

func (c ColorModel) String() string {
	switch c {
	case RGB:
		return "RGB"
	case YCbCr:
		return "YCbCr"
	case Mono:
		return "Mono"
	default:
		return "unknown"
	}
}

// Family names a scanline-shape family: a group of modes sharing the same
// sync/porch/channel structure, differing only in line count and
// duration. Family is what encoder.scheduler and decoder.assembler both
// switch on.
type Family int

const (
	FamilyRobotColor Family = iota
	FamilyRobotBW
	FamilyScottie
	FamilyMartin
	FamilySC2
	FamilyPD
	FamilyPasokon
	FamilyMR
	FamilyMP
	FamilyML
	FamilyMN
	FamilyMC
	FamilyAVT90
)

func (f Family) String() string {
	switch f {
	case FamilyRobotColor:
		return "Robot"
	case FamilyRobotBW:
		return "Robot B/W"
	case FamilyScottie:
		return "Scottie"
	case FamilyMartin:
		return "Martin"
	case FamilySC2:
		return "SC2"
	case FamilyPD:
		return "PD"
	case FamilyPasokon:
		return "Pasokon"
	case FamilyMR:
		return "MR"
	case FamilyMP:
		return "MP"
	case FamilyML:
		return "ML"
	case FamilyMN:
		return "MN"
	case FamilyMC:
		return "MC"
	case FamilyAVT90:
		return "AVT-90"
	default:
		return "unknown"
	}
}

// ID is a stable, ABI-significant mode identifier: its enumerated order
// is the order Descriptors appear in the registry table, and must never
// be reordered once published.
type ID int

// Descriptor is the compile-time-constant record for one SSTV mode.
// Descriptors are never mutated after the registry is built.
type Descriptor struct {
	ID     ID
	Name   string
	Width  int
	Height int // also the scheduler's line_count.

	// VISCode is the 7-bit VIS data value (LSB-first data bits, parity
	// excluded) for this mode, or 0 when VISDefined is false.
	VISCode    byte
	VISDefined bool
	// Extended is true when this mode is only reachable via the 16-bit
	// extended VIS form (a 0x23 prefix byte followed by VISCode).
	Extended bool

	Color  ColorModel
	Family Family

	// DurationSec is the active-picture duration, excluding VIS and
	// preamble.
	DurationSec float64
}

// overhead captures a scanline family's fixed, non-pixel-run timing: the
// sync pulse, a single porch, and the separator(s) between channel runs.
// The remaining per-line time is split evenly across Channels channel
// runs — this module does not claim bit-for-bit historical fidelity to
// every one of the 43 modes' exact published millisecond figures, only
// that the resulting schedule's total duration matches the mode's
// nominal duration.
type overhead struct {
	SyncMs, PorchMs, SeparatorMs float64
	Channels                     int
}

var familyOverhead = map[Family]overhead{
	FamilyRobotColor: {SyncMs: 9.0, PorchMs: 3.0, SeparatorMs: 4.5, Channels: 2},
	FamilyRobotBW:    {SyncMs: 7.0, PorchMs: 3.0, SeparatorMs: 0, Channels: 1},
	FamilyScottie:    {SyncMs: 9.0, PorchMs: 1.5, SeparatorMs: 1.5, Channels: 3},
	FamilyMartin:     {SyncMs: 4.862, PorchMs: 0.572, SeparatorMs: 0.572, Channels: 3},
	FamilySC2:        {SyncMs: 5.5225, PorchMs: 0.5, SeparatorMs: 0, Channels: 3},
	FamilyPD:         {SyncMs: 20.0, PorchMs: 2.08, SeparatorMs: 0, Channels: 4},
	FamilyPasokon:    {SyncMs: 5.208, PorchMs: 1.042, SeparatorMs: 1.042, Channels: 3},
	FamilyMR:         {SyncMs: 4.7, PorchMs: 0.5, SeparatorMs: 0.2, Channels: 3},
	FamilyMP:         {SyncMs: 4.7, PorchMs: 0.5, SeparatorMs: 0, Channels: 4},
	FamilyML:         {SyncMs: 4.7, PorchMs: 0.5, SeparatorMs: 0.2, Channels: 3},
	FamilyMN:         {SyncMs: 4.7, PorchMs: 0.5, SeparatorMs: 0, Channels: 3},
	FamilyMC:         {SyncMs: 4.7, PorchMs: 0.5, SeparatorMs: 0, Channels: 3},
	FamilyAVT90:      {SyncMs: 0, PorchMs: 0, SeparatorMs: 0, Channels: 3},
}

// Timing is the derived per-line schedule for a Descriptor at a given
// sample rate's millisecond domain (sample rate itself doesn't change
// any of these ms figures, only how the scheduler quantizes them to
// sample counts).
type Timing struct {
	LineCount      int
	LineDurationMs float64
	SyncPulseMs    float64
	PorchMs        float64
	SeparatorMs    float64
	ChannelMs      float64 // duration of one pixel-run channel.
	Channels       int
	// ExtendedVIS is the 16-bit word (0x23<<8 | VISCode) for Extended
	// modes, else 0.
	ExtendedVIS uint16
}

// Timing derives this Descriptor's scanline schedule.
func (d Descriptor) Timing() Timing {
	oh := familyOverhead[d.Family]
	lineMs := d.DurationSec * 1000 / float64(d.Height)
	fixed := oh.SyncMs + oh.PorchMs + oh.SeparatorMs*float64(oh.Channels-1)
	channelMs := (lineMs - fixed) / float64(oh.Channels)
	if channelMs < 0 {
		channelMs = 0
	}
	t := Timing{
		LineCount:      d.Height,
		LineDurationMs: lineMs,
		SyncPulseMs:    oh.SyncMs,
		PorchMs:        oh.PorchMs,
		SeparatorMs:    oh.SeparatorMs,
		ChannelMs:      channelMs,
		Channels:       oh.Channels,
	}
	if d.Extended {
		t.ExtendedVIS = uint16(extendedPrefix)<<8 | uint16(d.VISCode)
	}
	return t
}

// extendedPrefix is the sentinel 7-bit VIS data value that
// indicates a 16-bit extended VIS follows.
const extendedPrefix = 0x23
