/*
NAME
  scheduler.go

DESCRIPTION
  scheduler.go is the per-mode TX scanline generator: for
  each image row it emits an ordered list of (frequency, sample_count)
  segments — sync pulse, porch, channel pixel runs, and inter-channel
  separators — using the same mode.Timing fixed/channel split the
  duration invariant in mode.Descriptor.Timing is built from, so a
  schedule's total sample count always matches the mode's nominal
  duration within the residue-carry tolerance.
*/

package encoder

import (
	"github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/mode"
)

// Segment is one scheduled (frequency, sample_count) step, consumed in
// order by the TX driver's VCO.
type Segment struct {
	FreqHz  float64
	Samples int
}

// standard and narrow deviation color-to-frequency mappings, and their
// inverses for the RX demultiplexer — TX and RX share this one mapping
// rather than each guessing at the other's quantization.
func stdFreq(v uint8) float64    { return 1500 + float64(v)*800/256 }
func narrowFreq(v uint8) float64 { return 2044 + float64(v)*256/256 }

// StdValue inverts stdFreq, rounding to the nearest color byte.
func StdValue(freqHz float64) uint8 { return clampFreqValue((freqHz - 1500) * 256 / 800) }

// NarrowValue inverts narrowFreq, rounding to the nearest color byte.
func NarrowValue(freqHz float64) uint8 { return clampFreqValue((freqHz - 2044) * 256 / 256) }

func clampFreqValue(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// Role names the pixel-channel a scheduled run carries, shared by the TX
// scheduler and the RX per-mode demultiplexer so both sides agree on
// what a given run in the channel list means.
type Role int

const (
	RoleY Role = iota
	RoleR
	RoleG
	RoleB
	RoleRY
	RoleBY
	RoleYNext
)

func (r Role) String() string {
	switch r {
	case RoleY:
		return "Y"
	case RoleR:
		return "R"
	case RoleG:
		return "G"
	case RoleB:
		return "B"
	case RoleRY:
		return "R-Y"
	case RoleBY:
		return "B-Y"
	case RoleYNext:
		return "Y2"
	default:
		return "?"
	}
}

// freqKind selects which color-to-frequency mapping a channel uses.
type freqKind int

const (
	kindStd freqKind = iota
	kindNarrow
)

func (k freqKind) value(freqHz float64) uint8 {
	if k == kindNarrow {
		return NarrowValue(freqHz)
	}
	return StdValue(freqHz)
}

const (
	syncHz = 1200.0
	// porchHz is the conventional calibration tone between sync and the
	// active picture; most families also reuse it as their
	// inter-channel separator tone.
	porchHz = 1500.0
)

// Scheduler builds per-line Segment lists for one Descriptor at a fixed
// sample rate, carrying a running fractional-sample residue across the
// whole transmission.
type Scheduler struct {
	desc    mode.Descriptor
	timing  mode.Timing
	fs      float64
	residue float64
}

// NewScheduler returns a Scheduler for desc at sample rate fs.
func NewScheduler(desc mode.Descriptor, fs float64) *Scheduler {
	return &Scheduler{desc: desc, timing: desc.Timing(), fs: fs}
}

// Timing returns the Scheduler's derived per-line timing.
func (s *Scheduler) Timing() mode.Timing { return s.timing }

// samples converts a millisecond duration to a sample count, carrying
// the rounding error forward so that no line drifts more than one
// sample from nominal over the whole transmission.
func (s *Scheduler) samples(ms float64) int {
	exact := ms*s.fs/1000 + s.residue
	n := int(exact + 0.5)
	if n < 0 {
		n = 0
	}
	s.residue = exact - float64(n)
	return n
}

// channel describes one pixel-run channel within a scanline: how to pull
// a sample value from the row (and, for dual-row families, the next
// row), how many pixel segments to emit, and how to map a sample value
// to a frequency.
type channel struct {
	value func(row, next []image.RGB, col int) uint8
	freq  func(uint8) float64
	count func(width int) int
	// sepAfter is the separator/polarity-marker frequency emitted after
	// this channel (ignored after the last channel in the list).
	sepAfter float64
	kind     freqKind
	role     Role
}

// ChannelSpec is the RX-facing half of channel: everything the decoder's
// per-mode demultiplexer needs to walk the same run list the TX
// scheduler built, without pulling in any TX-only pixel-source
// plumbing.
type ChannelSpec struct {
	Role     Role
	Count    func(width int) int
	SepAfter float64
	ToValue  func(freqHz float64) uint8
}

// Layout returns the RX view of channelsFor(d): the same ordered
// channel list and leading-sync flag the TX scheduler walks, stripped
// of its pixel-source functions. The decoder's assembler uses this so a
// mode's scanline geometry is defined exactly once.
func Layout(d mode.Descriptor) (chans []ChannelSpec, hasSync bool) {
	cs, hasSync := channelsFor(d)
	for _, c := range cs {
		chans = append(chans, ChannelSpec{
			Role:     c.role,
			Count:    c.count,
			SepAfter: c.sepAfter,
			ToValue:  c.kind.value,
		})
	}
	return chans, hasSync
}

func fullCount(width int) int { return width }
func halfCount(width int) int { return width / 2 }

func rVal(row, _ []image.RGB, col int) uint8 { return row[col].R }
func gVal(row, _ []image.RGB, col int) uint8 { return row[col].G }
func bVal(row, _ []image.RGB, col int) uint8 { return row[col].B }

func yVal(row, _ []image.RGB, col int) uint8 { y, _, _ := image.ToYCbCr(row[col]); return y }

// yNextVal reads the luminance of the following image row, falling back
// to the current row at the last transmitted line where there is no
// next row.
func yNextVal(row, next []image.RGB, col int) uint8 {
	if next == nil {
		y, _, _ := image.ToYCbCr(row[col])
		return y
	}
	y, _, _ := image.ToYCbCr(next[col])
	return y
}
func ryVal(row, _ []image.RGB, col int) uint8 { _, ry, _ := image.ToYCbCr(row[col]); return ry }
func byVal(row, _ []image.RGB, col int) uint8 { _, _, by := image.ToYCbCr(row[col]); return by }

// avgRYVal averages the R-Y component of row and next, for PD-family
// modes' R-Y run averaged over two lines.
func avgRYVal(row, next []image.RGB, col int) uint8 {
	_, ry1, _ := image.ToYCbCr(row[col])
	if next == nil {
		return ry1
	}
	_, ry2, _ := image.ToYCbCr(next[col])
	return uint8((int(ry1) + int(ry2)) / 2)
}

// avgYVal averages luminance over row and next, used by the B/W family
//.
func avgYVal(row, next []image.RGB, col int) uint8 {
	y1, _, _ := image.ToYCbCr(row[col])
	if next == nil {
		return y1
	}
	y2, _, _ := image.ToYCbCr(next[col])
	return uint8((int(y1) + int(y2)) / 2)
}

func avgBYVal(row, next []image.RGB, col int) uint8 {
	_, _, by1 := image.ToYCbCr(row[col])
	if next == nil {
		return by1
	}
	_, _, by2 := image.ToYCbCr(next[col])
	return uint8((int(by1) + int(by2)) / 2)
}

// halfR, halfG, halfB average adjacent pixel pairs for half-resolution
// chroma runs. col indexes the half-resolution run; it is mapped back onto two
// full-resolution source columns.
func halfAvg(f func(row, next []image.RGB, col int) uint8) func(row, next []image.RGB, col int) uint8 {
	return func(row, next []image.RGB, col int) uint8 {
		c0, c1 := 2*col, 2*col+1
		if c1 >= len(row) {
			c1 = c0
		}
		return uint8((int(f(row, next, c0)) + int(f(row, next, c1))) / 2)
	}
}

// channels returns the per-line channel list for desc's scanline family,
// plus whether a line-leading sync pulse is emitted (AVT-90 has none).
func channelsFor(d mode.Descriptor) (chans []channel, hasSync bool) {
	hasSync = d.Family != mode.FamilyAVT90
	switch d.Family {
	case mode.FamilyScottie:
		// Per-line leading sync is suppressed for all but the first line
		// (Line gates that); the mid-line 1200 Hz pulse between blue and
		// red below stands in for every subsequent line's sync.
		return []channel{
			{gVal, stdFreq, fullCount, porchHz, kindStd, RoleG},
			{bVal, stdFreq, fullCount, syncHz, kindStd, RoleB},
			{rVal, stdFreq, fullCount, 0, kindStd, RoleR},
		}, hasSync
	case mode.FamilyMartin:
		return []channel{
			{gVal, stdFreq, fullCount, porchHz, kindStd, RoleG},
			{bVal, stdFreq, fullCount, porchHz, kindStd, RoleB},
			{rVal, stdFreq, fullCount, 0, kindStd, RoleR},
		}, hasSync
	case mode.FamilySC2:
		return []channel{
			{rVal, stdFreq, sc2Count, porchHz, kindStd, RoleR},
			{gVal, stdFreq, sc2Count, porchHz, kindStd, RoleG},
			{bVal, stdFreq, sc2Count, 0, kindStd, RoleB},
		}, hasSync
	case mode.FamilyPD:
		return []channel{
			{yVal, stdFreq, fullCount, porchHz, kindStd, RoleY},
			{avgRYVal, stdFreq, fullCount, porchHz, kindStd, RoleRY},
			{avgBYVal, stdFreq, fullCount, porchHz, kindStd, RoleBY},
			{yNextVal, stdFreq, fullCount, 0, kindStd, RoleYNext},
		}, hasSync
	case mode.FamilyPasokon:
		return []channel{
			{rVal, stdFreq, fullCount, porchHz, kindStd, RoleR},
			{gVal, stdFreq, fullCount, porchHz, kindStd, RoleG},
			{bVal, stdFreq, fullCount, 0, kindStd, RoleB},
		}, hasSync
	case mode.FamilyMR, mode.FamilyML:
		return []channel{
			{yVal, stdFreq, fullCount, porchHz, kindStd, RoleY},
			{halfAvg(ryVal), stdFreq, halfCount, porchHz, kindStd, RoleRY},
			{halfAvg(byVal), stdFreq, halfCount, 0, kindStd, RoleBY},
		}, hasSync
	case mode.FamilyMP:
		return []channel{
			{yVal, stdFreq, fullCount, porchHz, kindStd, RoleY},
			{avgRYVal, stdFreq, fullCount, porchHz, kindStd, RoleRY},
			{avgBYVal, stdFreq, fullCount, porchHz, kindStd, RoleBY},
			{yNextVal, stdFreq, fullCount, 0, kindStd, RoleYNext},
		}, hasSync
	case mode.FamilyMN:
		return []channel{
			{yVal, stdFreq, fullCount, porchHz, kindStd, RoleY},
			{ryVal, stdFreq, fullCount, porchHz, kindStd, RoleRY},
			{byVal, stdFreq, fullCount, 0, kindStd, RoleBY},
		}, hasSync
	case mode.FamilyMC:
		return []channel{
			{rVal, narrowFreq, fullCount, porchHz, kindNarrow, RoleR},
			{gVal, narrowFreq, fullCount, porchHz, kindNarrow, RoleG},
			{bVal, narrowFreq, fullCount, 0, kindNarrow, RoleB},
		}, hasSync
	case mode.FamilyAVT90:
		return []channel{
			{rVal, stdFreq, fullCount, porchHz, kindStd, RoleR},
			{gVal, stdFreq, fullCount, porchHz, kindStd, RoleG},
			{bVal, stdFreq, fullCount, 0, kindStd, RoleB},
		}, hasSync
	case mode.FamilyRobotColor:
		// Handled entirely by Scheduler.robotLine: luminance, then a
		// 1500/2300 Hz polarity marker, then whichever chroma channel
		// this row's parity selects.
		return nil, hasSync
	case mode.FamilyRobotBW:
		return []channel{
			{avgYVal, stdFreq, fullCount, 0, kindStd, RoleY},
		}, hasSync
	default:
		return []channel{
			{yVal, stdFreq, fullCount, 0, kindStd, RoleY},
		}, hasSync
	}
}

// sc2Count is the fixed 320-pixel iteration the SC2 family uses
// regardless of the mode's actual pixel width.
func sc2Count(int) int { return 320 }

// sc2Index maps an SC2 iteration index (0..319) back onto the mode's
// actual column count by nearest-neighbor scaling.
func sc2Index(i, width int) int {
	c := i * width / 320
	if c >= width {
		c = width - 1
	}
	return c
}

// Line builds the Segment list for image row `row` (and, for dual-row
// families, the following row `next`, or nil at the last row). lineIndex
// is 0-based within the transmission; firstLine gates the pre-picture
// sync pulse Scottie-family modes emit only once.
func (s *Scheduler) Line(row, next []image.RGB, lineIndex int, firstLine bool) []Segment {
	var segs []Segment
	add := func(f float64, ms float64) {
		n := s.samples(ms)
		if n > 0 {
			segs = append(segs, Segment{FreqHz: f, Samples: n})
		}
	}

	chans, hasSync := channelsFor(s.desc)

	// Scottie's leading sync precedes only the very first line of the
	// whole transmission; every other family with a sync
	// pulse emits it at the head of every line.
	leadingSyncEveryLine := s.desc.Family != mode.FamilyScottie
	if hasSync && (leadingSyncEveryLine || (lineIndex == 0 && firstLine)) {
		add(syncHz, s.timing.SyncPulseMs)
	}
	if s.timing.PorchMs > 0 {
		add(porchHz, s.timing.PorchMs)
	}

	if s.desc.Family == mode.FamilyRobotColor {
		s.robotLine(row, lineIndex, add)
		return segs
	}

	width := s.desc.Width
	for ci, ch := range chans {
		n := ch.count(width)
		chMs := s.timing.ChannelMs
		perMs := chMs / float64(n)
		for i := 0; i < n; i++ {
			col := i
			if s.desc.Family == mode.FamilySC2 {
				col = sc2Index(i, width)
			}
			v := ch.value(row, next, col)
			add(ch.freq(v), perMs)
		}
		if ci < len(chans)-1 {
			sep := ch.sepAfter
			if sep == 0 {
				sep = porchHz
			}
			add(sep, s.timing.SeparatorMs)
		}
	}
	return segs
}

// robotLine implements the Robot-color family's Y + alternating-chroma
// scanline: luminance at full width, then a 1500/2300 Hz polarity
// marker, then the chroma channel for this row's parity.
func (s *Scheduler) robotLine(row []image.RGB, lineIndex int, add func(float64, float64)) {
	width := s.desc.Width
	yMs := s.timing.ChannelMs
	for i := 0; i < width; i++ {
		y, _, _ := image.ToYCbCr(row[i])
		add(stdFreq(y), yMs/float64(width))
	}
	evenLine := lineIndex%2 == 0
	if evenLine {
		add(1500, s.timing.SeparatorMs)
	} else {
		add(2300, s.timing.SeparatorMs)
	}
	for i := 0; i < width; i++ {
		var v uint8
		_, ry, by := image.ToYCbCr(row[i])
		if evenLine {
			v = ry
		} else {
			v = by
		}
		add(stdFreq(v), yMs/float64(width))
	}
}
