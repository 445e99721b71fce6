/*
NAME
  assembler.go

DESCRIPTION
  assembler.go implements the RX image assembler. A baseline
  grayscale-per-pixel estimator is folded into a
  single per-mode demultiplexer driven by encoder.Layout — the same
  channel-role list the TX scheduler builds from. A mode whose demux
  never fills a chroma role degrades automatically to the grayscale
  baseline.
*/

package decoder

import (
	"github.com/vk2dsp/gosstv/encoder"
	"github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/mode"
)

// estimateValue implements the tone-to-intensity estimator:
// f̂ = 1500 + 800·p/(m+p), with a floor on the denominator.
func estimateValue(m, p float64) float64 {
	denom := m + p
	if denom < 1e-6 {
		denom = 1e-6
	}
	return 1500 + 800*p/denom
}

func msSamplesAt(fs, ms float64) int {
	n := int(ms*fs/1000 + 0.5)
	if n < 1 {
		n = 1
	}
	return n
}

func byteOf(f float64) uint8 {
	v := f + 0.5
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// destColsFor maps a channel-local pixel index i (0..count-1) onto the
// image column(s) it contributes to, covering the scheduler's
// non-1:1 families: half-width chroma runs (MR/ML) write two adjacent
// columns, SC2's fixed 320-iteration run nearest-neighbor-scales back
// onto the mode's actual width, and everything else is a direct index.
func destColsFor(count, width, i int) []int {
	switch {
	case count == width:
		if i >= width {
			i = width - 1
		}
		return []int{i}
	case width > 0 && count*2 == width:
		c0, c1 := 2*i, 2*i+1
		if c1 >= width {
			c1 = c0
		}
		return []int{c0, c1}
	case count == 320:
		c := i * width / 320
		if c >= width {
			c = width - 1
		}
		return []int{c}
	default:
		c := i * width / count
		if c >= width {
			c = width - 1
		}
		return []int{c}
	}
}

type linePhase int

const (
	linePreSync linePhase = iota
	linePorch
	lineChannel
	lineSeparator
	lineDone
	lineFinished
)

// Assembler walks one mode's scanline geometry (by role, reusing
// encoder.Layout) sample by sample, estimating each channel's pixel
// values from the tone-energy pair and composing full RGB pixels once
// every role a scanline defines has been filled.
type Assembler struct {
	desc   mode.Descriptor
	timing mode.Timing
	fs     float64
	buf    *image.Buffer

	layout  []encoder.ChannelSpec
	hasSync bool
	robot   bool

	phase        linePhase
	phaseSamples int
	phasePos     int
	afterPhase   func()

	chanIdx int
	curRole encoder.Role
	curCount int
	curToValue func(float64) uint8
	boundaries []int
	pixelIdx   int
	pixelSum   float64
	pixelN     int

	rowBuf   map[encoder.Role][]float64
	haveRole map[encoder.Role]bool

	pendingNextY []float64
	rowIdx       int
}

// NewAssembler allocates an Assembler (and its image.Buffer) for desc at
// sample rate fs.
func NewAssembler(desc mode.Descriptor, fs float64) *Assembler {
	layout, hasSync := encoder.Layout(desc)
	a := &Assembler{
		desc:    desc,
		timing:  desc.Timing(),
		fs:      fs,
		buf:     image.NewBuffer(desc.Width, desc.Height),
		layout:  layout,
		hasSync: hasSync,
		robot:   desc.Family == mode.FamilyRobotColor,
	}
	a.beginLine()
	return a
}

// Buffer returns the Assembler's owned, in-progress image buffer.
func (a *Assembler) Buffer() *image.Buffer { return a.buf }

// Complete reports whether every row has been assembled.
func (a *Assembler) Complete() bool { return a.buf.Complete() }

// Step consumes one working-signal sample's (mark, space) tone-energy
// pair, advancing the scanline cursor. It returns true the instant the
// image becomes complete.
func (a *Assembler) Step(m, p float64) bool {
	if a.phase == lineFinished {
		return a.buf.Complete()
	}
	val := estimateValue(m, p)
	if a.phase == lineChannel {
		a.stepChannelSample(val)
	} else {
		a.phasePos++
		if a.phasePos >= a.phaseSamples {
			a.afterPhase()
		}
	}
	if a.phase == lineDone {
		a.rowIdx++
		a.beginLine()
	}
	return a.buf.Complete()
}

func (a *Assembler) beginLine() {
	a.rowBuf = make(map[encoder.Role][]float64)
	a.haveRole = make(map[encoder.Role]bool)

	if a.buf.Complete() {
		a.phase = lineFinished
		return
	}

	// Scottie's leading sync precedes only the first line, matching the
	// TX scheduler; every other family with a sync pulse starts each line
	// with it.
	if a.hasSync && (a.desc.Family != mode.FamilyScottie || a.rowIdx == 0) {
		a.startPreSync()
	} else {
		a.startPorch()
	}
}

func (a *Assembler) startPreSync() {
	a.phase = linePreSync
	a.phaseSamples = msSamplesAt(a.fs, a.timing.SyncPulseMs)
	a.phasePos = 0
	a.afterPhase = a.startPorch
}

func (a *Assembler) startPorch() {
	a.phase = linePorch
	a.phaseSamples = msSamplesAt(a.fs, a.timing.PorchMs)
	a.phasePos = 0
	a.afterPhase = a.startFirstChannel
}

func (a *Assembler) startFirstChannel() {
	switch {
	case a.robot:
		a.startRobotY()
	case len(a.layout) == 0:
		a.finishLine()
	default:
		a.startLayoutChannel(0)
	}
}

func (a *Assembler) startChannel(role encoder.Role, count int, toValue func(float64) uint8, next func()) {
	if count < 1 {
		count = 1
	}
	a.phase = lineChannel
	a.curRole = role
	a.curCount = count
	a.curToValue = toValue
	total := msSamplesAt(a.fs, a.timing.ChannelMs)
	a.phaseSamples = total
	a.phasePos = 0
	a.boundaries = a.boundaries[:0]
	for i := 0; i < count; i++ {
		a.boundaries = append(a.boundaries, (i+1)*total/count)
	}
	a.pixelIdx = 0
	a.pixelSum = 0
	a.pixelN = 0
	a.afterPhase = next
}

func (a *Assembler) startLayoutChannel(idx int) {
	ch := a.layout[idx]
	a.chanIdx = idx
	a.startChannel(ch.Role, ch.Count(a.desc.Width), ch.ToValue, func() {
		if idx+1 < len(a.layout) {
			a.startSeparator(func() { a.startLayoutChannel(idx + 1) })
		} else {
			a.finishLine()
		}
	})
}

func (a *Assembler) startSeparator(next func()) {
	a.phase = lineSeparator
	a.phaseSamples = msSamplesAt(a.fs, a.timing.SeparatorMs)
	a.phasePos = 0
	a.afterPhase = next
}

// startRobotY and startRobotChroma replicate encoder.Scheduler.robotLine
// for the Robot-color family, which encoder.Layout deliberately leaves
// empty since it has no generic channel-list shape.
func (a *Assembler) startRobotY() {
	a.startChannel(encoder.RoleY, a.desc.Width, encoder.StdValue, func() {
		a.startSeparator(a.startRobotChroma)
	})
}

func (a *Assembler) startRobotChroma() {
	role := encoder.RoleRY
	if a.rowIdx%2 != 0 {
		role = encoder.RoleBY
	}
	a.startChannel(role, a.desc.Width, encoder.StdValue, a.finishLine)
}

func (a *Assembler) stepChannelSample(val float64) {
	a.pixelSum += val
	a.pixelN++
	a.phasePos++
	if a.pixelIdx < len(a.boundaries) && a.phasePos >= a.boundaries[a.pixelIdx] {
		mean := a.pixelSum / float64(a.pixelN)
		v := a.curToValue(mean)
		a.commitPixel(v, destColsFor(a.curCount, a.desc.Width, a.pixelIdx))
		a.pixelSum, a.pixelN = 0, 0
		a.pixelIdx++
	}
	if a.phasePos >= a.phaseSamples {
		a.afterPhase()
	}
}

func (a *Assembler) commitPixel(value uint8, destCols []int) {
	buf := a.rowBuf[a.curRole]
	if buf == nil {
		buf = make([]float64, a.desc.Width)
		a.rowBuf[a.curRole] = buf
	}
	for _, c := range destCols {
		if c >= 0 && c < len(buf) {
			buf[c] = float64(value)
		}
	}
	a.haveRole[a.curRole] = true
}

func (a *Assembler) finishLine() {
	a.composeRow()
	a.phase = lineDone
}

func (a *Assembler) composeRow() {
	if a.pendingNextY != nil {
		a.rowBuf[encoder.RoleY] = a.pendingNextY
		a.haveRole[encoder.RoleY] = true
		a.pendingNextY = nil
	}

	width := a.desc.Width
	for col := 0; col < width; col++ {
		var px image.RGB
		switch {
		case a.haveRole[encoder.RoleR] && a.haveRole[encoder.RoleG] && a.haveRole[encoder.RoleB]:
			px = image.RGB{
				R: byteOf(a.rowBuf[encoder.RoleR][col]),
				G: byteOf(a.rowBuf[encoder.RoleG][col]),
				B: byteOf(a.rowBuf[encoder.RoleB][col]),
			}
		case a.haveRole[encoder.RoleY]:
			y := byteOf(a.rowBuf[encoder.RoleY][col])
			if a.haveRole[encoder.RoleRY] || a.haveRole[encoder.RoleBY] {
				ry, by := byte(128), byte(128)
				if a.haveRole[encoder.RoleRY] {
					ry = byteOf(a.rowBuf[encoder.RoleRY][col])
				}
				if a.haveRole[encoder.RoleBY] {
					by = byteOf(a.rowBuf[encoder.RoleBY][col])
				}
				px = image.FromYCbCr(y, ry, by)
			} else {
				px = image.FromY(y)
			}
		}
		a.buf.SetPixel(px)
	}

	if buf, ok := a.rowBuf[encoder.RoleYNext]; ok && a.haveRole[encoder.RoleYNext] {
		a.pendingNextY = buf
	}
}
