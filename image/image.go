/*
NAME
  image.go

DESCRIPTION
  image.go defines the RGB24 pixel containers the TX and RX cores share:
  a read-only Frame the encoder borrows for one transmission, and an
  owned, row-growable Buffer the decoder fills on mode lock. Both carry
  the BT.601 RGB<->YCbCr conversion the TX scheduler and RX assembler
  use for chroma-mode pixel runs.
*/

// Package image provides the packed RGB24 pixel containers used by the
// SSTV encoder and decoder. It intentionally does not reuse the
// standard library's image package: the codec's width/height invariants
// and row-at-a-time fill discipline are specific enough that a small,
// dedicated type (mirroring codec/pcm's own Buffer type rather than a
// generic container) is clearer than adapting image.RGBA.
package image

import "fmt"

// RGB is one packed 24-bit pixel.
type RGB struct {
	R, G, B uint8
}

// Frame is a read-only width x height RGB24 view the TX encoder borrows
// for the lifetime of one encoding pass.
// Frame never copies or mutates Pix; callers own the backing slice.
type Frame struct {
	Width, Height int
	Pix           []RGB // row-major, len == Width*Height.
}

// NewFrame wraps pix as a Width x Height Frame. It returns an error if
// len(pix) does not match Width*Height, so a mismatched image is caught
// before the encoder ever borrows it.
func NewFrame(width, height int, pix []RGB) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("image: non-positive dimensions %dx%d", width, height)
	}
	if len(pix) != width*height {
		return Frame{}, fmt.Errorf("image: pixel count %d does not match %dx%d", len(pix), width, height)
	}
	return Frame{Width: width, Height: height, Pix: pix}, nil
}

// At returns the pixel at (row, col). It panics on out-of-range
// coordinates, matching the standard library's image convention of
// programmer-error bounds checks rather than a (RGB, bool) return.
func (f Frame) At(row, col int) RGB {
	return f.Pix[row*f.Width+col]
}

// Row returns a view of row i's pixels.
func (f Frame) Row(i int) []RGB {
	return f.Pix[i*f.Width : (i+1)*f.Width]
}

// RowOrNil returns a view of row i's pixels, or nil if i is out of
// range — used by the TX scheduler's dual-row families to look ahead
// one row without a bounds check at every call site.
func (f Frame) RowOrNil(i int) []RGB {
	if i < 0 || i >= f.Height {
		return nil
	}
	return f.Row(i)
}

// Buffer is the RX-owned counterpart to Frame: allocated when the
// decoder's VIS/sync FSM locks a mode, filled monotonically row by row,
// and released on reset. Unlike Frame, Buffer's Pix is mutable and is
// only ever written by the decoder's image assembler.
type Buffer struct {
	Width, Height int
	Pix           []RGB
	row, col      int // next pixel to be written.
}

// NewBuffer allocates a zeroed width x height Buffer.
func NewBuffer(width, height int) *Buffer {
	return &Buffer{Width: width, Height: height, Pix: make([]RGB, width*height)}
}

// SetPixel writes the pixel at the assembler's current cursor and
// advances the cursor by one column, wrapping to the next row at the end
// of a row. It is a no-op once every row has been written (the assembler
// is responsible for stopping the feed loop at that point).
func (b *Buffer) SetPixel(c RGB) {
	if b.row >= b.Height {
		return
	}
	b.Pix[b.row*b.Width+b.col] = c
	b.col++
	if b.col == b.Width {
		b.col = 0
		b.row++
	}
}

// Row and Col report the assembler's current write cursor.
func (b *Buffer) Row() int { return b.row }
func (b *Buffer) Col() int { return b.col }

// Complete reports whether every row has been filled.
func (b *Buffer) Complete() bool { return b.row >= b.Height }

// View returns a read-only Frame over Buffer's current contents. The
// decoder only calls this once Complete is true, so that callers never
// see pointers to the interior until the image is actually ready, but
// View itself does not enforce that — it is a plain
// conversion, not a gate.
func (b *Buffer) View() Frame {
	return Frame{Width: b.Width, Height: b.Height, Pix: b.Pix}
}

// BT.601 conversion constants.
const (
	yR, yG, yB   = 0.256773, 0.504097, 0.097900
	ryR, ryG, ryB = 0.439187, 0.367766, 0.071421
	byR, byG, byB = 0.148213, 0.290974, 0.439187
)

func clampByte(x float64) uint8 {
	switch {
	case x < 0:
		return 0
	case x > 255:
		return 255
	default:
		return uint8(x)
	}
}

// ToYCbCr converts an RGB pixel to BT.601 (Y, R-Y, B-Y), clamped to
// [0,255].
func ToYCbCr(p RGB) (y, ry, by uint8) {
	r, g, b := float64(p.R), float64(p.G), float64(p.B)
	y = clampByte(16 + yR*r + yG*g + yB*b)
	ry = clampByte(128 + ryR*r - ryG*g - ryB*b)
	by = clampByte(128 - byR*r - byG*g + byB*b)
	return
}

// FromY builds a gray RGB pixel from a luminance value alone, used by
// the decoder's grayscale baseline assembler when no
// per-mode chroma demux is available for the locked mode.
func FromY(y uint8) RGB {
	return RGB{R: y, G: y, B: y}
}

// FromYCbCr inverts ToYCbCr for the RX chroma demuxer by solving the 3x3
// BT.601 coefficient matrix for R, G, B given Y, R-Y, B-Y. The forward
// transform clamps each component independently, so this inverse is
// exact only for triples the forward transform could actually have
// produced; the result is clamped the same way on the way back out.
func FromYCbCr(y, ry, by uint8) RGB {
	yf := float64(y) - 16
	ryf := float64(ry) - 128
	byf := float64(by) - 128

	// | yR   yG   yB  | |R|   |yf |
	// | ryR -ryG -ryB | |G| = |ryf|
	// |-byR -byG  byB | |B|   |byf|
	a11, a12, a13 := yR, yG, yB
	a21, a22, a23 := ryR, -ryG, -ryB
	a31, a32, a33 := -byR, -byG, byB

	det := a11*(a22*a33-a23*a32) - a12*(a21*a33-a23*a31) + a13*(a21*a32-a22*a31)
	r := (yf*(a22*a33-a23*a32) - a12*(ryf*a33-a23*byf) + a13*(ryf*a32-a22*byf)) / det
	g := (a11*(ryf*a33-a23*byf) - yf*(a21*a33-a23*a31) + a13*(a21*byf-ryf*a31)) / det
	b := (a11*(a22*byf-ryf*a32) - a12*(a21*byf-ryf*a31) + yf*(a21*a32-a22*a31)) / det
	return RGB{R: clampByte(r), G: clampByte(g), B: clampByte(b)}
}
