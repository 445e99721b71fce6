/*
NAME
  imageio_cv.go

DESCRIPTION
  imageio_cv.go is the gocv-backed counterpart to imageio.go, selected
  by the withcv build tag (matching cmd/rv/probe.go's own
  //go:build withcv gate). It loads and resizes through OpenCV's
  cv.Mat pipeline instead of golang.org/x/image/draw, and additionally
  exposes OpenWebcam for cmd/sstv-cam's live capture loop.
*/

//go:build withcv

package imageio

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	gstv "github.com/vk2dsp/gosstv/image"
)

// LoadResized decodes the image at path and resizes it to width x
// height with OpenCV's area interpolation.
func LoadResized(path string, width, height int) (gstv.Frame, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		return gstv.Frame{}, fmt.Errorf("imageio: could not read %s", path)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationArea)

	return frameFromMat(resized, width, height)
}

// SavePNG writes f to path as a PNG via OpenCV's encoder.
func SavePNG(path string, f gstv.Frame) error {
	mat, err := matFromFrame(f)
	if err != nil {
		return err
	}
	defer mat.Close()
	if ok := gocv.IMWrite(path, mat); !ok {
		return fmt.Errorf("imageio: could not write %s", path)
	}
	return nil
}

// Webcam wraps a gocv.VideoCapture for cmd/sstv-cam's continuous
// capture loop.
type Webcam struct {
	cap           *gocv.VideoCapture
	width, height int
}

// OpenWebcam opens device index id and requests width x height frames.
func OpenWebcam(id, width, height int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, err
	}
	cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(height))
	return &Webcam{cap: cap, width: width, height: height}, nil
}

// ReadFrame reads and resizes the next webcam frame to the configured
// geometry.
func (w *Webcam) ReadFrame() (gstv.Frame, error) {
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := w.cap.Read(&mat); !ok || mat.Empty() {
		return gstv.Frame{}, fmt.Errorf("imageio: webcam read failed")
	}
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(w.width, w.height), 0, 0, gocv.InterpolationArea)
	return frameFromMat(resized, w.width, w.height)
}

// Close releases the underlying capture device.
func (w *Webcam) Close() error { return w.cap.Close() }

func frameFromMat(mat gocv.Mat, width, height int) (gstv.Frame, error) {
	pix := make([]gstv.RGB, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			c := mat.GetVecbAt(row, col) // BGR order.
			pix[row*width+col] = gstv.RGB{R: c[2], G: c[1], B: c[0]}
		}
	}
	return gstv.NewFrame(width, height, pix)
}

func matFromFrame(f gstv.Frame) (gocv.Mat, error) {
	raw := make([]byte, f.Width*f.Height*3)
	for row := 0; row < f.Height; row++ {
		for col := 0; col < f.Width; col++ {
			p := f.At(row, col)
			i := (row*f.Width + col) * 3
			raw[i], raw[i+1], raw[i+2] = p.B, p.G, p.R
		}
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, raw)
}
