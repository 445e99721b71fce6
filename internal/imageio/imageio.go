/*
NAME
  imageio.go

DESCRIPTION
  imageio.go loads a still image from disk and resizes it to a mode's
  exact pixel geometry for the cmd/ tools. It mirrors cmd/rv/probe.go's
  //go:build withcv split: the default build uses the pure-Go
  golang.org/x/image/draw resizer, so a Pi without OpenCV installed can
  still build the CLI tools; building with the withcv tag instead uses
  gocv (imageio_cv.go), which also provides the webcam capture
  cmd/sstv-cam needs.
*/

//go:build !withcv

// Package imageio loads and resizes still images to SSTV mode geometry.
package imageio

import (
	stdimg "image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	gstv "github.com/vk2dsp/gosstv/image"
)

// LoadResized decodes the image at path and resizes it to width x
// height using a Catmull-Rom resampler.
func LoadResized(path string, width, height int) (gstv.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return gstv.Frame{}, err
	}
	defer f.Close()

	src, _, err := stdimg.Decode(f)
	if err != nil {
		return gstv.Frame{}, err
	}

	dst := stdimg.NewRGBA(stdimg.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	pix := make([]gstv.RGB, width*height)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			r, g, b, _ := dst.At(col, row).RGBA()
			pix[row*width+col] = gstv.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)}
		}
	}
	return gstv.NewFrame(width, height, pix)
}

// SavePNG writes f to path as a PNG.
func SavePNG(path string, f gstv.Frame) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	img := stdimg.NewRGBA(stdimg.Rect(0, 0, f.Width, f.Height))
	for row := 0; row < f.Height; row++ {
		for col := 0; col < f.Width; col++ {
			p := f.At(row, col)
			img.Set(col, row, color.RGBA{R: p.R, G: p.G, B: p.B, A: 255})
		}
	}
	return png.Encode(out, img)
}
