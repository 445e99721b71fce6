/*
NAME
  encoder_test.go

DESCRIPTION
  encoder_test.go checks the TX driver's dimension validation, total
  sample accounting, amplitude bound, and reset-reproducibility
  properties.
*/

package encoder

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/mode"
)

func uniformFrame(t *testing.T, width, height int, r, g, b uint8) image.Frame {
	t.Helper()
	pix := make([]image.RGB, width*height)
	for i := range pix {
		pix[i] = image.RGB{R: r, G: g, B: b}
	}
	f, err := image.NewFrame(width, height, pix)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func scottie1(t *testing.T) mode.ID {
	t.Helper()
	id, err := mode.FindByName("Scottie 1")
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestNewInvalidSampleRate(t *testing.T) {
	if _, err := New(scottie1(t), 0, nil); err != ErrInvalidSampleRate {
		t.Fatalf("got %v, want ErrInvalidSampleRate", err)
	}
	if _, err := New(scottie1(t), -100, nil); err != ErrInvalidSampleRate {
		t.Fatalf("got %v, want ErrInvalidSampleRate", err)
	}
}

func TestSetImageDimensionMismatch(t *testing.T) {
	id := scottie1(t)
	e, err := New(id, 48000, nil)
	if err != nil {
		t.Fatal(err)
	}
	bad := uniformFrame(t, 320, 255, 0, 0, 0)
	if err := e.SetImage(bad); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	buf := make([]float64, 1024)
	n, err := e.Generate(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Generate after failed SetImage wrote %d samples, want 0", n)
	}
}

func TestGenerateAmplitudeBound(t *testing.T) {
	id := scottie1(t)
	e, err := New(id, 48000, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := mode.Get(id)
	frame := uniformFrame(t, d.Width, d.Height, 127, 127, 127)
	if err := e.SetImage(frame); err != nil {
		t.Fatal(err)
	}
	buf := make([]float64, 4096)
	for !e.IsComplete() {
		n, err := e.Generate(buf)
		if err != nil {
			t.Fatal(err)
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			if math.Abs(buf[i]) > 1 {
				t.Fatalf("sample out of bounds: %v", buf[i])
			}
		}
	}
}

func TestGetTotalSamplesMatchesGeneratedCount(t *testing.T) {
	id, err := mode.FindByName("Robot BW 8")
	if err != nil {
		t.Fatal(err)
	}
	e, err := New(id, 8000, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := mode.Get(id)
	frame := uniformFrame(t, d.Width, d.Height, 64, 64, 64)
	if err := e.SetImage(frame); err != nil {
		t.Fatal(err)
	}

	total := 0
	buf := make([]float64, 2048)
	for {
		n, err := e.Generate(buf)
		if err != nil {
			t.Fatal(err)
		}
		total += n
		if n == 0 {
			break
		}
	}
	want := e.GetTotalSamples()
	if total != want {
		t.Fatalf("generated %d samples, want %d", total, want)
	}
	if got := e.GetProgress(); got != 1 {
		t.Fatalf("GetProgress() after completion = %v, want 1", got)
	}
}

func TestResetReproducesOutput(t *testing.T) {
	id := scottie1(t)
	e, err := New(id, 48000, nil)
	if err != nil {
		t.Fatal(err)
	}
	d, _ := mode.Get(id)
	frame := uniformFrame(t, d.Width, d.Height, 200, 50, 10)
	if err := e.SetImage(frame); err != nil {
		t.Fatal(err)
	}

	first := make([]float64, 16384)
	n1, _ := e.Generate(first)

	e.Reset()
	second := make([]float64, 16384)
	n2, _ := e.Generate(second)

	if n1 != n2 {
		t.Fatalf("sample counts differ after reset: %d vs %d", n1, n2)
	}
	if diff := cmp.Diff(first[:n1], second[:n2]); diff != "" {
		t.Fatalf("output differs after reset (-first +second):\n%s", diff)
	}
}

func TestNoImageReturnsZero(t *testing.T) {
	e, err := New(scottie1(t), 48000, nil)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float64, 128)
	n, err := e.Generate(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("Generate with no image set wrote %d samples, want 0", n)
	}
}
