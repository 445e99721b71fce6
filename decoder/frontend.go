/*
NAME
  frontend.go

DESCRIPTION
  frontend.go implements the RX front end: an optional spectral-
  subtraction denoiser, hard-clip, adjacent-average low-pass, a
  switchable wide/narrow band-pass FIR sharing one delay line, and a
  peak-tracking AGC.
*/

package decoder

import (
	"math"

	"github.com/pkg/errors"

	"github.com/vk2dsp/gosstv/dsp"
)

const (
	clipLimit      = 24576.0
	agcOutputLimit = 16384.0
	agcWindowMs    = 100.0
	agcFloor       = 32.0
	agcTarget      = 16384.0
	outputScale    = 32.0

	bandPassAttenDB     = 40.0
	bandPassTransitionHz = 200.0
)

// FrontEnd is the RX signal-conditioning chain: hard-clip, a two-tap
// adjacent-average low-pass, a band-pass FIR (wide during acquisition,
// narrow once a start bit has been validated) sharing a single
// dsp.Convolver delay line, and a fast peak-tracking AGC.
type FrontEnd struct {
	fs float64

	prev float64

	wideTaps   []float64
	narrowTaps []float64
	conv       *dsp.Convolver
	narrow     bool

	windowSamples int
	windowPos     int
	windowPeak    float64
	gain          float64

	denoise   *dsp.SpectralSubtractor
	denoiseOn bool
}

// NewFrontEnd designs a FrontEnd for sample rate fs. The wide (400-2500
// Hz) and narrow (1080-2600 Hz) band-pass taps share the same
// attenuation and transition width so dsp.KaiserTaps' length rule yields identical
// tap counts, letting both filters share one Convolver delay line
//.
func NewFrontEnd(fs float64) (*FrontEnd, error) {
	if fs <= 0 {
		return nil, errors.New("decoder: sample rate must be positive")
	}
	wide, err := dsp.KaiserTaps(dsp.BandPass, fs, [2]float64{400, 2500}, bandPassTransitionHz, bandPassAttenDB, 1)
	if err != nil {
		return nil, errors.Wrap(err, "decoder: wide band-pass design")
	}
	narrow, err := dsp.KaiserTaps(dsp.BandPass, fs, [2]float64{1080, 2600}, bandPassTransitionHz, bandPassAttenDB, 1)
	if err != nil {
		return nil, errors.Wrap(err, "decoder: narrow band-pass design")
	}
	if len(narrow) != len(wide) {
		// Pad the shorter set with zero taps so one delay line still
		// serves both; the shared Kaiser length rule makes this unreachable
		// in practice since both filters share attenDB/transitionHz.
		narrow = padTaps(narrow, len(wide))
		wide = padTaps(wide, len(narrow))
	}
	denoise, err := dsp.NewSpectralSubtractor(dsp.DefaultDenoiseFrame, dsp.DefaultDenoiseHop)
	if err != nil {
		return nil, errors.Wrap(err, "decoder: denoiser design")
	}
	f := &FrontEnd{
		fs:            fs,
		wideTaps:      wide,
		narrowTaps:    narrow,
		conv:          dsp.NewConvolver(wide),
		windowSamples: int(fs*agcWindowMs/1000 + 0.5),
		gain:          1,
		denoise:       denoise,
	}
	if f.windowSamples < 1 {
		f.windowSamples = 1
	}
	return f, nil
}

// SetDenoise enables or disables the spectral-subtraction noise
// reduction stage ahead of the clip/band-pass chain. Disabled by
// default: the one-frame pipeline latency it introduces only pays for
// itself on noisy RF sources, not clean loopback or file input.
func (f *FrontEnd) SetDenoise(enabled bool) {
	f.denoiseOn = enabled
	if !enabled {
		f.denoise.Reset()
	}
}

func padTaps(taps []float64, n int) []float64 {
	if len(taps) >= n {
		return taps
	}
	out := make([]float64, n)
	copy(out, taps)
	return out
}

// SetNarrow selects the narrow (post-start-bit) band-pass response; the
// wide response is used otherwise.
func (f *FrontEnd) SetNarrow(narrow bool) { f.narrow = narrow }

// Process runs one raw sample through the full front-end chain and
// returns the working signal.
func (f *FrontEnd) Process(x float64) float64 {
	if f.denoiseOn {
		x = f.denoise.Process(x)
	}
	if x > clipLimit {
		x = clipLimit
	} else if x < -clipLimit {
		x = -clipLimit
	}

	avg := (x + f.prev) / 2
	f.prev = x

	taps := f.wideTaps
	if f.narrow {
		taps = f.narrowTaps
	}
	bp := f.conv.StepWithTaps(avg, taps)

	mag := math.Abs(bp)
	if mag > f.windowPeak {
		f.windowPeak = mag
	}
	f.windowPos++
	if f.windowPos >= f.windowSamples {
		peak := f.windowPeak
		if peak < agcFloor {
			peak = agcFloor
		}
		f.gain = agcTarget / peak
		f.windowPeak = 0
		f.windowPos = 0
	}

	out := bp * f.gain * outputScale
	if out > agcOutputLimit {
		out = agcOutputLimit
	} else if out < -agcOutputLimit {
		out = -agcOutputLimit
	}
	return out
}

// Reset clears all filter and AGC state without redesigning the taps.
func (f *FrontEnd) Reset() {
	f.prev = 0
	f.conv.Reset()
	f.windowPos = 0
	f.windowPeak = 0
	f.gain = 1
	f.narrow = false
	f.denoise.Reset()
}
