/*
NAME
  denoise.go

DESCRIPTION
  denoise.go implements streaming spectral-subtraction noise reduction:
  an overlap-add STFT stage that tracks a running noise magnitude
  estimate and subtracts it from each frame's spectrum, floored to avoid
  musical-noise artefacts.
*/

package dsp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// DefaultDenoiseFrame and DefaultDenoiseHop give 75% frame overlap.
	DefaultDenoiseFrame = 1024
	DefaultDenoiseHop   = 256

	noiseFloorFactor  = 0.08
	noiseSmoothAlpha  = 0.90
)

// SpectralSubtractor is a streaming spectral-subtraction denoiser: a
// Hann-windowed, overlap-add STFT that maintains an exponentially
// smoothed noise magnitude estimate per bin and subtracts it (floored at
// noiseFloorFactor of the estimate) before resynthesis. Samples in, one
// sample out per Process call, at a fixed latency of frameSize-1 samples.
type SpectralSubtractor struct {
	frameSize int
	hopSize   int

	fft    *fourier.FFT
	window []float64

	inBuf  []float64 // sliding frameSize history of raw input
	inPos  int
	inFill int

	outBuf []float64 // overlap-add accumulator, length frameSize
	ready  []float64 // drained output samples awaiting Process's return
	readyPos int

	noiseMag  []float64
	noiseInit bool

	hopCount int
}

// NewSpectralSubtractor returns a SpectralSubtractor with the given STFT
// frame and hop size. hopSize must divide evenly into frameSize and be
// strictly smaller than it.
func NewSpectralSubtractor(frameSize, hopSize int) (*SpectralSubtractor, error) {
	if frameSize <= 0 || hopSize <= 0 || hopSize >= frameSize {
		return nil, errors.Errorf("dsp: invalid denoise frame/hop size %d/%d", frameSize, hopSize)
	}
	window := make([]float64, frameSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(frameSize-1)))
	}
	return &SpectralSubtractor{
		frameSize: frameSize,
		hopSize:   hopSize,
		fft:       fourier.NewFFT(frameSize),
		window:    window,
		inBuf:     make([]float64, frameSize),
		outBuf:    make([]float64, frameSize),
		noiseMag:  make([]float64, frameSize/2+1),
	}, nil
}

// Process pushes one raw sample through the denoiser and returns the
// resynthesized sample frameSize-1 samples behind it; the pipeline emits
// silence for the first frameSize-1 calls while it fills its first frame.
func (s *SpectralSubtractor) Process(x float64) float64 {
	s.inBuf[s.inPos] = x
	s.inPos = (s.inPos + 1) % s.frameSize
	if s.inFill < s.frameSize {
		s.inFill++
	}
	s.hopCount++

	if s.readyPos < len(s.ready) {
		out := s.ready[s.readyPos]
		s.readyPos++
		if s.hopCount >= s.hopSize && s.inFill == s.frameSize {
			s.runFrame()
		}
		return out
	}
	if s.hopCount >= s.hopSize && s.inFill == s.frameSize {
		s.runFrame()
		if s.readyPos < len(s.ready) {
			out := s.ready[s.readyPos]
			s.readyPos++
			return out
		}
	}
	return 0
}

// runFrame windows the current frameSize history, subtracts the
// running noise estimate in the frequency domain, and overlap-adds the
// resynthesized hop into outBuf, queuing hopSize samples for Process to
// drain.
func (s *SpectralSubtractor) runFrame() {
	s.hopCount = 0

	frame := make([]float64, s.frameSize)
	idx := s.inPos
	for i := 0; i < s.frameSize; i++ {
		frame[i] = s.inBuf[idx] * s.window[i]
		idx = (idx + 1) % s.frameSize
	}

	spectrum := s.fft.Coefficients(nil, frame)
	mag := make([]float64, len(spectrum))
	phase := make([]float64, len(spectrum))
	for i, c := range spectrum {
		mag[i] = cmplxAbs(c)
		phase[i] = cmplxPhase(c)
	}

	if !s.noiseInit {
		copy(s.noiseMag, mag)
		s.noiseInit = true
	} else {
		for i := range s.noiseMag {
			s.noiseMag[i] = noiseSmoothAlpha*s.noiseMag[i] + (1-noiseSmoothAlpha)*mag[i]
		}
	}

	for i := range spectrum {
		floorVal := noiseFloorFactor * s.noiseMag[i]
		clean := mag[i] - s.noiseMag[i]
		if clean < floorVal {
			clean = floorVal
		}
		sinP, cosP := math.Sincos(phase[i])
		spectrum[i] = complex(clean*cosP, clean*sinP)
	}

	out := s.fft.Sequence(nil, spectrum)
	for i := 0; i < s.frameSize; i++ {
		s.outBuf[i] += out[i] * s.window[i]
	}

	s.ready = append(s.ready[:0], s.outBuf[:s.hopSize]...)
	s.readyPos = 0
	copy(s.outBuf, s.outBuf[s.hopSize:])
	for i := s.frameSize - s.hopSize; i < s.frameSize; i++ {
		s.outBuf[i] = 0
	}
}

// Reset clears all filter history and the noise estimate.
func (s *SpectralSubtractor) Reset() {
	for i := range s.inBuf {
		s.inBuf[i] = 0
	}
	for i := range s.outBuf {
		s.outBuf[i] = 0
	}
	for i := range s.noiseMag {
		s.noiseMag[i] = 0
	}
	s.inPos, s.inFill, s.hopCount = 0, 0, 0
	s.noiseInit = false
	s.ready = s.ready[:0]
	s.readyPos = 0
}

func cmplxAbs(c complex128) float64   { return math.Hypot(real(c), imag(c)) }
func cmplxPhase(c complex128) float64 { return math.Atan2(imag(c), real(c)) }
