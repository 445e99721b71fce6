/*
NAME
  filters_test.go

DESCRIPTION
  filter_test.go contains functions for testing functions in filters.go.

AUTHOR
  David Sutton <davidsutton@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
)

// Set constant values for testing.
const (
	sampleRate   = 44100
	filterLength = 500
	freqTest     = 1000
)

// TestLowPass checks that energy above the cutoff is attenuated.
func TestLowPass(t *testing.T) {
	genAudio, err := generate()
	if err != nil {
		t.Fatal(err)
	}
	var buf = Buffer{Data: genAudio, Format: BufferFormat{SFormat: S16_LE, Rate: sampleRate, Channels: 1}}

	const fc = 4500.0
	lp, err := NewLowPass(fc, buf.Format, filterLength)
	if err != nil {
		t.Fatal(err)
	}

	filteredAudio, err := lp.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	filteredFFT := fft.FFTReal(filteredFloats)

	for i := int(fc) + 1000; i < sampleRate/2; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("low-pass left energy above cutoff: bin %d mag %v", i, mag)
			break
		}
	}
}

// TestHighPass checks that energy below the cutoff is attenuated.
func TestHighPass(t *testing.T) {
	genAudio, err := generate()
	if err != nil {
		t.Fatal(err)
	}
	var buf = Buffer{Data: genAudio, Format: BufferFormat{SFormat: S16_LE, Rate: sampleRate, Channels: 1}}

	const fc = 4500.0
	hp, err := NewHighPass(fc, buf.Format, filterLength)
	if err != nil {
		t.Fatal(err)
	}

	filteredAudio, err := hp.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	filteredFFT := fft.FFTReal(filteredFloats)

	for i := 0; i < int(fc)-1000; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("high-pass left energy below cutoff: bin %d mag %v", i, mag)
		}
	}
}

// TestBandPass checks that energy outside the passband is attenuated.
func TestBandPass(t *testing.T) {
	genAudio, err := generate()
	if err != nil {
		t.Fatal(err)
	}
	var buf = Buffer{Data: genAudio, Format: BufferFormat{SFormat: S16_LE, Rate: sampleRate, Channels: 1}}

	const (
		fcL = 4500.0
		fcU = 9500.0
	)
	bp, err := NewBandPass(fcL, fcU, buf.Format, filterLength)
	if err != nil {
		t.Fatal(err)
	}

	filteredAudio, err := bp.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	filteredFFT := fft.FFTReal(filteredFloats)

	for i := 0; i < int(fcL)-1000; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("band-pass left energy below lower cutoff: bin %d mag %v", i, mag)
		}
	}
	for i := int(fcU) + 1000; i < sampleRate/2; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("band-pass left energy above upper cutoff: bin %d mag %v", i, mag)
		}
	}
}

// TestSSTVBandPass checks that NewSSTVBandPass leaves no bin from 1000 Hz
// above the 2500 Hz upper band edge up to Nyquist above freqTest. The
// below-band loop ends at 400-1000 Hz, a negative bound, so it checks no bins.
func TestSSTVBandPass(t *testing.T) {
	genAudio, err := generate()
	if err != nil {
		t.Fatal(err)
	}
	buf := Buffer{Data: genAudio, Format: BufferFormat{SFormat: S16_LE, Rate: sampleRate, Channels: 1}}

	sbp, err := NewSSTVBandPass(buf.Format, filterLength)
	if err != nil {
		t.Fatal(err)
	}

	filteredAudio, err := sbp.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	filteredFFT := fft.FFTReal(filteredFloats)

	for i := 0; i < int(sstvBandLowHz)-1000; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("SSTV band-pass left energy below lower cutoff: bin %d mag %v", i, mag)
		}
	}
	for i := int(sstvBandHighHz) + 1000; i < sampleRate/2; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("SSTV band-pass left energy above upper cutoff: bin %d mag %v", i, mag)
		}
	}
}

// TestBandStop checks that energy inside the stopband is attenuated.
func TestBandStop(t *testing.T) {
	genAudio, err := generate()
	if err != nil {
		t.Fatal(err)
	}
	var buf = Buffer{Data: genAudio, Format: BufferFormat{SFormat: S16_LE, Rate: sampleRate, Channels: 1}}

	const (
		fcL = 4500.0
		fcU = 9500.0
	)
	bs, err := NewBandStop(fcL, fcU, buf.Format, filterLength)
	if err != nil {
		t.Fatal(err)
	}

	filteredAudio, err := bs.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	filteredFFT := fft.FFTReal(filteredFloats)

	for i := int(fcL) + 1000; i < int(fcU)-1000; i++ {
		mag := math.Pow(cmplx.Abs(filteredFFT[i]), 2)
		if mag > freqTest {
			t.Errorf("band-stop left energy inside stopband: bin %d mag %v", i, mag)
		}
	}
}

// TestAmplifier checks that amplification scales peak amplitude by the
// configured factor.
func TestAmplifier(t *testing.T) {
	const rate = sampleRate
	lowSine := genSine(rate, 440, 0.1, 0.1)
	buf := Buffer{Data: lowSine, Format: BufferFormat{SFormat: S16_LE, Rate: rate, Channels: 1}}

	const factor = 5.0
	amp := NewAmplifier(factor)

	filteredAudio, err := amp.Apply(buf)
	if err != nil {
		t.Fatal(err)
	}

	dataFloats, err := bytesToFloats(buf.Data)
	if err != nil {
		t.Fatal(err)
	}
	preMax := maxAbs(dataFloats)
	filteredFloats, err := bytesToFloats(filteredAudio)
	if err != nil {
		t.Fatal(err)
	}
	postMax := maxAbs(filteredFloats)

	ratio := postMax / preMax
	if ratio > 1.05*factor || ratio < 0.95*factor {
		t.Errorf("amplifier scaled peak by %v, want ~%v", ratio, factor)
	}
}

// generate returns a byte slice in the same format that would be read from
// a PCM file: a 1-second sum of tones spaced 1kHz apart up to the Nyquist
// rate, for probing a filter's response across the whole band at once.
func generate() ([]byte, error) {
	s := make([]float64, sampleRate)
	const (
		deltaFreq = 1000
		maxFreq   = 21000
		amplitude = float64(deltaFreq) / float64(maxFreq-deltaFreq)
	)
	for n := 0; n < sampleRate; n++ {
		t := float64(n) / float64(sampleRate)
		for f := deltaFreq; f < maxFreq; f += deltaFreq {
			s[n] += amplitude * math.Sin(float64(f)*2*math.Pi*t)
		}
	}
	return floatsToBytes(s)
}

// genSine returns a single-tone PCM byte slice of the given amplitude and
// duration.
func genSine(rate uint, freq, amplitude, seconds float64) []byte {
	n := int(float64(rate) * seconds)
	s := make([]float64, n)
	for i := range s {
		s[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	b, _ := floatsToBytes(s)
	return b
}

// maxAbs returns the absolute largest value in a.
func maxAbs(a []float64) float64 {
	var runMax float64
	for _, v := range a {
		if math.Abs(v) > runMax {
			runMax = math.Abs(v)
		}
	}
	return runMax
}
