/*
NAME
  hilbert.go

DESCRIPTION
  hilbert.go designs anti-symmetric Hilbert transformer taps, windowed
  and band-limited to the voice band (300-3000 Hz) the VIS/picture tones
  live in.
*/

package dsp

import "math"

// HilbertTaps designs an order-n (n even, odd tap count n+1) discrete Hilbert
// transformer, windowed with a Kaiser window and band-limited to
// [loHz, hiHz] at sample rate fs. An odd n is raised to the next even
// order. The result is anti-symmetric about its midpoint with a center
// tap of (near) zero and a sum of (near) zero.
func HilbertTaps(n int, loHz, hiHz, fs float64) []float64 {
	if n%2 == 1 {
		n++
	}
	taps := make([]float64, n+1)
	mid := float64(n) / 2
	beta := kaiserBeta(60) // 60 dB stopband, a reasonable default for a voice-band transformer.

	for i := 0; i <= n; i++ {
		m := float64(i) - mid
		taps[i] = idealHilbert(m) * kaiserWindow(beta, float64(i), float64(n)) * bandMask(m, loHz, hiHz, fs)
	}
	return taps
}

// idealHilbert evaluates the ideal discrete-time Hilbert transformer
// impulse response at offset m from the center tap: zero on even offsets,
// 2/(pi*m) on odd offsets.
func idealHilbert(m float64) float64 {
	n := int(math.Round(m))
	if n%2 == 0 {
		return 0
	}
	return 2 / (math.Pi * m)
}

// bandMask shapes the broadband Hilbert response down to [loHz, hiHz] by
// multiplying by the impulse response of an ideal bandpass filter
// centered between the two edges; this keeps the transformer's energy
// (and hence its use as a quadrature tap for tone detection) within the
// voice band the VIS and picture tones occupy.
func bandMask(m, loHz, hiHz, fs float64) float64 {
	lo := sinc(2*loHz/fs*m) * 2 * loHz / fs
	hi := sinc(2*hiHz/fs*m) * 2 * hiHz / fs
	return (hi - lo) * fs / (hiHz - loHz)
}
