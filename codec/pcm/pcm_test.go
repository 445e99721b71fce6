/*
NAME
  pcm_test.go

DESCRIPTION
  pcm_test.go contains functions for testing the pcm package.

AUTHOR
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package pcm

import (
	"encoding/binary"
	"math"
	"testing"
)

// genTone returns a synthetic S16_LE mono tone at the given sample rate.
func genTone(rate uint, freq float64, seconds float64) []byte {
	n := int(float64(rate) * seconds)
	out := make([]byte, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(rate)
		v := int16(8000 * math.Sin(2*math.Pi*freq*t))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// TestResample checks that downsampling a tone preserves its length ratio
// and that the rate field on the result is updated.
func TestResample(t *testing.T) {
	const fromRate, toRate = 48000, 8000
	in := Buffer{
		Format: BufferFormat{Channels: 1, Rate: fromRate, SFormat: S16_LE},
		Data:   genTone(fromRate, 400, 1),
	}

	out, err := Resample(in, toRate)
	if err != nil {
		t.Fatal(err)
	}
	if out.Format.Rate != toRate {
		t.Errorf("Format.Rate = %v, want %v", out.Format.Rate, toRate)
	}
	wantLen := len(in.Data) * toRate / fromRate
	if len(out.Data) != wantLen {
		t.Errorf("len(Data) = %v, want %v", len(out.Data), wantLen)
	}
}

// TestResampleSameRate checks that resampling to the same rate is a no-op.
func TestResampleSameRate(t *testing.T) {
	in := Buffer{
		Format: BufferFormat{Channels: 1, Rate: 48000, SFormat: S16_LE},
		Data:   genTone(48000, 400, 1),
	}
	out, err := Resample(in, 48000)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != len(in.Data) {
		t.Errorf("len(Data) changed on same-rate resample: %v != %v", len(out.Data), len(in.Data))
	}
}

// TestStereoToMono checks that a stereo buffer built from two tones
// (440 Hz left, 880 Hz right) reduces to a mono buffer carrying the left
// channel's samples.
func TestStereoToMono(t *testing.T) {
	const rate = 44100
	left := genTone(rate, 440, 0.1)
	right := genTone(rate, 880, 0.1)

	stereo := make([]byte, 0, len(left)+len(right))
	for i := 0; i < len(left); i += 2 {
		stereo = append(stereo, left[i], left[i+1], right[i], right[i+1])
	}

	buf := Buffer{
		Format: BufferFormat{Channels: 2, Rate: rate, SFormat: S16_LE},
		Data:   stereo,
	}

	mono, err := StereoToMono(buf)
	if err != nil {
		t.Fatal(err)
	}
	if mono.Format.Channels != 1 {
		t.Errorf("Format.Channels = %v, want 1", mono.Format.Channels)
	}
	if len(mono.Data) != len(left) {
		t.Fatalf("len(Data) = %v, want %v", len(mono.Data), len(left))
	}
	for i := range mono.Data {
		if mono.Data[i] != left[i] {
			t.Fatalf("byte %d: got %v, want left channel's %v", i, mono.Data[i], left[i])
		}
	}
}

// TestStereoToMonoAlreadyMono checks the pass-through case.
func TestStereoToMonoAlreadyMono(t *testing.T) {
	in := Buffer{Format: BufferFormat{Channels: 1, Rate: 44100, SFormat: S16_LE}, Data: genTone(44100, 440, 0.05)}
	out, err := StereoToMono(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Data) != len(in.Data) {
		t.Errorf("mono pass-through changed length: %v != %v", len(out.Data), len(in.Data))
	}
}

func TestSFFromString(t *testing.T) {
	if f, err := SFFromString("S16_LE"); err != nil || f != S16_LE {
		t.Errorf("SFFromString(S16_LE) = %v, %v", f, err)
	}
	if _, err := SFFromString("bogus"); err == nil {
		t.Error("SFFromString(bogus) returned nil error")
	}
}
