/*
NAME
  vco_test.go

DESCRIPTION
  vco_test.go checks the oscillator's frequency mapping and phase
  wrap-around behavior.
*/

package vco

import (
	"math"
	"testing"
)

const testFS = 48000.0

// measureFreq drives o at a fixed control input and counts zero crossings
// to estimate the resulting frequency, cross-checking the table-lookup
// synthesis against the linear (FMin, Span) mapping it's built from.
func measureFreq(o *Oscillator, u float64, samples int) float64 {
	prev := o.Step(u)
	var crossings int
	for i := 1; i < samples; i++ {
		y := o.Step(u)
		if prev < 0 && y >= 0 {
			crossings++
		}
		prev = y
	}
	return float64(crossings) * testFS / float64(samples)
}

func TestFrequencyMapping(t *testing.T) {
	o := New(testFS, 1080, 140) // 1080..1220 Hz.

	got := measureFreq(o, 0, 48000)
	if math.Abs(got-1080) > 5 {
		t.Errorf("u=0: measured %.1fHz, want ~1080Hz", got)
	}

	o.Reset()
	got = measureFreq(o, 1, 48000)
	if math.Abs(got-1220) > 5 {
		t.Errorf("u=1: measured %.1fHz, want ~1220Hz", got)
	}

	o.Reset()
	got = measureFreq(o, 0.5, 48000)
	if math.Abs(got-1150) > 5 {
		t.Errorf("u=0.5: measured %.1fHz, want ~1150Hz", got)
	}
}

func TestStepFreqMatchesControlMapping(t *testing.T) {
	a := New(testFS, 1500, 800)
	b := New(testFS, 1500, 800)

	for n := 0; n < 1000; n++ {
		u := 0.3
		wantFreq := a.FMin() + u*a.Span()
		got := a.Step(u)
		want := b.StepFreq(wantFreq)
		if got != want {
			t.Fatalf("sample %d: Step(u)=%v != StepFreq(freq)=%v", n, got, want)
		}
	}
}

func TestPhaseWrapsWithinTable(t *testing.T) {
	o := New(testFS, 2044, 256)
	for n := 0; n < 200000; n++ {
		o.Step(1)
		if o.phase < 0 || o.phase >= float64(len(o.table)) {
			t.Fatalf("sample %d: phase %v out of table bounds [0,%d)", n, o.phase, len(o.table))
		}
	}
}

func TestOutputBounded(t *testing.T) {
	o := New(testFS, 1080, 140)
	for n := 0; n < 10000; n++ {
		y := o.Step(0.7)
		if y < -1 || y > 1 {
			t.Fatalf("sample %d: output %v out of [-1,1]", n, y)
		}
	}
}
