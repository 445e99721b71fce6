/*
NAME
  decoder_test.go

DESCRIPTION
  decoder_test.go checks the sync/VIS FSM's boundary cases: silence
  stays IDLE, a sub-break 1200 Hz burst never reaches validation, and
  a decoder round-trips a VIS header encoded by
  vis.Encoder into a mode lock.
*/

package decoder

import (
	"math"
	"testing"

	"github.com/vk2dsp/gosstv/mode"
	"github.com/vk2dsp/gosstv/vis"
)

const testFs = 8000.0

func feedSilence(t *testing.T, d *Decoder, seconds float64) {
	t.Helper()
	n := int(seconds * testFs)
	buf := make([]float64, n)
	if _, err := d.Feed(buf); err != nil {
		t.Fatal(err)
	}
}

func feedTone(d *Decoder, freqHz, ms, fs float64) {
	n := int(ms * fs / 1000)
	phase := 0.0
	step := 2 * math.Pi * freqHz / fs
	for i := 0; i < n; i++ {
		d.FeedSample(math.Sin(phase) * 0.5)
		phase += step
	}
}

func TestSilenceStaysIdle(t *testing.T) {
	d, err := New(testFs, nil)
	if err != nil {
		t.Fatal(err)
	}
	feedSilence(t, d, 5)
	st := d.GetState()
	if st.SyncDetected || st.ImageReady || st.ModeLocked {
		t.Fatalf("got %+v, want fully idle", st)
	}
}

func TestSubBreakBurstDoesNotValidate(t *testing.T) {
	d, err := New(testFs, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 9 ms of 1200 Hz must be rejected as the VIS break, not a start bit.
	feedTone(d, 1200, 9, testFs)
	if d.GetState().SyncDetected {
		t.Fatal("9 ms of 1200 Hz must not reach start-bit validation")
	}
}

func TestFeedZeroSamplesNoStateChange(t *testing.T) {
	d, err := New(testFs, nil)
	if err != nil {
		t.Fatal(err)
	}
	before := d.GetState()
	code, err := d.Feed(nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != ResultOK {
		t.Fatalf("Feed(nil) = %v, want ResultOK", code)
	}
	if d.GetState() != before {
		t.Fatal("state changed after feeding zero samples")
	}
}

func TestNewInvalidSampleRate(t *testing.T) {
	if _, err := New(0, nil); err != ErrInvalidSampleRate {
		t.Fatalf("got %v, want ErrInvalidSampleRate", err)
	}
}

// TestVISRoundTrip encodes Robot 36's VIS header with vis.Encoder at a
// high enough sample rate for the tank resonators to resolve, feeds it
// through the decoder, and checks the FSM locks the right mode.
func TestVISRoundTrip(t *testing.T) {
	const fs = 48000.0
	id, err := mode.FindByName("Robot 36")
	if err != nil {
		t.Fatal(err)
	}
	d, _ := mode.Get(id)

	d2, err := New(fs, nil)
	if err != nil {
		t.Fatal(err)
	}

	enc := vis.NewEncoder(fs, d.VISCode)
	phase := 0.0
	for {
		f, ok := enc.NextFrequency()
		if !ok {
			break
		}
		phase += 2 * math.Pi * f / fs
		d2.FeedSample(math.Sin(phase) * 0.7)
	}

	st := d2.GetState()
	if !st.ModeLocked {
		t.Fatalf("decoder never locked a mode, state=%+v", st)
	}
	if st.CurrentMode != id {
		got, _ := mode.Get(st.CurrentMode)
		t.Fatalf("locked mode %q, want %q", got.Name, d.Name)
	}
}
