/*
NAME
  registry_test.go

DESCRIPTION
  registry_test.go checks the registry's size, lookup behavior, and the
  per-line duration invariant.
*/

package mode

import (
	"math"
	"testing"
)

func TestRegistrySize(t *testing.T) {
	if got := len(All()); got != Count {
		t.Fatalf("len(All()) = %d, want %d", got, Count)
	}
}

func TestFindByNameCaseInsensitive(t *testing.T) {
	id, err := FindByName("scottie 1")
	if err != nil {
		t.Fatal(err)
	}
	d, ok := Get(id)
	if !ok || d.Name != "Scottie 1" {
		t.Fatalf("got %+v", d)
	}

	if _, err := FindByName("not a mode"); err == nil {
		t.Fatal("expected error for unknown mode name")
	}
}

func TestVISLookupRoundTrip(t *testing.T) {
	id, err := FindByName("Robot 36")
	if err != nil {
		t.Fatal(err)
	}
	d, _ := Get(id)
	if got, ok := ByVIS(d.VISCode); !ok || got != id {
		t.Fatalf("ByVIS(%d) = (%v, %v), want (%v, true)", d.VISCode, got, ok, id)
	}

	id, err = FindByName("MR-73")
	if err != nil {
		t.Fatal(err)
	}
	d, _ = Get(id)
	if got, ok := ByExtendedVIS(d.VISCode); !ok || got != id {
		t.Fatalf("ByExtendedVIS(%d) = (%v, %v), want (%v, true)", d.VISCode, got, ok, id)
	}
}

func TestRobot36VISCode(t *testing.T) {
	// VIS 0x88 (data=0x08, parity=1) resolves to Robot 36.
	id, ok := ByVIS(0x08)
	if !ok {
		t.Fatal("0x08 not found")
	}
	d, _ := Get(id)
	if d.Name != "Robot 36" {
		t.Fatalf("got %q, want Robot 36", d.Name)
	}
}

func TestExtendedVISDoesNotMatchStandard(t *testing.T) {
	// 0x23 must not resolve as a standard mode.
	if _, ok := ByVIS(ExtendedPrefix); ok {
		t.Fatal("0x23 must not resolve via the standard VIS map")
	}
}

func TestDurationInvariant(t *testing.T) {
	for _, d := range All() {
		tm := d.Timing()
		fixed := tm.SyncPulseMs + tm.PorchMs + tm.SeparatorMs*float64(tm.Channels-1)
		total := (fixed + tm.ChannelMs*float64(tm.Channels)) * float64(tm.LineCount) / 1000
		tolerance := float64(tm.LineCount) * 0.001 // one sample-period-scale tolerance per line, generously bounded.
		if math.Abs(total-d.DurationSec) > tolerance+1e-6 {
			t.Errorf("%s: computed total %.3fs, want %.3fs ± %.3fs", d.Name, total, d.DurationSec, tolerance)
		}
	}
}

func TestMNMCAreVISLess(t *testing.T) {
	for _, name := range []string{"MN-73", "MC-110", "MC-140", "MC-180"} {
		id, err := FindByName(name)
		if err != nil {
			t.Fatal(err)
		}
		d, _ := Get(id)
		if d.VISDefined {
			t.Errorf("%s: expected VISDefined=false per the open MN/MC VIS question", name)
		}
	}
}
