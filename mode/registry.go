/*
NAME
  registry.go

DESCRIPTION
  registry.go is the static, build-time table of the 43 standardized
  SSTV modes this codec supports, grounded in the VIS code and geometry
  table in original_source/src/modes.cpp and include/sstv_encoder.h.
  It is never mutated at runtime; lookup by id and by name are both
  O(1) (the name lookup goes through a map).
*/

package mode

import "github.com/pkg/errors"

// all is the registry table. Its order is part of the ABI:
// never reorder existing entries; only append.
var all = []Descriptor{
	{Name: "Robot 36", Width: 320, Height: 240, VISCode: 8, VISDefined: true, Color: YCbCr, Family: FamilyRobotColor, DurationSec: 36.0},
	{Name: "Robot 72", Width: 320, Height: 240, VISCode: 12, VISDefined: true, Color: YCbCr, Family: FamilyRobotColor, DurationSec: 72.0},

	{Name: "Scottie 1", Width: 320, Height: 256, VISCode: 60, VISDefined: true, Color: RGB, Family: FamilyScottie, DurationSec: 109.624},
	{Name: "Scottie 2", Width: 320, Height: 256, VISCode: 56, VISDefined: true, Color: RGB, Family: FamilyScottie, DurationSec: 71.095},
	{Name: "Scottie DX", Width: 320, Height: 256, VISCode: 76, VISDefined: true, Color: RGB, Family: FamilyScottie, DurationSec: 269.6},

	{Name: "Martin 1", Width: 320, Height: 256, VISCode: 44, VISDefined: true, Color: RGB, Family: FamilyMartin, DurationSec: 114.688},
	{Name: "Martin 2", Width: 320, Height: 256, VISCode: 40, VISDefined: true, Color: RGB, Family: FamilyMartin, DurationSec: 58.08},

	{Name: "SC2-60", Width: 320, Height: 256, VISCode: 59, VISDefined: true, Color: RGB, Family: FamilySC2, DurationSec: 60.0},
	{Name: "SC2-120", Width: 320, Height: 256, VISCode: 63, VISDefined: true, Color: RGB, Family: FamilySC2, DurationSec: 120.0},
	{Name: "SC2-180", Width: 320, Height: 256, VISCode: 55, VISDefined: true, Color: RGB, Family: FamilySC2, DurationSec: 180.0},

	{Name: "PD-50", Width: 320, Height: 256, VISCode: 93, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 50.0},
	{Name: "PD-90", Width: 320, Height: 256, VISCode: 99, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 90.0},
	{Name: "PD-120", Width: 640, Height: 496, VISCode: 95, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 120.0},
	{Name: "PD-160", Width: 512, Height: 400, VISCode: 98, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 160.0},
	{Name: "PD-180", Width: 640, Height: 496, VISCode: 96, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 180.0},
	{Name: "PD-240", Width: 640, Height: 496, VISCode: 97, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 240.0},
	{Name: "PD-290", Width: 800, Height: 616, VISCode: 94, VISDefined: true, Color: YCbCr, Family: FamilyPD, DurationSec: 290.0},

	{Name: "Pasokon P3", Width: 640, Height: 496, VISCode: 113, VISDefined: true, Color: RGB, Family: FamilyPasokon, DurationSec: 203.1},
	{Name: "Pasokon P5", Width: 640, Height: 496, VISCode: 114, VISDefined: true, Color: RGB, Family: FamilyPasokon, DurationSec: 305.2},
	{Name: "Pasokon P7", Width: 640, Height: 496, VISCode: 115, VISDefined: true, Color: RGB, Family: FamilyPasokon, DurationSec: 407.3},

	{Name: "MR-73", Width: 320, Height: 256, VISCode: 69, VISDefined: true, Extended: true, Color: RGB, Family: FamilyMR, DurationSec: 73.293},
	{Name: "MR-90", Width: 320, Height: 256, VISCode: 70, VISDefined: true, Extended: true, Color: RGB, Family: FamilyMR, DurationSec: 90.189},
	{Name: "MR-115", Width: 320, Height: 256, VISCode: 73, VISDefined: true, Extended: true, Color: RGB, Family: FamilyMR, DurationSec: 115.277},
	{Name: "MR-140", Width: 320, Height: 256, VISCode: 74, VISDefined: true, Extended: true, Color: RGB, Family: FamilyMR, DurationSec: 140.365},
	{Name: "MR-175", Width: 320, Height: 256, VISCode: 76, VISDefined: true, Extended: true, Color: RGB, Family: FamilyMR, DurationSec: 175.181},

	{Name: "MP-73", Width: 320, Height: 256, VISCode: 37, VISDefined: true, Extended: true, Color: YCbCr, Family: FamilyMP, DurationSec: 72.960},
	{Name: "MP-115", Width: 320, Height: 256, VISCode: 41, VISDefined: true, Extended: true, Color: YCbCr, Family: FamilyMP, DurationSec: 115.456},
	{Name: "MP-140", Width: 320, Height: 256, VISCode: 42, VISDefined: true, Extended: true, Color: YCbCr, Family: FamilyMP, DurationSec: 139.520},
	{Name: "MP-175", Width: 320, Height: 256, VISCode: 44, VISDefined: true, Extended: true, Color: YCbCr, Family: FamilyMP, DurationSec: 175.360},

	{Name: "ML-180", Width: 640, Height: 496, VISCode: 5, VISDefined: true, Extended: true, Color: RGB, Family: FamilyML, DurationSec: 180.197},
	{Name: "ML-240", Width: 640, Height: 496, VISCode: 6, VISDefined: true, Extended: true, Color: RGB, Family: FamilyML, DurationSec: 239.717},
	{Name: "ML-280", Width: 640, Height: 496, VISCode: 9, VISDefined: true, Extended: true, Color: RGB, Family: FamilyML, DurationSec: 280.389},
	{Name: "ML-320", Width: 640, Height: 496, VISCode: 10, VISDefined: true, Extended: true, Color: RGB, Family: FamilyML, DurationSec: 320.069},

	// MN-73, MN-110, MN-140 and the MC family have no characterized VIS
	// code in the original source; VISDefined stays false and they are
	// reachable only via decoder.SetModeHint.
	{Name: "MN-73", Width: 160, Height: 120, VISDefined: false, Color: YCbCr, Family: FamilyMN, DurationSec: 72.960},
	{Name: "MN-110", Width: 160, Height: 120, VISDefined: false, Color: YCbCr, Family: FamilyMN, DurationSec: 109.824},
	{Name: "MN-140", Width: 160, Height: 120, VISDefined: false, Color: YCbCr, Family: FamilyMN, DurationSec: 139.520},
	{Name: "MC-110", Width: 160, Height: 120, VISDefined: false, Color: RGB, Family: FamilyMC, DurationSec: 109.696},
	{Name: "MC-140", Width: 160, Height: 120, VISDefined: false, Color: RGB, Family: FamilyMC, DurationSec: 140.416},
	{Name: "MC-180", Width: 160, Height: 120, VISDefined: false, Color: RGB, Family: FamilyMC, DurationSec: 180.352},

	{Name: "Robot BW 8", Width: 160, Height: 120, VISCode: 2, VISDefined: true, Color: Mono, Family: FamilyRobotBW, DurationSec: 8.0},
	{Name: "Robot BW 12", Width: 160, Height: 120, VISCode: 6, VISDefined: true, Color: Mono, Family: FamilyRobotBW, DurationSec: 12.0},

	// AVT-90 has no sync pulse but does carry a standard (non-extended)
	// VIS byte.
	{Name: "AVT-90", Width: 320, Height: 240, VISCode: 68, VISDefined: true, Color: RGB, Family: FamilyAVT90, DurationSec: 90.0},

	{Name: "Robot 24", Width: 320, Height: 240, VISCode: 4, VISDefined: true, Color: YCbCr, Family: FamilyRobotColor, DurationSec: 24.0},
}

// Count is the number of modes in the registry.
const Count = 43

// visIndex maps a standard (non-extended) 7-bit VIS data value to a mode
// ID.
var visIndex map[byte]ID

// extVisIndex maps an extended 7-bit VIS data value (the second byte,
// following a 0x23 prefix byte) to a mode ID.
var extVisIndex map[byte]ID

// nameIndex maps a lower-cased mode name to its ID for case-insensitive
// lookup.
var nameIndex map[string]ID

func init() {
	if len(all) != Count {
		panic("mode: registry table size does not match Count")
	}
	visIndex = make(map[byte]ID, len(all))
	extVisIndex = make(map[byte]ID, len(all))
	nameIndex = make(map[string]ID, len(all))
	for i := range all {
		all[i].ID = ID(i)
		d := all[i]
		nameIndex[lower(d.Name)] = d.ID
		if !d.VISDefined {
			continue
		}
		if d.Extended {
			extVisIndex[d.VISCode] = d.ID
		} else {
			visIndex[d.VISCode] = d.ID
		}
	}
}

// lower is a small case-folder avoiding a strings.ToLower import for
// ASCII-only mode names.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// ErrUnknownMode is returned by FindByName when no mode matches.
var ErrUnknownMode = errors.New("mode: unknown mode name")

// Get returns the Descriptor for id, or false if id is out of range.
func Get(id ID) (Descriptor, bool) {
	if id < 0 || int(id) >= len(all) {
		return Descriptor{}, false
	}
	return all[id], true
}

// All returns every Descriptor in registry (ABI) order.
func All() []Descriptor {
	out := make([]Descriptor, len(all))
	copy(out, all)
	return out
}

// FindByName looks up a mode by its display name, case-insensitively.
func FindByName(name string) (ID, error) {
	id, ok := nameIndex[lower(name)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownMode, "name %q", name)
	}
	return id, nil
}

// ByVIS resolves a standard (non-extended) 7-bit VIS data value to a mode
// ID. ok is false if no mode claims that code.
func ByVIS(data byte) (ID, bool) {
	id, ok := visIndex[data]
	return id, ok
}

// ByExtendedVIS resolves an extended VIS second-byte data value (the
// byte following a 0x23 prefix) to a mode ID.
func ByExtendedVIS(data byte) (ID, bool) {
	id, ok := extVisIndex[data]
	return id, ok
}

// ExtendedPrefix is the sentinel 7-bit VIS data value that introduces a
// 16-bit extended VIS.
const ExtendedPrefix = extendedPrefix
