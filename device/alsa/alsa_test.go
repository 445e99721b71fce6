/*
NAME
  alsa_test.go

AUTHOR
  Trek Hopton <trek@ausocean.org>
  Scott Barnard <scott@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package alsa

import (
	"strconv"
	"testing"
	"time"

	"github.com/vk2dsp/gosstv/device"
)

func TestDevice(t *testing.T) {
	c := device.Config{SampleRate: 8000, Channels: 1, RecPeriod: 0.3, BitDepth: 16}
	n := 2 // Number of periods to wait while recording.

	d := New(nil)
	err := d.Setup(c)
	switch err := err.(type) {
	case nil:
	case device.MultiError:
		t.Logf("errors from configuring device: %s", err.Error())
	default:
		t.Skip(err)
	}
	if err := d.Start(); err != nil {
		t.Error(err)
	}
	buf := make([]byte, d.DataSize())
	time.Sleep(time.Duration(c.RecPeriod*float64(time.Second)) * time.Duration(n))
	if _, err := d.Read(buf); err != nil {
		t.Logf("read error (expected without real hardware): %v", err)
	}
	d.Stop()
}

var powerTests = []struct {
	in  int
	out int
}{
	{36, 32},
	{47, 32},
	{3, 4},
	{46, 32},
	{7, 8},
	{2, 2},
	{36, 32},
	{757, 512},
	{2464, 2048},
	{18980, 16384},
	{70000, 65536},
	{8192, 8192},
	{2048, 2048},
	{65536, 65536},
	{-2048, 1},
	{-127, 1},
	{-1, 1},
	{0, 1},
	{1, 2},
}

func TestNearestPowerOfTwo(t *testing.T) {
	for _, tt := range powerTests {
		t.Run(strconv.Itoa(tt.in), func(t *testing.T) {
			v := nearestPowerOfTwo(tt.in)
			if v != tt.out {
				t.Errorf("got %v, want %v", v, tt.out)
			}
		})
	}
}

func TestIsRunning(t *testing.T) {
	const dur = 250 * time.Millisecond

	d := New(nil)
	err := d.Setup(device.Config{SampleRate: 1000, Channels: 1, BitDepth: 16, RecPeriod: 1})
	if err != nil {
		if _, ok := err.(device.MultiError); !ok {
			t.Skipf("could not set device: %v", err)
		}
	}

	if err := d.Start(); err != nil {
		t.Fatalf("could not start device %v", err)
	}
	time.Sleep(dur)
	if !d.IsRunning() {
		t.Error("device isn't running, when it should be")
	}
	if err := d.Stop(); err != nil {
		t.Error(err)
	}
	time.Sleep(dur)
	if d.IsRunning() {
		t.Error("device is running, when it should not be")
	}
}
