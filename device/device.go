/*
NAME
  device.go

DESCRIPTION
  device.go provides AVDevice, an interface describing a configurable
  audio device that can be started and stopped and from which (or to
  which) PCM data flows, plus a simple in-memory Config shared by the
  package's adapters, narrowed to the audio-only capture and playback
  paths cmd/sstv-rxd and cmd/sstv-txd drive.
*/

// Package device provides an interface and implementations for audio
// input and output devices driven by the sstv-rxd and sstv-txd daemons.
package device

import (
	"errors"
	"fmt"
	"io"
)

// Config carries the audio parameters an AVDevice implementation
// negotiates with its underlying hardware.
type Config struct {
	SampleRate uint
	Channels   uint
	BitDepth   uint
	RecPeriod  float64

	// Prefilter, when true, asks a capture implementation to band-limit
	// the raw PCM to the SSTV audio band before Read returns it, trimming
	// hum and out-of-band hiss ahead of decoder.FrontEnd. Not every
	// AVDevice honors it.
	Prefilter bool
}

// AVDevice describes a configurable audio device from which (or to
// which) PCM data flows.
type AVDevice interface {
	io.Reader

	// Name returns the name of the AVDevice.
	Name() string

	// Set allows for configuration of the AVDevice using a Config
	// struct. An implementation may use all, some, or none of its
	// fields, and should document which it considers.
	Set(c Config) error

	// Start begins capturing (or playing) media data; Read (or Write)
	// may be called afterwards. The data format is implementation
	// defined.
	Start() error

	// Stop halts the AVDevice. Reads (or writes) fail afterwards.
	Stop() error

	// IsRunning reports whether the device is between Start and Stop.
	IsRunning() bool
}

// MultiError collects the independent validation failures Setup
// methods accumulate while defaulting bad Config fields.
type MultiError []error

func (me MultiError) Error() string {
	if len(me) == 0 {
		panic("device: invalid use of MultiError")
	}
	return fmt.Sprintf("%v", []error(me))
}

// ManualInput is an AVDevice backed by an in-process io.Pipe, useful
// for feeding the decoder from test fixtures without real hardware.
// Every Write must be matched by a Read of at least that many bytes,
// or the writer blocks (and vice versa).
type ManualInput struct {
	isRunning bool
	reader    *io.PipeReader
	writer    *io.PipeWriter
}

// NewManualInput returns an unstarted ManualInput.
func NewManualInput() *ManualInput { return &ManualInput{} }

func (m *ManualInput) Read(p []byte) (int, error) {
	if !m.isRunning {
		return 0, errors.New("manual input has not been started, can't read")
	}
	return m.reader.Read(p)
}

func (m *ManualInput) Name() string { return "ManualInput" }

// Set is a stub; ManualInput takes no configuration.
func (m *ManualInput) Set(c Config) error { return nil }

func (m *ManualInput) Start() error {
	m.isRunning = true
	m.reader, m.writer = io.Pipe()
	return nil
}

func (m *ManualInput) Stop() error {
	if m.reader != nil {
		m.reader.Close()
	}
	m.isRunning = false
	return nil
}

func (m *ManualInput) IsRunning() bool { return m.isRunning }

// Write writes p to the ManualInput's pipe.
func (m *ManualInput) Write(p []byte) (int, error) {
	if !m.isRunning {
		return 0, errors.New("manual input has not been started, can't write")
	}
	return m.writer.Write(p)
}
