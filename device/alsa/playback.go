/*
NAME
  playback.go

DESCRIPTION
  playback.go adapts the same negotiation sequence alsa.go uses for
  capture to an ALSA playback device, for cmd/sstv-txd to stream
  encoder.Encoder's generated samples out a speaker or transmitter
  interface. The teacher repo has no playback path; this is grounded on
  alsa.go's open() negotiation sequence, mirrored for a device opened
  with dev.Play rather than dev.Record.
*/

package alsa

import (
	"errors"
	"fmt"
	"sync"

	yalsa "github.com/yobert/alsa"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/device"
)

// Playback is an ALSA output device; it implements device.AVDevice's
// Start/Stop/Set surface and exposes WriteSamples (rather than Read) for
// streaming PCM samples out.
type Playback struct {
	log   *zap.SugaredLogger
	mu    sync.Mutex
	mode  uint8
	title string
	dev   *yalsa.Device
	device.Config
}

// NewPlayback returns an unconfigured Playback device logging through
// log, which may be nil.
func NewPlayback(log *zap.SugaredLogger) *Playback { return &Playback{log: log} }

func (d *Playback) Name() string { return "ALSA playback" }

// Setup negotiates and prepares an ALSA playback device, defaulting
// and recording any invalid Config field in the returned
// device.MultiError.
func (d *Playback) Setup(c device.Config) error {
	var errs device.MultiError
	if c.SampleRate <= 0 {
		errs = append(errs, errInvalidSampleRate)
		c.SampleRate = defaultSampleRate
	}
	if c.Channels <= 0 {
		errs = append(errs, errInvalidChannels)
		c.Channels = defaultChannels
	}
	if c.BitDepth <= 0 {
		errs = append(errs, errInvalidBitDepth)
		c.BitDepth = defaultBitDepth
	}
	d.Config = c

	if err := d.open(); err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	d.mode = paused
	if len(errs) != 0 {
		return errs
	}
	return nil
}

func (d *Playback) Set(c device.Config) error { return nil }

func (d *Playback) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode == stopped {
		return errors.New("device is stopped")
	}
	d.mode = running
	return nil
}

func (d *Playback) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = stopped
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}
	return nil
}

func (d *Playback) IsRunning() bool { return d.mode == running }

func (d *Playback) open() error {
	cards, err := yalsa.OpenCards()
	if err != nil {
		return err
	}
	defer yalsa.CloseCards(cards)

	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type != yalsa.PCM || !dev.Play {
				continue
			}
			if dev.Title == d.title || d.title == "" {
				d.dev = dev
				break
			}
		}
	}
	if d.dev == nil {
		return errors.New("no ALSA playback device found")
	}
	if err := d.dev.Open(); err != nil {
		return err
	}
	if _, err := d.dev.NegotiateChannels(int(d.Channels)); err != nil {
		return fmt.Errorf("device is unable to play with requested number of channels: %w", err)
	}
	if _, err := d.dev.NegotiateRate(int(d.SampleRate)); err != nil {
		return fmt.Errorf("device is unable to play at requested rate: %w", err)
	}
	var aFmt yalsa.FormatType
	switch d.BitDepth {
	case 16:
		aFmt = yalsa.S16_LE
	case 32:
		aFmt = yalsa.S32_LE
	default:
		return fmt.Errorf("unsupported sample bits %v", d.BitDepth)
	}
	if _, err := d.dev.NegotiateFormat(aFmt); err != nil {
		return err
	}
	return d.dev.Prepare()
}

// WriteSamples writes s16-le encoded PCM samples (each in [-1, 1]) to
// the playback device, blocking until ALSA accepts them.
func (d *Playback) WriteSamples(samples []float64) error {
	if d.dev == nil {
		return errors.New("alsa: playback device not open")
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	return d.dev.Write(buf)
}
