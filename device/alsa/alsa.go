/*
NAME
  alsa.go

AUTHOR
  Alan Noble <alan@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package alsa provides capture and playback access to ALSA audio
// devices for cmd/sstv-rxd and cmd/sstv-txd.
package alsa

import (
	"errors"
	"fmt"
	"sync"
	"time"

	yalsa "github.com/yobert/alsa"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/codec/pcm"
	"github.com/vk2dsp/gosstv/device"
)

const (
	rbNextTimeout = 2000 * time.Millisecond
	rbChunks      = 200
	longRecLength = 10 * time.Second
)

// "running" means the input/output goroutine is moving PCM between the
// ALSA device and the ring buffer.
// "paused" means that goroutine is sleeping until unpaused or stopped.
// "stopped" means the goroutine has exited and the ALSA device is closed.
const (
	running = iota + 1
	paused
	stopped
)

const (
	defaultSampleRate = 48000
	defaultBitDepth   = 16
	defaultChannels   = 1
	defaultRecPeriod  = 1.0

	prefilterTaps = 127
)

// Configuration field errors.
var (
	errInvalidSampleRate = errors.New("invalid sample rate, defaulting")
	errInvalidChannels   = errors.New("invalid number of channels, defaulting")
	errInvalidBitDepth   = errors.New("invalid bitdepth, defaulting")
	errInvalidRecPeriod  = errors.New("invalid record period, defaulting")
)

// Capture is an ALSA recording device; it implements device.AVDevice
// and streams PCM samples it reads into a ring buffer that Read drains.
type Capture struct {
	log    *zap.SugaredLogger
	mode   uint8
	mu     sync.Mutex
	title  string
	dev    *yalsa.Device
	pb     pcm.Buffer
	ring   *ringBuffer
	filter pcm.AudioFilter
	device.Config
}

// New returns an unconfigured Capture device logging through log, which
// may be nil.
func New(log *zap.SugaredLogger) *Capture { return &Capture{log: log} }

func (d *Capture) Name() string { return "ALSA capture" }

// Setup validates c, defaulting and recording any invalid field in the
// returned device.MultiError, opens the negotiated ALSA device, and
// starts the (paused) capture goroutine.
func (d *Capture) Setup(c device.Config) error {
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
	if c.RecPeriod <= 0 {
		errs = append(errs, errInvalidRecPeriod)
		c.RecPeriod = defaultRecPeriod
	}
	d.Config = c

	if err := d.open(); err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	ab := d.dev.NewBufferDuration(longRecLength)
	sf, err := pcm.SFFromString(ab.Format.SampleFormat.String())
	if err != nil {
		return fmt.Errorf("unable to get sample format from string: %w", err)
	}
	d.pb = pcm.Buffer{
		Format: pcm.BufferFormat{SFormat: sf, Channels: uint(ab.Format.Channels), Rate: uint(ab.Format.Rate)},
		Data:   ab.Data,
	}

	if c.Prefilter {
		filter, err := pcm.NewSSTVBandPass(pcm.BufferFormat{SFormat: sf, Channels: c.Channels, Rate: c.SampleRate}, prefilterTaps)
		if err != nil {
			return fmt.Errorf("failed to design SSTV band-pass prefilter: %w", err)
		}
		d.filter = filter
	}

	d.ring = newRingBuffer(rbChunks, d.DataSize())

	d.mode = paused
	go d.input()

	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Set satisfies device.AVDevice; Capture's real configuration happens
// in Setup since it requires opening hardware, which Set's signature
// (no error detail beyond the return value) doesn't suit.
func (d *Capture) Set(c device.Config) error { return nil }

func (d *Capture) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.mode {
	case paused:
		d.mode = running
		return nil
	case stopped:
		return errors.New("device is stopped")
	case running:
		return nil
	default:
		return fmt.Errorf("invalid mode: %d", d.mode)
	}
}

func (d *Capture) Stop() error {
	d.mu.Lock()
	d.mode = stopped
	d.mu.Unlock()
	return nil
}

func (d *Capture) IsRunning() bool { return d.mode == running }

// open negotiates and prepares the ALSA recording device named by
// d.title, or the first recording device found if title is empty.
func (d *Capture) open() error {
	if d.dev != nil {
		d.dev.Close()
		d.dev = nil
	}

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
			if dev.Type != yalsa.PCM || !dev.Record {
				continue
			}
			if dev.Title == d.title || d.title == "" {
				d.dev = dev
				break
			}
		}
	}
	if d.dev == nil {
		return errors.New("no ALSA recording device found")
	}

	if err := d.dev.Open(); err != nil {
		return err
	}

	channels, err := d.dev.NegotiateChannels(int(d.Channels))
	if err != nil && d.Channels == 1 {
		channels, err = d.dev.NegotiateChannels(2)
	}
	if err != nil {
		return fmt.Errorf("device is unable to record with requested number of channels: %w", err)
	}

	var rates = [8]int{8000, 16000, 32000, 44100, 48000, 88200, 96000, 192000}
	var rate int
	found := false
	for _, r := range rates {
		if r < int(d.SampleRate) {
			continue
		}
		if r%int(d.SampleRate) == 0 {
			rate, err = d.dev.NegotiateRate(r)
			if err == nil {
				found = true
				break
			}
		}
	}
	if !found {
		if d.log != nil {
			d.log.Warnw("unable to sample at requested rate, using default", "requested", d.SampleRate)
		}
		rate, err = d.dev.NegotiateRate(defaultSampleRate)
		if err != nil {
			return err
		}
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
	devFmt, err := d.dev.NegotiateFormat(aFmt)
	if err != nil {
		return err
	}
	bitdepth := 16
	if devFmt == yalsa.S32_LE {
		bitdepth = 32
	}

	const wantPeriod = 0.05
	bytesPerSecond := rate * channels * (bitdepth / 8)
	periodSize, err := d.dev.NegotiatePeriodSize(nearestPowerOfTwo(int(float64(bytesPerSecond) * wantPeriod)))
	if err != nil {
		return err
	}
	if _, err := d.dev.NegotiateBufferSize(periodSize * 4); err != nil {
		return err
	}
	return d.dev.Prepare()
}

// input continuously records audio in one-minute sections, chunks it
// into RecPeriod-length pieces, and writes each (format-converted)
// piece to the ring buffer for Read to drain.
func (d *Capture) input() {
	for {
		d.mu.Lock()
		mode := d.mode
		d.mu.Unlock()
		if mode == stopped {
			if d.dev != nil {
				d.dev.Close()
				d.dev = nil
			}
			d.ring.Close()
			return
		}
		if mode == paused {
			time.Sleep(time.Duration(d.RecPeriod) * time.Second)
			continue
		}

		buf := d.dev.NewBufferDuration(time.Minute)
		if err := d.dev.Read(buf.Data); err != nil {
			if d.log != nil {
				d.log.Debugw("read failed, reopening device", "error", err)
			}
			if err := d.open(); err != nil {
				if d.log != nil {
					d.log.Errorw("reopening device failed", "error", err)
				}
				return
			}
			continue
		}

		size := d.DataSize()
		for i := 0; i+size <= len(buf.Data); i += size {
			d.pb.Data = buf.Data[i : i+size]
			if err := d.ring.Write(d.formatBuffer().Data); err != nil && d.log != nil {
				d.log.Warnw("dropped audio chunk", "error", err)
			}
		}
	}
}

// Read drains the next chunk of ring-buffered, format-converted PCM
// audio into p.
func (d *Capture) Read(p []byte) (int, error) { return d.ring.Next(p, rbNextTimeout) }

// formatBuffer converts d.pb to the configured channel count and rate.
func (d *Capture) formatBuffer() pcm.Buffer {
	if d.pb.Format.Channels == d.Channels && d.pb.Format.Rate == d.SampleRate {
		return d.pb
	}
	formatted := d.pb
	var err error
	if d.pb.Format.Channels != d.Channels && d.pb.Format.Channels == 2 && d.Channels == 1 {
		formatted, err = pcm.StereoToMono(d.pb)
		if err != nil {
			if d.log != nil {
				d.log.Errorw("channel conversion failed", "error", err)
			}
			return d.pb
		}
	}
	if formatted.Format.Rate != d.SampleRate {
		formatted, err = pcm.Resample(formatted, d.SampleRate)
		if err != nil {
			if d.log != nil {
				d.log.Errorw("rate conversion failed", "error", err)
			}
			return d.pb
		}
	}
	if d.filter != nil {
		filtered, err := d.filter.Apply(formatted)
		if err != nil {
			if d.log != nil {
				d.log.Errorw("prefilter failed", "error", err)
			}
			return formatted
		}
		formatted.Data = filtered
	}
	return formatted
}

// DataSize returns the number of bytes a single recording period
// produces at the device's configured format.
func (d *Capture) DataSize() int {
	return pcm.DataSize(d.SampleRate, d.Channels, d.BitDepth, d.RecPeriod)
}

// nearestPowerOfTwo returns the power of two nearest n, rounding to the
// higher one on a tie. Negative or zero n returns 1.
// Source: https://stackoverflow.com/a/45859570
func nearestPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	if n == 1 {
		return 2
	}
	v := n
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	x := v >> 1
	if (v - n) > (n - x) {
		return x
	}
	return v
}
