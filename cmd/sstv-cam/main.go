//go:build withcv

/*
NAME
  sstv-cam

DESCRIPTION
  sstv-cam encodes a continuous live feed from a gocv webcam capture,
  one frame per SSTV transmission, to an ALSA output device. It is
  gated by the withcv build tag since it depends on imageio's
  gocv-backed Webcam type.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command sstv-cam transmits a live webcam feed as a sequence of SSTV
// frames.
package main

import (
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/device"
	"github.com/vk2dsp/gosstv/device/alsa"
	"github.com/vk2dsp/gosstv/encoder"
	"github.com/vk2dsp/gosstv/internal/imageio"
	"github.com/vk2dsp/gosstv/mode"
)

func main() {
	camID := flag.Int("cam", 0, "webcam device index")
	modeName := flag.String("mode", "Scottie 1", "SSTV mode name to transmit with")
	rate := flag.Float64("rate", 48000, "output sample rate in Hz")
	frames := flag.Int("frames", 0, "number of frames to transmit; 0 means run until interrupted")
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	if err := run(*camID, *modeName, *rate, *frames, log); err != nil {
		log.Fatalw("camera transmission failed", "error", err)
	}
}

func run(camID int, modeName string, rate float64, maxFrames int, log *zap.SugaredLogger) error {
	id, err := mode.FindByName(modeName)
	if err != nil {
		return fmt.Errorf("unknown mode %q: %w", modeName, err)
	}
	desc, _ := mode.Get(id)

	cam, err := imageio.OpenWebcam(camID, desc.Width, desc.Height)
	if err != nil {
		return fmt.Errorf("opening webcam %d: %w", camID, err)
	}
	defer cam.Close()

	playback := alsa.NewPlayback(log)
	if err := playback.Setup(device.Config{SampleRate: uint(rate), Channels: 1, BitDepth: 16}); err != nil {
		if _, ok := err.(device.MultiError); !ok {
			return fmt.Errorf("opening playback device: %w", err)
		}
		log.Warnw("playback device opened with defaulted fields", "error", err)
	}
	if err := playback.Start(); err != nil {
		return fmt.Errorf("starting playback device: %w", err)
	}
	defer playback.Stop()

	buf := make([]float64, 4096)
	for n := 0; maxFrames == 0 || n < maxFrames; n++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			return fmt.Errorf("reading webcam frame %d: %w", n, err)
		}
		enc, err := encoder.New(id, rate, log)
		if err != nil {
			return fmt.Errorf("creating encoder: %w", err)
		}
		if err := enc.SetImage(frame); err != nil {
			return fmt.Errorf("setting frame %d: %w", n, err)
		}
		log.Infow("transmitting frame", "frame", n, "mode", desc.Name)
		for !enc.IsComplete() {
			w, err := enc.Generate(buf)
			if err != nil {
				return fmt.Errorf("generating samples: %w", err)
			}
			if w == 0 {
				break
			}
			if err := playback.WriteSamples(buf[:w]); err != nil {
				return fmt.Errorf("writing to playback device: %w", err)
			}
		}
	}
	return nil
}

func newLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}
