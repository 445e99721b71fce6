/*
NAME
  sstv-encode

DESCRIPTION
  sstv-encode is a flag-driven CLI wrapping encoder.Encoder: it loads a
  still image, resizes it to the chosen mode's geometry, drives the
  encoder to completion, and writes the resulting mono PCM to a WAV
  file. All file I/O, image decoding/resizing, and flag parsing live
  here, outside the TX core itself.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command sstv-encode renders a still image into an SSTV-modulated WAV
// file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/encoder"
	"github.com/vk2dsp/gosstv/internal/imageio"
	"github.com/vk2dsp/gosstv/mode"
)

func main() {
	imagePath := flag.String("image", "", "path to the source image (PNG/JPEG/GIF)")
	modeName := flag.String("mode", "Scottie 1", "SSTV mode name, e.g. \"Scottie 1\", \"Robot 36\"")
	rate := flag.Float64("rate", 48000, "output sample rate in Hz")
	vis := flag.Bool("vis", true, "emit the VIS header before the picture")
	outPath := flag.String("out", "out.wav", "output WAV path")
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	if *imagePath == "" {
		log.Fatal("no -image given, check usage")
	}

	if err := run(*imagePath, *modeName, *rate, *vis, *outPath, log); err != nil {
		log.Fatalw("encode failed", "error", err)
	}
}

func run(imagePath, modeName string, rate float64, vis bool, outPath string, log *zap.SugaredLogger) error {
	id, err := mode.FindByName(modeName)
	if err != nil {
		return fmt.Errorf("unknown mode %q: %w", modeName, err)
	}
	desc, _ := mode.Get(id)
	log.Infow("resolved mode", "mode", desc.Name, "width", desc.Width, "height", desc.Height)

	frame, err := imageio.LoadResized(imagePath, desc.Width, desc.Height)
	if err != nil {
		return fmt.Errorf("loading %s: %w", imagePath, err)
	}

	enc, err := encoder.New(id, rate, log)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	enc.SetVISEnabled(vis)
	if err := enc.SetImage(frame); err != nil {
		return fmt.Errorf("setting image: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer out.Close()

	wavEnc := wav.NewEncoder(out, int(rate), 16, 1, 1)
	defer wavEnc.Close()

	const chunkSize = 4096
	buf := make([]float64, chunkSize)
	ints := make([]int, chunkSize)
	total := enc.GetTotalSamples()
	for !enc.IsComplete() {
		n, err := enc.Generate(buf)
		if err != nil {
			return fmt.Errorf("generating samples: %w", err)
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			ints[i] = int(buf[i] * 32767)
		}
		ib := &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: int(rate)},
			Data:           ints[:n],
			SourceBitDepth: 16,
		}
		if err := wavEnc.Write(ib); err != nil {
			return fmt.Errorf("writing wav chunk: %w", err)
		}
	}
	log.Infow("encode complete", "mode", desc.Name, "total_samples", total, "out", outPath)
	return nil
}

func newLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}
