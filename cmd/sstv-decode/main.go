/*
NAME
  sstv-decode

DESCRIPTION
  sstv-decode is a flag-driven CLI wrapping decoder.Decoder: it reads a
  mono PCM source (WAV or FLAC, chosen by extension or -format), feeds
  it through the RX core to IMAGE_READY, and writes the recovered image
  as a PNG. All container parsing lives here, outside the RX core
  itself.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command sstv-decode recovers a still image from an SSTV-modulated
// audio file.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"go.uber.org/zap"

	"github.com/vk2dsp/gosstv/decoder"
	"github.com/vk2dsp/gosstv/internal/imageio"
	"github.com/vk2dsp/gosstv/mode"
)

func main() {
	inPath := flag.String("in", "", "input audio path (WAV or FLAC)")
	outPath := flag.String("out", "out.png", "output PNG path")
	hintName := flag.String("hint", "", "mode hint, used for VIS-less modes or disabled VIS")
	format := flag.String("format", "", "force input format (\"wav\" or \"flac\"); default: infer from extension")
	denoise := flag.Bool("denoise", false, "enable spectral-subtraction noise reduction")
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	if *inPath == "" {
		log.Fatal("no -in given, check usage")
	}

	if err := run(*inPath, *outPath, *hintName, *format, *denoise, log); err != nil {
		log.Fatalw("decode failed", "error", err)
	}
}

func run(inPath, outPath, hintName, format string, denoise bool, log *zap.SugaredLogger) error {
	samples, rate, err := loadSamples(inPath, format)
	if err != nil {
		return fmt.Errorf("loading %s: %w", inPath, err)
	}

	dec, err := decoder.New(rate, log)
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	dec.SetDenoiseEnabled(denoise)
	if hintName != "" {
		id, err := mode.FindByName(hintName)
		if err != nil {
			return fmt.Errorf("unknown hint mode %q: %w", hintName, err)
		}
		dec.SetModeHint(id)
	}

	const chunkSize = 4096
	for off := 0; off < len(samples); off += chunkSize {
		end := off + chunkSize
		if end > len(samples) {
			end = len(samples)
		}
		res, err := dec.Feed(samples[off:end])
		if err != nil {
			return fmt.Errorf("feeding samples: %w", err)
		}
		if res == decoder.ResultImageReady {
			break
		}
	}

	st := dec.GetState()
	if !st.ImageReady {
		return fmt.Errorf("no image recovered (mode locked: %v, sync detected: %v)", st.ModeLocked, st.SyncDetected)
	}

	frame, err := dec.GetImage()
	if err != nil {
		return fmt.Errorf("getting image: %w", err)
	}
	if err := imageio.SavePNG(outPath, frame); err != nil {
		return fmt.Errorf("saving %s: %w", outPath, err)
	}
	log.Infow("decode complete", "mode", st.CurrentMode, "out", outPath)
	return nil
}

// loadSamples reads inPath as either WAV or FLAC (decided by format, or
// by extension if format is empty), returning mono float64 samples in
// [-1,1] and the file's sample rate.
func loadSamples(inPath, format string) ([]float64, float64, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(inPath)), ".")
	}
	switch format {
	case "flac":
		return loadFLAC(inPath)
	case "wav", "":
		return loadWAV(inPath)
	default:
		return nil, 0, fmt.Errorf("unsupported format %q", format)
	}
}

func loadWAV(path string) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid WAV file")
	}
	channels := int(dec.NumChans)
	scale := float64(int64(1) << (dec.BitDepth - 1))

	var samples []float64
	buf := &audio.IntBuffer{Data: make([]int, 4096*channels)}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return nil, 0, err
		}
		for i := 0; i < n; i += channels {
			samples = append(samples, float64(buf.Data[i])/scale)
		}
		if n == 0 || err == io.EOF {
			break
		}
	}
	return samples, float64(dec.SampleRate), nil
}

func loadFLAC(path string) ([]float64, float64, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	scale := float64(int64(1) << (stream.Info.BitsPerSample - 1))
	var samples []float64
	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		nch := len(fr.Subframes)
		for i := 0; i < int(fr.BlockSize); i++ {
			var sum int64
			for ch := 0; ch < nch; ch++ {
				sum += int64(fr.Subframes[ch].Samples[i])
			}
			samples = append(samples, float64(sum)/float64(nch)/scale)
		}
	}
	return samples, float64(stream.Info.SampleRate), nil
}

func newLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}
