/*
NAME
  sstv-rxd

DESCRIPTION
  sstv-rxd is a long-running daemon that captures from an ALSA input
  device, feeds decoder.Decoder continuously, and writes each completed
  image to an output directory. It signals systemd readiness once the
  ALSA device is open and logs through zap with a rotating lumberjack
  file sink, mirroring cmd/looper and cmd/speaker's daemon shape in the
  teacher repo.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command sstv-rxd continuously decodes SSTV transmissions from a
// capture device and writes recovered images to disk.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/daemon"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vk2dsp/gosstv/decoder"
	"github.com/vk2dsp/gosstv/device"
	"github.com/vk2dsp/gosstv/device/alsa"
	"github.com/vk2dsp/gosstv/internal/imageio"
	"github.com/vk2dsp/gosstv/mode"
)

// Logging configuration for the rotating file sink.
const (
	logPath      = "/var/log/sstv/sstv-rxd.log"
	logMaxSizeMB = 100
	logMaxBackup = 5
	logMaxAgeDay = 28
)

func main() {
	outDir := flag.String("outdir", "/var/lib/sstv/received", "directory to write recovered PNGs to")
	rate := flag.Float64("rate", 48000, "capture sample rate in Hz")
	hintName := flag.String("hint", "", "mode hint for VIS-less families")
	readPeriod := flag.Float64("period", 0.25, "ALSA capture period, seconds")
	prefilter := flag.Bool("prefilter", false, "band-limit captured PCM to the SSTV audio band before decoding")
	denoise := flag.Bool("denoise", false, "enable spectral-subtraction noise reduction")
	flag.Parse()

	log := newDaemonLogger()
	defer log.Sync()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalw("could not create output directory", "dir", *outDir, "error", err)
	}

	cap := alsa.New(log)
	if err := cap.Setup(device.Config{SampleRate: uint(*rate), Channels: 1, BitDepth: 16, RecPeriod: *readPeriod, Prefilter: *prefilter}); err != nil {
		if _, ok := err.(device.MultiError); !ok {
			log.Fatalw("could not open capture device", "error", err)
		}
		log.Warnw("capture device opened with defaulted fields", "error", err)
	}
	if err := cap.Start(); err != nil {
		log.Fatalw("could not start capture device", "error", err)
	}
	defer cap.Stop()

	dec, err := decoder.New(*rate, log)
	if err != nil {
		log.Fatalw("could not create decoder", "error", err)
	}
	dec.SetDenoiseEnabled(*denoise)
	if *hintName != "" {
		id, err := mode.FindByName(*hintName)
		if err != nil {
			log.Fatalw("unknown hint mode", "mode", *hintName, "error", err)
		}
		dec.SetModeHint(id)
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debugw("systemd notify failed", "error", err)
	} else if ok {
		log.Info("signalled systemd readiness")
	}

	run(cap, dec, *outDir, log)
}

// run drains raw S16_LE capture bytes into the decoder forever, saving
// and resetting on every completed image.
func run(cap *alsa.Capture, dec *decoder.Decoder, outDir string, log *zap.SugaredLogger) {
	raw := make([]byte, 4096)
	samples := make([]float64, 0, 2048)
	var imagesSaved int

	for {
		n, err := cap.Read(raw)
		if err != nil {
			log.Warnw("capture read failed", "error", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		samples = samples[:0]
		for i := 0; i+1 < n; i += 2 {
			v := int16(raw[i]) | int16(raw[i+1])<<8
			samples = append(samples, float64(v)/32768.0)
		}
		res, err := dec.Feed(samples)
		if err != nil {
			log.Warnw("decoder feed error", "error", err)
			dec.Reset()
			continue
		}
		if res != decoder.ResultImageReady {
			continue
		}
		frame, err := dec.GetImage()
		if err != nil {
			log.Errorw("image ready but could not be retrieved", "error", err)
			dec.Reset()
			continue
		}
		st := dec.GetState()
		imagesSaved++
		outPath := filepath.Join(outDir, fmt.Sprintf("%d-%s.png", time.Now().Unix(), st.CurrentMode))
		if err := imageio.SavePNG(outPath, frame); err != nil {
			log.Errorw("could not save recovered image", "path", outPath, "error", err)
		} else {
			log.Infow("image recovered", "mode", st.CurrentMode, "path", outPath, "count", imagesSaved)
		}
		dec.Reset()
	}
}

func newDaemonLogger() *zap.SugaredLogger {
	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAgeDay,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.NewMultiWriteSyncer(fileSink, zapcore.AddSync(os.Stderr)), zapcore.InfoLevel)
	return zap.New(core).Sugar()
}
