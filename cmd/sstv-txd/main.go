/*
NAME
  sstv-txd

DESCRIPTION
  sstv-txd is a long-running daemon that watches an outbound-image
  directory with fsnotify; for each new image it encodes and plays the
  result out an ALSA device, and emits a gonum/plot debug plot of the
  scheduled frequency-vs-time segments alongside the audio for operator
  diagnostics. Logging follows cmd/sstv-rxd's zap + rotating lumberjack
  shape.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Command sstv-txd watches a directory for new images and transmits
// each one as it arrives.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/fsnotify/fsnotify"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/vk2dsp/gosstv/device"
	"github.com/vk2dsp/gosstv/device/alsa"
	"github.com/vk2dsp/gosstv/encoder"
	gstvimage "github.com/vk2dsp/gosstv/image"
	"github.com/vk2dsp/gosstv/internal/imageio"
	"github.com/vk2dsp/gosstv/mode"
)

const (
	logPath      = "/var/log/sstv/sstv-txd.log"
	logMaxSizeMB = 100
	logMaxBackup = 5
	logMaxAgeDay = 28
)

func main() {
	watchDir := flag.String("watchdir", "/var/lib/sstv/outgoing", "directory to watch for new images")
	plotDir := flag.String("plotdir", "", "directory to write per-transmission debug plots to (empty disables)")
	modeName := flag.String("mode", "Scottie 1", "SSTV mode name to transmit with")
	rate := flag.Float64("rate", 48000, "playback sample rate in Hz")
	vis := flag.Bool("vis", true, "emit the VIS header before the picture")
	flag.Parse()

	log := newDaemonLogger()
	defer log.Sync()

	id, err := mode.FindByName(*modeName)
	if err != nil {
		log.Fatalw("unknown mode", "mode", *modeName, "error", err)
	}

	playback := alsa.NewPlayback(log)
	if err := playback.Setup(device.Config{SampleRate: uint(*rate), Channels: 1, BitDepth: 16}); err != nil {
		if _, ok := err.(device.MultiError); !ok {
			log.Fatalw("could not open playback device", "error", err)
		}
		log.Warnw("playback device opened with defaulted fields", "error", err)
	}
	if err := playback.Start(); err != nil {
		log.Fatalw("could not start playback device", "error", err)
	}
	defer playback.Stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalw("could not create watcher", "error", err)
	}
	defer watcher.Close()
	if err := os.MkdirAll(*watchDir, 0o755); err != nil {
		log.Fatalw("could not create watch directory", "dir", *watchDir, "error", err)
	}
	if err := watcher.Add(*watchDir); err != nil {
		log.Fatalw("could not watch directory", "dir", *watchDir, "error", err)
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Debugw("systemd notify failed", "error", err)
	} else if ok {
		log.Info("signalled systemd readiness")
	}

	run(watcher, playback, id, *rate, *vis, *plotDir, log)
}

func run(watcher *fsnotify.Watcher, playback *alsa.Playback, id mode.ID, rate float64, vis bool, plotDir string, log *zap.SugaredLogger) {
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !isImage(ev.Name) {
				continue
			}
			if err := transmit(ev.Name, playback, id, rate, vis, plotDir, log); err != nil {
				log.Errorw("transmission failed", "path", ev.Name, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warnw("watcher error", "error", err)
		}
	}
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	default:
		return false
	}
}

func transmit(path string, playback *alsa.Playback, id mode.ID, rate float64, vis bool, plotDir string, log *zap.SugaredLogger) error {
	desc, _ := mode.Get(id)
	frame, err := imageio.LoadResized(path, desc.Width, desc.Height)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	if plotDir != "" {
		if err := writeDebugPlot(plotDir, filepath.Base(path), desc, rate); err != nil {
			log.Warnw("debug plot failed", "path", path, "error", err)
		}
	}

	enc, err := encoder.New(id, rate, log)
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	enc.SetVISEnabled(vis)
	if err := enc.SetImage(frame); err != nil {
		return fmt.Errorf("setting image: %w", err)
	}

	log.Infow("transmitting", "path", path, "mode", desc.Name, "total_samples", enc.GetTotalSamples())
	buf := make([]float64, 4096)
	for !enc.IsComplete() {
		n, err := enc.Generate(buf)
		if err != nil {
			return fmt.Errorf("generating samples: %w", err)
		}
		if n == 0 {
			break
		}
		if err := playback.WriteSamples(buf[:n]); err != nil {
			return fmt.Errorf("writing to playback device: %w", err)
		}
	}
	log.Infow("transmission complete", "path", path)
	return nil
}

// writeDebugPlot renders the scheduled frequency-vs-time segments for
// desc's first scanline (representative of every line's geometry aside
// from dual-row families' Y2 channel and Scottie's leading sync, which
// only the first line carries) so an operator can visually sanity
// check sync/porch/channel timing without decoding the audio back.
func writeDebugPlot(dir, name string, desc mode.Descriptor, rate float64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	row := make([]gstvimage.RGB, desc.Width)
	sched := encoder.NewScheduler(desc, rate)
	segs := sched.Line(row, nil, 0, true)

	pts := make(plotter.XYs, 0, len(segs)*2)
	var t float64
	for _, s := range segs {
		dur := float64(s.Samples) / rate
		pts = append(pts, plotter.XY{X: t, Y: s.FreqHz})
		t += dur
		pts = append(pts, plotter.XY{X: t, Y: s.FreqHz})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s scanline schedule: %s", desc.Name, name)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "frequency (Hz)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	outPath := filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".png")
	return p.Save(8*vg.Inch, 3*vg.Inch, outPath)
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
