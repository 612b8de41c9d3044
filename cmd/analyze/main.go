package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/metalblueberry/solfege/pkg/config"
	"github.com/metalblueberry/solfege/pkg/engine"
	"github.com/metalblueberry/solfege/pkg/scale"
	"github.com/metalblueberry/solfege/pkg/source"
	"github.com/metalblueberry/solfege/pkg/tuner"
	"github.com/ossrs/go-oryx-lib/errors"
	"github.com/ossrs/go-oryx-lib/logger"
	"golang.org/x/sync/errgroup"
)

type options struct {
	root   float64
	tps    float64
	expect []scale.Degree
}

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file with SOLFEGE_* overrides")
	root := flag.String("root", "C3", "DO as a note name or Hz")
	tps := flag.Float64("tps", 60, "simulated host ticks per second")
	expect := flag.String("expect", "", "expected lane sequence, e.g. \"do re mi\"")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %v [flags] file.wav...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx := logger.WithContext(context.Background())
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := run(ctx, *envFile, *root, *tps, *expect, flag.Args()); err != nil {
		logger.Ef(ctx, "analyze err %+v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile, root string, tps float64, expect string, files []string) error {
	if len(files) == 0 {
		return errors.New("no input files")
	}
	if tps <= 0 {
		return errors.Errorf("invalid tps %v", tps)
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return errors.Wrapf(err, "load config")
	}

	opts := options{tps: tps}
	if opts.root, err = tuner.ParseNote(root); err != nil {
		return errors.Wrapf(err, "root")
	}
	if expect != "" {
		if opts.expect, err = scale.ParseSequence(expect); err != nil {
			return errors.Wrapf(err, "expect")
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, file := range files {
		file := file
		g.Go(func() error {
			return analyze(ctx, cfg, opts, file)
		})
	}
	return g.Wait()
}

// analyze replays a recording through its own engine, as if a host ticked at
// opts.tps while the microphone delivered the clip in real time.
func analyze(ctx context.Context, cfg config.Config, opts options, file string) error {
	clip, err := source.OpenWAV(file)
	if err != nil {
		return err
	}

	cfg.SampleRate = clip.SampleRate
	eng, err := engine.New(cfg)
	if err != nil {
		return errors.Wrapf(err, "engine for %v", file)
	}
	if err := eng.SetRoot(ctx, opts.root); err != nil {
		return errors.Wrapf(err, "root")
	}
	if err := eng.StartRun(ctx); err != nil {
		return errors.Wrapf(err, "start")
	}

	name := filepath.Base(file)
	logger.Tf(ctx, "%v: %.2fs at %vHz, DO=%.2fHz", name, clip.Duration(), clip.SampleRate, opts.root)

	dt := 1 / opts.tps
	buf := make([]float64, cfg.FrameSize)
	last := scale.NoDegree
	var lanes []scale.Degree
	analyses, voiced := 0, 0

	for i := 1; float64(i)*dt <= clip.Duration(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		t := float64(i) * dt
		out := eng.Tick(ctx, dt, clip.FrameAt(t, cfg.FrameSize, buf))
		if !out.Analyzed {
			continue
		}

		analyses++
		if out.Result != nil {
			voiced++
		}

		if out.Lane != last {
			if out.Lane.Valid() {
				logger.Tf(ctx, "%v: %6.2fs %-3v %.1fHz %+.0fc", name, t, out.Lane, out.Frequency, out.Classification.CentsOff)
				lanes = append(lanes, out.Lane)
			} else {
				logger.Tf(ctx, "%v: %6.2fs --  %v", name, t, out.Reason)
			}
			last = out.Lane
		}
	}

	logger.Tf(ctx, "%v: %v analyses, %v voiced, lanes %v", name, analyses, voiced, lanes)

	if opts.expect != nil && !sameLanes(lanes, opts.expect) {
		return errors.Errorf("%v: lanes %v, expected %v", name, lanes, opts.expect)
	}
	return nil
}

func sameLanes(a, b []scale.Degree) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
