// File: cmd/collbench/main.go
// Author: momentics <momentics@gmail.com>
//
// collbench runs one shared-memory collective or graph benchmark:
//
//	collbench <bench> [flags]
//
// Exit status is 0 on completion, 2 on a configuration error and 1 on a
// verification failure.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tebeka/atexit"

	"github.com/momentics/hioload-coll/affinity"
	"github.com/momentics/hioload-coll/api"
	"github.com/momentics/hioload-coll/bench"
	"github.com/momentics/hioload-coll/control"
	"github.com/momentics/hioload-coll/internal/concurrency"
	"github.com/momentics/hioload-coll/pool"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: collbench <%s> [flags]\n", strings.Join(control.Benches, "|"))
	fmt.Fprintf(os.Stderr, "run 'collbench <bench> -h' for flags\n")
}

func main() {
	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		usage()
		atexit.Exit(2)
	}
	opts := control.DefaultOptions()
	opts.Bench = os.Args[1]
	fs := flag.NewFlagSet(opts.Bench, flag.ExitOnError)
	opts.RegisterFlags(fs)
	_ = fs.Parse(os.Args[2:])

	log := newLogger(opts.LogLevel)
	if err := opts.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		atexit.Exit(2)
	}

	store := control.NewConfigStore()
	store.OnReload(func(cfg map[string]any) {
		log.Debug().Fields(cfg).Msg("configuration loaded")
	})
	store.Load(opts)

	allocOpts := []pool.Option{pool.WithLogger(log)}
	if opts.Heap {
		allocOpts = append(allocOpts, pool.WithHeap())
	}
	alloc := pool.NewAllocator(allocOpts...)
	atexit.Register(alloc.Close)

	fabOpts := []concurrency.FabricOption{concurrency.WithLogger(log)}
	if opts.Pin {
		fabOpts = append(fabOpts, concurrency.WithPinner(affinity.Pinner()))
	}
	fabric, err := concurrency.NewFabric(opts.Topology(), fabOpts...)
	if err != nil {
		log.Error().Err(err).Msg("invalid topology")
		atexit.Exit(2)
	}

	metrics := control.NewMetricsRegistry()
	probes := control.NewDebugProbes()
	control.RegisterPlatformProbes(probes)
	probes.RegisterProbe("regions", func() any { return alloc.Stats() })

	b, err := bench.New(opts)
	if err != nil {
		log.Error().Err(err).Msg("unknown benchmark")
		atexit.Exit(2)
	}
	env := &bench.Env{
		Opts:    opts,
		Alloc:   alloc,
		Fabric:  fabric,
		Log:     log,
		Metrics: metrics,
		Probes:  probes,
		Hooks: bench.Hooks{
			OnMeasureStart: func() { log.Debug().Msg("measurement started") },
			OnMeasureEnd:   func() { log.Debug().Msg("measurement ended") },
		},
	}

	stop := control.NewWatchdog(opts.HangReport, probes, log).Start()
	start := time.Now()
	res, err := bench.Run(context.Background(), b, env)
	stop()
	switch {
	case api.CodeOf(err) == api.ErrCodeVerification:
		atexit.Fatalf("%s verification failed: %v", opts.Bench, err)
	case errors.Is(err, api.ErrInvalidTopology), errors.Is(err, api.ErrMisaligned):
		log.Error().Err(err).Msg("invalid configuration")
		atexit.Exit(2)
	case err != nil:
		atexit.Fatalf("%s failed: %v", opts.Bench, err)
	}
	log.Debug().Dur("wall", time.Since(start)).Msg("run complete")

	report := bench.NewReport(res, store.GetSnapshot(), metrics.GetSnapshot())
	if opts.JSON {
		err = report.WriteJSON(os.Stdout)
	} else {
		err = report.WriteText(os.Stdout)
	}
	if err != nil {
		atexit.Fatalf("write report: %v", err)
	}
	atexit.Exit(0)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(lvl).With().Timestamp().Logger()
}
