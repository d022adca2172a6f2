// cmd/aman/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// aman reads an ATC feed, predicts arrival trajectories and maintains
// the landing sequence for a runway system.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/vice-aman/aman/aman"
	"github.com/vice-aman/aman/aviation"
	"github.com/vice-aman/aman/feed"
	"github.com/vice-aman/aman/log"
	"github.com/vice-aman/aman/sequence"
	"github.com/vice-aman/aman/server"
	"github.com/vice-aman/aman/util"
	"github.com/vice-aman/aman/wx"

	"github.com/goforj/godump"
	"golang.org/x/sync/errgroup"
)

var (
	logLevel   = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	dbPath     = flag.String("db", "", "reference database: airports, STARs and aircraft performance (JSON, optionally .zst)")
	airport    = flag.String("airport", "", "ICAO code of the airport to sequence; all reported traffic if empty")
	feedPath   = flag.String("feed", "-", "newline-delimited JSON feed to read; - for stdin")
	wxPath     = flag.String("wx", "", "weather profile snapshot to load at startup and save at exit (default: user cache)")
	wxTTL      = flag.Duration("wxttl", wx.DefaultProfileTTL, "how long a weather profile is used without an update")
	httpAddr   = flag.String("http", "", "address for the status HTTP server (e.g. :6502); disabled if empty")
	interval   = flag.Duration("interval", aman.DefaultInterval, "time between sequencing cycles")
	freshness  = flag.Duration("freshness", aman.DefaultFreshness, "remove aircraft not reported for this long")
	horizon    = flag.Duration("horizon", sequence.DefaultHorizon, "active advisory horizon")
	workers    = flag.Int("workers", runtime.NumCPU(), "number of concurrent trajectory predictions")
	minSpacing = flag.Float64("minspacing", sequence.DefaultMinimumSpacing, "minimum distance between successive arrivals, nm")
	dump       = flag.Bool("dump", false, "dump each timeline to stdout")

	cpuprofile = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile = flag.String("memprofile", "", "write memory profile to this file")
)

const weatherCacheFile = "weather.msgpack.zst"

func main() {
	flag.Parse()

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "aman: -db must be specified")
		os.Exit(1)
	}
	db, err := aviation.LoadDatabase(*dbPath, lg)
	if err != nil {
		lg.Errorf("%s: %v", *dbPath, err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", *dbPath, err)
		os.Exit(1)
	}
	if *airport != "" {
		if _, ok := db.LookupAirport(*airport); !ok {
			lg.Warnf("%s: airport not in %s", *airport, *dbPath)
		}
	}

	weather := wx.NewStore(64, *wxTTL)
	loadWeather(weather, lg)

	fs := feed.NewStore(weather, lg)
	m := aman.NewManager(aman.Config{
		Airport:   *airport,
		Horizon:   *horizon,
		Freshness: *freshness,
		Workers:   *workers,

		MinimumSpacing: float32(*minSpacing),
	}, db, fs, weather, lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reloadOnHangup(ctx, m, lg)

	// The feed reader may be blocked on stdin, so it isn't waited for.
	go func() {
		if err := readFeed(ctx, fs, lg); err != nil && !errors.Is(err, context.Canceled) {
			lg.Errorf("feed: %v", err)
			stop()
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	if *httpAddr != "" {
		g.Go(func() error { return server.New(m, lg).ListenAndServe(ctx, *httpAddr) })
	}
	g.Go(func() error {
		return m.Run(ctx, *interval, func(tl aman.Timeline) {
			if *dump {
				godump.Dump(tl)
			}
		})
	})

	err = g.Wait()
	saveWeather(weather, lg)

	if err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "aman: %v\n", err)
		profiler.Cleanup()
		os.Exit(1)
	}
	lg.Info("exiting")
}

func readFeed(ctx context.Context, fs *feed.Store, lg *log.Logger) error {
	var r io.Reader = os.Stdin
	if *feedPath != "-" {
		f, err := os.Open(*feedPath)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	err := feed.Scan(ctx, r, lg, func(msg feed.Message) error {
		fs.Apply(msg, time.Now())
		return nil
	})
	if err == nil {
		lg.Info("end of feed", slog.String("feed", *feedPath))
	}
	return err
}

// reloadOnHangup reloads the reference database when SIGHUP is received.
func reloadOnHangup(ctx context.Context, m *aman.Manager, lg *log.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if db, err := aviation.LoadDatabase(*dbPath, lg); err != nil {
				lg.Errorf("%s: reload failed, keeping the current database: %v", *dbPath, err)
			} else {
				m.SetDatabase(db)
			}
		}
	}
}

func loadWeather(weather *wx.Store, lg *log.Logger) {
	if *wxPath == "" {
		var profiles map[string]wx.Profile
		if t, err := util.CacheRetrieveObject(weatherCacheFile, &profiles); err == nil {
			weather.Restore(profiles)
			lg.Info("restored cached weather", slog.Time("saved", t), slog.Int("airports", len(profiles)))
		} else if !errors.Is(err, os.ErrNotExist) {
			lg.Warnf("weather cache: %v", err)
		}
		return
	}

	f, err := os.Open(*wxPath)
	if errors.Is(err, os.ErrNotExist) {
		return
	} else if err != nil {
		lg.Warnf("%s: %v", *wxPath, err)
		return
	}
	defer f.Close()

	if err := weather.Load(f); err != nil {
		lg.Warnf("%s: %v", *wxPath, err)
	}
}

func saveWeather(weather *wx.Store, lg *log.Logger) {
	if *wxPath == "" {
		if err := util.CacheStoreObject(weatherCacheFile, weather.Profiles()); err != nil {
			lg.Warnf("weather cache: %v", err)
		}
		return
	}

	f, err := os.Create(*wxPath)
	if err != nil {
		lg.Warnf("%s: %v", *wxPath, err)
		return
	}
	defer f.Close()

	if err := weather.Save(f); err != nil {
		lg.Warnf("%s: %v", *wxPath, err)
	}
}
