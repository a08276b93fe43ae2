// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Kernstat estimates the performance impact of kernel instrumentation
// from device profiler logs.
//
// Usage:
//
//	kernstat [flags] process|unify|analyze|percent|compare|all
//
// The input is a tree of device event logs collected by repeatedly
// running the same workload under three instrumentation variants:
//
//	runs/baseline/0/reports/<timestamp>/profile_log_device.csv
//	runs/baseline/1/reports/<timestamp>/profile_log_device.csv
//	...
//	runs/counter/...
//	runs/profiler/...
//
// Each stage reads the output of the previous one:
//
//	process   reduce each log to one kernel duration row per
//	          processor, mirrored under processed/
//	unify     join the logs of each run directory into
//	          unified/<category>/<run>/<category>.csv
//	analyze   align runs by row position and write the mean and
//	          sample standard deviation of each position to
//	          statistics/<category>.csv
//	percent   add the standard deviation as a percentage of the mean,
//	          writing statistics2/<category>.csv and
//	          statistics2/std_percentage_summary.txt
//	compare   compare the counter and profiler variants with the
//	          baseline, writing comparison/implementation_comparison.csv
//	          and comparison/implementation_comparison_summary.csv
//	all       run every stage in order
//
// Directory names, the worker count and row order can be set in a YAML
// file given with -config. If store.dsn is set, statistics and
// comparisons are also saved to a sqlite3 or mysql database. If
// upload.uri is set (for example gs://bucket/prefix), every output
// file is mirrored there.
//
// Logs that cannot be read, runs that cannot be aligned and other
// per-input problems are logged as warnings to standard error and the
// affected input is skipped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sstanisicTT/compute-perf-estimation/internal/config"
	"github.com/sstanisicTT/compute-perf-estimation/internal/logutil"
	"github.com/sstanisicTT/compute-perf-estimation/internal/sink"
	"github.com/sstanisicTT/compute-perf-estimation/internal/store"
	"github.com/sstanisicTT/compute-perf-estimation/kernproc"
)

// A usageError is a command-line usage mistake. It exits with status 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	err := kernstat(context.Background(), os.Stdout, os.Stderr, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "kernstat: %s\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	w, wErr io.Writer

	flags struct {
		config      string
		logLevel    string
		logFormat   string
		root        string
		workers     int
		order       string
		upload      string
		storeDriver string
		storeDSN    string
	}

	cfg   *config.Config
	order kernproc.Order
	log   *zap.Logger
	out   sink.Sink
	db    *store.DB
}

func kernstat(ctx context.Context, w, wErr io.Writer, args []string) error {
	a := &app{w: w, wErr: wErr}
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(w)
	root.SetErr(wErr)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "kernstat",
		Short:         "Estimate the performance impact of kernel instrumentation",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return &usageError{errors.New("missing command")}
		},
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return a.setup(c)
		},
	}
	c.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	f := c.PersistentFlags()
	f.StringVar(&a.flags.config, "config", "", "read configuration from YAML `file`")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log `level`: debug, info, warn or error")
	f.StringVar(&a.flags.logFormat, "log-format", "", "log `format`: console or json")
	f.StringVar(&a.flags.root, "root", "", "resolve data directories relative to `dir`")
	f.IntVar(&a.flags.workers, "workers", 0, "process at most `n` logs at once")
	f.StringVar(&a.flags.order, "order", "", "row `order` of processed tables: sorted or first")
	f.StringVar(&a.flags.upload, "upload", "", "mirror outputs to `uri`, such as gs://bucket/prefix")
	f.StringVar(&a.flags.storeDriver, "store-driver", "", "results database `driver`: sqlite3 or mysql")
	f.StringVar(&a.flags.storeDSN, "store-dsn", "", "save results to the database at `dsn`")

	c.AddCommand(
		a.stageCmd("process", "Reduce device logs to per-processor kernel durations", a.process),
		a.stageCmd("unify", "Join the processed logs of each run directory", a.unify),
		a.stageCmd("analyze", "Compute per-position statistics across runs", a.analyze),
		a.stageCmd("percent", "Express standard deviations as a percentage of the mean", a.percent),
		a.stageCmd("compare", "Compare counter and profiler with the baseline", a.compare),
		a.stageCmd("all", "Run every stage in order", a.all),
	)
	return c
}

func noArgs(c *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &usageError{fmt.Errorf("unknown command %q for %q", args[0], c.CommandPath())}
	}
	return nil
}

func (a *app) stageCmd(use, short string, run func(ctx context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  noArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return run(c.Context())
		},
	}
}

// setup loads the configuration, applies flag overrides and opens the
// logger, output sinks and results database.
func (a *app) setup(c *cobra.Command) error {
	cfg, err := config.Load(a.flags.config)
	if err != nil {
		return err
	}
	f := c.Flags()
	if f.Changed("log-level") {
		cfg.Log.Level = a.flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = a.flags.logFormat
	}
	if f.Changed("root") {
		cfg.Root = a.flags.root
	}
	if f.Changed("workers") {
		cfg.Workers = a.flags.workers
	}
	if f.Changed("order") {
		cfg.Order = a.flags.order
	}
	if f.Changed("upload") {
		cfg.Upload.URI = a.flags.upload
	}
	if f.Changed("store-driver") {
		cfg.Store.Driver = a.flags.storeDriver
	}
	if f.Changed("store-dsn") {
		cfg.Store.DSN = a.flags.storeDSN
	}
	if err := cfg.Validate(); err != nil {
		return &usageError{err}
	}
	a.cfg = cfg
	a.order, _ = kernproc.ParseOrder(cfg.Order)

	if a.log, err = logutil.New(cfg.Log.Level, cfg.Log.Format, a.wErr); err != nil {
		return err
	}

	a.out = sink.Dir{Root: cfg.Root}
	if cfg.Upload.URI != "" {
		remote, err := sink.Open(c.Context(), cfg.Upload.URI)
		if err != nil {
			return fmt.Errorf("opening upload destination: %w", err)
		}
		a.out = sink.Multi(a.out, remote)
	}

	if cfg.Store.DSN != "" {
		if a.db, err = store.Open(cfg.Store.Driver, cfg.Store.DSN); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) close() {
	if a.out != nil {
		if err := sink.Close(a.out); err != nil {
			a.log.Warn("closing outputs", zap.Error(err))
		}
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.log != nil {
		a.log.Sync()
	}
}
