// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sstanisicTT/compute-perf-estimation/internal/sink"
	"github.com/sstanisicTT/compute-perf-estimation/kernproc"
	"github.com/sstanisicTT/compute-perf-estimation/kerntab"
	"github.com/sstanisicTT/compute-perf-estimation/tracefmt"
)

// Names of the files written by the percent and compare stages.
const (
	stdPctReportFile     = "std_percentage_summary.txt"
	comparisonFile       = "implementation_comparison.csv"
	comparisonSummaryCSV = "implementation_comparison_summary.csv"
)

// outName returns the sink name of a file under the configured
// directory dir.
func outName(dir string, elem ...string) string {
	return path.Join(append([]string{filepath.ToSlash(dir)}, elem...)...)
}

// forEach calls f for every index in [0, n), running at most
// cfg.Workers calls at once. It returns the first error from f.
func (a *app) forEach(ctx context.Context, n int, f func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return f(ctx, i)
		})
	}
	return g.Wait()
}

func (a *app) all(ctx context.Context) error {
	for _, stage := range []func(context.Context) error{a.process, a.unify, a.analyze, a.percent, a.compare} {
		if err := stage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// process reduces every device event log under the runs directory to
// a per-processor kernel duration table, mirroring the directory tree
// under the processed directory.
func (a *app) process(ctx context.Context) error {
	in := a.cfg.Path(a.cfg.Runs)
	groups, err := subdirs(in)
	if err != nil {
		a.log.Warn("no runs to process", zap.Error(err))
		return nil
	}
	for _, group := range groups {
		if _, err := kerntab.ParseCategory(group); err != nil {
			a.log.Warn("processing logs outside the known categories; they will not be unified", zap.Error(err))
		}
		files, err := findTraces(filepath.Join(in, group))
		if err != nil {
			a.log.Warn("listing event logs", zap.String("dir", group), zap.Error(err))
			continue
		}
		ok := make([]bool, len(files))
		err = a.forEach(ctx, len(files), func(ctx context.Context, i int) error {
			rel, err := filepath.Rel(in, files[i])
			if err != nil {
				return err
			}
			ok[i] = a.processFile(ctx, files[i], outName(a.cfg.Processed, filepath.ToSlash(rel)))
			return nil
		})
		if err != nil {
			return err
		}
		n := 0
		for _, b := range ok {
			if b {
				n++
			}
		}
		a.log.Info("transformed event logs",
			zap.String("dir", group), zap.Int("transformed", n), zap.Int("files", len(files)))
	}
	return nil
}

// processFile extracts the kernel durations of one event log and
// writes them to out. It reports whether a table was written.
func (a *app) processFile(ctx context.Context, file, out string) bool {
	log := a.log.With(zap.String("file", file))
	f, err := os.Open(file)
	if err != nil {
		log.Warn("skipping event log", zap.Error(err))
		return false
	}
	defer f.Close()

	table, warnings, err := kernproc.Extract(tracefmt.NewReader(f, file), kernproc.Options{Order: a.order})
	if len(warnings) > 0 {
		log.Warn("ill-formed events", zap.Int("count", len(warnings)), zap.Error(multierr.Combine(warnings...)))
	}
	if err != nil {
		log.Warn("skipping event log", zap.Error(err))
		return false
	}
	err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
		return kerntab.WriteRunTable(w, table)
	})
	if err != nil {
		log.Warn("writing kernel table", zap.String("out", out), zap.Error(err))
		return false
	}
	log.Debug("transformed", zap.String("out", out), zap.Int("rows", len(table.Rows)))
	return true
}

// unify joins the processed tables of each run directory of each
// category into one unified table.
func (a *app) unify(ctx context.Context) error {
	in := a.cfg.Path(a.cfg.Processed)
	for _, cat := range kerntab.Categories {
		runs, err := subdirs(filepath.Join(in, string(cat)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			a.log.Warn("skipping category", zap.String("category", string(cat)), zap.Error(err))
			continue
		}
		n := 0
		for _, run := range runs {
			ok, err := a.unifyRun(ctx, cat, run)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		a.log.Info("unified category", zap.String("category", string(cat)), zap.Int("unified", n), zap.Int("runs", len(runs)))
	}
	return nil
}

func (a *app) unifyRun(ctx context.Context, cat kerntab.Category, run string) (bool, error) {
	log := a.log.With(zap.String("category", string(cat)), zap.String("run", run))
	processed := a.cfg.Path(a.cfg.Processed)
	files, err := findTraces(filepath.Join(processed, string(cat), run))
	if err != nil {
		log.Warn("listing processed tables", zap.Error(err))
		return false, nil
	}

	runs := make([]kerntab.Run, len(files))
	err = a.forEach(ctx, len(files), func(ctx context.Context, i int) error {
		rel, err := filepath.Rel(processed, files[i])
		if err != nil {
			return err
		}
		runs[i] = a.loadRun(files[i], filepath.Join(a.cfg.Path(a.cfg.Runs), rel))
		return nil
	})
	if err != nil {
		return false, err
	}

	u, err := kerntab.Unify(cat, runs, kerntab.Options{Logger: log})
	if err != nil {
		log.Warn("nothing to unify", zap.Error(err))
		return false, nil
	}
	for _, w := range u.Warnings {
		log.Warn("skipping table", zap.Error(w))
	}
	out := outName(a.cfg.Unified, string(cat), run, string(cat)+".csv")
	err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
		return kerntab.WriteUnified(w, u)
	})
	if err != nil {
		log.Warn("writing unified table", zap.String("out", out), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// loadRun reads a processed table. If the table has no host ID, it is
// taken from the event log at raw that the table was derived from.
func (a *app) loadRun(file, raw string) kerntab.Run {
	run := kerntab.Run{
		Name: file,
		ResolveHost: func() (int64, error) {
			f, err := os.Open(raw)
			if err != nil {
				return 0, err
			}
			defer f.Close()
			return tracefmt.HostIDFromTrace(f, raw)
		},
	}
	f, err := os.Open(file)
	if err != nil {
		run.Err = err
		return run
	}
	defer f.Close()
	run.Table, run.Err = kerntab.ReadRunTable(f, file)
	return run
}

// analyze computes per-position statistics across the run directories
// of each category.
func (a *app) analyze(ctx context.Context) error {
	in := a.cfg.Path(a.cfg.Unified)
	for _, cat := range kerntab.Categories {
		log := a.log.With(zap.String("category", string(cat)))
		runs, err := a.loadUnified(filepath.Join(in, string(cat)), cat)
		if err != nil {
			log.Warn("skipping category", zap.Error(err))
			continue
		}
		st, err := kerntab.AnalyzeRuns(cat, runs)
		if err != nil {
			log.Warn("skipping category", zap.Error(err))
			continue
		}
		avg, std := st.Overall()
		log.Info("analyzed category",
			zap.Int("runs", st.Runs), zap.Int("rows", len(st.Rows)),
			zap.Float64("avg_of_averages", avg), zap.Stringer("avg_of_std_devs", std))

		out := outName(a.cfg.Statistics, string(cat)+".csv")
		err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
			return kerntab.WriteStats(w, st)
		})
		if err != nil {
			log.Warn("writing statistics", zap.String("out", out), zap.Error(err))
		}
	}
	return nil
}

// loadUnified returns the runs of one category. Each numbered run
// directory is one run, taken in numeric order. A category without
// run directories may instead have a single unified table whose runs
// are distinguished by run ID.
func (a *app) loadUnified(dir string, cat kerntab.Category) ([]kerntab.RunRows, error) {
	name := string(cat) + ".csv"
	nums, err := runDirs(dir)
	if err != nil {
		return nil, err
	}
	if len(nums) == 0 {
		file := filepath.Join(dir, name)
		if !exists(file) {
			return nil, kerntab.ErrNoRuns
		}
		u, err := readUnified(file, cat)
		if err != nil {
			return nil, err
		}
		return u.Runs(), nil
	}

	var runs []kerntab.RunRows
	for _, num := range nums {
		file := filepath.Join(dir, strconv.Itoa(num), name)
		if !exists(file) {
			a.log.Warn("skipping run without unified table", zap.String("file", file))
			continue
		}
		u, err := readUnified(file, cat)
		if err != nil {
			a.log.Warn("skipping run", zap.Error(err))
			continue
		}
		runs = append(runs, kerntab.RunRows{RunID: num, Rows: u.Rows})
	}
	return runs, nil
}

func readUnified(file string, cat kerntab.Category) (*kerntab.Unified, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return kerntab.ReadUnified(f, file, cat)
}

func readStats(file string, cat kerntab.Category) (*kerntab.StatTable, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return kerntab.ReadStats(f, file, cat)
}

// percent adds standard deviation percentages to the statistics of
// each category and writes a variability report.
func (a *app) percent(ctx context.Context) error {
	in := a.cfg.Path(a.cfg.Statistics)
	var sums []kerntab.VariabilitySummary
	for _, cat := range kerntab.Categories {
		log := a.log.With(zap.String("category", string(cat)))
		st, err := readStats(filepath.Join(in, string(cat)+".csv"), cat)
		if err != nil {
			log.Warn("skipping category", zap.Error(err))
			continue
		}
		pct := st.WithStdPct()
		sums = append(sums, pct.StdPctSummary())

		out := outName(a.cfg.Enhanced, string(cat)+".csv")
		err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
			return kerntab.WriteStats(w, pct)
		})
		if err != nil {
			log.Warn("writing enhanced statistics", zap.String("out", out), zap.Error(err))
		}
		if a.db != nil {
			if err := a.db.SaveStatistics(ctx, a.cfg.Label(), pct); err != nil {
				log.Warn("saving statistics", zap.Error(err))
			}
		}
	}
	if len(sums) == 0 {
		a.log.Warn("no statistics to summarize")
		return nil
	}

	out := outName(a.cfg.Enhanced, stdPctReportFile)
	err := sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
		return kerntab.WriteStdPctReport(w, sums)
	})
	if err != nil {
		a.log.Warn("writing variability report", zap.String("out", out), zap.Error(err))
	}
	return nil
}

// compare relates the counter and profiler statistics to the
// baseline and prints the impact summary.
func (a *app) compare(ctx context.Context) error {
	in := a.cfg.Path(a.cfg.Statistics)
	tables := make(map[kerntab.Category]*kerntab.StatTable)
	for _, cat := range kerntab.Categories {
		st, err := readStats(filepath.Join(in, string(cat)+".csv"), cat)
		if err != nil {
			a.log.Warn("cannot compare implementations", zap.String("category", string(cat)), zap.Error(err))
			return nil
		}
		tables[cat] = st
	}
	c, err := kerntab.Compare(tables[kerntab.Baseline], tables[kerntab.Counter], tables[kerntab.Profiler])
	if err != nil {
		a.log.Warn("cannot compare implementations", zap.Error(err))
		return nil
	}
	sums := c.Summaries()
	a.log.Info("compared implementations", zap.Int("rows", len(c.Rows)))

	out := outName(a.cfg.Comparison, comparisonFile)
	err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
		return kerntab.WriteComparison(w, c)
	})
	if err != nil {
		a.log.Warn("writing comparison", zap.String("out", out), zap.Error(err))
	}
	out = outName(a.cfg.Comparison, comparisonSummaryCSV)
	err = sink.WriteFile(ctx, a.out, out, func(w io.Writer) error {
		return kerntab.WriteSummaryCSV(w, sums)
	})
	if err != nil {
		a.log.Warn("writing comparison summary", zap.String("out", out), zap.Error(err))
	}

	if a.db != nil {
		label := a.cfg.Label()
		err := multierr.Combine(
			a.db.SaveComparison(ctx, label, c),
			a.db.SaveSummaries(ctx, label, sums),
		)
		if err != nil {
			a.log.Warn("saving comparison", zap.Error(err))
		}
	}

	return kerntab.WriteImpactSummary(a.w, sums)
}
