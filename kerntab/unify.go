// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sstanisicTT/compute-perf-estimation/kernproc"
)

// ErrNoRuns is returned when there is no usable run to unify or
// analyze.
var ErrNoRuns = errors.New("no runs")

// Options configures Unify.
type Options struct {
	// Logger receives progress messages. If nil, nothing is
	// logged.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// A Run is one run's table, as input to Unify.
type Run struct {
	// Name identifies the run in warnings, typically its file name.
	Name string

	Table kernproc.RunTable

	// ResolveHost returns the run's host ID. It is only called if
	// Table.HostKnown is false.
	ResolveHost func() (int64, error)

	// Err, if not nil, is why the run's table could not be loaded.
	// The run is skipped but keeps its number.
	Err error
}

// A UnifiedRow is a metric row tagged with the run it came from.
type UnifiedRow struct {
	RunID int
	Row   kernproc.Row
}

// Ident returns the identity of r.
func (r UnifiedRow) Ident() Ident {
	return Ident{r.RunID, r.Row.HostID, r.Row.PCIe, r.Row.CoreX, r.Row.CoreY, r.Row.RiscType}
}

// A Unified table is the rows of every run of one category.
type Unified struct {
	Category Category

	// Columns is IdentColumns followed by the metric columns, in
	// the order they were first observed across runs.
	Columns []string

	// Rows is the rows of every run, in run order.
	Rows []UnifiedRow

	// Warnings is the runs that were skipped, and why.
	Warnings []error
}

// Unify concatenates runs into one table. Runs are numbered from 1 in
// the order given. A run that failed to load or whose host ID cannot
// be resolved is skipped and reported in Warnings; its number is not
// reused.
func Unify(cat Category, runs []Run, opts Options) (*Unified, error) {
	log := opts.logger().With(zap.String("category", string(cat)))
	u := &Unified{Category: cat}
	seen := make(map[string]bool)
	var metrics []string
	used := 0

	for i, run := range runs {
		runID := i + 1
		if run.Err != nil {
			u.Warnings = append(u.Warnings, run.Err)
			log.Warn("skipping run", zap.String("run", run.Name), zap.Error(run.Err))
			continue
		}
		rows := run.Table.Rows
		if !run.Table.HostKnown {
			if run.ResolveHost == nil {
				u.Warnings = append(u.Warnings, fmt.Errorf("%s: no host ID", run.Name))
				continue
			}
			host, err := run.ResolveHost()
			if err != nil {
				u.Warnings = append(u.Warnings, fmt.Errorf("%s: resolving host ID: %w", run.Name, err))
				continue
			}
			rows = make([]kernproc.Row, len(run.Table.Rows))
			for j, r := range run.Table.Rows {
				r.HostID = host
				rows[j] = r
			}
		}

		for _, col := range run.Table.MetricColumns() {
			if !seen[col] {
				seen[col] = true
				metrics = append(metrics, col)
			}
		}
		for _, r := range rows {
			u.Rows = append(u.Rows, UnifiedRow{runID, r})
		}
		used++

		fields := []zap.Field{zap.String("run", run.Name), zap.Int("run_id", runID), zap.Int("rows", len(rows))}
		if len(rows) > 0 {
			fields = append(fields, zap.Int64("host_id", rows[0].HostID))
		}
		log.Info("added rows", fields...)
	}

	if used == 0 {
		return nil, fmt.Errorf("%s: %w", cat, ErrNoRuns)
	}
	u.Columns = append(append([]string(nil), IdentColumns...), metrics...)
	log.Info("unified", zap.Int("rows", len(u.Rows)), zap.Strings("columns", u.Columns))
	return u, nil
}

// HasColumn reports whether u carries the named column.
func (u *Unified) HasColumn(name string) bool {
	for _, c := range u.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MetricColumns returns the metric columns of u, without the
// identity columns.
func (u *Unified) MetricColumns() []string {
	if len(u.Columns) <= len(IdentColumns) {
		return []string{kernproc.ColKernelLength}
	}
	return u.Columns[len(IdentColumns):]
}

// A RunRows is the rows of a single run, in order.
type RunRows struct {
	RunID int
	Rows  []UnifiedRow
}

// Runs splits u by run ID, in increasing run ID order. The order of
// rows within each run is preserved.
func (u *Unified) Runs() []RunRows {
	idx := make(map[int]int)
	var runs []RunRows
	for _, r := range u.Rows {
		i, ok := idx[r.RunID]
		if !ok {
			i = len(runs)
			idx[r.RunID] = i
			runs = append(runs, RunRows{RunID: r.RunID})
		}
		runs[i].Rows = append(runs[i].Rows, r)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].RunID < runs[j].RunID
	})
	return runs
}
