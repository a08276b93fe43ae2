// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import (
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/sstanisicTT/compute-perf-estimation/kernmath"
)

// A StatRow summarizes the kernel length of one measurement point
// across runs.
type StatRow struct {
	Ident

	// Avg is the mean kernel length.
	Avg float64
	// Std is the sample standard deviation of the kernel length,
	// undefined for a single run.
	Std kernmath.Optional[float64]
	// StdPct is Std as a percentage of Avg. It is only set by
	// WithStdPct.
	StdPct kernmath.Optional[float64]
}

// A StatTable is the per-position statistics of one category.
type StatTable struct {
	Category Category
	// Runs is the number of runs summarized, or 0 if unknown
	// because the table was read back from a file.
	Runs int
	// HasStdPct indicates that StdPct has been derived.
	HasStdPct bool
	Rows      []StatRow
}

// analyzeChunk is the number of positions summarized by one goroutine.
const analyzeChunk = 512

// Analyze computes per-position statistics over the runs of u. The
// run with the lowest ID is the reference run; the identity of each
// output row is taken from it.
func Analyze(u *Unified) (*StatTable, error) {
	return AnalyzeRuns(u.Category, u.Runs())
}

// AnalyzeRuns computes per-position statistics over runs. runs[0] is
// the reference run. Row i of every run is taken to be the same
// measurement point; this is not verified beyond requiring every run
// to have the same number of rows. If they do not, AnalyzeRuns returns
// an *AlignmentError and no table.
func AnalyzeRuns(cat Category, runs []RunRows) (*StatTable, error) {
	if len(runs) == 0 {
		return nil, fmt.Errorf("%s: %w", cat, ErrNoRuns)
	}
	ref := runs[0].Rows
	for _, run := range runs {
		if len(run.Rows) != len(ref) {
			return nil, &AlignmentError{cat, strconv.Itoa(run.RunID), len(run.Rows), len(ref)}
		}
	}

	t := &StatTable{
		Category: cat,
		Runs:     len(runs),
		Rows:     make([]StatRow, len(ref)),
	}

	// Positions are independent, so summarize them in parallel
	// chunks. Each goroutine writes a disjoint range of t.Rows.
	limit := make(chan struct{}, runtime.GOMAXPROCS(-1))
	var wg sync.WaitGroup
	for lo := 0; lo < len(ref); lo += analyzeChunk {
		lo := lo
		hi := min(lo+analyzeChunk, len(ref))
		limit <- struct{}{}
		wg.Add(1)
		go func() {
			summarizeRange(t.Rows[lo:hi], runs, lo)
			<-limit
			wg.Done()
		}()
	}
	wg.Wait()

	return t, nil
}

func summarizeRange(out []StatRow, runs []RunRows, base int) {
	xs := make([]float64, len(runs))
	for i := range out {
		pos := base + i
		for j, run := range runs {
			xs[j] = float64(run.Rows[pos].Row.KernelLength)
		}
		out[i] = StatRow{
			Ident: runs[0].Rows[pos].Ident(),
			Avg:   kernmath.Mean(xs),
			Std:   kernmath.StdDev(xs),
		}
	}
}

// Overall returns the mean of the per-position averages and the mean
// of the defined per-position standard deviations.
func (t *StatTable) Overall() (avg float64, std kernmath.Optional[float64]) {
	avgs := make([]float64, len(t.Rows))
	var stds []float64
	for i, r := range t.Rows {
		avgs[i] = r.Avg
		if s, ok := r.Std.Get(); ok {
			stds = append(stds, s)
		}
	}
	avg = kernmath.Mean(avgs)
	if len(stds) > 0 {
		std = kernmath.Some(kernmath.Mean(stds))
	}
	return avg, std
}
