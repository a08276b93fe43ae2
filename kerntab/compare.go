// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import "github.com/sstanisicTT/compute-perf-estimation/kernmath"

// Moments is the mean and standard deviation of one position in one
// category.
type Moments struct {
	Mean float64
	Std  kernmath.Optional[float64]
}

// A Delta relates a variant's Moments to the baseline's, in percent.
type Delta struct {
	// MeanSlowdown is the relative change of the mean. Positive
	// values are slowdowns. It is undefined if the baseline mean
	// is 0.
	MeanSlowdown kernmath.Optional[float64]
	// StdChange is the relative change of the standard deviation.
	// It is undefined if the baseline standard deviation is 0 or
	// either standard deviation is undefined.
	StdChange kernmath.Optional[float64]
}

func delta(base, m Moments) Delta {
	return Delta{
		MeanSlowdown: kernmath.Change(kernmath.Some(base.Mean), kernmath.Some(m.Mean)),
		StdChange:    kernmath.Change(base.Std, m.Std),
	}
}

// A CompareRow is one position compared across categories.
type CompareRow struct {
	Ident

	Baseline, Counter, Profiler Moments

	CounterDelta, ProfilerDelta Delta
}

// A Comparison is the position-by-position comparison of the counter
// and profiler variants with the baseline.
type Comparison struct {
	Rows []CompareRow
}

// Compare compares counter and profiler with base, position by
// position. Identities are taken from base. All three tables must have
// the same number of rows; otherwise Compare returns an
// *AlignmentError and no result.
func Compare(base, counter, profiler *StatTable) (*Comparison, error) {
	for _, t := range []*StatTable{counter, profiler} {
		if len(t.Rows) != len(base.Rows) {
			return nil, &AlignmentError{Category: t.Category, Rows: len(t.Rows), Want: len(base.Rows)}
		}
	}

	c := &Comparison{Rows: make([]CompareRow, len(base.Rows))}
	for i, b := range base.Rows {
		row := CompareRow{
			Ident:    b.Ident,
			Baseline: Moments{b.Avg, b.Std},
			Counter:  Moments{counter.Rows[i].Avg, counter.Rows[i].Std},
			Profiler: Moments{profiler.Rows[i].Avg, profiler.Rows[i].Std},
		}
		row.CounterDelta = delta(row.Baseline, row.Counter)
		row.ProfilerDelta = delta(row.Baseline, row.Profiler)
		c.Rows[i] = row
	}
	return c, nil
}

// A CategorySummary summarizes the deltas of one variant over every
// position.
type CategorySummary struct {
	Category     Category
	MeanSlowdown kernmath.Summary
	StdChange    kernmath.Summary
}

// Count returns the number of positions with a defined mean slowdown.
func (s CategorySummary) Count() int {
	return s.MeanSlowdown.N
}

// Summaries summarizes the counter and profiler deltas of c, in that
// order.
func (c *Comparison) Summaries() []CategorySummary {
	var ms [2][]kernmath.Optional[float64]
	var sc [2][]kernmath.Optional[float64]
	for _, r := range c.Rows {
		for i, d := range []Delta{r.CounterDelta, r.ProfilerDelta} {
			ms[i] = append(ms[i], d.MeanSlowdown)
			sc[i] = append(sc[i], d.StdChange)
		}
	}
	return []CategorySummary{
		{Counter, kernmath.Summarize(ms[0]), kernmath.Summarize(sc[0])},
		{Profiler, kernmath.Summarize(ms[1]), kernmath.Summarize(sc[1])},
	}
}
