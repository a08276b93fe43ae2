// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import "github.com/sstanisicTT/compute-perf-estimation/kernmath"

// pctDigits is the number of decimal places StdPct is rounded to.
const pctDigits = 4

// WithStdPct returns a copy of t in which each row's StdPct is its
// standard deviation as a percentage of its mean, rounded to four
// decimal places. StdPct is undefined where the mean is 0 or the
// standard deviation is undefined.
func (t *StatTable) WithStdPct() *StatTable {
	t2 := *t
	t2.HasStdPct = true
	t2.Rows = make([]StatRow, len(t.Rows))
	for i, r := range t.Rows {
		r.StdPct = kernmath.None[float64]()
		if p, ok := kernmath.Percent(r.Std, kernmath.Some(r.Avg)).Get(); ok {
			r.StdPct = kernmath.Some(kernmath.Round(p, pctDigits))
		}
		t2.Rows[i] = r
	}
	return &t2
}

// A VariabilitySummary describes the distribution of StdPct over the
// rows of one table.
type VariabilitySummary struct {
	Category Category
	// Rows is the number of rows in the table.
	Rows int
	// ZeroMean is the number of rows whose mean is 0.
	ZeroMean int
	// Pct summarizes the defined StdPct values.
	Pct kernmath.Summary
}

// StdPctSummary summarizes the StdPct column of t. t must have been
// produced by WithStdPct.
func (t *StatTable) StdPctSummary() VariabilitySummary {
	s := VariabilitySummary{Category: t.Category, Rows: len(t.Rows)}
	pcts := make([]kernmath.Optional[float64], len(t.Rows))
	for i, r := range t.Rows {
		if r.Avg == 0 {
			s.ZeroMean++
		}
		pcts[i] = r.StdPct
	}
	s.Pct = kernmath.Summarize(pcts)
	return s
}
