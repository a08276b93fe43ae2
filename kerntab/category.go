// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kerntab aligns kernel metric tables across repeated runs and
// derives the statistics that compare instrumentation variants.
//
// The stages are:
//
//   - Unify concatenates the per-run tables of one category, tagging
//     each row with its run.
//   - Analyze treats row position as the identity of a measurement
//     point and summarizes the kernel length of each position across
//     runs. Runs must have the same number of rows.
//   - WithStdPct expresses each position's dispersion as a percentage
//     of its mean.
//   - Compare relates the counter and profiler variants to the
//     baseline, position by position.
//
// No stage mutates its input. Each table can be written to and read
// back from CSV.
package kerntab

import (
	"fmt"
	"strings"
)

// A Category is an instrumentation variant.
type Category string

const (
	Baseline Category = "baseline"
	Counter  Category = "counter"
	Profiler Category = "profiler"
)

// Categories lists every Category in reporting order.
var Categories = []Category{Baseline, Counter, Profiler}

// ParseCategory returns the Category named s.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Upper returns the upper-case name of c, as used in reports.
func (c Category) Upper() string {
	return strings.ToUpper(string(c))
}

// Ident is the identity of one aligned row: the run it was taken from
// and its measurement point.
type Ident struct {
	RunID    int
	HostID   int64
	PCIe     int64
	CoreX    int64
	CoreY    int64
	RiscType string
}

// IdentColumns are the column names of Ident in tabular form.
var IdentColumns = []string{"run_id", "host_id", "pcie", "core_x", "core_y", "risc_type"}

// An AlignmentError reports that a table does not have the same number
// of rows as the reference it must be aligned with. Run is empty when
// whole categories are being compared.
type AlignmentError struct {
	Category Category
	Run      string
	Rows     int
	Want     int
}

func (e *AlignmentError) Error() string {
	if e.Run == "" {
		return fmt.Sprintf("%s: has %d rows, want %d", e.Category, e.Rows, e.Want)
	}
	return fmt.Sprintf("%s: run %s has %d rows, want %d", e.Category, e.Run, e.Rows, e.Want)
}
