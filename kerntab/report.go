// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteStdPctReport writes a plain-text report of the variability of
// each category, followed by a cross-category comparison if there is
// more than one category.
func WriteStdPctReport(w io.Writer, sums []VariabilitySummary) error {
	var b strings.Builder
	b.WriteString("Standard Deviation Percentage Summary Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, s := range sums {
		p := s.Pct
		fmt.Fprintf(&b, "%s STATISTICS:\n", s.Category.Upper())
		b.WriteString(strings.Repeat("-", 20) + "\n")
		fmt.Fprintf(&b, "Total rows: %d\n", s.Rows)
		fmt.Fprintf(&b, "Zero mean values: %d\n", s.ZeroMean)
		fmt.Fprintf(&b, "Valid percentage calculations: %d\n", p.N)
		if p.N > 0 {
			b.WriteString("STD Percentage statistics:\n")
			fmt.Fprintf(&b, "  Mean: %.4f%%\n", p.Mean)
			fmt.Fprintf(&b, "  Median: %.4f%%\n", p.Median)
			fmt.Fprintf(&b, "  Standard Deviation: %.4f%%\n", p.StdDev.Or(math.NaN()))
			fmt.Fprintf(&b, "  Min: %.4f%%\n", p.Min)
			fmt.Fprintf(&b, "  Max: %.4f%%\n", p.Max)
			for _, q := range []float64{0.25, 0.75, 0.95, 0.99} {
				fmt.Fprintf(&b, "  %dth percentile: %.4f%%\n", int(q*100), p.Quantile(q))
			}
		}
		b.WriteString("\n")
	}

	if len(sums) > 1 {
		b.WriteString("CROSS-CATEGORY COMPARISON:\n")
		b.WriteString(strings.Repeat("-", 25) + "\n")
		var valid []VariabilitySummary
		for _, s := range sums {
			if s.Pct.N > 0 {
				valid = append(valid, s)
			}
		}
		if len(valid) > 0 {
			b.WriteString("Mean STD Percentage by category:\n")
			for _, s := range valid {
				fmt.Fprintf(&b, "  %s: %.4f%% (n=%d)\n", s.Category, s.Pct.Mean, s.Pct.N)
			}
			b.WriteString("\nMedian STD Percentage by category:\n")
			for _, s := range valid {
				fmt.Fprintf(&b, "  %s: %.4f%%\n", s.Category, s.Pct.Median)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteImpactSummary writes a plain-text summary of each variant's
// performance impact relative to the baseline.
func WriteImpactSummary(w io.Writer, sums []CategorySummary) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nIMPLEMENTATION PERFORMANCE IMPACT SUMMARY\n%s\n", rule, rule)

	for _, s := range sums {
		ms, sc := s.MeanSlowdown, s.StdChange
		name := s.Category.Upper()
		fmt.Fprintf(&b, "\n%s vs BASELINE:\n", name)
		b.WriteString("  KERNEL_LENGTH Performance Impact:\n")
		fmt.Fprintf(&b, "    Average Slowdown: %.3f%%\n", ms.Mean)
		fmt.Fprintf(&b, "    Std Dev:          %.3f%%\n", ms.StdDev.Or(math.NaN()))
		fmt.Fprintf(&b, "    Median Slowdown:  %.3f%%\n", ms.Median)
		b.WriteString("  KERNEL_LENGTH Variability Change:\n")
		fmt.Fprintf(&b, "    Average Change:   %.3f%%\n", sc.Mean)
		fmt.Fprintf(&b, "    Std Dev:          %.3f%%\n", sc.StdDev.Or(math.NaN()))
		fmt.Fprintf(&b, "    Median Change:    %.3f%%\n", sc.Median)
		fmt.Fprintf(&b, "  Data points: %d\n", s.Count())
		fmt.Fprintf(&b, "  -> %s\n", Verdict(s))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Verdict interprets the average mean slowdown of s as a sentence.
func Verdict(s CategorySummary) string {
	avg := s.MeanSlowdown.Mean
	name := s.Category.Upper()
	switch {
	case s.MeanSlowdown.N == 0:
		return fmt.Sprintf("%s has no comparable data points", name)
	case avg > 0:
		return fmt.Sprintf("%s is %.2f%% SLOWER than baseline on average", name, avg)
	}
	return fmt.Sprintf("%s is %.2f%% FASTER than baseline on average", name, math.Abs(avg))
}
