// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernmath

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// A Summary describes the distribution of the defined values of a
// column of Optionals. Undefined values are dropped before
// summarizing; Missing counts them.
type Summary struct {
	// N is the number of defined values.
	N int
	// Missing is the number of undefined values that were dropped.
	Missing int

	Mean   float64
	Median float64
	// StdDev is the sample standard deviation, undefined if N < 2.
	StdDev   Optional[float64]
	Min, Max float64

	sample stats.Sample
}

// Summarize summarizes the defined values in xs. If no value is
// defined, the result has N == 0 and its location statistics are NaN.
func Summarize(xs []Optional[float64]) Summary {
	var vals []float64
	missing := 0
	for _, x := range xs {
		if v, ok := x.Get(); ok {
			vals = append(vals, v)
		} else {
			missing++
		}
	}
	s := Summary{N: len(vals), Missing: missing}
	if len(vals) == 0 {
		nan := math.NaN()
		s.Mean, s.Median, s.Min, s.Max = nan, nan, nan, nan
		return s
	}
	s.sample = stats.Sample{Xs: vals}
	s.sample.Sort()
	s.Mean = s.sample.Mean()
	s.Median = s.sample.Quantile(0.5)
	s.StdDev = StdDev(vals)
	s.Min, s.Max = s.sample.Bounds()
	return s
}

// Quantile returns the q'th quantile (0 <= q <= 1) of the summarized
// values, or NaN if there are none.
func (s Summary) Quantile(q float64) float64 {
	if s.N == 0 {
		return math.NaN()
	}
	return s.sample.Quantile(q)
}
