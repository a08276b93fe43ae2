// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernmath

import (
	"math"

	"github.com/aclements/go-moremath/stats"
)

// Mean returns the arithmetic mean of xs, or NaN if xs is empty.
func Mean(xs []float64) float64 {
	return stats.Mean(xs)
}

// StdDev returns the sample standard deviation of xs using Bessel's
// correction (dividing by len(xs)-1). It is undefined for fewer than
// two values.
func StdDev(xs []float64) Optional[float64] {
	if len(xs) < 2 {
		return None[float64]()
	}
	return Some(stats.StdDev(xs))
}

// Round rounds x to the given number of decimal digits, rounding
// halves to even.
func Round(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(x*p) / p
}

// Percent returns part as a percentage of whole. It is undefined if
// whole is zero or either operand is undefined.
func Percent(part, whole Optional[float64]) Optional[float64] {
	p, ok1 := part.Get()
	w, ok2 := whole.Get()
	if !ok1 || !ok2 || w == 0 {
		return None[float64]()
	}
	return Some(p / w * 100)
}

// Change returns the relative change of x versus base, in percent:
// (x - base) / base * 100. A positive result means x is larger than
// base. It is undefined if base is zero or either operand is
// undefined.
func Change(base, x Optional[float64]) Optional[float64] {
	b, ok1 := base.Get()
	v, ok2 := x.Get()
	if !ok1 || !ok2 || b == 0 {
		return None[float64]()
	}
	return Some((v - b) / b * 100)
}
