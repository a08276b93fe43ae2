// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernmath provides the statistics used to summarize kernel
// durations across repeated runs and to compare instrumentation
// variants against a baseline.
//
// Ratios whose denominator is zero, and statistics that are undefined
// for a sample (such as the standard deviation of a single run), are
// represented by an Optional with no value rather than by NaN. A
// missing value is always distinct from zero.
package kernmath

import (
	"math"
	"strconv"
	"strings"
)

// Number is the set of value types an Optional may carry.
type Number interface {
	~int64 | ~float64
}

// An Optional is either a value or undefined. The zero Optional is
// undefined.
type Optional[T Number] struct {
	v  T
	ok bool
}

// Some returns a defined Optional holding v.
func Some[T Number](v T) Optional[T] {
	return Optional[T]{v, true}
}

// None returns an undefined Optional.
func None[T Number]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value of o and whether it is defined.
func (o Optional[T]) Get() (T, bool) {
	return o.v, o.ok
}

// Valid reports whether o holds a value.
func (o Optional[T]) Valid() bool {
	return o.ok
}

// Or returns the value of o, or def if o is undefined.
func (o Optional[T]) Or(def T) T {
	if !o.ok {
		return def
	}
	return o.v
}

// Add returns the sum of o and x. An undefined o is treated as an
// empty sum, so the result is always defined.
func (o Optional[T]) Add(x T) Optional[T] {
	return Some(o.v + x)
}

// Float converts o to a float64 Optional.
func (o Optional[T]) Float() Optional[float64] {
	if !o.ok {
		return None[float64]()
	}
	return Some(float64(o.v))
}

// String formats o for tabular output. Undefined values format as
// the empty string.
func (o Optional[T]) String() string {
	if !o.ok {
		return ""
	}
	switch v := any(o.v).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return FormatFloat(v)
	}
	return strconv.FormatFloat(float64(o.v), 'f', -1, 64)
}

// FormatFloat formats x in the shortest decimal form that round
// trips, without an exponent.
func FormatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// isMissing reports whether s is one of the spellings tabular tools
// use for a missing cell.
func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return true
	}
	return false
}

// ParseFloat parses a tabular cell into a float64 Optional. Empty
// cells and NaN spellings parse as undefined.
func ParseFloat(s string) (Optional[float64], error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return None[float64](), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return None[float64](), err
	}
	if math.IsNaN(v) {
		return None[float64](), nil
	}
	return Some(v), nil
}

// ParseInt parses a tabular cell into an int64 Optional. Integral
// values written in floating-point form, such as "500.0", are
// accepted because columns containing missing cells are often written
// that way.
func ParseInt(s string) (Optional[int64], error) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return None[int64](), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return Some(v), nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return None[int64](), err
	}
	return Some(int64(f)), nil
}
