// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernproc

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sstanisicTT/compute-perf-estimation/tracefmt"
)

// A Key identifies one measurement point: one processor of one core
// of one device, within one run. Identical Keys compare == and can be
// used as map keys.
type Key struct {
	PCIe      int64
	CoreX     int64
	CoreY     int64
	RiscType  string
	RunHostID int64
}

// KeyOf returns the measurement point an event belongs to.
func KeyOf(ev *tracefmt.Event) Key {
	return Key{ev.PCIe, ev.CoreX, ev.CoreY, ev.RiscType, ev.RunHostID}
}

// String returns k as space-separated key:value pairs.
func (k Key) String() string {
	return fmt.Sprintf("pcie:%d core_x:%d core_y:%d risc_type:%s run_host_id:%d",
		k.PCIe, k.CoreX, k.CoreY, k.RiscType, k.RunHostID)
}

// An Order is the order in which an Extractor emits rows.
type Order int

const (
	// OrderSorted sorts rows by Key, comparing numeric fields
	// numerically and risc_type alphabetically.
	OrderSorted Order = iota
	// OrderFirst emits rows in the order their first event was
	// observed.
	OrderFirst
)

// ParseOrder parses "sorted" or "first".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "sorted", "":
		return OrderSorted, nil
	case "first":
		return OrderFirst, nil
	}
	return 0, fmt.Errorf("unknown order %q", s)
}

func (o Order) String() string {
	if o == OrderFirst {
		return "first"
	}
	return "sorted"
}

// keyFields is the comparison order of Key fields.
var keyFields = []func(a, b Key) int{
	func(a, b Key) int { return cmpInt(a.PCIe, b.PCIe) },
	func(a, b Key) int { return cmpInt(a.CoreX, b.CoreX) },
	func(a, b Key) int { return cmpInt(a.CoreY, b.CoreY) },
	func(a, b Key) int { return strings.Compare(a.RiscType, b.RiscType) },
	func(a, b Key) int { return cmpInt(a.RunHostID, b.RunHostID) },
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool {
	// Walk the tuples in field order.
	for _, cmp := range keyFields {
		if c := cmp(k, o); c != 0 {
			return c < 0
		}
	}
	// Keys are equal.
	return false
}

// SortKeys sorts keys using Key.Less.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Less(keys[j])
	})
}
