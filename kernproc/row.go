// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernproc

import "github.com/sstanisicTT/compute-perf-estimation/kernmath"

// Metric column names, as they appear in metric tables.
const (
	ColKernelLength  = "KERNEL_LENGTH"
	ColCBWaitFront   = "CB_WAIT_FRONT"
	ColCBReserveBack = "CB_RESERVE_BACK"
)

// A Row is the kernel metrics of one measurement point.
type Row struct {
	PCIe     int64
	CoreX    int64
	CoreY    int64
	RiscType string
	HostID   int64

	// KernelLength is the duration of the kernel zone in cycles.
	// It is 0 if the zone markers were ill-formed.
	KernelLength int64

	// CBWaitFront and CBReserveBack are the summed data of the
	// circular-buffer wait zones, undefined if the measurement
	// point has no such zone.
	CBWaitFront   kernmath.Optional[int64]
	CBReserveBack kernmath.Optional[int64]
}

// A RunTable is the ordered rows produced from one run of one
// category.
type RunTable struct {
	Rows []Row

	// HostKnown indicates that each Row's HostID was read from the
	// run itself. If false, the host must be resolved by other
	// means before the table is unified with other runs.
	HostKnown bool
}

// MetricColumns returns the metric columns present in t, in the order
// they are first observed. KERNEL_LENGTH always comes first.
func (t RunTable) MetricColumns() []string {
	cols := []string{ColKernelLength}
	var wait, reserve bool
	for _, r := range t.Rows {
		if !wait && r.CBWaitFront.Valid() {
			wait = true
			cols = append(cols, ColCBWaitFront)
		}
		if !reserve && r.CBReserveBack.Valid() {
			reserve = true
			cols = append(cols, ColCBReserveBack)
		}
	}
	return cols
}
