// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernproc

import (
	"fmt"

	"github.com/sstanisicTT/compute-perf-estimation/kernmath"
	"github.com/sstanisicTT/compute-perf-estimation/tracefmt"
)

// Zone names recognized by the Extractor.
const (
	ZoneKernel        = "TRISC-KERNEL"
	ZoneCBWaitFront   = "CB-COMPUTE-WAIT-FRONT"
	ZoneCBReserveBack = "CB-COMPUTE-RESERVE-BACK"
)

// Options configures an Extractor.
type Options struct {
	// Order is the order of rows in the resulting table.
	Order Order
}

// GroupErrorKind is the way a measurement point's kernel zone was
// ill-formed.
type GroupErrorKind int

const (
	// MissingZone means the kernel zone has no start or no end
	// marker.
	MissingZone GroupErrorKind = iota
	// DuplicateZone means the kernel zone has more than one start
	// or end marker.
	DuplicateZone
)

func (k GroupErrorKind) String() string {
	if k == DuplicateZone {
		return "multiple ZONE_START or ZONE_END"
	}
	return "no ZONE_START or ZONE_END"
}

// A GroupError reports that the kernel zone of a measurement point
// could not be paired. The point's kernel length is recorded as 0.
type GroupError struct {
	Key    Key
	Kind   GroupErrorKind
	Starts int
	Ends   int
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%v: %v (%d start, %d end)", e.Key, e.Kind, e.Starts, e.Ends)
}

// group is the running state of one measurement point.
type group struct {
	hasKernel bool

	nStart, nEnd     int
	maxStart, maxEnd int64

	waitFront   kernmath.Optional[int64]
	reserveBack kernmath.Optional[int64]
}

// An Extractor accumulates events and reduces them to one Row per
// measurement point.
type Extractor struct {
	opts   Options
	groups map[Key]*group
	keys   []Key // first-seen order
}

// NewExtractor returns a new, empty Extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{
		opts:   opts,
		groups: make(map[Key]*group),
	}
}

// Add adds an event to the Extractor. ev may be reused by the caller
// once Add returns.
func (x *Extractor) Add(ev *tracefmt.Event) {
	k := KeyOf(ev)
	g, ok := x.groups[k]
	if !ok {
		g = new(group)
		x.groups[k] = g
		x.keys = append(x.keys, k)
	}

	switch ev.ZoneName {
	case ZoneKernel:
		g.hasKernel = true
		switch ev.Type {
		case tracefmt.ZoneStart:
			if g.nStart == 0 || ev.TimeCycles > g.maxStart {
				g.maxStart = ev.TimeCycles
			}
			g.nStart++
		case tracefmt.ZoneEnd:
			if g.nEnd == 0 || ev.TimeCycles > g.maxEnd {
				g.maxEnd = ev.TimeCycles
			}
			g.nEnd++
		}
	case ZoneCBWaitFront:
		g.waitFront = g.waitFront.Add(ev.Data)
	case ZoneCBReserveBack:
		g.reserveBack = g.reserveBack.Add(ev.Data)
	}
}

// order returns the keys of the groups in emission order.
func (x *Extractor) order() []Key {
	keys := append([]Key(nil), x.keys...)
	if x.opts.Order == OrderSorted {
		SortKeys(keys)
	}
	return keys
}

// Rows returns the table of measurement points that ran a kernel.
// It may be called more than once; later calls reflect any events
// added in between.
func (x *Extractor) Rows() RunTable {
	t := RunTable{HostKnown: true}
	for _, k := range x.order() {
		g := x.groups[k]
		if !g.hasKernel {
			continue
		}
		length, _ := g.kernelLength()
		t.Rows = append(t.Rows, Row{
			PCIe:          k.PCIe,
			CoreX:         k.CoreX,
			CoreY:         k.CoreY,
			RiscType:      k.RiscType,
			HostID:        k.RunHostID,
			KernelLength:  length,
			CBWaitFront:   g.waitFront,
			CBReserveBack: g.reserveBack,
		})
	}
	return t
}

// Warnings returns a *GroupError for each measurement point in Rows
// whose kernel zone was ill-formed, in row order.
func (x *Extractor) Warnings() []error {
	var errs []error
	for _, k := range x.order() {
		g := x.groups[k]
		if !g.hasKernel {
			continue
		}
		if _, kind := g.kernelLength(); kind != nil {
			errs = append(errs, &GroupError{k, *kind, g.nStart, g.nEnd})
		}
	}
	return errs
}

// kernelLength returns the kernel duration of g, or 0 and the reason
// the zone could not be paired. The duration is not clamped and may
// be negative if the end marker precedes the start marker.
func (g *group) kernelLength() (int64, *GroupErrorKind) {
	var kind GroupErrorKind
	switch {
	case g.nStart == 0 || g.nEnd == 0:
		kind = MissingZone
	case g.nStart > 1 || g.nEnd > 1:
		kind = DuplicateZone
	default:
		return g.maxEnd - g.maxStart, nil
	}
	return 0, &kind
}

// Extract drains r into a new Extractor and returns its table. Rows
// that fail to parse and ill-formed kernel zones are returned as
// warnings. The error result is the reader's terminal error, in which
// case the table is empty.
func Extract(r *tracefmt.Reader, opts Options) (RunTable, []error, error) {
	x := NewExtractor(opts)
	var warnings []error
	for r.Scan() {
		ev, err := r.Event()
		if err != nil {
			warnings = append(warnings, err)
			continue
		}
		x.Add(ev)
	}
	if err := r.Err(); err != nil {
		return RunTable{}, warnings, err
	}
	return x.Rows(), append(warnings, x.Warnings()...), nil
}
