// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracefmt reads device profiler event logs.
//
// A device event log is a comma-separated file. Its first line holds
// device and architecture metadata, its second line is a column
// header, and every following line is one timestamped event. Columns
// are mapped by position, not by header name, to the fixed schema
// listed in Columns.
//
// Like bufio.Scanner, a Reader retains ownership of the Event it
// returns; a caller should copy anything it needs to retain.
package tracefmt

// Columns is the positional schema of a device event log. The header
// line is not consulted for names; the i'th column of every row is
// interpreted as Columns[i].
var Columns = [...]string{
	"pcie",
	"core_x",
	"core_y",
	"risc_type",
	"timer_id",
	"time_cycles",
	"data",
	"run_host_id",
	"zone_name",
	"type",
	"source_line",
	"source_file",
	"meta_data",
}

// MinColumns is the number of header columns a log must have to be
// read at all.
const MinColumns = len(Columns)

// Column indexes into Columns.
const (
	colPCIe = iota
	colCoreX
	colCoreY
	colRiscType
	colTimerID
	colTimeCycles
	colData
	colRunHostID
	colZoneName
	colType
	colSourceLine
	colSourceFile
	colMetaData
)

// An EventType is the marker kind of an event.
type EventType uint8

const (
	// EventOther is any marker kind not listed below. The literal
	// text is kept in Event.TypeName.
	EventOther EventType = iota
	ZoneStart
	ZoneEnd
	ZoneTotal
	TSData
	TSEvent
)

var eventTypeNames = [...]string{
	EventOther: "",
	ZoneStart:  "ZONE_START",
	ZoneEnd:    "ZONE_END",
	ZoneTotal:  "ZONE_TOTAL",
	TSData:     "TS_DATA",
	TSEvent:    "TS_EVENT",
}

// ParseEventType maps the literal marker text of a log row to an
// EventType. Unknown markers map to EventOther.
func ParseEventType(s string) EventType {
	for t, name := range eventTypeNames {
		if t != int(EventOther) && name == s {
			return EventType(t)
		}
	}
	return EventOther
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) && t != EventOther {
		return eventTypeNames[t]
	}
	return "OTHER"
}

// An Event is a single row of a device event log.
type Event struct {
	PCIe       int64
	CoreX      int64
	CoreY      int64
	RiscType   string
	TimerID    int64
	TimeCycles int64
	Data       int64
	RunHostID  int64
	ZoneName   string
	Type       EventType
	// TypeName is the literal marker text from the log.
	TypeName   string
	SourceLine int64
	SourceFile string
	MetaData   string
}

// Clone returns a copy of e that shares no state with the Reader
// that produced it.
func (e *Event) Clone() *Event {
	e2 := *e
	return &e2
}
