// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultRiscFilter is the processor-type marker a Reader keeps by
// default. Rows whose risc_type does not contain it are dropped.
const DefaultRiscFilter = "TRISC"

// A Reader reads a device event log.
//
// Its API is modeled on bufio.Scanner. The Event returned by Event is
// overwritten by the next call to Scan.
type Reader struct {
	br       *bufio.Reader
	cr       *csv.Reader
	fileName string
	err      error // terminal error

	riscFilter string

	preamble bool // first two lines consumed
	arch     string
	header   []string

	record   []string
	event    Event
	eventErr error
}

// A SyntaxError represents a malformed event row. It is non-fatal:
// the caller may keep calling Scan.
type SyntaxError struct {
	FileName string
	Line     int
	Msg      string
}

func (s *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", s.FileName, s.Line, s.Msg)
}

// A SchemaError reports that a log's header has fewer columns than
// the positional schema requires. It is terminal for that log.
type SchemaError struct {
	FileName string
	Have     int
	Want     int
}

func (s *SchemaError) Error() string {
	return fmt.Sprintf("%s: has %d columns, want at least %d", s.FileName, s.Have, s.Want)
}

// ErrNoHeader is reported when a log ends before its header line.
var ErrNoHeader = errors.New("missing header line")

var noEvent = errors.New("Reader.Scan has not been called")

// An Option configures a Reader.
type Option func(*Reader)

// WithRiscFilter sets the substring a row's risc_type must contain
// for the row to be returned. The empty string keeps every row.
func WithRiscFilter(marker string) Option {
	return func(r *Reader) {
		r.riscFilter = marker
	}
}

// NewReader constructs a reader to parse a device event log from r.
// fileName is used in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string, opts ...Option) *Reader {
	reader := new(Reader)
	reader.Reset(r, fileName, opts...)
	return reader
}

// Reset resets the reader to begin reading from a new input. Options
// are reset to their defaults before opts are applied.
func (r *Reader) Reset(ior io.Reader, fileName string, opts ...Option) {
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.br = bufio.NewReader(ior)
	r.cr = nil
	r.fileName = fileName
	r.err = nil
	r.riscFilter = DefaultRiscFilter
	r.preamble = false
	r.arch = ""
	r.header = nil
	r.record = nil
	r.event = Event{}
	r.eventErr = noEvent
	for _, opt := range opts {
		opt(r)
	}
}

// readPreamble consumes the metadata line and the header line.
func (r *Reader) readPreamble() error {
	r.preamble = true
	line, err := r.br.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s:1: %w", r.fileName, err)
	}
	r.arch = strings.TrimRight(line, "\r\n")
	if err == io.EOF {
		return fmt.Errorf("%s: %w", r.fileName, ErrNoHeader)
	}

	r.cr = csv.NewReader(r.br)
	r.cr.FieldsPerRecord = -1
	r.cr.LazyQuotes = true
	r.cr.TrimLeadingSpace = true
	r.cr.ReuseRecord = true

	hdr, err := r.cr.Read()
	if err == io.EOF {
		return fmt.Errorf("%s: %w", r.fileName, ErrNoHeader)
	} else if err != nil {
		return fmt.Errorf("%s:2: %w", r.fileName, err)
	}
	r.header = make([]string, len(hdr))
	for i, h := range hdr {
		r.header[i] = strings.TrimSpace(h)
	}
	if len(r.header) < MinColumns {
		return &SchemaError{r.fileName, len(r.header), MinColumns}
	}
	return nil
}

// Scan advances the reader to the next event that passes the risc
// filter and reports whether an event was read. The caller should use
// the Event method to get the event.
//
// If Scan reaches EOF, the header is too short, or an I/O error
// occurs, it returns false, in which case the caller should use the
// Err method to check for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	if !r.preamble {
		if err := r.readPreamble(); err != nil {
			r.err = err
			return false
		}
	}

	for {
		rec, err := r.cr.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				// Malformed quoting only affects this
				// row.
				r.eventErr = &SyntaxError{r.fileName, perr.Line + 1, perr.Err.Error()}
				return true
			}
			r.err = fmt.Errorf("%s: %w", r.fileName, err)
			return false
		}
		line, _ := r.cr.FieldPos(0)
		line++ // The metadata line is not seen by the CSV reader.

		if r.riscFilter != "" && !strings.Contains(field(rec, colRiscType), r.riscFilter) {
			continue
		}
		r.record = rec
		r.eventErr = r.parseEvent(rec, line)
		return true
	}
}

// field returns the trimmed i'th field of rec, or "" if the row is
// too short. Trailing columns may be absent.
func field(rec []string, i int) string {
	if i < len(rec) {
		return strings.TrimSpace(rec[i])
	}
	return ""
}

func (r *Reader) parseEvent(rec []string, line int) error {
	ev := &r.event
	*ev = Event{}

	// Key columns identify the processor an event belongs to and must
	// be present. The others default to 0.
	ints := []struct {
		col int
		dst *int64
		key bool
	}{
		{colPCIe, &ev.PCIe, true},
		{colCoreX, &ev.CoreX, true},
		{colCoreY, &ev.CoreY, true},
		{colTimerID, &ev.TimerID, false},
		{colTimeCycles, &ev.TimeCycles, false},
		{colData, &ev.Data, false},
		{colRunHostID, &ev.RunHostID, true},
		{colSourceLine, &ev.SourceLine, false},
	}
	for _, f := range ints {
		s := field(rec, f.col)
		if s == "" {
			if f.key {
				return &SyntaxError{r.fileName, line, "missing " + Columns[f.col]}
			}
			continue
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return &SyntaxError{r.fileName, line, fmt.Sprintf("parsing %s: %v", Columns[f.col], err.(*strconv.NumError).Err)}
		}
		*f.dst = v
	}

	ev.RiscType = field(rec, colRiscType)
	ev.ZoneName = field(rec, colZoneName)
	ev.TypeName = field(rec, colType)
	ev.Type = ParseEventType(ev.TypeName)
	ev.SourceFile = field(rec, colSourceFile)
	ev.MetaData = field(rec, colMetaData)
	return nil
}

// Event returns the last event read, or an error if the row was
// malformed.
//
// Syntax errors are non-fatal, so the caller can continue to call
// Scan.
//
// The caller should not retain the Event, as it will be overwritten
// by the next call to Scan.
func (r *Reader) Event() (*Event, error) {
	if r.eventErr != nil {
		return nil, r.eventErr
	}
	return &r.event, nil
}

// Err returns the first terminal error encountered by the Reader: an
// I/O error, a missing header, or a *SchemaError.
func (r *Reader) Err() error {
	return r.err
}

// Arch returns the metadata line that precedes the header. It is
// empty until the first call to Scan.
func (r *Reader) Arch() string {
	return r.arch
}

// Header returns the header fields of the log. Header names are
// informational only. It is nil until the first call to Scan.
func (r *Reader) Header() []string {
	return r.header
}

// hostIDColumn is the header text that names the run host column in
// device logs.
const hostIDColumn = "run host ID"

// HostIDFromTrace returns the run host ID recorded in the first data
// row of a device event log. The host column is located by its header
// name, falling back to its schema position.
func HostIDFromTrace(r io.Reader, fileName string) (int64, error) {
	tr := NewReader(r, fileName, WithRiscFilter(""))
	if !tr.Scan() {
		if err := tr.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("%s: no data rows", tr.fileName)
	}
	idx := colRunHostID
	for i, h := range tr.Header() {
		if strings.Contains(h, hostIDColumn) {
			idx = i
			break
		}
	}
	if tr.record == nil {
		_, err := tr.Event()
		return 0, err
	}
	s := field(tr.record, idx)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		line, _ := tr.cr.FieldPos(0)
		return 0, &SyntaxError{tr.fileName, line + 1, fmt.Sprintf("parsing host ID %q", s)}
	}
	return id, nil
}
