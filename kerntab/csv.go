// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kerntab

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sstanisicTT/compute-perf-estimation/kernmath"
	"github.com/sstanisicTT/compute-perf-estimation/kernproc"
)

// Column names of statistics and comparison tables.
const (
	ColAvg    = "KERNEL_LENGTH_AVG"
	ColStd    = "KERNEL_LENGTH_STD"
	ColStdPct = "KERNEL_LENGTH_STD_PCT"
)

// ComparisonColumns are the value columns of a comparison table, after
// IdentColumns.
var ComparisonColumns = []string{
	"BASELINE_MEAN", "BASELINE_STD",
	"COUNTER_MEAN", "COUNTER_STD",
	"COUNTER_MEAN_SLOWDOWN_PCT", "COUNTER_STD_CHANGE_PCT",
	"PROFILER_MEAN", "PROFILER_STD",
	"PROFILER_MEAN_SLOWDOWN_PCT", "PROFILER_STD_CHANGE_PCT",
}

// runTableColumns are the leading columns of a per-run metric table.
var runTableColumns = []string{"pcie", "core_x", "core_y", "risc_type", "host_id"}

// A table reads a CSV table whose columns are located by header name.
type table struct {
	name string
	cr   *csv.Reader
	cols map[string]int
	rec  []string
	line int
}

func newTable(r io.Reader, name string) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: missing header line", name)
	} else if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	t := &table{name: name, cr: cr, cols: make(map[string]int)}
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if _, ok := t.cols[h]; !ok {
			t.cols[h] = i
		}
	}
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func (t *table) require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

// next reads the next record. It returns io.EOF at the end of the
// table.
func (t *table) next() error {
	rec, err := t.cr.Read()
	if err == io.EOF {
		return err
	} else if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	t.rec = rec
	t.line, _ = t.cr.FieldPos(0)
	return nil
}

func (t *table) str(col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(t.rec) {
		return ""
	}
	return strings.TrimSpace(t.rec[i])
}

func (t *table) errorf(col string, err error) error {
	return fmt.Errorf("%s:%d: column %s: %w", t.name, t.line, col, err)
}

// reqInt reads a required integer cell.
func (t *table) reqInt(col string) (int64, error) {
	v, err := kernmath.ParseInt(t.str(col))
	if err != nil {
		return 0, t.errorf(col, err)
	}
	x, ok := v.Get()
	if !ok {
		return 0, t.errorf(col, fmt.Errorf("missing value"))
	}
	return x, nil
}

func (t *table) optInt(col string) (kernmath.Optional[int64], error) {
	v, err := kernmath.ParseInt(t.str(col))
	if err != nil {
		return v, t.errorf(col, err)
	}
	return v, nil
}

func (t *table) reqFloat(col string) (float64, error) {
	v, err := t.optFloat(col)
	if err != nil {
		return 0, err
	}
	x, ok := v.Get()
	if !ok {
		return 0, t.errorf(col, fmt.Errorf("missing value"))
	}
	return x, nil
}

func (t *table) optFloat(col string) (kernmath.Optional[float64], error) {
	v, err := kernmath.ParseFloat(t.str(col))
	if err != nil {
		return v, t.errorf(col, err)
	}
	return v, nil
}

// readRow reads the measurement point and metric columns of the
// current record.
func (t *table) readRow(withHost bool) (kernproc.Row, error) {
	var r kernproc.Row
	var err error
	ints := []struct {
		col string
		dst *int64
	}{
		{"pcie", &r.PCIe},
		{"core_x", &r.CoreX},
		{"core_y", &r.CoreY},
		{kernproc.ColKernelLength, &r.KernelLength},
	}
	for _, f := range ints {
		if *f.dst, err = t.reqInt(f.col); err != nil {
			return r, err
		}
	}
	if withHost {
		if r.HostID, err = t.reqInt("host_id"); err != nil {
			return r, err
		}
	}
	r.RiscType = t.str("risc_type")
	if r.CBWaitFront, err = t.optInt(kernproc.ColCBWaitFront); err != nil {
		return r, err
	}
	if r.CBReserveBack, err = t.optInt(kernproc.ColCBReserveBack); err != nil {
		return r, err
	}
	return r, nil
}

// metricCells formats the metric columns cols of r.
func metricCells(r kernproc.Row, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		switch c {
		case kernproc.ColKernelLength:
			out = append(out, strconv.FormatInt(r.KernelLength, 10))
		case kernproc.ColCBWaitFront:
			out = append(out, r.CBWaitFront.String())
		case kernproc.ColCBReserveBack:
			out = append(out, r.CBReserveBack.String())
		default:
			out = append(out, "")
		}
	}
	return out
}

func itoa(x int64) string {
	return strconv.FormatInt(x, 10)
}

// formatFloat formats x, writing NaN as a missing cell.
func formatFloat(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	return kernmath.FormatFloat(x)
}

func identCells(id Ident) []string {
	return []string{strconv.Itoa(id.RunID), itoa(id.HostID), itoa(id.PCIe), itoa(id.CoreX), itoa(id.CoreY), id.RiscType}
}

func (t *table) readIdent() (Ident, error) {
	var id Ident
	runID, err := t.reqInt("run_id")
	if err != nil {
		return id, err
	}
	id.RunID = int(runID)
	for _, f := range []struct {
		col string
		dst *int64
	}{
		{"host_id", &id.HostID},
		{"pcie", &id.PCIe},
		{"core_x", &id.CoreX},
		{"core_y", &id.CoreY},
	} {
		if *f.dst, err = t.reqInt(f.col); err != nil {
			return id, err
		}
	}
	id.RiscType = t.str("risc_type")
	return id, nil
}

// WriteRunTable writes t as a per-run metric table. The host_id
// column is omitted if t does not carry host IDs.
func WriteRunTable(w io.Writer, t kernproc.RunTable) error {
	o := csv.NewWriter(w)
	lead := runTableColumns
	if !t.HostKnown {
		lead = lead[:len(lead)-1]
	}
	metrics := t.MetricColumns()
	o.Write(append(append([]string(nil), lead...), metrics...))
	for _, r := range t.Rows {
		rec := []string{itoa(r.PCIe), itoa(r.CoreX), itoa(r.CoreY), r.RiscType}
		if t.HostKnown {
			rec = append(rec, itoa(r.HostID))
		}
		o.Write(append(rec, metricCells(r, metrics)...))
	}
	o.Flush()
	return o.Error()
}

// ReadRunTable reads a per-run metric table. If the table has no
// host_id column, the result has HostKnown false.
func ReadRunTable(r io.Reader, name string) (kernproc.RunTable, error) {
	t, err := newTable(r, name)
	if err != nil {
		return kernproc.RunTable{}, err
	}
	if err := t.require("pcie", "core_x", "core_y", "risc_type", kernproc.ColKernelLength); err != nil {
		return kernproc.RunTable{}, err
	}
	rt := kernproc.RunTable{HostKnown: t.has("host_id")}
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return kernproc.RunTable{}, err
		}
		row, err := t.readRow(rt.HostKnown)
		if err != nil {
			return kernproc.RunTable{}, err
		}
		rt.Rows = append(rt.Rows, row)
	}
	return rt, nil
}

// WriteUnified writes u with the columns in u.Columns.
func WriteUnified(w io.Writer, u *Unified) error {
	o := csv.NewWriter(w)
	metrics := u.MetricColumns()
	o.Write(append(append([]string(nil), IdentColumns...), metrics...))
	for _, r := range u.Rows {
		o.Write(append(identCells(r.Ident()), metricCells(r.Row, metrics)...))
	}
	o.Flush()
	return o.Error()
}

// ReadUnified reads a unified table of category cat.
func ReadUnified(r io.Reader, name string, cat Category) (*Unified, error) {
	t, err := newTable(r, name)
	if err != nil {
		return nil, err
	}
	if err := t.require(append(append([]string(nil), IdentColumns...), kernproc.ColKernelLength)...); err != nil {
		return nil, err
	}
	u := &Unified{Category: cat, Columns: append([]string(nil), IdentColumns...)}
	for _, c := range []string{kernproc.ColKernelLength, kernproc.ColCBWaitFront, kernproc.ColCBReserveBack} {
		if t.has(c) {
			u.Columns = append(u.Columns, c)
		}
	}
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		runID, err := t.reqInt("run_id")
		if err != nil {
			return nil, err
		}
		row, err := t.readRow(true)
		if err != nil {
			return nil, err
		}
		u.Rows = append(u.Rows, UnifiedRow{int(runID), row})
	}
	return u, nil
}

// WriteStats writes a statistics table. The KERNEL_LENGTH_STD_PCT
// column is written only if t carries percentages.
func WriteStats(w io.Writer, t *StatTable) error {
	o := csv.NewWriter(w)
	hdr := append(append([]string(nil), IdentColumns...), ColAvg, ColStd)
	if t.HasStdPct {
		hdr = append(hdr, ColStdPct)
	}
	o.Write(hdr)
	for _, r := range t.Rows {
		rec := append(identCells(r.Ident), kernmath.FormatFloat(r.Avg), r.Std.String())
		if t.HasStdPct {
			rec = append(rec, r.StdPct.String())
		}
		o.Write(rec)
	}
	o.Flush()
	return o.Error()
}

// ReadStats reads a statistics table of category cat, with or without
// the KERNEL_LENGTH_STD_PCT column.
func ReadStats(r io.Reader, name string, cat Category) (*StatTable, error) {
	t, err := newTable(r, name)
	if err != nil {
		return nil, err
	}
	if err := t.require(ColAvg, ColStd); err != nil {
		return nil, err
	}
	if err := t.require(IdentColumns...); err != nil {
		return nil, err
	}
	st := &StatTable{Category: cat, HasStdPct: t.has(ColStdPct)}
	for {
		if err := t.next(); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		var row StatRow
		if row.Ident, err = t.readIdent(); err != nil {
			return nil, err
		}
		if row.Avg, err = t.reqFloat(ColAvg); err != nil {
			return nil, err
		}
		if row.Std, err = t.optFloat(ColStd); err != nil {
			return nil, err
		}
		if st.HasStdPct {
			if row.StdPct, err = t.optFloat(ColStdPct); err != nil {
				return nil, err
			}
		}
		st.Rows = append(st.Rows, row)
	}
	return st, nil
}

// WriteComparison writes the detailed comparison table.
func WriteComparison(w io.Writer, c *Comparison) error {
	o := csv.NewWriter(w)
	o.Write(append(append([]string(nil), IdentColumns...), ComparisonColumns...))
	for _, r := range c.Rows {
		rec := identCells(r.Ident)
		rec = append(rec,
			kernmath.FormatFloat(r.Baseline.Mean), r.Baseline.Std.String(),
			kernmath.FormatFloat(r.Counter.Mean), r.Counter.Std.String(),
			r.CounterDelta.MeanSlowdown.String(), r.CounterDelta.StdChange.String(),
			kernmath.FormatFloat(r.Profiler.Mean), r.Profiler.Std.String(),
			r.ProfilerDelta.MeanSlowdown.String(), r.ProfilerDelta.StdChange.String(),
		)
		o.Write(rec)
	}
	o.Flush()
	return o.Error()
}

// A SummaryRecord is one statistic of a CategorySummary in long form.
type SummaryRecord struct {
	Implementation string
	Metric         string
	Statistic      string
	// Value is NaN if the statistic is undefined.
	Value float64
	Count int
}

// Records returns s in long form, six statistics per category.
func (s CategorySummary) Records() []SummaryRecord {
	impl := s.Category.Upper()
	n := s.Count()
	rec := func(metric, stat string, v float64) SummaryRecord {
		return SummaryRecord{impl, metric, stat, v, n}
	}
	ms, sc := s.MeanSlowdown, s.StdChange
	return []SummaryRecord{
		rec("KERNEL_LENGTH_MEAN", "avg_slowdown_pct", ms.Mean),
		rec("KERNEL_LENGTH_MEAN", "std_slowdown_pct", ms.StdDev.Or(math.NaN())),
		rec("KERNEL_LENGTH_MEAN", "median_slowdown_pct", ms.Median),
		rec("KERNEL_LENGTH_STD", "avg_change_pct", sc.Mean),
		rec("KERNEL_LENGTH_STD", "std_change_pct", sc.StdDev.Or(math.NaN())),
		rec("KERNEL_LENGTH_STD", "median_change_pct", sc.Median),
	}
}

// WriteSummaryCSV writes category summaries in long form, with columns
// implementation, metric, statistic, value and count.
func WriteSummaryCSV(w io.Writer, sums []CategorySummary) error {
	o := csv.NewWriter(w)
	o.Write([]string{"implementation", "metric", "statistic", "value", "count"})
	for _, s := range sums {
		for _, r := range s.Records() {
			o.Write([]string{r.Implementation, r.Metric, r.Statistic, formatFloat(r.Value), strconv.Itoa(r.Count)})
		}
	}
	o.Flush()
	return o.Error()
}
