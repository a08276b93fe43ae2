// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstanisicTT/compute-perf-estimation/internal/store"
	"github.com/sstanisicTT/compute-perf-estimation/kerntab"
)

const (
	traceArch   = "ARCH: wormhole_b0, CHIP_FREQ[MHz]: 1000"
	traceHeader = "PCIe slot, core_x, core_y, RISC processor type, timer_id, time[cycles since reset], data, run host ID,  zone name, type, source line, source file, meta data"
)

// writeTrace writes a device event log with one kernel zone per
// length, each on its own core.
func writeTrace(t *testing.T, file string, host int64, lengths ...int64) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", traceArch, traceHeader)
	for i, l := range lengths {
		y := i + 1
		start := int64(1000 * y)
		fmt.Fprintf(&b, "0,1,%d,TRISC_%d,1,%d,0,%d,TRISC-KERNEL,ZONE_START,10,kernel.cc,\n", y, i, start, host)
		fmt.Fprintf(&b, "0,1,%d,TRISC_%d,2,%d,0,%d,TRISC-KERNEL,ZONE_END,10,kernel.cc,\n", y, i, start+l, host)
		// Not a compute processor.
		fmt.Fprintf(&b, "0,1,%d,BRISC,1,%d,0,%d,TRISC-KERNEL,ZONE_START,10,kernel.cc,\n", y, start, host)
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o777))
	require.NoError(t, os.WriteFile(file, []byte(b.String()), 0o666))
}

// testRuns lays out two runs of each category under root/runs.
func testRuns(t *testing.T, root string, lengths map[kerntab.Category][][]int64) {
	t.Helper()
	for cat, runs := range lengths {
		for run, ls := range runs {
			file := filepath.Join(root, "runs", string(cat), fmt.Sprint(run), "reports", "2025_01_01_00_00_00", traceFile)
			writeTrace(t, file, 7, ls...)
		}
	}
	// Stale copies are ignored.
	writeTrace(t, filepath.Join(root, "runs", "baseline", "0", "reports", ".logs", traceFile), 7, 1, 1, 1)
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var w, wErr bytes.Buffer
	t.Logf("kernstat %s", strings.Join(args, " "))
	err = kernstat(context.Background(), &w, &wErr, args)
	return w.String(), wErr.String(), err
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestAll(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	root := t.TempDir()
	testRuns(t, root, map[kerntab.Category][][]int64{
		kerntab.Baseline: {{500, 100}, {520, 100}},
		kerntab.Counter:  {{550, 110}, {570, 110}},
		kerntab.Profiler: {{600, 90}, {600, 90}},
	})
	dsn := filepath.Join(root, "results.db")
	config := filepath.Join(root, "kernstat.yaml")
	require.NoError(t, os.WriteFile(config, []byte(fmt.Sprintf(
		"workers: 2\nlog:\n  level: warn\nstore:\n  dsn: %s\n  label: e2e\n", dsn)), 0o666))

	stdout, stderr, err := run(t, "--config", config, "--root", root, "all")
	require.NoError(t, err, stderr)
	assert.Empty(t, stderr)

	processed := readFile(t, filepath.Join(root, "processed", "baseline", "1", "reports", "2025_01_01_00_00_00", traceFile))
	assert.Equal(t, "pcie,core_x,core_y,risc_type,host_id,KERNEL_LENGTH\n"+
		"0,1,1,TRISC_0,7,520\n"+
		"0,1,2,TRISC_1,7,100\n", processed)
	assert.NoFileExists(t, filepath.Join(root, "processed", "baseline", "0", "reports", ".logs", traceFile))

	unified := readFile(t, filepath.Join(root, "unified", "counter", "0", "counter.csv"))
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH\n"+
		"1,7,0,1,1,TRISC_0,550\n"+
		"1,7,0,1,2,TRISC_1,110\n", unified)

	stats := readFile(t, filepath.Join(root, "statistics", "baseline.csv"))
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH_AVG,KERNEL_LENGTH_STD\n"+
		"1,7,0,1,1,TRISC_0,510,14.142135623730951\n"+
		"1,7,0,1,2,TRISC_1,100,0\n", stats)

	enhanced := readFile(t, filepath.Join(root, "statistics2", "baseline.csv"))
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH_AVG,KERNEL_LENGTH_STD,KERNEL_LENGTH_STD_PCT\n"+
		"1,7,0,1,1,TRISC_0,510,14.142135623730951,2.773\n"+
		"1,7,0,1,2,TRISC_1,100,0,0\n", enhanced)
	assert.Contains(t, readFile(t, filepath.Join(root, "statistics2", stdPctReportFile)), "BASELINE")

	comparison := readFile(t, filepath.Join(root, "comparison", comparisonFile))
	lines := strings.Split(strings.TrimSpace(comparison), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(append(append([]string(nil), kerntab.IdentColumns...), kerntab.ComparisonColumns...), ","), lines[0])
	assert.FileExists(t, filepath.Join(root, "comparison", comparisonSummaryCSV))

	assert.Contains(t, stdout, "COUNTER is 9.90% SLOWER than baseline on average")
	assert.Contains(t, stdout, "PROFILER is 3.82% SLOWER than baseline on average")

	db, err := store.Open("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	n, err := db.ComparisonRows(ctx, "e2e")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	st, err := db.Statistics(ctx, "e2e", kerntab.Counter)
	require.NoError(t, err)
	require.Len(t, st.Rows, 2)
	assert.Equal(t, 560.0, st.Rows[0].Avg)
}

func TestStages(t *testing.T) {
	// Running the stages one at a time gives the same results as all.
	t.Setenv("LOG_LEVEL", "error")
	root := t.TempDir()
	testRuns(t, root, map[kerntab.Category][][]int64{
		kerntab.Baseline: {{500}, {520}, {540}},
		kerntab.Counter:  {{500}, {520}, {540}},
		kerntab.Profiler: {{1000}, {1040}, {1080}},
	})
	var stdout string
	for _, stage := range []string{"process", "unify", "analyze", "percent", "compare"} {
		out, stderr, err := run(t, "--root", root, "--order", "first", stage)
		require.NoError(t, err, stderr)
		stdout += out
	}
	assert.Contains(t, stdout, "COUNTER is 0.00% FASTER than baseline on average")
	assert.Contains(t, stdout, "PROFILER is 100.00% SLOWER than baseline on average")

	stats := readFile(t, filepath.Join(root, "statistics", "profiler.csv"))
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH_AVG,KERNEL_LENGTH_STD\n"+
		"1,7,0,1,1,TRISC_0,1040,40\n", stats)
}

func TestMisaligned(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	root := t.TempDir()
	testRuns(t, root, map[kerntab.Category][][]int64{
		kerntab.Baseline: {{500, 100}, {520, 100}},
		kerntab.Counter:  {{550, 110}, {570}},
		kerntab.Profiler: {{600, 90}, {600, 90}},
	})

	stdout, stderr, err := run(t, "--root", root, "--log-level", "warn", "all")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "counter: run 1 has 1 rows, want 2")
	assert.Contains(t, stderr, "cannot compare implementations")
	assert.FileExists(t, filepath.Join(root, "statistics", "baseline.csv"))
	assert.NoFileExists(t, filepath.Join(root, "statistics", "counter.csv"))
}

func TestMissingHostID(t *testing.T) {
	// Processed tables without a host_id column take the host ID from
	// the event log they were derived from.
	t.Setenv("LOG_LEVEL", "error")
	root := t.TempDir()
	writeTrace(t, filepath.Join(root, "runs", "baseline", "0", "r", traceFile), 42, 500)
	file := filepath.Join(root, "processed", "baseline", "0", "r", traceFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o777))
	require.NoError(t, os.WriteFile(file, []byte("pcie,core_x,core_y,risc_type,KERNEL_LENGTH\n0,1,1,TRISC_0,500\n"), 0o666))

	_, stderr, err := run(t, "--root", root, "unify")
	require.NoError(t, err, stderr)
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH\n"+
		"1,42,0,1,1,TRISC_0,500\n", readFile(t, filepath.Join(root, "unified", "baseline", "0", "baseline.csv")))
}

func TestMissingRunTable(t *testing.T) {
	// A run directory without a unified table is skipped with a warning.
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	root := t.TempDir()
	file := filepath.Join(root, "unified", "baseline", "0", "baseline.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o777))
	require.NoError(t, os.WriteFile(file, []byte("run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH\n1,7,0,1,1,TRISC_0,500\n"), 0o666))
	missing := filepath.Join(root, "unified", "baseline", "1", "baseline.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(missing), 0o777))

	_, stderr, err := run(t, "--root", root, "analyze")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "skipping run without unified table")
	assert.Contains(t, stderr, missing)
	assert.Equal(t, "run_id,host_id,pcie,core_x,core_y,risc_type,KERNEL_LENGTH_AVG,KERNEL_LENGTH_STD\n"+
		"1,7,0,1,1,TRISC_0,500,\n", readFile(t, filepath.Join(root, "statistics", "baseline.csv")))
}

func TestUnknownCategory(t *testing.T) {
	// Logs outside the known categories are processed, with a warning
	// that later stages ignore them.
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	root := t.TempDir()
	writeTrace(t, filepath.Join(root, "runs", "baseline", "0", "r", traceFile), 7, 500)
	writeTrace(t, filepath.Join(root, "runs", "extra", "0", "r", traceFile), 7, 500)

	_, stderr, err := run(t, "--root", root, "--log-level", "warn", "process")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "will not be unified")
	assert.Contains(t, stderr, "unknown category")
	assert.Contains(t, stderr, "extra")
	assert.NotContains(t, stderr, "baseline")
	assert.FileExists(t, filepath.Join(root, "processed", "extra", "0", "r", traceFile))
	assert.FileExists(t, filepath.Join(root, "processed", "baseline", "0", "r", traceFile))
}

func TestUsage(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	root := t.TempDir()
	for _, args := range [][]string{
		{},
		{"bogus"},
		{"--no-such-flag", "all"},
		{"--root", root, "--workers", "0", "process"},
		{"--root", root, "--order", "random", "process"},
		{"--root", root, "--log-format", "xml", "process"},
		{"process", "extra"},
	} {
		_, _, err := run(t, args...)
		var ue *usageError
		assert.True(t, errors.As(err, &ue), "kernstat %v: got %v, want usage error", args, err)
	}

	// A missing configuration file is not a usage error.
	_, _, err := run(t, "--config", filepath.Join(root, "missing.yaml"), "all")
	require.Error(t, err)
	var ue *usageError
	assert.False(t, errors.As(err, &ue))
}
