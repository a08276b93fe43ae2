// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package store

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sstanisicTT/compute-perf-estimation/kernmath"
	"github.com/sstanisicTT/compute-perf-estimation/kerntab"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { db.Close() })
	return db
}

func testStats(cat kerntab.Category, avg ...float64) *kerntab.StatTable {
	st := &kerntab.StatTable{Category: cat}
	for i, a := range avg {
		st.Rows = append(st.Rows, kerntab.StatRow{
			Ident: kerntab.Ident{RunID: 1, HostID: 5, CoreX: int64(i), RiscType: "TRISC_0"},
			Avg:   a,
			Std:   kernmath.Some(a / 10),
		})
	}
	return st
}

func TestStatistics(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	st := testStats(kerntab.Baseline, 510, 0, 42)
	st.Rows[2].Std = kernmath.None[float64]()
	pct := st.WithStdPct()
	require.NoError(t, db.SaveStatistics(ctx, "nightly", pct))

	got, err := db.Statistics(ctx, "nightly", kerntab.Baseline)
	require.NoError(t, err)
	assert.Equal(t, pct.Rows, got.Rows)
	assert.True(t, got.HasStdPct)

	// Saving again replaces rather than appends.
	require.NoError(t, db.SaveStatistics(ctx, "nightly", testStats(kerntab.Baseline, 1)))
	got, err = db.Statistics(ctx, "nightly", kerntab.Baseline)
	require.NoError(t, err)
	assert.Len(t, got.Rows, 1)
	assert.False(t, got.HasStdPct)

	// Labels and categories are independent.
	got, err = db.Statistics(ctx, "other", kerntab.Baseline)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
	got, err = db.Statistics(ctx, "nightly", kerntab.Counter)
	require.NoError(t, err)
	assert.Empty(t, got.Rows)
}

func TestComparison(t *testing.T) {
	ctx := context.Background()
	db := openTest(t)

	c, err := kerntab.Compare(
		testStats(kerntab.Baseline, 100, 0),
		testStats(kerntab.Counter, 120, 5),
		testStats(kerntab.Profiler, 90, 0),
	)
	require.NoError(t, err)
	require.NoError(t, db.SaveComparison(ctx, "nightly", c))
	require.NoError(t, db.SaveComparison(ctx, "nightly", c))
	n, err := db.ComparisonRows(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, db.SaveSummaries(ctx, "nightly", c.Summaries()))
	recs, err := db.Summaries(ctx, "nightly")
	require.NoError(t, err)
	require.Len(t, recs, 12)

	byKey := make(map[string]kerntab.SummaryRecord)
	for _, r := range recs {
		byKey[r.Implementation+"/"+r.Statistic] = r
	}
	avg := byKey["COUNTER/avg_slowdown_pct"]
	assert.InDelta(t, 20, avg.Value, 1e-9)
	assert.Equal(t, 1, avg.Count)
	// A single data point has no standard deviation.
	assert.True(t, math.IsNaN(byKey["PROFILER/std_slowdown_pct"].Value))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("postgres", "")
	assert.EqualError(t, err, `unsupported driver "postgres"`)
}
