// Copyright 2025 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store saves pipeline results to a SQL database.
//
// Results are grouped by a label naming the set of runs they were
// computed from. Saving a table under a label replaces any rows
// previously saved under the same label. Undefined values are stored
// as NULL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sstanisicTT/compute-perf-estimation/kernmath"
	"github.com/sstanisicTT/compute-perf-estimation/kerntab"
)

// A DB is a results database.
type DB struct {
	sql *sql.DB

	// now returns the time stamped on saved rows.
	now func() time.Time
}

// schema is portable between the sqlite3 and mysql dialects.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS kernel_statistics (
		label VARCHAR(255) NOT NULL,
		category VARCHAR(32) NOT NULL,
		row_index INTEGER NOT NULL,
		run_id INTEGER NOT NULL,
		host_id BIGINT NOT NULL,
		pcie BIGINT NOT NULL,
		core_x BIGINT NOT NULL,
		core_y BIGINT NOT NULL,
		risc_type VARCHAR(64) NOT NULL,
		kernel_avg DOUBLE NOT NULL,
		kernel_std DOUBLE,
		kernel_std_pct DOUBLE,
		saved_at VARCHAR(64) NOT NULL,
		PRIMARY KEY (label, category, row_index)
	)`,
	`CREATE TABLE IF NOT EXISTS kernel_comparison (
		label VARCHAR(255) NOT NULL,
		row_index INTEGER NOT NULL,
		run_id INTEGER NOT NULL,
		host_id BIGINT NOT NULL,
		pcie BIGINT NOT NULL,
		core_x BIGINT NOT NULL,
		core_y BIGINT NOT NULL,
		risc_type VARCHAR(64) NOT NULL,
		baseline_mean DOUBLE NOT NULL,
		baseline_std DOUBLE,
		counter_mean DOUBLE NOT NULL,
		counter_std DOUBLE,
		counter_mean_slowdown_pct DOUBLE,
		counter_std_change_pct DOUBLE,
		profiler_mean DOUBLE NOT NULL,
		profiler_std DOUBLE,
		profiler_mean_slowdown_pct DOUBLE,
		profiler_std_change_pct DOUBLE,
		saved_at VARCHAR(64) NOT NULL,
		PRIMARY KEY (label, row_index)
	)`,
	`CREATE TABLE IF NOT EXISTS kernel_comparison_summary (
		label VARCHAR(255) NOT NULL,
		implementation VARCHAR(32) NOT NULL,
		metric VARCHAR(64) NOT NULL,
		statistic VARCHAR(64) NOT NULL,
		value DOUBLE,
		n INTEGER NOT NULL,
		saved_at VARCHAR(64) NOT NULL,
		PRIMARY KEY (label, implementation, metric, statistic)
	)`,
}

// Open opens the database named by dsn with the given driver,
// "sqlite3" or "mysql", and creates the schema if needed.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "sqlite3", "mysql":
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite3" {
		// Every connection to an in-memory database is a
		// separate database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s database: %w", driver, err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &DB{sql: db, now: time.Now}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.sql.Close()
}

func (db *DB) stamp() string {
	return db.now().UTC().Format(time.RFC3339)
}

func nullFloat(o kernmath.Optional[float64]) sql.NullFloat64 {
	v, ok := o.Get()
	return sql.NullFloat64{Float64: v, Valid: ok}
}

func nullNaN(x float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: x, Valid: !math.IsNaN(x)}
}

func optional(n sql.NullFloat64) kernmath.Optional[float64] {
	if !n.Valid {
		return kernmath.None[float64]()
	}
	return kernmath.Some(n.Float64)
}

// tx runs f in a transaction, committing if it returns nil.
func (db *DB) tx(ctx context.Context, f func(tx *sql.Tx) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveStatistics saves t under label, replacing any statistics of the
// same category previously saved under label.
func (db *DB) SaveStatistics(ctx context.Context, label string, t *kerntab.StatTable) error {
	at := db.stamp()
	return db.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kernel_statistics WHERE label = ? AND category = ?", label, string(t.Category)); err != nil {
			return err
		}
		insert, err := tx.PrepareContext(ctx, `INSERT INTO kernel_statistics
			(label, category, row_index, run_id, host_id, pcie, core_x, core_y, risc_type, kernel_avg, kernel_std, kernel_std_pct, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()
		for i, r := range t.Rows {
			if _, err := insert.ExecContext(ctx, label, string(t.Category), i,
				r.RunID, r.HostID, r.PCIe, r.CoreX, r.CoreY, r.RiscType,
				r.Avg, nullFloat(r.Std), nullFloat(r.StdPct), at); err != nil {
				return fmt.Errorf("saving %s row %d: %w", t.Category, i, err)
			}
		}
		return nil
	})
}

// Statistics returns the statistics of category cat saved under
// label, in their original row order.
func (db *DB) Statistics(ctx context.Context, label string, cat kerntab.Category) (*kerntab.StatTable, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT run_id, host_id, pcie, core_x, core_y, risc_type, kernel_avg, kernel_std, kernel_std_pct
		FROM kernel_statistics WHERE label = ? AND category = ? ORDER BY row_index`, label, string(cat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t := &kerntab.StatTable{Category: cat}
	for rows.Next() {
		var r kerntab.StatRow
		var std, pct sql.NullFloat64
		if err := rows.Scan(&r.RunID, &r.HostID, &r.PCIe, &r.CoreX, &r.CoreY, &r.RiscType, &r.Avg, &std, &pct); err != nil {
			return nil, err
		}
		r.Std, r.StdPct = optional(std), optional(pct)
		if pct.Valid {
			t.HasStdPct = true
		}
		t.Rows = append(t.Rows, r)
	}
	return t, rows.Err()
}

// SaveComparison saves c under label, replacing any comparison
// previously saved under label.
func (db *DB) SaveComparison(ctx context.Context, label string, c *kerntab.Comparison) error {
	at := db.stamp()
	return db.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kernel_comparison WHERE label = ?", label); err != nil {
			return err
		}
		insert, err := tx.PrepareContext(ctx, `INSERT INTO kernel_comparison
			(label, row_index, run_id, host_id, pcie, core_x, core_y, risc_type,
			baseline_mean, baseline_std, counter_mean, counter_std, counter_mean_slowdown_pct, counter_std_change_pct,
			profiler_mean, profiler_std, profiler_mean_slowdown_pct, profiler_std_change_pct, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insert.Close()
		for i, r := range c.Rows {
			if _, err := insert.ExecContext(ctx, label, i,
				r.RunID, r.HostID, r.PCIe, r.CoreX, r.CoreY, r.RiscType,
				r.Baseline.Mean, nullFloat(r.Baseline.Std),
				r.Counter.Mean, nullFloat(r.Counter.Std),
				nullFloat(r.CounterDelta.MeanSlowdown), nullFloat(r.CounterDelta.StdChange),
				r.Profiler.Mean, nullFloat(r.Profiler.Std),
				nullFloat(r.ProfilerDelta.MeanSlowdown), nullFloat(r.ProfilerDelta.StdChange),
				at); err != nil {
				return fmt.Errorf("saving comparison row %d: %w", i, err)
			}
		}
		return nil
	})
}

// SaveSummaries saves category summaries under label in long form,
// replacing any summaries previously saved under label.
func (db *DB) SaveSummaries(ctx context.Context, label string, sums []kerntab.CategorySummary) error {
	at := db.stamp()
	return db.tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kernel_comparison_summary WHERE label = ?", label); err != nil {
			return err
		}
		for _, s := range sums {
			for _, r := range s.Records() {
				if _, err := tx.ExecContext(ctx, `INSERT INTO kernel_comparison_summary
					(label, implementation, metric, statistic, value, n, saved_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
					label, r.Implementation, r.Metric, r.Statistic, nullNaN(r.Value), r.Count, at); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Summaries returns the summary records saved under label.
func (db *DB) Summaries(ctx context.Context, label string) ([]kerntab.SummaryRecord, error) {
	rows, err := db.sql.QueryContext(ctx, `SELECT implementation, metric, statistic, value, n
		FROM kernel_comparison_summary WHERE label = ? ORDER BY implementation, metric, statistic`, label)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []kerntab.SummaryRecord
	for rows.Next() {
		var r kerntab.SummaryRecord
		var v sql.NullFloat64
		if err := rows.Scan(&r.Implementation, &r.Metric, &r.Statistic, &v, &r.Count); err != nil {
			return nil, err
		}
		r.Value = math.NaN()
		if v.Valid {
			r.Value = v.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ComparisonRows returns the number of comparison rows saved under
// label.
func (db *DB) ComparisonRows(ctx context.Context, label string) (int, error) {
	var n int
	err := db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM kernel_comparison WHERE label = ?", label).Scan(&n)
	return n, err
}
