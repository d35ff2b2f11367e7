// Package engine loads production events into an in-memory DuckDB database
// for ad-hoc SQL.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/mesflow/mesflow/internal/model"
	mferrors "github.com/mesflow/mesflow/pkg/errors"
)

// EventsTable is the table Load fills.
const EventsTable = "events"

const createEvents = `CREATE OR REPLACE TABLE events (
	row_num      INTEGER,
	job          VARCHAR,
	element_id   VARCHAR,
	project_id   VARCHAR,
	type         VARCHAR,
	unit         VARCHAR,
	start_time   TIMESTAMP,
	finish_time  TIMESTAMP,
	length_mm    DOUBLE,
	meters       DOUBLE,
	rate_m_per_h DOUBLE
)`

const insertEvent = `INSERT INTO events VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Engine executes SQL queries using DuckDB.
type Engine struct {
	db      *sql.DB
	threads int
}

// NewEngine opens an in-memory database.
func NewEngine() (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DuckDB: %w", err)
	}

	e := &Engine{
		db:      db,
		threads: runtime.NumCPU(),
	}
	if _, err := e.db.Exec(fmt.Sprintf("SET threads=%d", e.threads)); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure DuckDB: %w", err)
	}
	return e, nil
}

// Close closes the engine.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Load replaces the events table with evs inside one transaction. Invalid
// measures and instants are stored as NULL.
func (e *Engine) Load(ctx context.Context, evs []model.ProductionEvent) (err error) {
	if _, err := e.db.ExecContext(ctx, createEvents); err != nil {
		return mferrors.Wrap(err, mferrors.CodeQueryFailed, "create events table")
	}

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return mferrors.Wrap(err, mferrors.CodeQueryFailed, "begin load")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		return mferrors.Wrap(err, mferrors.CodeQueryFailed, "prepare insert")
	}
	defer stmt.Close()

	for _, ev := range evs {
		if _, err = stmt.ExecContext(ctx,
			int32(ev.Row), ev.Job, ev.ElementID, ev.ProjectID, ev.TypeTag, ev.Unit,
			utc(ev.Start), utc(ev.Finish),
			float(ev.LengthMm), float(ev.Meters()), float(ev.RateMetersPerHour),
		); err != nil {
			return mferrors.Wrap(err, mferrors.CodeQueryFailed, "insert event").WithContext("row", ev.Row)
		}
	}
	if err = tx.Commit(); err != nil {
		return mferrors.Wrap(err, mferrors.CodeQueryFailed, "commit load")
	}
	return nil
}

// utc stores instants as naive UTC timestamps.
func utc(i model.Instant) any {
	if !i.Valid {
		return nil
	}
	return i.Time.UTC()
}

func float(m model.Measure) any {
	if !m.Valid {
		return nil
	}
	return m.Float64
}

// Query executes a SQL query and returns results.
func (e *Engine) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	start := time.Now()

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mferrors.Wrap(err, mferrors.CodeQueryFailed, "query failed")
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	return &Result{rows: rows, columns: cols, duration: time.Since(start)}, nil
}

// Result represents query results.
type Result struct {
	rows     *sql.Rows
	columns  []string
	duration time.Duration
	rowCount int64
}

// Columns returns column names.
func (r *Result) Columns() []string {
	return r.columns
}

// Duration returns the time until the first row was available.
func (r *Result) Duration() time.Duration {
	return r.duration
}

// Next advances to the next row.
func (r *Result) Next() bool {
	if r.rows.Next() {
		r.rowCount++
		return true
	}
	return false
}

// Scan scans the current row.
func (r *Result) Scan(dest ...any) error {
	return r.rows.Scan(dest...)
}

// Close closes the result set.
func (r *Result) Close() error {
	return r.rows.Close()
}

// Err returns the error, if any, that ended iteration.
func (r *Result) Err() error {
	return r.rows.Err()
}

// RowCount returns rows scanned so far.
func (r *Result) RowCount() int64 {
	return r.rowCount
}

// Rows reads all remaining rows and closes the result.
func (r *Result) Rows() ([][]any, error) {
	defer r.Close()

	var out [][]any
	for r.Next() {
		values := make([]any, len(r.columns))
		ptrs := make([]any, len(r.columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, r.Err()
}

// ToMaps reads all rows as maps keyed by column name.
func (r *Result) ToMaps() ([]map[string]any, error) {
	rows, err := r.Rows()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(rows))
	for i, values := range rows {
		m := make(map[string]any, len(values))
		for j, col := range r.columns {
			m[col] = values[j]
		}
		out[i] = m
	}
	return out, nil
}
