// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/logging"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DuckDB stores documents in a DuckDB table. Feature values are kept in
// typed columns for SQL analytics; the full flattened document is kept as
// JSON text alongside them.
type DuckDB struct {
	conn  *sql.DB
	table string

	mu        sync.Mutex
	replacing bool
}

// OpenDuckDB opens (creating if needed) the database file at path and
// ensures the collection table exists. Use ":memory:" for an in-process
// database.
func OpenDuckDB(path, table string) (*DuckDB, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, runtime.NumCPU())
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DuckDB{conn: conn, table: table}
	if _, err := conn.Exec(db.createTableSQL(table)); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return db, nil
}

func (db *DuckDB) createTableSQL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + name + ` (
		id VARCHAR,
		gpx_filename VARCHAR,
		min_elevation DOUBLE,
		max_elevation DOUBLE,
		uphill DOUBLE NOT NULL,
		downhill DOUBLE NOT NULL,
		max_speed DOUBLE NOT NULL,
		length_2d DOUBLE NOT NULL,
		length_3d DOUBLE NOT NULL,
		moving_time DOUBLE NOT NULL,
		document VARCHAR NOT NULL
	)`
}

func (db *DuckDB) stagingTable() string {
	return db.table + "_staging"
}

// Driver implements Collection.
func (db *DuckDB) Driver() string { return DriverDuckDB }

// Conn exposes the underlying connection for ad-hoc analytics.
func (db *DuckDB) Conn() *sql.DB { return db.conn }

// Ping implements Collection.
func (db *DuckDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close implements Collection.
func (db *DuckDB) Close() error {
	return db.conn.Close()
}

// Count implements Collection.
func (db *DuckDB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+db.table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", db.table, err)
	}
	return n, nil
}

// Scan implements Collection.
func (db *DuckDB) Scan(ctx context.Context, fn func(*features.Document) error) error {
	rows, err := db.conn.QueryContext(ctx, `SELECT document FROM `+db.table)
	if err != nil {
		return fmt.Errorf("scan %s: %w", db.table, err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan %s row: %w", db.table, err)
		}
		doc, err := features.UnmarshalDocument([]byte(raw))
		if err != nil {
			return fmt.Errorf("decode %s row: %w", db.table, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return rows.Err()
}

// BeginReplace implements Collection. A staging table left behind by an
// interrupted load is dropped first.
func (db *DuckDB) BeginReplace(ctx context.Context) (Replacement, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.replacing {
		return nil, ErrReplaceInProgress
	}

	staging := db.stagingTable()
	if _, err := db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS `+staging); err != nil {
		return nil, fmt.Errorf("drop stale staging table: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, db.createTableSQL(staging)); err != nil {
		return nil, fmt.Errorf("create staging table: %w", err)
	}
	db.replacing = true
	return &duckReplacement{db: db, staging: staging}, nil
}

type duckReplacement struct {
	db      *DuckDB
	staging string

	// DuckDB serializes appends to one table anyway; holding the lock
	// keeps concurrent batches from failing with transaction conflicts.
	mu   sync.Mutex
	done bool
}

func (r *duckReplacement) Insert(ctx context.Context, docs []*features.Document) (err error) {
	if len(docs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrReplacementClosed
	}

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+r.staging+` (
		id, gpx_filename, min_elevation, max_elevation, uphill, downhill,
		max_speed, length_2d, length_3d, moving_time, document
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			logging.Warn().Err(closeErr).Msg("Failed to close prepared statement")
		}
	}()

	for _, doc := range docs {
		body, err := json.Marshal(doc.Fields())
		if err != nil {
			return fmt.Errorf("encode document %s: %w", doc.ID(), err)
		}
		f := doc.Features
		if _, err = stmt.ExecContext(ctx,
			doc.ID(), doc.Metadata.Filename(), nullFloat(f.MinElevation), nullFloat(f.MaxElevation),
			f.Uphill, f.Downhill, f.MaxSpeed, f.Length2D, f.Length3D, f.MovingTime, string(body),
		); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Commit drops the live table and renames staging into its place in one
// transaction.
func (r *duckReplacement) Commit(ctx context.Context) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrReplacementClosed
	}
	defer r.release()

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin swap: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Swap rollback failed")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+r.db.table); err != nil {
		return fmt.Errorf("drop %s: %w", r.db.table, err)
	}
	if _, err = tx.ExecContext(ctx, `ALTER TABLE `+r.staging+` RENAME TO `+r.db.table); err != nil {
		return fmt.Errorf("rename %s: %w", r.staging, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit swap: %w", err)
	}
	return nil
}

func (r *duckReplacement) Abort(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	defer r.release()

	if _, err := r.db.conn.ExecContext(ctx, `DROP TABLE IF EXISTS `+r.staging); err != nil {
		return fmt.Errorf("drop staging table: %w", err)
	}
	return nil
}

// release marks the replacement finished. Caller holds r.mu.
func (r *duckReplacement) release() {
	r.done = true
	r.db.mu.Lock()
	r.db.replacing = false
	r.db.mu.Unlock()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
