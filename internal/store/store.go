// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package store persists feature documents in the target collection.
//
// Every backend implements replace-all loading as staging plus swap:
// documents are inserted into a staging area and Commit atomically
// replaces the live collection with it. Readers see either the previous
// collection or the complete new one, never a partial load.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/features"
)

// Driver names accepted by Open.
const (
	DriverDuckDB = "duckdb"
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

var (
	// ErrUnknownDriver is returned by Open for an unsupported driver name.
	ErrUnknownDriver = errors.New("unknown store driver")

	// ErrReplaceInProgress is returned by BeginReplace while another
	// replacement is open.
	ErrReplaceInProgress = errors.New("replacement already in progress")

	// ErrReplacementClosed is returned when a committed or aborted
	// replacement is used again.
	ErrReplacementClosed = errors.New("replacement already committed or aborted")
)

// Collection is the live document collection.
type Collection interface {
	io.Closer

	// BeginReplace opens a staging area that will replace the whole
	// collection on Commit. Only one replacement may be open at a time.
	BeginReplace(ctx context.Context) (Replacement, error)

	// Count returns the number of documents currently live.
	Count(ctx context.Context) (int64, error)

	// Scan calls fn for every live document. A non-nil error from fn stops
	// the scan and is returned.
	Scan(ctx context.Context, fn func(*features.Document) error) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Driver names the backend.
	Driver() string
}

// Replacement is an in-progress replace-all load.
type Replacement interface {
	// Insert appends docs to the staging area. Safe for concurrent use.
	Insert(ctx context.Context, docs []*features.Document) error

	// Commit swaps the staging area in as the live collection.
	Commit(ctx context.Context) error

	// Abort discards the staging area and leaves the live collection untouched.
	Abort(ctx context.Context) error
}

// Open connects to the backend named by cfg.Driver and verifies it is
// reachable before returning.
func Open(ctx context.Context, cfg config.StoreConfig) (Collection, error) {
	var (
		coll Collection
		err  error
	)
	switch cfg.Driver {
	case DriverDuckDB:
		coll, err = OpenDuckDB(cfg.DuckDBPath, cfg.Collection)
	case DriverMongo:
		coll, err = OpenMongo(ctx, cfg.MongoURI, cfg.Database, cfg.Collection, cfg.Timeout)
	case DriverMemory:
		coll = NewMemory()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	pingCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := coll.Ping(pingCtx); err != nil {
		closeQuietly(coll)
		return nil, fmt.Errorf("ping %s store: %w", cfg.Driver, err)
	}
	return coll, nil
}

// closeQuietly closes c, ignoring errors. For cleanup paths where the
// original error matters more.
func closeQuietly(c io.Closer) {
	_ = c.Close() //nolint:errcheck // cleanup path
}
