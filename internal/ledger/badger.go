// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const runKeyPrefix = "run:"

// BadgerStore persists runs in BadgerDB. Keys sort by stage then start
// time, so the newest run of a stage is the last key under its prefix.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the ledger at path, or an in-memory ledger when
// inMemory is set.
func OpenBadger(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil
	opts.ValueLogFileSize = 16 << 20
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for run ledger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func stagePrefix(stage string) []byte {
	return []byte(runKeyPrefix + stage + ":")
}

func runKey(r *Run) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", runKeyPrefix, r.Stage, r.StartedAt.UnixNano(), r.ID))
}

// Record implements Store.
func (s *BadgerStore) Record(_ context.Context, r *Run) error {
	if err := validate(r); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(r), data)
	})
}

// Latest implements Store.
func (s *BadgerStore) Latest(ctx context.Context, stage string) (*Run, error) {
	runs, err := s.List(ctx, stage, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w for stage %q", ErrNoRuns, stage)
	}
	return runs[0], nil
}

// List implements Store.
func (s *BadgerStore) List(ctx context.Context, stage string, limit int) ([]*Run, error) {
	prefix := stagePrefix(stage)
	var runs []*Run

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return fmt.Errorf("decode run %s: %w", it.Item().Key(), err)
			}
			runs = append(runs, &r)
			if limit > 0 && len(runs) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return err
	}
	return nil
}
