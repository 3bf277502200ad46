// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/hikeplanner/internal/features"
)

// Memory is an in-process Collection used for tests and dry runs.
type Memory struct {
	mu        sync.RWMutex
	docs      []*features.Document
	replacing bool
	closed    bool
}

// NewMemory returns an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{}
}

// Driver implements Collection.
func (m *Memory) Driver() string { return DriverMemory }

// Ping implements Collection.
func (m *Memory) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return errors.New("memory store is closed")
	}
	return nil
}

// Close implements Collection.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Count implements Collection.
func (m *Memory) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

// Scan implements Collection.
func (m *Memory) Scan(ctx context.Context, fn func(*features.Document) error) error {
	m.mu.RLock()
	docs := m.docs
	m.mu.RUnlock()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// BeginReplace implements Collection.
func (m *Memory) BeginReplace(context.Context) (Replacement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replacing {
		return nil, ErrReplaceInProgress
	}
	m.replacing = true
	return &memoryReplacement{parent: m}, nil
}

type memoryReplacement struct {
	parent *Memory

	mu     sync.Mutex
	staged []*features.Document
	done   bool
}

func (r *memoryReplacement) Insert(ctx context.Context, docs []*features.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrReplacementClosed
	}
	r.staged = append(r.staged, docs...)
	return nil
}

func (r *memoryReplacement) Commit(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return ErrReplacementClosed
	}
	r.done = true

	r.parent.mu.Lock()
	r.parent.docs = r.staged
	r.parent.replacing = false
	r.parent.mu.Unlock()
	return nil
}

func (r *memoryReplacement) Abort(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return nil
	}
	r.done = true
	r.staged = nil

	r.parent.mu.Lock()
	r.parent.replacing = false
	r.parent.mu.Unlock()
	return nil
}
