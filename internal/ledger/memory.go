// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps runs in memory. Useful for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]Run
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]Run)}
}

// Record implements Store.
func (m *MemoryStore) Record(_ context.Context, r *Run) error {
	if err := validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[r.ID] = copyRun(r)
	return nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(ctx context.Context, stage string) (*Run, error) {
	runs, _ := m.List(ctx, stage, 1) //nolint:errcheck // never fails
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w for stage %q", ErrNoRuns, stage)
	}
	return runs[0], nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, stage string, limit int) ([]*Run, error) {
	m.mu.RLock()
	var runs []*Run
	for _, r := range m.runs {
		if r.Stage == stage {
			c := copyRun(&r)
			runs = append(runs, &c)
		}
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

func copyRun(r *Run) Run {
	c := *r
	if r.Counters != nil {
		c.Counters = make(map[string]int64, len(r.Counters))
		for k, v := range r.Counters {
			c.Counters[k] = v
		}
	}
	return c
}
