// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package ledger keeps a history of pipeline stage runs so operators can
// see when each stage last ran and what it produced.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage names recorded by the CLI.
const (
	StageCurate    = "curate"
	StageRecurate  = "recurate"
	StageLoad      = "load"
	StageTrain     = "train"
	StageUploadRaw = "raw-upload"
	StageFetchRaw  = "raw-download"
	StagePublish   = "model-publish"
	StageFetch     = "model-fetch"
)

// Stages lists every stage in pipeline order.
var Stages = []string{
	StageFetchRaw, StageCurate, StageRecurate, StageLoad, StageTrain,
	StagePublish, StageFetch, StageUploadRaw,
}

// ErrNoRuns is returned by Latest when a stage has never run.
var ErrNoRuns = errors.New("no runs recorded")

// Run is one execution of a pipeline stage.
type Run struct {
	ID         string           `json:"id"`
	Stage      string           `json:"stage"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
	Counters   map[string]int64 `json:"counters,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// NewRun starts a run of stage now.
func NewRun(stage string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the run with its outcome.
func (r *Run) Finish(counters map[string]int64, err error) {
	r.FinishedAt = time.Now().UTC()
	r.Counters = counters
	if err != nil {
		r.Error = err.Error()
	}
}

// Succeeded reports whether the run finished without error.
func (r *Run) Succeeded() bool {
	return !r.FinishedAt.IsZero() && r.Error == ""
}

// Duration returns how long the run took, or zero if unfinished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists runs.
type Store interface {
	// Record saves r, replacing any earlier record with the same ID.
	Record(ctx context.Context, r *Run) error

	// Latest returns the most recently started run of stage.
	Latest(ctx context.Context, stage string) (*Run, error)

	// List returns up to limit runs of stage, newest first. limit <= 0 means all.
	List(ctx context.Context, stage string, limit int) ([]*Run, error)

	Close() error
}

func validate(r *Run) error {
	if r == nil {
		return errors.New("run cannot be nil")
	}
	if r.ID == "" || r.Stage == "" {
		return fmt.Errorf("run needs an id and a stage")
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("run %s has no start time", r.ID)
	}
	return nil
}
