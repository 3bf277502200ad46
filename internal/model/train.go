// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package model

import (
	"context"
	"fmt"

	"github.com/tomtom215/hikeplanner/internal/features"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/store"
)

// TrainStats counts the documents seen while training.
type TrainStats struct {
	Scanned int
	Used    int
	Skipped int
}

// Counters flattens the stats for the run ledger.
func (s TrainStats) Counters() map[string]int64 {
	return map[string]int64{
		"scanned": int64(s.Scanned),
		"used":    int64(s.Used),
		"skipped": int64(s.Skipped),
	}
}

// Sample converts a document into a training row. Documents without an
// elevation profile or without moving time cannot be used.
func Sample(doc *features.Document) ([]float64, float64, bool) {
	f := doc.Features
	if f.MaxElevation == nil || f.MovingTime <= 0 {
		return nil, 0, false
	}
	in := Input{
		Downhill:     f.Downhill,
		Uphill:       f.Uphill,
		Length3D:     f.Length3D,
		MaxElevation: *f.MaxElevation,
	}
	return in.vector(), f.MovingTime, true
}

// Train fits a model on every usable document in coll.
func Train(ctx context.Context, coll store.Collection) (*Linear, TrainStats, error) {
	var (
		stats TrainStats
		x     [][]float64
		y     []float64
	)
	err := coll.Scan(ctx, func(doc *features.Document) error {
		stats.Scanned++
		row, target, ok := Sample(doc)
		if !ok {
			stats.Skipped++
			return nil
		}
		stats.Used++
		x = append(x, row)
		y = append(y, target)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("scan collection: %w", err)
	}

	m, err := Fit(x, y)
	if err != nil {
		return nil, stats, err
	}

	logging.Ctx(ctx).Info().
		Int("samples", m.Samples).
		Int("skipped", stats.Skipped).
		Float64("r2", m.R2).
		Floats64("coefficients", m.Coefficients).
		Float64("intercept", m.Intercept).
		Msg("Model trained")
	return m, stats, nil
}
