// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/model"
)

// ModelSource lists and loads published model versions.
type ModelSource interface {
	LatestVersion(ctx context.Context) (string, error)
	FetchVersion(ctx context.Context, version string) (*model.Linear, error)
}

// ModelSink receives newly fetched models.
type ModelSink interface {
	SetModel(m *model.Linear, source string)
}

// ModelRefreshService polls a ModelSource and hands every newer version to
// a ModelSink. Fetch failures are logged and retried on the next tick; the
// previous model keeps serving.
type ModelRefreshService struct {
	source   ModelSource
	sink     ModelSink
	interval time.Duration
	logger   zerolog.Logger
	name     string

	mu      sync.Mutex
	current string
}

// NewModelRefreshService creates the service. current is the version that is
// already loaded, or "" when none is.
func NewModelRefreshService(source ModelSource, sink ModelSink, current string, interval time.Duration) *ModelRefreshService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &ModelRefreshService{
		source:   source,
		sink:     sink,
		interval: interval,
		current:  current,
		logger:   logging.WithComponent("model-refresh"),
		name:     "model-refresh",
	}
}

// Serve implements suture.Service.
func (s *ModelRefreshService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Str("current", s.Current()).Msg("Model refresh starting")

	if s.Current() == "" {
		s.refreshLogged(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

func (s *ModelRefreshService) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Model refresh failed, keeping current model")
	}
}

// Refresh fetches the newest version if it differs from the loaded one and
// reports whether a new model was installed.
func (s *ModelRefreshService) Refresh(ctx context.Context) (bool, error) {
	latest, err := s.source.LatestVersion(ctx)
	if err != nil {
		return false, err
	}
	if latest == s.Current() {
		return false, nil
	}

	m, err := s.source.FetchVersion(ctx, latest)
	if err != nil {
		return false, err
	}
	s.sink.SetModel(m, latest)

	s.mu.Lock()
	previous := s.current
	s.current = latest
	s.mu.Unlock()

	s.logger.Info().Str("previous", previous).Str("version", latest).Msg("Model refreshed")
	return true, nil
}

// Current returns the loaded version.
func (s *ModelRefreshService) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// String implements fmt.Stringer for suture's event log.
func (s *ModelRefreshService) String() string {
	return s.name
}
