// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ContainerStore is the part of blob.Client a BlobSource needs.
type ContainerStore interface {
	Latest(ctx context.Context, prefix string) (string, error)
	Download(ctx context.Context, prefix, container, dir string) (int, error)
	UploadDir(ctx context.Context, prefix, dir string) (string, int, error)
}

// BlobSource reads and publishes model artifacts kept in versioned
// containers. dir receives downloads and is cleared on every fetch.
type BlobSource struct {
	blobs    ContainerStore
	prefix   string
	dir      string
	artifact string
}

// NewBlobSource creates a source for containers named <prefix>-<n>, each
// holding an artifact file.
func NewBlobSource(blobs ContainerStore, prefix, dir, artifact string) *BlobSource {
	return &BlobSource{blobs: blobs, prefix: prefix, dir: dir, artifact: artifact}
}

// LatestVersion returns the newest model container.
func (s *BlobSource) LatestVersion(ctx context.Context) (string, error) {
	return s.blobs.Latest(ctx, s.prefix)
}

// FetchVersion downloads container and loads its artifact.
func (s *BlobSource) FetchVersion(ctx context.Context, container string) (*Linear, error) {
	if _, err := s.blobs.Download(ctx, s.prefix, container, s.dir); err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", container, err)
	}
	return Load(filepath.Join(s.dir, s.artifact))
}

// FetchLatest downloads and loads the newest model.
func (s *BlobSource) FetchLatest(ctx context.Context) (*Linear, string, error) {
	container, err := s.LatestVersion(ctx)
	if err != nil {
		return nil, "", err
	}
	m, err := s.FetchVersion(ctx, container)
	return m, container, err
}

// Publish uploads m as the next container version.
func (s *BlobSource) Publish(ctx context.Context, m *Linear) (string, error) {
	staging, err := os.MkdirTemp("", "hikeplanner-model-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := m.Save(filepath.Join(staging, s.artifact)); err != nil {
		return "", err
	}
	container, _, err := s.blobs.UploadDir(ctx, s.prefix, staging)
	if err != nil {
		return "", fmt.Errorf("publish model: %w", err)
	}
	return container, nil
}
