// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package blob

import (
	"context"
	"fmt"
	"sort"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tomtom215/hikeplanner/internal/config"
)

// ObjectStore is the subset of an S3-compatible API the versioned
// containers need. Each container is a bucket.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]string, error)

	// MakeBucket creates name. An already existing bucket is not an error.
	MakeBucket(ctx context.Context, name string) error

	// ListObjects returns every object name in bucket, sorted.
	ListObjects(ctx context.Context, bucket string) ([]string, error)

	PutFile(ctx context.Context, bucket, object, path string) error
	GetFile(ctx context.Context, bucket, object, path string) error
}

// MinIOStore implements ObjectStore for MinIO and S3-compatible storage.
type MinIOStore struct {
	client *minio.Client
	region string
}

// NewMinIOStore connects to the endpoint in cfg.
func NewMinIOStore(cfg config.BlobConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOStore{client: client, region: cfg.Region}, nil
}

// ListBuckets implements ObjectStore.
func (s *MinIOStore) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.client.ListBuckets(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(buckets))
	for i, b := range buckets {
		names[i] = b.Name
	}
	return names, nil
}

// MakeBucket implements ObjectStore.
func (s *MinIOStore) MakeBucket(ctx context.Context, name string) error {
	err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region})
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return err
}

// ListObjects implements ObjectStore.
func (s *MinIOStore) ListObjects(ctx context.Context, bucket string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// PutFile implements ObjectStore.
func (s *MinIOStore) PutFile(ctx context.Context, bucket, object, path string) error {
	_, err := s.client.FPutObject(ctx, bucket, object, path, minio.PutObjectOptions{})
	return err
}

// GetFile implements ObjectStore.
func (s *MinIOStore) GetFile(ctx context.Context, bucket, object, path string) error {
	return s.client.FGetObject(ctx, bucket, object, path, minio.GetObjectOptions{})
}
