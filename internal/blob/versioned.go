// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package blob publishes and fetches versioned snapshots of a directory.
//
// A snapshot lives in a container named <prefix>-<n>. Uploading always
// creates container n+1 over the highest existing n, so earlier snapshots
// stay untouched; downloading always reads the highest n. The raw data
// export and the trained model are both distributed this way.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/hikeplanner/internal/config"
	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metrics"
)

// ErrNoVersions is returned when no container exists for a prefix.
var ErrNoVersions = errors.New("no versioned containers found")

// ContainerName returns the container for version n of prefix.
func ContainerName(prefix string, n int) string {
	return prefix + "-" + strconv.Itoa(n)
}

// parseVersion returns n when name is <prefix>-<n> with n a positive integer.
func parseVersion(prefix, name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, prefix+"-")
	if !ok || suffix == "" {
		return 0, false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Options tunes request pacing and failure handling.
type Options struct {
	RequestsPerSecond float64
	Burst             int
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// Client manages versioned containers over an ObjectStore. Every request
// waits on a rate limiter and runs through a circuit breaker.
type Client struct {
	store   ObjectStore
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[any]
}

// New wraps store.
func New(store ObjectStore, opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	failures := opts.BreakerFailures
	if failures < 1 {
		failures = 5
	}
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.BlobBreakerState.Set(0)
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "blob-storage",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
			metrics.BlobBreakerState.Set(stateToFloat(to))
		},
	})

	return &Client{
		store:   store,
		limiter: rate.NewLimiter(limit, burst),
		cb:      cb,
	}
}

// NewFromConfig connects to the MinIO endpoint described by cfg.
func NewFromConfig(cfg config.BlobConfig) (*Client, error) {
	store, err := NewMinIOStore(cfg)
	if err != nil {
		return nil, err
	}
	return New(store, Options{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerTimeout:    cfg.BreakerTimeout,
	}), nil
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// do paces and guards one store request.
func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err != nil {
		metrics.BlobErrors.WithLabelValues(op).Inc()
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// latestVersion returns the highest version of prefix, or 0 when none exist.
func (c *Client) latestVersion(ctx context.Context, prefix string) (int, error) {
	var buckets []string
	err := c.do(ctx, "list_buckets", func() error {
		var err error
		buckets, err = c.store.ListBuckets(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	latest := 0
	for _, b := range buckets {
		if n, ok := parseVersion(prefix, b); ok && n > latest {
			latest = n
		}
	}
	return latest, nil
}

// Latest returns the newest container of prefix.
func (c *Client) Latest(ctx context.Context, prefix string) (string, error) {
	n, err := c.latestVersion(ctx, prefix)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%w for prefix %q", ErrNoVersions, prefix)
	}
	return ContainerName(prefix, n), nil
}

// Next returns the container name the next upload of prefix will use.
func (c *Client) Next(ctx context.Context, prefix string) (string, error) {
	n, err := c.latestVersion(ctx, prefix)
	if err != nil {
		return "", err
	}
	return ContainerName(prefix, n+1), nil
}

// UploadDir creates the next container of prefix and uploads every regular
// file under dir, named by its slash-separated path relative to dir.
func (c *Client) UploadDir(ctx context.Context, prefix, dir string) (string, int, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("walk %s: %w", dir, err)
	}

	container, err := c.Next(ctx, prefix)
	if err != nil {
		return "", 0, err
	}
	if err := c.do(ctx, "make_bucket", func() error {
		return c.store.MakeBucket(ctx, container)
	}); err != nil {
		return "", 0, err
	}

	logging.Ctx(ctx).Info().Str("container", container).Int("files", len(files)).Msg("Uploading directory")

	uploaded := 0
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return container, uploaded, err
		}
		object := filepath.ToSlash(rel)
		if err := c.do(ctx, "put_object", func() error {
			return c.store.PutFile(ctx, container, object, path)
		}); err != nil {
			return container, uploaded, fmt.Errorf("upload %s: %w", object, err)
		}
		uploaded++
		metrics.BlobObjects.WithLabelValues("upload", prefix).Inc()
	}
	return container, uploaded, nil
}

// DownloadLatest replaces the contents of dir with every object of the
// newest container of prefix.
func (c *Client) DownloadLatest(ctx context.Context, prefix, dir string) (string, int, error) {
	container, err := c.Latest(ctx, prefix)
	if err != nil {
		return "", 0, err
	}
	n, err := c.Download(ctx, prefix, container, dir)
	return container, n, err
}

// Download replaces the contents of dir with every object of container,
// which must belong to prefix.
func (c *Client) Download(ctx context.Context, prefix, container, dir string) (int, error) {
	if _, ok := parseVersion(prefix, container); !ok {
		return 0, fmt.Errorf("container %q is not a version of %q", container, prefix)
	}

	var objects []string
	if err := c.do(ctx, "list_objects", func() error {
		var err error
		objects, err = c.store.ListObjects(ctx, container)
		return err
	}); err != nil {
		return 0, err
	}

	if err := resetDir(dir); err != nil {
		return 0, err
	}

	logging.Ctx(ctx).Info().Str("container", container).Int("objects", len(objects)).Msg("Downloading container")

	downloaded := 0
	for _, object := range objects {
		local := filepath.FromSlash(object)
		if !filepath.IsLocal(local) {
			logging.Ctx(ctx).Warn().Str("object", object).Msg("Skipping object with unsafe name")
			continue
		}
		target := filepath.Join(dir, local)
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return downloaded, err
		}
		if err := c.do(ctx, "get_object", func() error {
			return c.store.GetFile(ctx, container, object, target)
		}); err != nil {
			return downloaded, fmt.Errorf("download %s: %w", object, err)
		}
		downloaded++
		metrics.BlobObjects.WithLabelValues("download", prefix).Inc()
	}
	return downloaded, nil
}

func resetDir(dir string) error {
	clean := filepath.Clean(dir)
	if dir == "" || clean == "." || clean == ".." || clean == filepath.VolumeName(clean)+string(filepath.Separator) {
		return &config.ConfigurationError{Key: "download directory", Reason: fmt.Sprintf("refusing to clear directory %q", dir)}
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("clear %s: %w", clean, err)
	}
	return os.MkdirAll(clean, 0o750)
}
