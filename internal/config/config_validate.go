// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tomtom215/hikeplanner/internal/logging"
)

// ConfigurationError reports a missing or invalid setting. It is fatal and
// is always raised before any destructive pipeline step.
type ConfigurationError struct {
	// Key is the environment variable (or setting) at fault.
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Reason)
}

func invalid(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateBlob(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.TrackDir == "" {
		return invalid("TRACK_DIR", "is required")
	}
	if c.Paths.Metadata == "" {
		return invalid("METADATA_PATH", "is required")
	}
	if filepath.Clean(c.Paths.TrackDir) == filepath.Clean(filepath.Dir(c.Paths.Metadata)) {
		return invalid("METADATA_PATH", "must not share its directory with TRACK_DIR (%s)", c.Paths.TrackDir)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Curate.ProgressEvery < 1 {
		return invalid("CURATE_PROGRESS_EVERY", "must be at least 1")
	}
	if c.Load.BatchSize < 1 || c.Load.BatchSize > 10000 {
		return invalid("LOAD_BATCH_SIZE", "must be between 1 and 10000")
	}
	if c.Load.Workers < 0 {
		return invalid("LOAD_WORKERS", "must be 0 (all CPUs) or positive")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "duckdb":
		if c.Store.DuckDBPath == "" {
			return invalid("DUCKDB_PATH", "is required when STORE_DRIVER=duckdb")
		}
	case "mongo":
		if c.Store.MongoURI == "" {
			return invalid("MONGO_DB_CONNECTION_STRING", "is required when STORE_DRIVER=mongo")
		}
		if !strings.HasPrefix(c.Store.MongoURI, "mongodb://") && !strings.HasPrefix(c.Store.MongoURI, "mongodb+srv://") {
			return invalid("MONGO_DB_CONNECTION_STRING", "must start with mongodb:// or mongodb+srv://")
		}
	default:
		return invalid("STORE_DRIVER", "must be duckdb or mongo, got %q", c.Store.Driver)
	}
	if c.Store.Collection == "" {
		return invalid("STORE_COLLECTION", "is required")
	}
	if c.Store.Timeout <= 0 {
		return invalid("STORE_TIMEOUT", "must be positive")
	}
	return nil
}

func (c *Config) validateBlob() error {
	b := c.Blob
	if !b.Configured() {
		return nil
	}
	if strings.Contains(b.Endpoint, "://") || strings.Contains(b.Endpoint, "/") {
		return invalid("BLOB_ENDPOINT", "must be host[:port] without scheme (use BLOB_USE_SSL), got %q", b.Endpoint)
	}
	if b.RawPrefix == "" || b.ModelPrefix == "" {
		return invalid("BLOB_RAW_PREFIX", "and BLOB_MODEL_PREFIX must not be empty")
	}
	if b.RequestsPerSecond <= 0 {
		return invalid("BLOB_REQUESTS_PER_SECOND", "must be positive")
	}
	if b.Burst < 1 {
		return invalid("BLOB_BURST", "must be at least 1")
	}
	if b.BreakerFailures < 1 {
		return invalid("BLOB_BREAKER_FAILURES", "must be at least 1")
	}
	return nil
}

// RequireBlob returns a ConfigurationError when no blob endpoint is configured.
// Commands that talk to blob storage call it before doing any work.
func (c *Config) RequireBlob() error {
	if !c.Blob.Configured() {
		return invalid("BLOB_ENDPOINT", "is required for blob storage commands")
	}
	if c.Blob.AccessKey == "" || c.Blob.SecretKey == "" {
		return invalid("BLOB_ACCESS_KEY", "and BLOB_SECRET_KEY are required when BLOB_ENDPOINT is set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("HTTP_PORT", "must be between 1 and 65535")
	}
	if c.Server.RateLimitRequests < 1 {
		return invalid("RATE_LIMIT_REQUESTS", "must be at least 1")
	}
	if c.Server.RateLimitWindow <= 0 {
		return invalid("RATE_LIMIT_WINDOW", "must be positive")
	}
	if name := c.Model.ArtifactName; name == "" || filepath.Base(name) != name {
		return invalid("MODEL_ARTIFACT_NAME", "must be a plain file name, got %q", name)
	}
	if c.Model.RefreshInterval < 0 {
		return invalid("MODEL_REFRESH_INTERVAL", "must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return invalid("LOG_LEVEL", "must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return invalid("LOG_FORMAT", "must be json or console; got %q", c.Logging.Format)
	}
	return nil
}
