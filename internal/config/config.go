// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults
//  2. Config File (YAML)
//  3. Environment Variables
type Config struct {
	Paths   PathsConfig   `koanf:"paths"`
	Curate  CurateConfig  `koanf:"curate"`
	Load    LoadConfig    `koanf:"load"`
	Store   StoreConfig   `koanf:"store"`
	Blob    BlobConfig    `koanf:"blob"`
	Model   ModelConfig   `koanf:"model"`
	Server  ServerConfig  `koanf:"server"`
	Ledger  LedgerConfig  `koanf:"ledger"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

// PathsConfig locates the pipeline's on-disk artifacts.
type PathsConfig struct {
	RawCSV   string `koanf:"raw_csv"`
	RawDir   string `koanf:"raw_dir"`
	TrackDir string `koanf:"track_dir"`
	Metadata string `koanf:"metadata"`
	ModelDir string `koanf:"model_dir"`
}

// CurateConfig tunes the curator.
type CurateConfig struct {
	ProgressEvery int `koanf:"progress_every"`
}

// LoadConfig tunes the bulk loader.
type LoadConfig struct {
	BatchSize int `koanf:"batch_size"`

	// Workers bounds concurrent extractions per batch. 0 means runtime.NumCPU().
	Workers int `koanf:"workers"`
}

// StoreConfig selects and configures the document collection backend.
type StoreConfig struct {
	Driver     string        `koanf:"driver"`
	DuckDBPath string        `koanf:"duckdb_path"`
	MongoURI   string        `koanf:"mongo_uri"`
	Database   string        `koanf:"database"`
	Collection string        `koanf:"collection"`
	Timeout    time.Duration `koanf:"timeout"`
}

// BlobConfig configures the S3-compatible object store used for versioned containers.
type BlobConfig struct {
	Endpoint    string `koanf:"endpoint"`
	AccessKey   string `koanf:"access_key"`
	SecretKey   string `koanf:"secret_key"`
	UseSSL      bool   `koanf:"use_ssl"`
	Region      string `koanf:"region"`
	RawPrefix   string `koanf:"raw_prefix"`
	ModelPrefix string `koanf:"model_prefix"`

	// RequestsPerSecond paces object operations; Burst allows short spikes.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`

	// Circuit breaker: trip after BreakerFailures consecutive failures, retry once after BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// Configured reports whether an endpoint has been provided.
func (b BlobConfig) Configured() bool {
	return b.Endpoint != ""
}

// ModelConfig names the model artifact.
type ModelConfig struct {
	ArtifactName string `koanf:"artifact_name"`

	// RefreshInterval is how often the prediction service checks blob
	// storage for a newer model container. 0 disables refreshing.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// ServerConfig configures the prediction HTTP service.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LedgerConfig locates the run ledger.
type LedgerConfig struct {
	Path string `koanf:"path"`

	// InMemory keeps the ledger in process memory only.
	InMemory bool `koanf:"in_memory"`
}

// MetricsConfig controls metric export for CLI stages.
type MetricsConfig struct {
	TextfilePath string `koanf:"textfile_path"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
