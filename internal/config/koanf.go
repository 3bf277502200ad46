// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/hikeplanner/config.yaml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			RawCSV:   "gpx-data/hikr-raw-data/gpx-tracks-from-hikr.org.csv",
			RawDir:   "gpx-data/hikr-raw-data",
			TrackDir: "gpx-data/gpx-collected-curated",
			Metadata: "gpx-data/gpx-metadata/tracks.jl",
			ModelDir: "model",
		},
		Curate: CurateConfig{
			ProgressEvery: 1000,
		},
		Load: LoadConfig{
			BatchSize: 200,
			Workers:   0,
		},
		Store: StoreConfig{
			Driver:     "duckdb",
			DuckDBPath: "gpx-data/tracks.duckdb",
			Database:   "tracks",
			Collection: "tracks",
			Timeout:    30 * time.Second,
		},
		Blob: BlobConfig{
			RawPrefix:         "hikeplanner-raw-data",
			ModelPrefix:       "hikeplanner-model",
			RequestsPerSecond: 20,
			Burst:             10,
			BreakerFailures:   5,
			BreakerTimeout:    30 * time.Second,
		},
		Model: ModelConfig{
			ArtifactName: "model.json",
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Ledger: LedgerConfig{
			Path: "gpx-data/ledger",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the config file at path (or
// the first of DefaultConfigPaths when path is empty) and the environment,
// then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are keys whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"raw_csv_path":  "paths.raw_csv",
	"raw_data_dir":  "paths.raw_dir",
	"track_dir":     "paths.track_dir",
	"metadata_path": "paths.metadata",
	"model_dir":     "paths.model_dir",

	"curate_progress_every": "curate.progress_every",

	"load_batch_size": "load.batch_size",
	"load_workers":    "load.workers",

	"store_driver":               "store.driver",
	"duckdb_path":                "store.duckdb_path",
	"mongo_db_connection_string": "store.mongo_uri",
	"store_database":             "store.database",
	"store_collection":           "store.collection",
	"store_timeout":              "store.timeout",

	"blob_endpoint":            "blob.endpoint",
	"blob_access_key":          "blob.access_key",
	"blob_secret_key":          "blob.secret_key",
	"blob_use_ssl":             "blob.use_ssl",
	"blob_region":              "blob.region",
	"blob_raw_prefix":          "blob.raw_prefix",
	"blob_model_prefix":        "blob.model_prefix",
	"blob_requests_per_second": "blob.requests_per_second",
	"blob_burst":               "blob.burst",
	"blob_breaker_failures":    "blob.breaker_failures",
	"blob_breaker_timeout":     "blob.breaker_timeout",

	"model_artifact_name":    "model.artifact_name",
	"model_refresh_interval": "model.refresh_interval",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"cors_origins":        "server.cors_origins",

	"ledger_path":      "ledger.path",
	"ledger_in_memory": "ledger.in_memory",

	"metrics_textfile": "metrics.textfile_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf keys.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
