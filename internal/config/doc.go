// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

/*
Package config provides centralized configuration management for HikePlanner.

# Configuration Sources

Configuration is layered with Koanf v2, later sources overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, --config, or config.yaml in the working directory
 3. Environment variables (explicit mapping, unmapped variables are ignored)

# Environment Variables

Paths:
  - RAW_CSV_PATH: scraped CSV input (default: gpx-data/hikr-raw-data/gpx-tracks-from-hikr.org.csv)
  - RAW_DATA_DIR: directory uploaded as a raw-data container (default: gpx-data/hikr-raw-data)
  - TRACK_DIR: curated .gpx output (default: gpx-data/gpx-collected-curated)
  - METADATA_PATH: JSON-lines metadata stream (default: gpx-data/gpx-metadata/tracks.jl)
  - MODEL_DIR: local model artifact directory (default: model)

Pipeline:
  - CURATE_PROGRESS_EVERY: kept records between progress reports (default: 1000)
  - LOAD_BATCH_SIZE: metadata records per batch (default: 200)
  - LOAD_WORKERS: extraction workers per batch, 0 = NumCPU (default: 0)

Document store:
  - STORE_DRIVER: duckdb or mongo (default: duckdb)
  - DUCKDB_PATH: DuckDB database file (default: gpx-data/tracks.duckdb)
  - MONGO_DB_CONNECTION_STRING: MongoDB URI, required when STORE_DRIVER=mongo
  - STORE_DATABASE / STORE_COLLECTION: target names (default: tracks / tracks)

Blob storage (S3-compatible):
  - BLOB_ENDPOINT, BLOB_ACCESS_KEY, BLOB_SECRET_KEY, BLOB_USE_SSL, BLOB_REGION
  - BLOB_RAW_PREFIX (default: hikeplanner-raw-data)
  - BLOB_MODEL_PREFIX (default: hikeplanner-model)

Prediction service:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:8080)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, CORS_ORIGINS
  - MODEL_ARTIFACT_NAME: artifact file inside a model container (default: model.json)
  - MODEL_REFRESH_INTERVAL: poll blob storage for newer models, 0 = never (default: 0)

Observability:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - METRICS_TEXTFILE: write Prometheus textfile after each CLI stage
  - LEDGER_PATH: BadgerDB directory for the run ledger (default: gpx-data/ledger)

# Validation

Validate returns a *ConfigurationError naming the offending variable. The
command layer treats it as fatal before any destructive work begins.
*/
package config
