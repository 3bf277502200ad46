// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package metrics holds the Prometheus instrumentation for every pipeline stage.
//
// The prediction service exposes these at /metrics. Batch stages (curate,
// load, train) run to completion and exit, so they flush the default
// registry to a node-exporter textfile with WriteTextfile instead.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Curation Metrics
	CurateRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_curate_records_total",
			Help: "Raw records processed by the curator, by outcome",
		},
		[]string{"outcome"}, // "kept", "skipped_empty", "skipped_invalid", "no_data"
	)

	CurateDuplicateIDs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hikeplanner_curate_duplicate_ids_total",
			Help: "Sanitized ids that collided with an earlier record in the same run",
		},
	)

	// Feature Extraction Metrics
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_extractions_total",
			Help: "Feature extraction attempts, by result",
		},
		[]string{"result"}, // "ok", "missing_file", "read_error", "parse_error"
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hikeplanner_extraction_duration_seconds",
			Help:    "Time to read, parse and measure one track",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// Bulk Loader Metrics
	LoadBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hikeplanner_load_batch_duration_seconds",
			Help:    "Time to extract and insert one batch",
			Buckets: prometheus.DefBuckets,
		},
	)

	LoadDocumentsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hikeplanner_load_documents_inserted_total",
			Help: "Feature documents inserted into the staging collection",
		},
	)

	LoadDocumentsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hikeplanner_load_documents_dropped_total",
			Help: "Metadata records whose extraction produced no document",
		},
	)

	CollectionSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_collection_swaps_total",
			Help: "Replace-all operations, by result",
		},
		[]string{"driver", "result"}, // result: "committed", "aborted"
	)

	// Blob Storage Metrics
	BlobObjects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_blob_objects_total",
			Help: "Objects transferred to or from blob storage",
		},
		[]string{"direction", "prefix"}, // direction: "upload", "download"
	)

	BlobErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_blob_errors_total",
			Help: "Blob storage operation failures",
		},
		[]string{"operation"},
	)

	BlobBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hikeplanner_blob_circuit_breaker_state",
			Help: "Blob circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Prediction Service Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hikeplanner_api_requests_total",
			Help: "Prediction service requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hikeplanner_api_request_duration_seconds",
			Help:    "Prediction service request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	ModelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hikeplanner_model_info",
			Help: "Loaded model artifact, value is the training sample count",
		},
		[]string{"container", "trained_at"},
	)
)

// RecordCurateOutcome counts one curated raw record.
func RecordCurateOutcome(outcome string) {
	CurateRecords.WithLabelValues(outcome).Inc()
}

// RecordExtraction counts one extraction attempt and its latency.
func RecordExtraction(result string, duration time.Duration) {
	ExtractionsTotal.WithLabelValues(result).Inc()
	ExtractionDuration.Observe(duration.Seconds())
}

// RecordBatch records one inserted loader batch.
func RecordBatch(inserted, dropped int, duration time.Duration) {
	LoadBatchDuration.Observe(duration.Seconds())
	LoadDocumentsInserted.Add(float64(inserted))
	LoadDocumentsDropped.Add(float64(dropped))
}

// RecordSwap records the end of a replace-all operation.
func RecordSwap(driver string, err error) {
	result := "committed"
	if err != nil {
		result = "aborted"
	}
	CollectionSwaps.WithLabelValues(driver, result).Inc()
}

// RecordAPIRequest records a prediction service request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// WriteTextfile writes the default registry to path in the Prometheus text
// format, for pickup by node-exporter's textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
