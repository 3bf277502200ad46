// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

/*
Package api serves hiking duration predictions over HTTP.

Routes:

	GET /api/predict?downhill=<m>&uphill=<m>&length=<m>
	GET /healthz
	GET /metrics

/api/predict answers with the model estimate next to the DIN 33466 and SAC
rule-of-thumb estimates, each formatted as H:MM:SS:

	{"time": "2:41:00", "din33466": "2:30:00", "sac": "2:15:00"}

Missing parameters default to 0. Non-integer or negative values are rejected
with 400 and a VALIDATION_ERROR body.

The router uses go-chi/chi with go-chi/cors for cross-origin access and
go-chi/httprate for per-IP rate limiting. Every request is counted in the
hikeplanner_api_* Prometheus metrics.

The model is held behind an atomic pointer so a freshly fetched artifact can
replace it without restarting the server. Until one is set, /api/predict and
/healthz answer 503.
*/
package api
