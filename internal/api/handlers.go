// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package api

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tomtom215/hikeplanner/internal/logging"
	"github.com/tomtom215/hikeplanner/internal/metrics"
	"github.com/tomtom215/hikeplanner/internal/model"
	"github.com/tomtom215/hikeplanner/internal/validation"
)

// PredictRequest holds the /api/predict query parameters, in metres.
type PredictRequest struct {
	Downhill int `query:"downhill" validate:"gte=0"`
	Uphill   int `query:"uphill" validate:"gte=0"`
	Length   int `query:"length" validate:"gte=0"`
}

// Handler serves the prediction endpoints.
type Handler struct {
	model atomic.Pointer[model.Linear]
}

// NewHandler creates a handler. m may be nil until SetModel is called.
func NewHandler(m *model.Linear) *Handler {
	h := &Handler{}
	if m != nil {
		h.SetModel(m, "")
	}
	return h
}

// SetModel swaps in a new model. source names where it came from, such as
// the blob container or local path, and is exported as a metric label.
func (h *Handler) SetModel(m *model.Linear, source string) {
	h.model.Store(m)
	metrics.ModelInfo.Reset()
	metrics.ModelInfo.WithLabelValues(source, m.TrainedAt.UTC().Format(time.RFC3339)).Set(float64(m.Samples))
	logging.Info().
		Str("source", source).
		Int("samples", m.Samples).
		Float64("r2", m.R2).
		Msg("Prediction model loaded")
}

// Model returns the current model, or nil.
func (h *Handler) Model() *model.Linear {
	return h.model.Load()
}

// Predict handles GET /api/predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	m := h.model.Load()
	if m == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeUnavailable, "no model loaded", nil)
		return
	}

	req, verr := parsePredictRequest(r)
	if verr != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeValidation, verr.Error(), verr.Fields)
		return
	}

	downhill := float64(req.Downhill)
	uphill := float64(req.Uphill)
	length := float64(req.Length)
	seconds := m.Predict(model.Input{Downhill: downhill, Uphill: uphill, Length3D: length})

	respondJSON(w, http.StatusOK, PredictResponse{
		Time:     model.FormatMinutes(seconds),
		DIN33466: model.FormatMinutes(model.DIN33466(uphill, downhill, length)),
		SAC:      model.FormatMinutes(model.SAC(uphill, length)),
	})
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	m := h.model.Load()
	if m == nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "no_model"})
		return
	}
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		ModelSamples: m.Samples,
		ModelR2:      m.R2,
		TrainedAt:    m.TrainedAt.UTC().Format(time.RFC3339),
	})
}

func parsePredictRequest(r *http.Request) (PredictRequest, *validation.RequestValidationError) {
	q := r.URL.Query()
	var (
		req  PredictRequest
		errs []validation.FieldError
	)
	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"downhill", &req.Downhill},
		{"uphill", &req.Uphill},
		{"length", &req.Length},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, validation.FieldError{
				Field:   p.name,
				Tag:     "int",
				Message: p.name + " must be an integer",
			})
			continue
		}
		*p.dst = v
	}
	if len(errs) > 0 {
		return req, &validation.RequestValidationError{Fields: errs}
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return req, verr
	}
	return req, nil
}
