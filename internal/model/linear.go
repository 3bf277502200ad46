// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

// Package model fits and serves the hiking duration model.
//
// The model is an ordinary least squares regression of moving time on
// descent, ascent, 3-D length and highest elevation. It is stored as a
// small JSON artifact so the prediction service needs no numeric runtime.
package model

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/hikeplanner/internal/features"
)

// FeatureNames lists the model inputs in coefficient order.
var FeatureNames = []string{
	features.FieldDownhill,
	features.FieldUphill,
	features.FieldLength3D,
	features.FieldMaxElevation,
}

var (
	// ErrFeatureMismatch is returned when an artifact was trained on a
	// different feature set.
	ErrFeatureMismatch = errors.New("model features do not match")

	// ErrTooFewSamples is returned by Fit when there are not more samples
	// than features.
	ErrTooFewSamples = errors.New("not enough samples to fit model")

	// ErrSingular is returned by Fit when the features are collinear.
	ErrSingular = errors.New("feature matrix is singular")
)

// Input is one prediction request.
type Input struct {
	Downhill     float64
	Uphill       float64
	Length3D     float64
	MaxElevation float64
}

func (in Input) vector() []float64 {
	return []float64{in.Downhill, in.Uphill, in.Length3D, in.MaxElevation}
}

// Linear is a fitted linear model.
type Linear struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	TrainedAt    time.Time `json:"trained_at"`
	Samples      int       `json:"samples"`
	R2           float64   `json:"r2"`
}

// Predict returns the predicted moving time in seconds, never negative.
func (m *Linear) Predict(in Input) float64 {
	y := m.Intercept
	for i, x := range in.vector() {
		y += m.Coefficients[i] * x
	}
	return math.Max(0, y)
}

// Fit solves the least squares problem for rows x and targets y with an
// intercept, via the normal equations.
func Fit(x [][]float64, y []float64) (*Linear, error) {
	p := len(FeatureNames)
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("have %d rows but %d targets", n, len(y))
	}
	if n <= p {
		return nil, fmt.Errorf("%w: have %d, need more than %d", ErrTooFewSamples, n, p)
	}

	// Augmented normal equations [X'X | X'y] with a leading intercept column.
	k := p + 1
	a := make([][]float64, k)
	for i := range a {
		a[i] = make([]float64, k+1)
	}
	row := make([]float64, k)
	for r := 0; r < n; r++ {
		if len(x[r]) != p {
			return nil, fmt.Errorf("row %d has %d features, want %d", r, len(x[r]), p)
		}
		row[0] = 1
		copy(row[1:], x[r])
		for i := 0; i < k; i++ {
			for j := 0; j < k; j++ {
				a[i][j] += row[i] * row[j]
			}
			a[i][k] += row[i] * y[r]
		}
	}

	beta, err := solve(a)
	if err != nil {
		return nil, err
	}

	m := &Linear{
		Features:     slices.Clone(FeatureNames),
		Intercept:    beta[0],
		Coefficients: beta[1:],
		TrainedAt:    time.Now().UTC(),
		Samples:      n,
	}
	m.R2 = rSquared(m, x, y)
	return m, nil
}

// solve runs Gaussian elimination with partial pivoting on the augmented
// matrix a, in place.
func solve(a [][]float64) ([]float64, error) {
	k := len(a)

	// Pivots below tol relative to the largest diagonal entry are treated
	// as zero.
	var scale float64
	for i := 0; i < k; i++ {
		scale = math.Max(scale, math.Abs(a[i][i]))
	}
	tol := scale * 1e-12

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) <= tol {
			return nil, ErrSingular
		}
		a[col], a[pivot] = a[pivot], a[col]

		for r := col + 1; r < k; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c <= k; c++ {
				a[r][c] -= f * a[col][c]
			}
		}
	}

	beta := make([]float64, k)
	for r := k - 1; r >= 0; r-- {
		sum := a[r][k]
		for c := r + 1; c < k; c++ {
			sum -= a[r][c] * beta[c]
		}
		beta[r] = sum / a[r][r]
	}
	return beta, nil
}

// rSquared is computed on raw (unclamped) predictions.
func rSquared(m *Linear, x [][]float64, y []float64) float64 {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var ssRes, ssTot float64
	for r, row := range x {
		pred := m.Intercept
		for i, v := range row {
			pred += m.Coefficients[i] * v
		}
		ssRes += (y[r] - pred) * (y[r] - pred)
		ssTot += (y[r] - mean) * (y[r] - mean)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

// Save writes the artifact to path.
func (m *Linear) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Load reads an artifact and checks it matches FeatureNames.
func Load(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Linear
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if !slices.Equal(m.Features, FeatureNames) || len(m.Coefficients) != len(FeatureNames) {
		return nil, fmt.Errorf("%w: artifact has %v with %d coefficients, want %v",
			ErrFeatureMismatch, m.Features, len(m.Coefficients), FeatureNames)
	}
	return &m, nil
}
