// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package curate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/hikeplanner/internal/logging"
)

const (
	idColumn  = "_id"
	gpxColumn = "gpx"
)

// Field is one named column value of a raw record.
type Field struct {
	Name  string
	Value string
}

// RawRecord is one scraped row. Fields keep their input column order.
type RawRecord struct {
	Fields []Field
}

// Get returns the value of column name and whether it was present.
func (r *RawRecord) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// RecordSource yields raw records in input order and io.EOF at the end.
type RecordSource interface {
	Next() (*RawRecord, error)
}

// CSVSource reads raw records from a CSV stream whose first row is the header.
type CSVSource struct {
	r      *csv.Reader
	header []string
	row    int
}

// NewCSVSource reads the header row from r. A header without a gpx column is
// accepted; every row then curates as no-data.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv input has no header row")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) > 0 {
		// Strip a UTF-8 byte order mark left by spreadsheet exports.
		header[0] = trimBOM(header[0])
	}

	hasGPX := false
	for _, h := range header {
		if h == gpxColumn {
			hasGPX = true
		}
	}
	if !hasGPX {
		logging.Warn().Strs("header", header).Str("column", gpxColumn).Msg("CSV header has no track column, every row will count as no data")
	}
	return &CSVSource{r: cr, header: header}, nil
}

// Next returns the next row as a RawRecord. Columns beyond the header are
// dropped; missing trailing columns are absent from the record.
func (s *CSVSource) Next() (*RawRecord, error) {
	values, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read csv row %d: %w", s.row+1, err)
	}
	s.row++

	n := min(len(values), len(s.header))
	rec := &RawRecord{Fields: make([]Field, n)}
	for i := 0; i < n; i++ {
		rec.Fields[i] = Field{Name: s.header[i], Value: values[i]}
	}
	return rec, nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
