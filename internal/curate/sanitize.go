// HikePlanner - Hiking Track Curation and Duration Prediction
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hikeplanner

package curate

import (
	"strconv"
	"strings"
)

// SanitizeID keeps only ASCII letters, digits, '_' and '-' from raw. When
// nothing survives, the id falls back to "row_<index>" where index is the
// 1-based input position.
func SanitizeID(raw string, index int) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' {
			b.WriteByte(c)
		}
	}
	if b.Len() == 0 {
		return "row_" + strconv.Itoa(index)
	}
	return b.String()
}
