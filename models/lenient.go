package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Scan fields arrive from older clients and hand-written requests with loose
// types. A field that cannot be read as its type falls back to its zero value
// instead of failing the whole document.

// ClampEcoScore bounds a score to 0..100.
func ClampEcoScore(score int) int {
	return min(max(score, 0), 100)
}

// ClampConfidence bounds a confidence to 0..1. NaN reads as 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return min(max(c, 0), 1)
}

// UnmarshalJSON accepts any JSON object. Numbers may be fractional or quoted,
// booleans may be quoted; anything else leaves the field at its zero value.
func (in *ScanInput) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*in = ScanInput{
		ItemName:       lenientString(fields["itemName"]),
		Category:       lenientString(fields["category"]),
		IsRecyclable:   lenientBool(fields["isRecyclable"]),
		EcoScore:       lenientInt(fields["ecoScore"]),
		Confidence:     lenientFloat(fields["confidence"]),
		DisposalMethod: lenientString(fields["disposalMethod"]),
		Material:       lenientString(fields["material"]),
	}
	return nil
}

// UnmarshalJSON reads stored records, including ones written by older
// clients with fractional scores or quoted flags.
func (r *ScanRecord) UnmarshalJSON(data []byte) error {
	type stored ScanRecord
	aux := struct {
		*stored
		IsRecyclable json.RawMessage `json:"isRecyclable"`
		EcoScore     json.RawMessage `json:"ecoScore"`
		Confidence   json.RawMessage `json:"confidence"`
	}{stored: (*stored)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.IsRecyclable = lenientBool(aux.IsRecyclable)
	r.EcoScore = ClampEcoScore(lenientInt(aux.EcoScore))
	r.Confidence = ClampConfidence(lenientFloat(aux.Confidence))
	r.Category = ParseCategory(string(r.Category))
	return nil
}

func lenientFloat(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func lenientInt(raw json.RawMessage) int {
	f := math.Round(lenientFloat(raw))
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	if f < math.MinInt32 {
		return math.MinInt32
	}
	return int(f)
}

func lenientBool(raw json.RawMessage) bool {
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return false
	}
	b, _ = strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func lenientString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}
