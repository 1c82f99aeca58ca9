package importer

// mapper.go is the field mapper/normalizer: it resolves heterogeneous
// column headers onto the canonical field set once per file, then turns raw
// rows into CanonicalRows with normalized dates, booleans, and enums.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// truthy values for boolean fields. Anything else is false.
var truthyValues = map[string]bool{
	"true": true, "1": true, "yes": true, "active": true, "on": true,
}

// ResolveColumns maps canonical fields to source column positions, resolved
// once per file. Matching is case-sensitive on the label; when no exact
// match is found it falls back to a comparison with byte-order-mark and
// surrounding whitespace stripped.
func ResolveColumns(header []string, def Definition) (map[string]int, error) {
	stripped := make([]string, len(header))
	for i, h := range header {
		stripped[i] = strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))
	}

	cols := make(map[string]int, len(def.Fields))
	for _, spec := range def.Fields {
		pos := -1
		for _, label := range spec.Labels {
			for i, h := range header {
				if h == label {
					pos = i
					break
				}
			}
			if pos < 0 {
				for i, h := range stripped {
					if h == label {
						pos = i
						break
					}
				}
			}
			if pos >= 0 {
				break
			}
		}
		if pos >= 0 {
			cols[spec.Field] = pos
		}
	}

	if len(cols) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("no recognizable %s columns in header", def.Label)}
	}
	return cols, nil
}

// MapRow produces a CanonicalRow from one raw record. line is the 1-based
// data row number. A non-nil FieldError is a hard conversion failure; the
// row is excluded from schema validation and reported immediately.
//
// Soft normalization failures (a date in an unknown shape) keep the raw
// value in place so the validator reports them as invalid values.
func MapRow(raw []string, line int, cols map[string]int, def Definition) (CanonicalRow, *FieldError) {
	values := make(map[string]string, len(def.Fields))

	for _, spec := range def.Fields {
		cell := ""
		if pos, ok := cols[spec.Field]; ok && pos < len(raw) {
			cell = cleanCell(raw[pos])
		}
		if cell == "" {
			cell = spec.Default
		}

		switch spec.Type {
		case FieldDate:
			if cell != "" {
				if norm, ok := NormalizeDate(cell); ok {
					cell = norm
				}
			}
		case FieldBool:
			cell = strconv.FormatBool(Truthy(cell))
		case FieldEnum:
			for _, ev := range spec.EnumValues {
				if strings.EqualFold(cell, ev) {
					cell = ev
					break
				}
			}
		}

		if cell != "" {
			values[spec.Field] = cell
		}
	}

	row := CanonicalRow{Line: line, Kind: def.Kind, Values: values}

	if def.Normalize != nil {
		if fe := def.Normalize(&row); fe != nil {
			fe.Row = line
			fe.Stage = StageConversion
			return row, fe
		}
	}
	return row, nil
}

// NormalizeDate rewrites a date into canonical YYYY-MM-DD form. Accepted
// shapes are canonical YYYY-MM-DD and D/M/YYYY with 1-2 digit day and month.
func NormalizeDate(s string) (string, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), true
	}
	if t, err := time.Parse("2/1/2006", s); err == nil {
		return t.Format("2006-01-02"), true
	}
	return s, false
}

// Truthy reports whether a raw cell represents true:
// case-insensitive true/1/yes/active/on. Anything else is false.
func Truthy(s string) bool {
	return truthyValues[strings.ToLower(strings.TrimSpace(s))]
}

// ParseNumber parses a numeric cell, tolerating thousands separators.
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	return strconv.ParseFloat(s, 64)
}

// QuantizeHours snaps an hour value to the nearest 15 minutes.
func QuantizeHours(h float64) float64 {
	minutes := math.Round(h*60.0/15.0) * 15.0
	return minutes / 60.0
}

// FormatHours renders an hour value without trailing zeros.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
