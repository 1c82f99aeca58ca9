// Package kinds registers the entity kind definitions with the importer
// registry. Import it for side effects from main.
package kinds

import (
	"time"
)

// parseDate converts a canonical YYYY-MM-DD value. The mapper guarantees
// the shape for rows that passed validation.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func f64(v float64) *float64 { return &v }
