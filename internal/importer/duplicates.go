package importer

// duplicates.go cross-references schema-valid rows against the store by
// each kind's natural keys. Key values are collected across the whole batch
// and fetched with one query per key type; each row then probes the
// in-memory index. Only batch-vs-store collisions are detected here: two
// rows in the same file sharing a key surface later, at execution time.

import (
	"context"
	"fmt"
	"sort"

	"github.com/worklog/importer/internal/store"
)

// DetectDuplicates returns one DuplicateRecord per row whose natural key
// already exists in the store. ExistingData is a snapshot taken now; it is
// not re-read before execution.
func DetectDuplicates(ctx context.Context, st store.Store, def Definition, rows []CanonicalRow) ([]DuplicateRecord, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	matches, err := def.FindExisting(ctx, st, rows)
	if err != nil {
		return nil, fmt.Errorf("find existing %s records: %w", def.Label, err)
	}

	dups := make([]DuplicateRecord, 0, len(matches))
	for _, row := range rows {
		m, ok := matches[row.Line]
		if !ok {
			continue
		}
		dups = append(dups, DuplicateRecord{
			RowNumber:      row.Line,
			NewData:        row.Values,
			ExistingData:   m.Existing,
			ConflictFields: m.ConflictFields,
		})
	}

	sort.Slice(dups, func(i, j int) bool {
		return dups[i].RowNumber < dups[j].RowNumber
	})
	return dups, nil
}
