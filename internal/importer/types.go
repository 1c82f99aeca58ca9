// Package importer implements the import reconciliation pipeline: raw
// tabular rows are mapped to canonical records, validated against per-kind
// rules, cross-checked against the store for duplicates, and committed with
// per-row isolation and an auditable outcome log.
package importer

import (
	"context"

	"github.com/worklog/importer/internal/store"
)

// EntityKind identifies which business record a file imports.
type EntityKind string

const (
	KindPerson       EntityKind = "PERSON"
	KindProject      EntityKind = "PROJECT"
	KindTaskCategory EntityKind = "TASK_CATEGORY"
	KindTimeEntry    EntityKind = "TIME_ENTRY"
)

// FieldType is the expected data type of a canonical field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumber
	FieldBool
)

// FieldSpec declares one canonical field: how source columns map onto it and
// which declarative rules the validator applies.
type FieldSpec struct {
	// Field is the canonical field name.
	Field string
	// Labels are the acceptable CSV header labels; the first is the label
	// used when generating sample templates.
	Labels []string
	Type   FieldType
	// Required marks the field as mandatory per row.
	Required bool
	// EnumValues are the allowed values for FieldEnum.
	EnumValues []string
	// Default is substituted when the cell is absent or empty.
	Default string
	// Min and Max bound FieldNumber values when set.
	Min *float64
	Max *float64
}

// CanonicalRow is one source row normalized into the canonical field schema,
// tagged with its 1-based data row number. Immutable once produced by the
// mapper.
type CanonicalRow struct {
	Line   int
	Kind   EntityKind
	Values map[string]string
}

// Get returns the canonical field value, or "" when absent.
func (r CanonicalRow) Get(field string) string {
	return r.Values[field]
}

// Has reports whether the field carries a non-empty value.
func (r CanonicalRow) Has(field string) bool {
	return r.Values[field] != ""
}

// DuplicateRecord flags a row whose natural key already exists in the store.
// ExistingData is a snapshot taken at detection time; it is not re-read at
// execution time.
type DuplicateRecord struct {
	RowNumber      int               `json:"rowNumber"`
	NewData        map[string]string `json:"newData"`
	ExistingData   map[string]string `json:"existingData"`
	ConflictFields []string          `json:"conflictFields"`
}

// Match is one existing-record hit produced by a kind's FindExisting hook.
type Match struct {
	Existing       map[string]string
	ConflictFields []string
}

// NormalizeFunc is a kind-specific normalization hook run by the mapper
// after field-level normalization. A non-nil FieldError is a hard
// conversion failure: the row is excluded from schema validation.
type NormalizeFunc func(row *CanonicalRow) *FieldError

// ApplyFunc writes one row inside a transaction: unconditionally delete any
// record matching the row's natural key, then insert, plus any side records
// the kind materializes. replace reflects the caller's decision; the delete
// happens either way.
type ApplyFunc func(ctx context.Context, st store.Store, row CanonicalRow, replace bool) error

// FindExistingFunc cross-references a batch of schema-valid rows against
// the store by natural key, with batched lookups. The result maps row
// numbers to their existing-record match.
type FindExistingFunc func(ctx context.Context, st store.Store, rows []CanonicalRow) (map[int]Match, error)

// Definition contains everything the pipeline needs to process one entity
// kind.
type Definition struct {
	Kind  EntityKind
	Label string
	// Fields drive header mapping, normalization, and validation.
	Fields []FieldSpec
	// NaturalKey names the canonical fields that identify a record for
	// deduplication.
	NaturalKey []string

	Normalize    NormalizeFunc
	FindExisting FindExistingFunc
	Apply        ApplyFunc

	// CoarseKey derives the key the executor tracks to attribute uniqueness
	// violations to in-file duplicates. Sub-dimensions such as the time
	// entry's task category are excluded.
	CoarseKey func(row CanonicalRow) string
}

// HeaderLabels returns the template header labels in field order.
func (d Definition) HeaderLabels() []string {
	labels := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		labels[i] = f.Labels[0]
	}
	return labels
}
