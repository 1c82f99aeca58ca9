package importer

// errors.go defines the pipeline's error taxonomy. Stage errors are plain
// values carried in results, not panics: the mapper and validator report
// per-field problems as FieldError, the executor reports per-row failures
// as tagged error types that it persists to the audit trail.

import "fmt"

// ErrorStage identifies which pipeline stage produced a FieldError.
type ErrorStage string

const (
	// StageConversion marks a raw value that could not be normalized.
	StageConversion ErrorStage = "conversion"
	// StageSchema marks a canonical value that failed declarative rules.
	StageSchema ErrorStage = "schema"
)

// FieldError is a single field-level problem on one row.
type FieldError struct {
	Row     int        `json:"rowNumber"`
	Field   string     `json:"field"`
	Message string     `json:"message"`
	Value   string     `json:"value,omitempty"`
	Stage   ErrorStage `json:"-"`
}

func (e FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d, %s: %s (got %q)", e.Row, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
}

// ParseError means the file could not be tokenized into rows at all.
// It aborts the whole run before any ImportRun record is created.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse file: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ReferentialError means a referenced natural-key entity does not exist at
// execution time. Row-scoped; recorded as an ImportRowError.
type ReferentialError struct {
	Field string
	Value string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s %q does not reference an existing record", e.Field, e.Value)
}

// UniquenessError means the store rejected an insert because a conflicting
// record was still present. InFile distinguishes a likely duplicate within
// the uploaded file from a likely conflict with already-stored data.
type UniquenessError struct {
	Key    string
	InFile bool
}

func (e *UniquenessError) Error() string {
	if e.InFile {
		return fmt.Sprintf("key %q already written by this file (likely duplicate within this file)", e.Key)
	}
	return fmt.Sprintf("key %q conflicts with a stored record (likely conflict with existing stored data)", e.Key)
}
