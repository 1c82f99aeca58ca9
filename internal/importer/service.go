package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/worklog/importer/internal/store"
)

// Service is the import pipeline facade used by the transport layer.
type Service struct {
	st          store.Store
	executor    *Executor
	previewRows int
}

// NewService creates a Service against the given store. previewRows is how
// many canonical rows validation reports preview.
func NewService(st store.Store, previewRows int) *Service {
	if previewRows < 0 {
		previewRows = 0
	}
	return &Service{
		st:          st,
		executor:    NewExecutor(st),
		previewRows: previewRows,
	}
}

// FieldProblem is one field-level error in the validation report.
type FieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// RowProblems groups a row's field errors.
type RowProblems struct {
	RowNumber int            `json:"rowNumber"`
	Errors    []FieldProblem `json:"errors"`
}

// ValidationReport is the full outcome of validating one file.
type ValidationReport struct {
	TotalRows     int                 `json:"totalRows"`
	ValidRows     int                 `json:"validRows"`
	ErrorRows     int                 `json:"errorRows"`
	DuplicateRows int                 `json:"duplicateRows"`
	Errors        []RowProblems       `json:"errors"`
	Duplicates    []DuplicateRecord   `json:"duplicates"`
	Preview       []map[string]string `json:"preview"`
}

// ExecutionResult is returned from Execute.
type ExecutionResult struct {
	ImportID    uuid.UUID `json:"importId"`
	TotalRows   int       `json:"totalRows"`
	SuccessRows int       `json:"successRows"`
	ErrorRows   int       `json:"errorRows"`
	Status      RunStatus `json:"status"`
	Message     string    `json:"message"`
}

// preparedFile is the shared outcome of mapping and validating a file.
// Running it twice on the same file and store state yields identical output.
type preparedFile struct {
	def       Definition
	totalRows int
	validRows []CanonicalRow
	problems  []RowProblems
	preview   []map[string]string
}

// prepare parses, maps, and validates a file for one entity kind.
func (s *Service) prepare(kind EntityKind, fileName string, data []byte) (*preparedFile, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}

	records, err := ReadRecords(fileName, data)
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, &ParseError{Err: fmt.Errorf("no data rows after header")}
	}

	cols, err := ResolveColumns(records[0], def)
	if err != nil {
		return nil, err
	}

	validator := NewValidator(def)
	prep := &preparedFile{def: def}

	for i, raw := range records[1:] {
		line := i + 1 // 1-based data row number, header excluded
		if isEmptyRow(raw) {
			continue
		}
		prep.totalRows++

		row, convErr := MapRow(raw, line, cols, def)
		if convErr != nil {
			prep.problems = append(prep.problems, RowProblems{
				RowNumber: line,
				Errors:    []FieldProblem{{Field: convErr.Field, Message: convErr.Message, Value: convErr.Value}},
			})
			continue
		}

		if len(prep.preview) < s.previewRows {
			prep.preview = append(prep.preview, row.Values)
		}

		if errs := validator.ValidateRow(row); len(errs) > 0 {
			problems := make([]FieldProblem, len(errs))
			for j, fe := range errs {
				problems[j] = FieldProblem{Field: fe.Field, Message: fe.Message, Value: fe.Value}
			}
			prep.problems = append(prep.problems, RowProblems{RowNumber: line, Errors: problems})
			continue
		}

		prep.validRows = append(prep.validRows, row)
	}

	sort.Slice(prep.problems, func(i, j int) bool {
		return prep.problems[i].RowNumber < prep.problems[j].RowNumber
	})
	return prep, nil
}

// Validate maps and validates a file and cross-references the store for
// duplicates, without writing anything.
func (s *Service) Validate(ctx context.Context, kind EntityKind, fileName string, data []byte) (*ValidationReport, error) {
	prep, err := s.prepare(kind, fileName, data)
	if err != nil {
		return nil, err
	}

	dups, err := DetectDuplicates(ctx, s.st, prep.def, prep.validRows)
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{
		TotalRows:     prep.totalRows,
		ValidRows:     len(prep.validRows),
		ErrorRows:     len(prep.problems),
		DuplicateRows: len(dups),
		Errors:        prep.problems,
		Duplicates:    dups,
		Preview:       prep.preview,
	}
	if report.Errors == nil {
		report.Errors = []RowProblems{}
	}
	if report.Duplicates == nil {
		report.Duplicates = []DuplicateRecord{}
	}
	if report.Preview == nil {
		report.Preview = []map[string]string{}
	}
	return report, nil
}

// Execute re-validates the file, resolves the caller's decisions into an
// execution plan, and commits it. Rows that fail validation are excluded
// from the run and reported only in the response message; only
// execution-time failures are persisted to the audit trail.
func (s *Service) Execute(ctx context.Context, kind EntityKind, fileName string, data []byte, decisions map[int]Decision, actorID string) (*ExecutionResult, error) {
	prep, err := s.prepare(kind, fileName, data)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(prep.validRows, decisions)

	result, err := s.executor.Run(ctx, prep.def, plan, fileName, actorID)
	if err != nil {
		return nil, err
	}

	skipped := 0
	for _, p := range plan {
		if p.Action == ActionSkip {
			skipped++
		}
	}

	msg := fmt.Sprintf("imported %d of %d rows", result.SuccessRows, result.TotalRows)
	if skipped > 0 {
		msg += fmt.Sprintf(", %d skipped by decision", skipped)
	}
	if n := len(prep.problems); n > 0 {
		msg += fmt.Sprintf(", %d rows excluded by validation", n)
	}

	return &ExecutionResult{
		ImportID:    result.ImportID,
		TotalRows:   result.TotalRows,
		SuccessRows: result.SuccessRows,
		ErrorRows:   result.ErrorRows,
		Status:      result.Status,
		Message:     msg,
	}, nil
}

// Runs returns the audit trail newest-first, plus the total run count.
func (s *Service) Runs(ctx context.Context, limit, offset int) ([]store.ImportRun, int, error) {
	runs, err := s.st.ImportRuns().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.st.ImportRuns().Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// Run fetches one ImportRun with its row errors.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*store.ImportRun, error) {
	return s.st.ImportRuns().Get(ctx, id)
}

// TemplateCSV renders a sample file for one entity kind: the exact header
// labels the mapper accepts, with no data rows.
func (s *Service) TemplateCSV(kind EntityKind) ([]byte, error) {
	def, ok := Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown entity kind: %s", kind)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(def.HeaderLabels()); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
