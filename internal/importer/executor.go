package importer

// executor.go commits an execution plan row by row. Each row is one
// transaction (delete + insert + any side records), failures are local to
// their row, and every outcome ends up in the ImportRun audit record.

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/worklog/importer/internal/logging"
	"github.com/worklog/importer/internal/store"
)

// RunStatus is the state of an ImportRun. PROCESSING transitions exactly
// once, to SUCCESS, PARTIAL, or FAILED.
type RunStatus string

const (
	StatusProcessing RunStatus = "PROCESSING"
	StatusSuccess    RunStatus = "SUCCESS"
	StatusPartial    RunStatus = "PARTIAL"
	StatusFailed     RunStatus = "FAILED"
)

// RunResult is the outcome of one executed plan. Rows skipped by operator
// decision are excluded from TotalRows, so SuccessRows+ErrorRows always
// equals TotalRows.
type RunResult struct {
	ImportID    uuid.UUID
	TotalRows   int
	SuccessRows int
	ErrorRows   int
	Status      RunStatus
}

// Executor owns the ImportRun lifecycle.
type Executor struct {
	st store.Store
}

// NewExecutor creates an executor against the given store.
func NewExecutor(st store.Store) *Executor {
	return &Executor{st: st}
}

// Run creates an ImportRun, applies the plan sequentially, and finalizes
// the run with its counts and terminal status. Row-scoped failures are
// persisted as ImportRowErrors and do not stop the loop; only store-level
// faults (audit writes failing) abort the run.
func (e *Executor) Run(ctx context.Context, def Definition, plan []PlannedRow, fileName, actorID string) (*RunResult, error) {
	runID := uuid.New()
	startedAt := time.Now().UTC()

	logger := logging.WithFields(ctx, "import_id", runID.String(), "kind", string(def.Kind))

	err := e.st.ImportRuns().Create(ctx, store.ImportRun{
		ID:         runID,
		EntityKind: string(def.Kind),
		ActorID:    actorID,
		FileName:   fileName,
		Status:     string(StatusProcessing),
		StartedAt:  startedAt,
	})
	if err != nil {
		return nil, err
	}

	var successRows, errorRows int
	// Coarse keys already written by this run, for attributing uniqueness
	// violations to in-file duplicates.
	seenKeys := make(map[string]bool)

	for _, planned := range plan {
		if planned.Action == ActionSkip {
			continue
		}
		row := planned.Row

		applyErr := e.st.WithTx(ctx, func(tx store.Store) error {
			return def.Apply(ctx, tx, row, planned.Replace)
		})

		if applyErr != nil {
			applyErr = e.classify(applyErr, def, row, seenKeys)
			logger.Warn("row failed", "row", row.Line, "error", applyErr)

			rowErr := store.ImportRowError{
				ImportRunID: runID,
				RowNumber:   row.Line,
				Message:     applyErr.Error(),
			}
			if err := e.st.ImportRuns().AddRowError(ctx, rowErr); err != nil {
				return nil, err
			}
			errorRows++
			continue
		}

		if def.CoarseKey != nil {
			seenKeys[def.CoarseKey(row)] = true
		}
		successRows++
	}

	totalRows := successRows + errorRows
	status := StatusSuccess
	switch {
	case errorRows == 0:
		status = StatusSuccess
	case successRows > 0:
		status = StatusPartial
	default:
		status = StatusFailed
	}

	endedAt := time.Now().UTC()
	if err := e.st.ImportRuns().Finish(ctx, runID, totalRows, successRows, errorRows, string(status), endedAt); err != nil {
		return nil, err
	}

	logger.Info("import finished",
		"status", string(status),
		"total", totalRows,
		"success", successRows,
		"errors", errorRows,
	)

	return &RunResult{
		ImportID:    runID,
		TotalRows:   totalRows,
		SuccessRows: successRows,
		ErrorRows:   errorRows,
		Status:      status,
	}, nil
}

// classify maps store-level uniqueness violations to the pipeline's
// UniquenessError, distinguishing in-file duplicates from conflicts with
// stored data by whether this run already wrote the row's coarse key.
func (e *Executor) classify(err error, def Definition, row CanonicalRow, seenKeys map[string]bool) error {
	var uv *store.UniqueViolationError
	if !errors.As(err, &uv) {
		return err
	}

	key := ""
	if def.CoarseKey != nil {
		key = def.CoarseKey(row)
	}
	return &UniquenessError{Key: key, InFile: seenKeys[key]}
}
