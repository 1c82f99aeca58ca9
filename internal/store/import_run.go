package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type pgImportRuns struct {
	q DBTX
}

func (r *pgImportRuns) Create(ctx context.Context, run ImportRun) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO import_runs (id, entity_kind, actor_id, file_name, total_rows, success_rows, error_rows, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID, run.EntityKind, run.ActorID, run.FileName,
		run.TotalRows, run.SuccessRows, run.ErrorRows, run.Status, run.StartedAt)
	if err != nil {
		return fmt.Errorf("create import run: %w", err)
	}
	return nil
}

func (r *pgImportRuns) Finish(ctx context.Context, id uuid.UUID, total, success, errorCount int, status string, endedAt time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE import_runs
		 SET total_rows = $2, success_rows = $3, error_rows = $4, status = $5, ended_at = $6
		 WHERE id = $1 AND status = 'PROCESSING'`,
		id, total, success, errorCount, status, endedAt)
	if err != nil {
		return fmt.Errorf("finish import run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish import run %s: run not found or already finished", id)
	}
	return nil
}

func (r *pgImportRuns) AddRowError(ctx context.Context, e ImportRowError) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO import_row_errors (id, import_run_id, row_number, message)
		 VALUES ($1, $2, $3, $4)`,
		e.ID, e.ImportRunID, e.RowNumber, e.Message)
	if err != nil {
		return fmt.Errorf("add import row error: %w", err)
	}
	return nil
}

const importRunColumns = `id, entity_kind, actor_id, file_name, total_rows, success_rows, error_rows, status, started_at, ended_at`

func (r *pgImportRuns) List(ctx context.Context, limit, offset int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+importRunColumns+` FROM import_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		run, err := scanImportRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		if err := r.loadRowErrors(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *pgImportRuns) Get(ctx context.Context, id uuid.UUID) (*ImportRun, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id)

	var run ImportRun
	err := row.Scan(&run.ID, &run.EntityKind, &run.ActorID, &run.FileName,
		&run.TotalRows, &run.SuccessRows, &run.ErrorRows, &run.Status,
		&run.StartedAt, &run.EndedAt)
	if err != nil {
		return nil, mapPgError(err)
	}

	if err := r.loadRowErrors(ctx, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *pgImportRuns) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM import_runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count import runs: %w", err)
	}
	return n, nil
}

func (r *pgImportRuns) loadRowErrors(ctx context.Context, run *ImportRun) error {
	rows, err := r.q.Query(ctx,
		`SELECT id, import_run_id, row_number, message, created_at
		 FROM import_row_errors
		 WHERE import_run_id = $1
		 ORDER BY row_number`, run.ID)
	if err != nil {
		return fmt.Errorf("load import row errors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e ImportRowError
		if err := rows.Scan(&e.ID, &e.ImportRunID, &e.RowNumber, &e.Message, &e.CreatedAt); err != nil {
			return fmt.Errorf("scan import row error: %w", err)
		}
		run.RowErrors = append(run.RowErrors, e)
	}
	return rows.Err()
}

func scanImportRun(rows interface{ Scan(...any) error }) (ImportRun, error) {
	var run ImportRun
	err := rows.Scan(&run.ID, &run.EntityKind, &run.ActorID, &run.FileName,
		&run.TotalRows, &run.SuccessRows, &run.ErrorRows, &run.Status,
		&run.StartedAt, &run.EndedAt)
	if err != nil {
		return run, fmt.Errorf("scan import run: %w", err)
	}
	return run, nil
}
