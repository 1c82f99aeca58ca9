package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type pgTaskCategories struct {
	q DBTX
}

const taskCategoryColumns = `id, task_id, name, description, billable, active, created_at`

func (r *pgTaskCategories) ByTaskIDs(ctx context.Context, ids []string) ([]TaskCategory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+taskCategoryColumns+` FROM task_categories WHERE task_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query task categories by task ids: %w", err)
	}
	defer rows.Close()

	var out []TaskCategory
	for rows.Next() {
		var tc TaskCategory
		if err := rows.Scan(&tc.ID, &tc.TaskID, &tc.Name, &tc.Description,
			&tc.Billable, &tc.Active, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task category: %w", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *pgTaskCategories) ByTaskID(ctx context.Context, id string) (*TaskCategory, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+taskCategoryColumns+` FROM task_categories WHERE task_id = $1`, id)

	var tc TaskCategory
	err := row.Scan(&tc.ID, &tc.TaskID, &tc.Name, &tc.Description,
		&tc.Billable, &tc.Active, &tc.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &tc, nil
}

func (r *pgTaskCategories) DeleteByTaskID(ctx context.Context, id string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM task_categories WHERE task_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task category by task id: %w", err)
	}
	return nil
}

func (r *pgTaskCategories) Insert(ctx context.Context, tc TaskCategory) error {
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO task_categories (id, task_id, name, description, billable, active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		tc.ID, tc.TaskID, tc.Name, tc.Description, tc.Billable, tc.Active)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}
