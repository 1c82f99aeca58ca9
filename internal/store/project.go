package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type pgProjects struct {
	q DBTX
}

const projectColumns = `id, code, name, client, status, start_date, end_date, created_at`

func (r *pgProjects) ByCodes(ctx context.Context, codes []string) ([]Project, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE code = ANY($1)`, codes)
	if err != nil {
		return nil, fmt.Errorf("query projects by codes: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Client, &p.Status,
			&p.StartDate, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *pgProjects) ByCode(ctx context.Context, code string) (*Project, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE code = $1`, code)

	var p Project
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Client, &p.Status,
		&p.StartDate, &p.EndDate, &p.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (r *pgProjects) DeleteByCode(ctx context.Context, code string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM projects WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete project by code: %w", err)
	}
	return nil
}

func (r *pgProjects) Insert(ctx context.Context, p Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO projects (id, code, name, client, status, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Code, p.Name, p.Client, p.Status, p.StartDate, p.EndDate)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}
