package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type pgPeople struct {
	q DBTX
}

const personColumns = `id, employee_id, first_name, last_name, email, role, start_date, active, created_at`

func (r *pgPeople) ByEmployeeIDs(ctx context.Context, ids []string) ([]Person, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+personColumns+` FROM people WHERE employee_id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query people by employee ids: %w", err)
	}
	defer rows.Close()
	return scanPeople(rows)
}

func (r *pgPeople) ByEmails(ctx context.Context, emails []string) ([]Person, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+personColumns+` FROM people WHERE email = ANY($1)`, emails)
	if err != nil {
		return nil, fmt.Errorf("query people by emails: %w", err)
	}
	defer rows.Close()
	return scanPeople(rows)
}

func (r *pgPeople) ByEmployeeID(ctx context.Context, id string) (*Person, error) {
	row := r.q.QueryRow(ctx,
		`SELECT `+personColumns+` FROM people WHERE employee_id = $1`, id)

	var p Person
	err := row.Scan(&p.ID, &p.EmployeeID, &p.FirstName, &p.LastName, &p.Email,
		&p.Role, &p.StartDate, &p.Active, &p.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (r *pgPeople) DeleteByKeys(ctx context.Context, employeeID, email string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM people WHERE employee_id = $1 OR email = $2`, employeeID, email)
	if err != nil {
		return fmt.Errorf("delete people by keys: %w", err)
	}
	return nil
}

func (r *pgPeople) Insert(ctx context.Context, p Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO people (id, employee_id, first_name, last_name, email, role, start_date, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.EmployeeID, p.FirstName, p.LastName, p.Email, p.Role, p.StartDate, p.Active)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func scanPeople(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]Person, error) {
	var out []Person
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.EmployeeID, &p.FirstName, &p.LastName, &p.Email,
			&p.Role, &p.StartDate, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
