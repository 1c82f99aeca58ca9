package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type pgTimeEntries struct {
	q DBTX
}

const timeEntryColumns = `id, person_id, project_id, task_category_id, entry_date, hours, status, description, created_at`

func (r *pgTimeEntries) ByKeys(ctx context.Context, keys []TimeEntryKey) ([]TimeEntry, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	// One query for the whole batch: unnest the key columns in parallel.
	personIDs := make([]uuid.UUID, len(keys))
	projectIDs := make([]uuid.UUID, len(keys))
	dates := make([]string, len(keys))
	for i, k := range keys {
		personIDs[i] = k.PersonID
		projectIDs[i] = k.ProjectID
		dates[i] = k.EntryDate.Format("2006-01-02")
	}

	rows, err := r.q.Query(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries
		 WHERE (person_id, project_id, entry_date) IN (
		   SELECT * FROM unnest($1::uuid[], $2::uuid[], $3::date[])
		 )`,
		personIDs, projectIDs, dates)
	if err != nil {
		return nil, fmt.Errorf("query time entries by keys: %w", err)
	}
	defer rows.Close()

	var out []TimeEntry
	for rows.Next() {
		var e TimeEntry
		if err := rows.Scan(&e.ID, &e.PersonID, &e.ProjectID, &e.TaskCategoryID,
			&e.EntryDate, &e.Hours, &e.Status, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *pgTimeEntries) DeleteByKey(ctx context.Context, key TimeEntryKey) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM time_entries WHERE person_id = $1 AND project_id = $2 AND entry_date = $3`,
		key.PersonID, key.ProjectID, key.EntryDate.Format("2006-01-02"))
	if err != nil {
		return fmt.Errorf("delete time entry by key: %w", err)
	}
	return nil
}

func (r *pgTimeEntries) Insert(ctx context.Context, e TimeEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO time_entries (id, person_id, project_id, task_category_id, entry_date, hours, status, description)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.PersonID, e.ProjectID, e.TaskCategoryID,
		e.EntryDate.Format("2006-01-02"), e.Hours, e.Status, e.Description)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *pgTimeEntries) InsertApproval(ctx context.Context, a Approval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO time_entry_approvals (id, time_entry_id, status, approver, decided_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.TimeEntryID, a.Status, a.Approver, a.DecidedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}
