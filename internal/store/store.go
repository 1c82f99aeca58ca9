// Package store provides the persistence layer: PostgreSQL-backed
// repositories for the business entities and the import audit trail.
//
// The importer core depends only on the interfaces in this file, which keeps
// the pipeline testable against in-memory fakes and keeps pgx out of the
// business logic.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by single-record lookups with no match.
var ErrNotFound = errors.New("record not found")

// UniqueViolationError reports an insert rejected by a uniqueness constraint.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violated: %s", e.Constraint)
}

// Person is a stored person record. EmployeeID and Email are each unique.
type Person struct {
	ID         uuid.UUID
	EmployeeID string
	FirstName  string
	LastName   string
	Email      string
	Role       string
	StartDate  *time.Time
	Active     bool
	CreatedAt  time.Time
}

// Project is a stored project record. Code is unique.
type Project struct {
	ID        uuid.UUID
	Code      string
	Name      string
	Client    string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
}

// TaskCategory is a stored task category. TaskID is unique.
type TaskCategory struct {
	ID          uuid.UUID
	TaskID      string
	Name        string
	Description string
	Billable    bool
	Active      bool
	CreatedAt   time.Time
}

// TimeEntryKey is the composite natural key of a time entry. The task
// category is intentionally not part of the key.
type TimeEntryKey struct {
	PersonID  uuid.UUID
	ProjectID uuid.UUID
	EntryDate time.Time
}

// TimeEntry is a stored time entry. (PersonID, ProjectID, EntryDate) is
// unique.
type TimeEntry struct {
	ID             uuid.UUID
	PersonID       uuid.UUID
	ProjectID      uuid.UUID
	TaskCategoryID *uuid.UUID
	EntryDate      time.Time
	Hours          float64
	Status         string
	Description    string
	CreatedAt      time.Time
}

// Key returns the entry's composite natural key.
func (e TimeEntry) Key() TimeEntryKey {
	return TimeEntryKey{PersonID: e.PersonID, ProjectID: e.ProjectID, EntryDate: e.EntryDate}
}

// Approval is the approval record materialized alongside submitted or
// approved time entries.
type Approval struct {
	ID          uuid.UUID
	TimeEntryID uuid.UUID
	Status      string
	Approver    string
	DecidedAt   time.Time
}

// ImportRun is the audit record for one execution of the import pipeline.
type ImportRun struct {
	ID          uuid.UUID
	EntityKind  string
	ActorID     string
	FileName    string
	TotalRows   int
	SuccessRows int
	ErrorRows   int
	Status      string
	StartedAt   time.Time
	EndedAt     *time.Time
	RowErrors   []ImportRowError
}

// ImportRowError records one execution-time row failure for an ImportRun.
type ImportRowError struct {
	ID          uuid.UUID
	ImportRunID uuid.UUID
	RowNumber   int
	Message     string
	CreatedAt   time.Time
}

// People is the person repository.
type People interface {
	// ByEmployeeIDs fetches all people whose employee ID is in ids.
	ByEmployeeIDs(ctx context.Context, ids []string) ([]Person, error)
	// ByEmails fetches all people whose email is in emails.
	ByEmails(ctx context.Context, emails []string) ([]Person, error)
	// ByEmployeeID fetches one person, or ErrNotFound.
	ByEmployeeID(ctx context.Context, id string) (*Person, error)
	// DeleteByKeys removes any person matching the employee ID or the email.
	DeleteByKeys(ctx context.Context, employeeID, email string) error
	Insert(ctx context.Context, p Person) error
}

// Projects is the project repository.
type Projects interface {
	ByCodes(ctx context.Context, codes []string) ([]Project, error)
	// ByCode fetches one project, or ErrNotFound.
	ByCode(ctx context.Context, code string) (*Project, error)
	DeleteByCode(ctx context.Context, code string) error
	Insert(ctx context.Context, p Project) error
}

// TaskCategories is the task category repository.
type TaskCategories interface {
	ByTaskIDs(ctx context.Context, ids []string) ([]TaskCategory, error)
	// ByTaskID fetches one task category, or ErrNotFound.
	ByTaskID(ctx context.Context, id string) (*TaskCategory, error)
	DeleteByTaskID(ctx context.Context, id string) error
	Insert(ctx context.Context, tc TaskCategory) error
}

// TimeEntries is the time entry repository.
type TimeEntries interface {
	// ByKeys fetches all entries matching the given composite keys.
	ByKeys(ctx context.Context, keys []TimeEntryKey) ([]TimeEntry, error)
	DeleteByKey(ctx context.Context, key TimeEntryKey) error
	Insert(ctx context.Context, e TimeEntry) error
	InsertApproval(ctx context.Context, a Approval) error
}

// ImportRuns is the audit trail repository.
type ImportRuns interface {
	Create(ctx context.Context, run ImportRun) error
	// Finish records final counts and the terminal status exactly once.
	Finish(ctx context.Context, id uuid.UUID, total, success, errorCount int, status string, endedAt time.Time) error
	AddRowError(ctx context.Context, e ImportRowError) error
	// List returns runs newest-first with nested row errors.
	List(ctx context.Context, limit, offset int) ([]ImportRun, error)
	// Get fetches one run with its row errors, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*ImportRun, error)
	Count(ctx context.Context) (int, error)
}

// Store bundles the repositories and the transactional boundary.
type Store interface {
	People() People
	Projects() Projects
	TaskCategories() TaskCategories
	TimeEntries() TimeEntries
	ImportRuns() ImportRuns

	// WithTx runs fn against a Store bound to a single transaction,
	// committing if fn returns nil and rolling back otherwise. The executor
	// uses this to make each row's delete+insert atomic.
	WithTx(ctx context.Context, fn func(Store) error) error
}
