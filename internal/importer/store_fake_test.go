package importer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/worklog/importer/internal/store"
)

// fakeStore is an in-memory store.Store for pipeline tests. Only the audit
// trail does real bookkeeping; entity repositories are exercised through
// definition hooks, which the tests stub directly.
type fakeStore struct {
	runs *fakeImportRuns
}

func newFakeStore() *fakeStore {
	return &fakeStore{runs: &fakeImportRuns{byID: make(map[uuid.UUID]*store.ImportRun)}}
}

func (f *fakeStore) People() store.People                 { return nil }
func (f *fakeStore) Projects() store.Projects             { return nil }
func (f *fakeStore) TaskCategories() store.TaskCategories { return nil }
func (f *fakeStore) TimeEntries() store.TimeEntries       { return nil }
func (f *fakeStore) ImportRuns() store.ImportRuns         { return f.runs }

func (f *fakeStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(f)
}

type fakeImportRuns struct {
	byID  map[uuid.UUID]*store.ImportRun
	order []uuid.UUID
}

func (f *fakeImportRuns) Create(ctx context.Context, run store.ImportRun) error {
	r := run
	f.byID[run.ID] = &r
	f.order = append(f.order, run.ID)
	return nil
}

func (f *fakeImportRuns) Finish(ctx context.Context, id uuid.UUID, total, success, errorCount int, status string, endedAt time.Time) error {
	run, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	if run.Status != string(StatusProcessing) {
		return fmt.Errorf("import run %s already finished", id)
	}
	run.TotalRows = total
	run.SuccessRows = success
	run.ErrorRows = errorCount
	run.Status = status
	run.EndedAt = &endedAt
	return nil
}

func (f *fakeImportRuns) AddRowError(ctx context.Context, e store.ImportRowError) error {
	run, ok := f.byID[e.ImportRunID]
	if !ok {
		return store.ErrNotFound
	}
	run.RowErrors = append(run.RowErrors, e)
	return nil
}

func (f *fakeImportRuns) List(ctx context.Context, limit, offset int) ([]store.ImportRun, error) {
	runs := make([]store.ImportRun, 0, len(f.byID))
	for _, id := range f.order {
		runs = append(runs, *f.byID[id])
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if offset >= len(runs) {
		return nil, nil
	}
	runs = runs[offset:]
	if limit < len(runs) {
		runs = runs[:limit]
	}
	return runs, nil
}

func (f *fakeImportRuns) Get(ctx context.Context, id uuid.UUID) (*store.ImportRun, error) {
	run, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r := *run
	return &r, nil
}

func (f *fakeImportRuns) Count(ctx context.Context) (int, error) {
	return len(f.byID), nil
}
