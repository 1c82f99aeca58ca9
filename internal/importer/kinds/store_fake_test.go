package kinds

import (
	"context"

	"github.com/google/uuid"

	"github.com/worklog/importer/internal/store"
)

// fakeStore is an in-memory store.Store mirroring the PostgreSQL layer's
// behavior: inserts generate IDs, key collisions surface as
// UniqueViolationError, and single-record lookups return ErrNotFound.
type fakeStore struct {
	people    []store.Person
	projects  []store.Project
	tasks     []store.TaskCategory
	entries   []store.TimeEntry
	approvals []store.Approval
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) People() store.People                 { return (*fakePeople)(f) }
func (f *fakeStore) Projects() store.Projects             { return (*fakeProjects)(f) }
func (f *fakeStore) TaskCategories() store.TaskCategories { return (*fakeTaskCategories)(f) }
func (f *fakeStore) TimeEntries() store.TimeEntries       { return (*fakeTimeEntries)(f) }
func (f *fakeStore) ImportRuns() store.ImportRuns         { return nil }

func (f *fakeStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(f)
}

type fakePeople fakeStore

func (f *fakePeople) ByEmployeeIDs(ctx context.Context, ids []string) ([]store.Person, error) {
	want := toSet(ids)
	var out []store.Person
	for _, p := range f.people {
		if want[p.EmployeeID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeople) ByEmails(ctx context.Context, emails []string) ([]store.Person, error) {
	want := toSet(emails)
	var out []store.Person
	for _, p := range f.people {
		if want[p.Email] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeople) ByEmployeeID(ctx context.Context, id string) (*store.Person, error) {
	for _, p := range f.people {
		if p.EmployeeID == id {
			out := p
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakePeople) DeleteByKeys(ctx context.Context, employeeID, email string) error {
	kept := f.people[:0]
	for _, p := range f.people {
		if p.EmployeeID == employeeID || p.Email == email {
			continue
		}
		kept = append(kept, p)
	}
	f.people = kept
	return nil
}

func (f *fakePeople) Insert(ctx context.Context, p store.Person) error {
	for _, existing := range f.people {
		if existing.EmployeeID == p.EmployeeID {
			return &store.UniqueViolationError{Constraint: "people_employee_id_key"}
		}
		if existing.Email == p.Email {
			return &store.UniqueViolationError{Constraint: "people_email_key"}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.people = append(f.people, p)
	return nil
}

type fakeProjects fakeStore

func (f *fakeProjects) ByCodes(ctx context.Context, codes []string) ([]store.Project, error) {
	want := toSet(codes)
	var out []store.Project
	for _, p := range f.projects {
		if want[p.Code] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProjects) ByCode(ctx context.Context, code string) (*store.Project, error) {
	for _, p := range f.projects {
		if p.Code == code {
			out := p
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeProjects) DeleteByCode(ctx context.Context, code string) error {
	kept := f.projects[:0]
	for _, p := range f.projects {
		if p.Code != code {
			kept = append(kept, p)
		}
	}
	f.projects = kept
	return nil
}

func (f *fakeProjects) Insert(ctx context.Context, p store.Project) error {
	for _, existing := range f.projects {
		if existing.Code == p.Code {
			return &store.UniqueViolationError{Constraint: "projects_code_key"}
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.projects = append(f.projects, p)
	return nil
}

type fakeTaskCategories fakeStore

func (f *fakeTaskCategories) ByTaskIDs(ctx context.Context, ids []string) ([]store.TaskCategory, error) {
	want := toSet(ids)
	var out []store.TaskCategory
	for _, tc := range f.tasks {
		if want[tc.TaskID] {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (f *fakeTaskCategories) ByTaskID(ctx context.Context, id string) (*store.TaskCategory, error) {
	for _, tc := range f.tasks {
		if tc.TaskID == id {
			out := tc
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeTaskCategories) DeleteByTaskID(ctx context.Context, id string) error {
	kept := f.tasks[:0]
	for _, tc := range f.tasks {
		if tc.TaskID != id {
			kept = append(kept, tc)
		}
	}
	f.tasks = kept
	return nil
}

func (f *fakeTaskCategories) Insert(ctx context.Context, tc store.TaskCategory) error {
	for _, existing := range f.tasks {
		if existing.TaskID == tc.TaskID {
			return &store.UniqueViolationError{Constraint: "task_categories_task_id_key"}
		}
	}
	if tc.ID == uuid.Nil {
		tc.ID = uuid.New()
	}
	f.tasks = append(f.tasks, tc)
	return nil
}

type fakeTimeEntries fakeStore

func sameKey(a, b store.TimeEntryKey) bool {
	ay, am, ad := a.EntryDate.Date()
	by, bm, bd := b.EntryDate.Date()
	return a.PersonID == b.PersonID && a.ProjectID == b.ProjectID &&
		ay == by && am == bm && ad == bd
}

func (f *fakeTimeEntries) ByKeys(ctx context.Context, keys []store.TimeEntryKey) ([]store.TimeEntry, error) {
	var out []store.TimeEntry
	for _, e := range f.entries {
		for _, k := range keys {
			if sameKey(e.Key(), k) {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTimeEntries) DeleteByKey(ctx context.Context, key store.TimeEntryKey) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if !sameKey(e.Key(), key) {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeTimeEntries) Insert(ctx context.Context, e store.TimeEntry) error {
	for _, existing := range f.entries {
		if sameKey(existing.Key(), e.Key()) {
			return &store.UniqueViolationError{Constraint: "time_entries_person_project_date_key"}
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeTimeEntries) InsertApproval(ctx context.Context, a store.Approval) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.approvals = append(f.approvals, a)
	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
