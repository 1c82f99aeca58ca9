package kinds

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/store"
)

// defaultHours is substituted when a time entry row carries neither an
// hours nor a legacy duration value.
const defaultHours = 8.0

// fallbackApprover is recorded on materialized approvals when the row
// designates no real approver.
const fallbackApprover = "system"

func init() {
	registerTimeEntry()
}

func registerTimeEntry() {
	importer.Register(importer.Definition{
		Kind:  importer.KindTimeEntry,
		Label: "Time Entries",
		Fields: []importer.FieldSpec{
			{Field: "employeeId", Labels: []string{"Employee ID"}, Type: importer.FieldText, Required: true},
			{Field: "projectCode", Labels: []string{"Project Code"}, Type: importer.FieldText, Required: true},
			{Field: "taskId", Labels: []string{"Task ID"}, Type: importer.FieldText},
			{Field: "date", Labels: []string{"Date", "Entry Date"}, Type: importer.FieldDate, Required: true},
			{Field: "hours", Labels: []string{"Hours"}, Type: importer.FieldNumber, Required: true, Min: f64(0), Max: f64(24)},
			// Legacy exports carry a Duration column instead of Hours.
			{Field: "duration", Labels: []string{"Duration"}, Type: importer.FieldNumber},
			{Field: "description", Labels: []string{"Description"}, Type: importer.FieldText},
			{Field: "status", Labels: []string{"Status"}, Type: importer.FieldEnum, EnumValues: []string{"draft", "submitted", "approved", "rejected"}, Default: "draft"},
			{Field: "approvedBy", Labels: []string{"Approved By"}, Type: importer.FieldText},
		},
		NaturalKey:   []string{"employeeId", "projectCode", "date"},
		Normalize:    normalizeTimeEntry,
		FindExisting: findExistingTimeEntries,
		Apply:        applyTimeEntry,
		CoarseKey: func(row importer.CanonicalRow) string {
			// Task category is not part of the key.
			return "entry:" + row.Get("employeeId") + "|" + row.Get("projectCode") + "|" + row.Get("date")
		},
	})
}

// normalizeTimeEntry reconciles the two legacy numeric shapes into a single
// quantized hours value. Hours wins over duration when both are present;
// neither present substitutes the 8-hour default. The result is snapped to
// the nearest 15 minutes and must land in (0, 24]; anything else is a hard
// conversion failure.
func normalizeTimeEntry(row *importer.CanonicalRow) *importer.FieldError {
	raw := row.Get("hours")
	field := "hours"
	if raw == "" {
		raw = row.Get("duration")
		field = "duration"
	}

	hours := defaultHours
	if raw != "" {
		n, err := importer.ParseNumber(raw)
		if err != nil {
			return &importer.FieldError{Field: field, Message: "invalid number", Value: raw}
		}
		hours = n
	}

	hours = importer.QuantizeHours(hours)
	if hours <= 0 || hours > 24 {
		return &importer.FieldError{Field: field, Message: "hours must be greater than 0 and at most 24", Value: raw}
	}

	row.Values["hours"] = importer.FormatHours(hours)
	delete(row.Values, "duration")
	return nil
}

// findExistingTimeEntries flags rows colliding on (person, project, date).
// People and projects are resolved in one batched query each; rows whose
// references do not resolve cannot collide and are left for the executor to
// fail with a referential error.
func findExistingTimeEntries(ctx context.Context, st store.Store, rows []importer.CanonicalRow) (map[int]importer.Match, error) {
	employeeIDs := make([]string, 0, len(rows))
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		employeeIDs = append(employeeIDs, row.Get("employeeId"))
		codes = append(codes, row.Get("projectCode"))
	}

	people, err := st.People().ByEmployeeIDs(ctx, employeeIDs)
	if err != nil {
		return nil, err
	}
	projects, err := st.Projects().ByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	peopleByEmployeeID := make(map[string]store.Person, len(people))
	for _, p := range people {
		peopleByEmployeeID[p.EmployeeID] = p
	}
	projectsByCode := make(map[string]store.Project, len(projects))
	for _, p := range projects {
		projectsByCode[p.Code] = p
	}

	type rowKey struct {
		line int
		key  store.TimeEntryKey
	}
	var keys []store.TimeEntryKey
	var rowKeys []rowKey
	for _, row := range rows {
		person, okP := peopleByEmployeeID[row.Get("employeeId")]
		project, okJ := projectsByCode[row.Get("projectCode")]
		date := parseDate(row.Get("date"))
		if !okP || !okJ || date == nil {
			continue
		}
		k := store.TimeEntryKey{PersonID: person.ID, ProjectID: project.ID, EntryDate: *date}
		keys = append(keys, k)
		rowKeys = append(rowKeys, rowKey{line: row.Line, key: k})
	}

	existing, err := st.TimeEntries().ByKeys(ctx, keys)
	if err != nil {
		return nil, err
	}
	index := make(map[store.TimeEntryKey]store.TimeEntry, len(existing))
	for _, e := range existing {
		index[normalizeKey(e.Key())] = e
	}

	matches := make(map[int]importer.Match)
	rowsByLine := make(map[int]importer.CanonicalRow, len(rows))
	for _, row := range rows {
		rowsByLine[row.Line] = row
	}
	for _, rk := range rowKeys {
		e, ok := index[normalizeKey(rk.key)]
		if !ok {
			continue
		}
		row := rowsByLine[rk.line]
		matches[rk.line] = importer.Match{
			Existing:       timeEntrySnapshot(e, row.Get("employeeId"), row.Get("projectCode")),
			ConflictFields: []string{"employeeId", "projectCode", "date"},
		}
	}
	return matches, nil
}

// normalizeKey truncates the date so map probes ignore time-of-day and
// timezone differences in scanned values.
func normalizeKey(k store.TimeEntryKey) store.TimeEntryKey {
	k.EntryDate = time.Date(k.EntryDate.Year(), k.EntryDate.Month(), k.EntryDate.Day(), 0, 0, 0, 0, time.UTC)
	return k
}

// applyTimeEntry writes one time entry row: resolve references, delete any
// entry with the same (person, project, date), insert, and materialize an
// approval for submitted or approved entries.
func applyTimeEntry(ctx context.Context, st store.Store, row importer.CanonicalRow, _ bool) error {
	person, err := st.People().ByEmployeeID(ctx, row.Get("employeeId"))
	if err != nil {
		if err == store.ErrNotFound {
			return &importer.ReferentialError{Field: "employeeId", Value: row.Get("employeeId")}
		}
		return err
	}

	project, err := st.Projects().ByCode(ctx, row.Get("projectCode"))
	if err != nil {
		if err == store.ErrNotFound {
			return &importer.ReferentialError{Field: "projectCode", Value: row.Get("projectCode")}
		}
		return err
	}

	var taskCategoryID *uuid.UUID
	if row.Has("taskId") {
		tc, err := st.TaskCategories().ByTaskID(ctx, row.Get("taskId"))
		if err != nil {
			if err == store.ErrNotFound {
				return &importer.ReferentialError{Field: "taskId", Value: row.Get("taskId")}
			}
			return err
		}
		taskCategoryID = &tc.ID
	}

	date := parseDate(row.Get("date"))
	if date == nil {
		return &importer.ReferentialError{Field: "date", Value: row.Get("date")}
	}

	hours, err := importer.ParseNumber(row.Get("hours"))
	if err != nil {
		return err
	}

	key := store.TimeEntryKey{PersonID: person.ID, ProjectID: project.ID, EntryDate: *date}
	if err := st.TimeEntries().DeleteByKey(ctx, key); err != nil {
		return err
	}

	entry := store.TimeEntry{
		ID:             uuid.New(),
		PersonID:       person.ID,
		ProjectID:      project.ID,
		TaskCategoryID: taskCategoryID,
		EntryDate:      *date,
		Hours:          hours,
		Status:         row.Get("status"),
		Description:    row.Get("description"),
	}
	if err := st.TimeEntries().Insert(ctx, entry); err != nil {
		return err
	}

	if entry.Status == "submitted" || entry.Status == "approved" {
		approver := row.Get("approvedBy")
		if approver == "" {
			approver = fallbackApprover
		}
		return st.TimeEntries().InsertApproval(ctx, store.Approval{
			ID:          uuid.New(),
			TimeEntryID: entry.ID,
			Status:      entry.Status,
			Approver:    approver,
			DecidedAt:   time.Now().UTC(),
		})
	}
	return nil
}

func timeEntrySnapshot(e store.TimeEntry, employeeID, projectCode string) map[string]string {
	return map[string]string{
		"employeeId":  employeeID,
		"projectCode": projectCode,
		"date":        e.EntryDate.Format("2006-01-02"),
		"hours":       importer.FormatHours(e.Hours),
		"status":      e.Status,
		"description": e.Description,
	}
}
