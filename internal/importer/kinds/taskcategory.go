package kinds

import (
	"context"
	"strconv"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/store"
)

func init() {
	registerTaskCategory()
}

func registerTaskCategory() {
	importer.Register(importer.Definition{
		Kind:  importer.KindTaskCategory,
		Label: "Task Categories",
		Fields: []importer.FieldSpec{
			{Field: "taskId", Labels: []string{"Task ID"}, Type: importer.FieldText, Required: true},
			{Field: "name", Labels: []string{"Task Name"}, Type: importer.FieldText, Required: true},
			{Field: "description", Labels: []string{"Description"}, Type: importer.FieldText},
			{Field: "billable", Labels: []string{"Billable"}, Type: importer.FieldBool, Default: "false"},
			// Task categories are usable immediately unless explicitly disabled.
			{Field: "active", Labels: []string{"Active"}, Type: importer.FieldBool, Default: "true"},
		},
		NaturalKey:   []string{"taskId"},
		FindExisting: findExistingTaskCategories,
		Apply:        applyTaskCategory,
		CoarseKey: func(row importer.CanonicalRow) string {
			return "task:" + row.Get("taskId")
		},
	})
}

func findExistingTaskCategories(ctx context.Context, st store.Store, rows []importer.CanonicalRow) (map[int]importer.Match, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Has("taskId") {
			ids = append(ids, row.Get("taskId"))
		}
	}

	existing, err := st.TaskCategories().ByTaskIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	index := make(map[string]store.TaskCategory, len(existing))
	for _, tc := range existing {
		index[tc.TaskID] = tc
	}

	matches := make(map[int]importer.Match)
	for _, row := range rows {
		if tc, ok := index[row.Get("taskId")]; ok {
			matches[row.Line] = importer.Match{
				Existing:       taskCategorySnapshot(tc),
				ConflictFields: []string{"taskId"},
			}
		}
	}
	return matches, nil
}

func applyTaskCategory(ctx context.Context, st store.Store, row importer.CanonicalRow, _ bool) error {
	if err := st.TaskCategories().DeleteByTaskID(ctx, row.Get("taskId")); err != nil {
		return err
	}

	return st.TaskCategories().Insert(ctx, store.TaskCategory{
		TaskID:      row.Get("taskId"),
		Name:        row.Get("name"),
		Description: row.Get("description"),
		Billable:    row.Get("billable") == "true",
		Active:      row.Get("active") == "true",
	})
}

func taskCategorySnapshot(tc store.TaskCategory) map[string]string {
	return map[string]string{
		"taskId":      tc.TaskID,
		"name":        tc.Name,
		"description": tc.Description,
		"billable":    strconv.FormatBool(tc.Billable),
		"active":      strconv.FormatBool(tc.Active),
	}
}
