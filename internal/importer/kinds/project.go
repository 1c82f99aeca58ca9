package kinds

import (
	"context"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/store"
)

func init() {
	registerProject()
}

func registerProject() {
	importer.Register(importer.Definition{
		Kind:  importer.KindProject,
		Label: "Projects",
		Fields: []importer.FieldSpec{
			{Field: "code", Labels: []string{"Project Code"}, Type: importer.FieldText, Required: true},
			{Field: "name", Labels: []string{"Project Name"}, Type: importer.FieldText, Required: true},
			{Field: "client", Labels: []string{"Client"}, Type: importer.FieldText},
			{Field: "status", Labels: []string{"Status"}, Type: importer.FieldEnum, EnumValues: []string{"planned", "active", "on_hold", "completed", "archived"}, Default: "active"},
			{Field: "startDate", Labels: []string{"Start Date"}, Type: importer.FieldDate},
			{Field: "endDate", Labels: []string{"End Date"}, Type: importer.FieldDate},
		},
		NaturalKey:   []string{"code"},
		FindExisting: findExistingProjects,
		Apply:        applyProject,
		CoarseKey: func(row importer.CanonicalRow) string {
			return "project:" + row.Get("code")
		},
	})
}

func findExistingProjects(ctx context.Context, st store.Store, rows []importer.CanonicalRow) (map[int]importer.Match, error) {
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Has("code") {
			codes = append(codes, row.Get("code"))
		}
	}

	existing, err := st.Projects().ByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	index := make(map[string]store.Project, len(existing))
	for _, p := range existing {
		index[p.Code] = p
	}

	matches := make(map[int]importer.Match)
	for _, row := range rows {
		if p, ok := index[row.Get("code")]; ok {
			matches[row.Line] = importer.Match{
				Existing:       projectSnapshot(p),
				ConflictFields: []string{"code"},
			}
		}
	}
	return matches, nil
}

func applyProject(ctx context.Context, st store.Store, row importer.CanonicalRow, _ bool) error {
	if err := st.Projects().DeleteByCode(ctx, row.Get("code")); err != nil {
		return err
	}

	return st.Projects().Insert(ctx, store.Project{
		Code:      row.Get("code"),
		Name:      row.Get("name"),
		Client:    row.Get("client"),
		Status:    row.Get("status"),
		StartDate: parseDate(row.Get("startDate")),
		EndDate:   parseDate(row.Get("endDate")),
	})
}

func projectSnapshot(p store.Project) map[string]string {
	snap := map[string]string{
		"code":   p.Code,
		"name":   p.Name,
		"client": p.Client,
		"status": p.Status,
	}
	if p.StartDate != nil {
		snap["startDate"] = p.StartDate.Format("2006-01-02")
	}
	if p.EndDate != nil {
		snap["endDate"] = p.EndDate.Format("2006-01-02")
	}
	return snap
}
