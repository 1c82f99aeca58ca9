package kinds

import (
	"context"
	"strconv"

	"github.com/worklog/importer/internal/importer"
	"github.com/worklog/importer/internal/store"
)

func init() {
	registerPerson()
}

func registerPerson() {
	importer.Register(importer.Definition{
		Kind:  importer.KindPerson,
		Label: "People",
		Fields: []importer.FieldSpec{
			{Field: "employeeId", Labels: []string{"Employee ID"}, Type: importer.FieldText, Required: true},
			{Field: "firstName", Labels: []string{"First Name"}, Type: importer.FieldText, Required: true},
			{Field: "lastName", Labels: []string{"Last Name"}, Type: importer.FieldText, Required: true},
			{Field: "email", Labels: []string{"Email", "Email Address"}, Type: importer.FieldText, Required: true},
			{Field: "role", Labels: []string{"Role"}, Type: importer.FieldEnum, EnumValues: []string{"admin", "manager", "employee"}, Default: "employee"},
			{Field: "startDate", Labels: []string{"Start Date"}, Type: importer.FieldDate},
			// People imported from legacy systems are inactive until onboarded.
			{Field: "active", Labels: []string{"Active"}, Type: importer.FieldBool, Default: "false"},
		},
		NaturalKey:   []string{"employeeId", "email"},
		FindExisting: findExistingPeople,
		Apply:        applyPerson,
		CoarseKey: func(row importer.CanonicalRow) string {
			return "person:" + row.Get("employeeId")
		},
	})
}

// findExistingPeople flags rows whose employee ID or email already exists.
// Both key columns are fetched with one query each across the whole batch.
func findExistingPeople(ctx context.Context, st store.Store, rows []importer.CanonicalRow) (map[int]importer.Match, error) {
	ids := make([]string, 0, len(rows))
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.Has("employeeId") {
			ids = append(ids, row.Get("employeeId"))
		}
		if row.Has("email") {
			emails = append(emails, row.Get("email"))
		}
	}

	byID, err := st.People().ByEmployeeIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byEmail, err := st.People().ByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	idIndex := make(map[string]store.Person, len(byID))
	for _, p := range byID {
		idIndex[p.EmployeeID] = p
	}
	emailIndex := make(map[string]store.Person, len(byEmail))
	for _, p := range byEmail {
		emailIndex[p.Email] = p
	}

	matches := make(map[int]importer.Match)
	for _, row := range rows {
		var conflicts []string
		var existing store.Person

		if p, ok := idIndex[row.Get("employeeId")]; ok {
			conflicts = append(conflicts, "employeeId")
			existing = p
		}
		if p, ok := emailIndex[row.Get("email")]; ok {
			conflicts = append(conflicts, "email")
			if len(conflicts) == 1 {
				existing = p
			}
		}

		if len(conflicts) > 0 {
			matches[row.Line] = importer.Match{
				Existing:       personSnapshot(existing),
				ConflictFields: conflicts,
			}
		}
	}
	return matches, nil
}

// applyPerson writes one person row: delete any record matching the
// employee ID or email, then insert.
func applyPerson(ctx context.Context, st store.Store, row importer.CanonicalRow, _ bool) error {
	if err := st.People().DeleteByKeys(ctx, row.Get("employeeId"), row.Get("email")); err != nil {
		return err
	}

	return st.People().Insert(ctx, store.Person{
		EmployeeID: row.Get("employeeId"),
		FirstName:  row.Get("firstName"),
		LastName:   row.Get("lastName"),
		Email:      row.Get("email"),
		Role:       row.Get("role"),
		StartDate:  parseDate(row.Get("startDate")),
		Active:     row.Get("active") == "true",
	})
}

func personSnapshot(p store.Person) map[string]string {
	snap := map[string]string{
		"employeeId": p.EmployeeID,
		"firstName":  p.FirstName,
		"lastName":   p.LastName,
		"email":      p.Email,
		"role":       p.Role,
		"active":     strconv.FormatBool(p.Active),
	}
	if p.StartDate != nil {
		snap["startDate"] = p.StartDate.Format("2006-01-02")
	}
	return snap
}
