package importer

// resolver.go maps caller decisions onto an execution plan. It is a pure
// function: decisions are trusted as given and never cross-checked against
// the duplicate list, and it does not distinguish replace from plain insert
// because the executor's delete-then-insert handles both identically.

// Decision is the caller's resolution for one duplicate-flagged row.
type Decision string

const (
	DecisionSkip    Decision = "skip"
	DecisionReplace Decision = "replace"
)

// Action is what the executor does with a planned row.
type Action string

const (
	ActionSkip   Action = "SKIP"
	ActionUpsert Action = "UPSERT"
)

// PlannedRow is one entry of the execution plan.
type PlannedRow struct {
	Row    CanonicalRow
	Action Action
	// Replace records that the caller explicitly chose replace. The
	// executor's natural-key delete is unconditional either way.
	Replace bool
}

// BuildPlan turns rows and decisions into an ordered execution plan. A row
// is skipped if its row number has a skip decision, whether or not it was
// flagged duplicate; every other row proceeds as an upsert.
func BuildPlan(rows []CanonicalRow, decisions map[int]Decision) []PlannedRow {
	plan := make([]PlannedRow, 0, len(rows))
	for _, row := range rows {
		switch decisions[row.Line] {
		case DecisionSkip:
			plan = append(plan, PlannedRow{Row: row, Action: ActionSkip})
		case DecisionReplace:
			plan = append(plan, PlannedRow{Row: row, Action: ActionUpsert, Replace: true})
		default:
			plan = append(plan, PlannedRow{Row: row, Action: ActionUpsert})
		}
	}
	return plan
}
