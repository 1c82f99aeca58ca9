package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/worklog/importer/internal/store"
)

// executorDef builds a definition whose Apply consults failures by row
// number, recording which rows were applied.
func executorDef(failures map[int]error, applied *[]int) Definition {
	return Definition{
		Kind:  EntityKind("WIDGET"),
		Label: "Widgets",
		Fields: []FieldSpec{
			{Field: "code", Labels: []string{"Widget Code"}, Type: FieldText, Required: true},
		},
		NaturalKey: []string{"code"},
		FindExisting: func(ctx context.Context, st store.Store, rows []CanonicalRow) (map[int]Match, error) {
			return nil, nil
		},
		Apply: func(ctx context.Context, st store.Store, row CanonicalRow, replace bool) error {
			if err, ok := failures[row.Line]; ok {
				return err
			}
			*applied = append(*applied, row.Line)
			return nil
		},
		CoarseKey: func(row CanonicalRow) string {
			return "widget:" + row.Get("code")
		},
	}
}

func planOf(rows ...PlannedRow) []PlannedRow { return rows }

func upsert(line int, code string) PlannedRow {
	return PlannedRow{
		Row:    CanonicalRow{Line: line, Kind: EntityKind("WIDGET"), Values: map[string]string{"code": code}},
		Action: ActionUpsert,
	}
}

func skip(line int, code string) PlannedRow {
	p := upsert(line, code)
	p.Action = ActionSkip
	return p
}

func TestExecutorRunAllSuccess(t *testing.T) {
	st := newFakeStore()
	var applied []int
	def := executorDef(nil, &applied)

	result, err := NewExecutor(st).Run(context.Background(), def, planOf(
		upsert(1, "A"), upsert(2, "B"), upsert(3, "C"),
	), "widgets.csv", "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusSuccess {
		t.Errorf("status = %s, want %s", result.Status, StatusSuccess)
	}
	if result.TotalRows != 3 || result.SuccessRows != 3 || result.ErrorRows != 0 {
		t.Errorf("counts = %d/%d/%d, want 3/3/0", result.TotalRows, result.SuccessRows, result.ErrorRows)
	}
	if len(applied) != 3 {
		t.Errorf("applied %v, want all three rows", applied)
	}

	run, err := st.runs.Get(context.Background(), result.ImportID)
	if err != nil {
		t.Fatalf("audit record missing: %v", err)
	}
	if run.Status != string(StatusSuccess) || run.EndedAt == nil {
		t.Errorf("audit record not finalized: status=%s endedAt=%v", run.Status, run.EndedAt)
	}
	if run.FileName != "widgets.csv" || run.ActorID != "tester" {
		t.Errorf("audit metadata = %q/%q", run.FileName, run.ActorID)
	}
}

func TestExecutorRunPartial(t *testing.T) {
	st := newFakeStore()
	var applied []int
	def := executorDef(map[int]error{
		3: errors.New("insert failed"),
		5: &ReferentialError{Field: "owner", Value: "nobody"},
		9: errors.New("insert failed"),
	}, &applied)

	var plan []PlannedRow
	for i := 1; i <= 10; i++ {
		plan = append(plan, upsert(i, string(rune('A'+i))))
	}

	result, err := NewExecutor(st).Run(context.Background(), def, plan, "widgets.csv", "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusPartial {
		t.Errorf("status = %s, want %s", result.Status, StatusPartial)
	}
	if result.TotalRows != 10 || result.SuccessRows != 7 || result.ErrorRows != 3 {
		t.Errorf("counts = %d/%d/%d, want 10/7/3", result.TotalRows, result.SuccessRows, result.ErrorRows)
	}

	run, _ := st.runs.Get(context.Background(), result.ImportID)
	if len(run.RowErrors) != 3 {
		t.Fatalf("persisted %d row errors, want 3", len(run.RowErrors))
	}
	wantRows := []int{3, 5, 9}
	for i, re := range run.RowErrors {
		if re.RowNumber != wantRows[i] {
			t.Errorf("row error %d on row %d, want %d", i, re.RowNumber, wantRows[i])
		}
		if re.Message == "" {
			t.Errorf("row error %d has no message", i)
		}
	}
}

func TestExecutorRunAllFailed(t *testing.T) {
	st := newFakeStore()
	var applied []int
	def := executorDef(map[int]error{
		1: errors.New("boom"),
		2: errors.New("boom"),
	}, &applied)

	result, err := NewExecutor(st).Run(context.Background(), def, planOf(
		upsert(1, "A"), upsert(2, "B"),
	), "widgets.csv", "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != StatusFailed {
		t.Errorf("status = %s, want %s", result.Status, StatusFailed)
	}
	if result.SuccessRows != 0 || result.ErrorRows != 2 {
		t.Errorf("counts = %d/%d, want 0/2", result.SuccessRows, result.ErrorRows)
	}
}

func TestExecutorRunSkippedRowsInvisible(t *testing.T) {
	st := newFakeStore()
	var applied []int
	def := executorDef(nil, &applied)

	result, err := NewExecutor(st).Run(context.Background(), def, planOf(
		upsert(1, "A"), skip(2, "B"), upsert(3, "C"), skip(4, "D"),
	), "widgets.csv", "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Skipped rows are neither applied nor counted, so the totals balance.
	if result.TotalRows != 2 || result.SuccessRows != 2 || result.ErrorRows != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/2/0", result.TotalRows, result.SuccessRows, result.ErrorRows)
	}
	if len(applied) != 2 || applied[0] != 1 || applied[1] != 3 {
		t.Errorf("applied %v, want [1 3]", applied)
	}

	run, _ := st.runs.Get(context.Background(), result.ImportID)
	if len(run.RowErrors) != 0 {
		t.Errorf("skipped rows produced %d audit errors", len(run.RowErrors))
	}
	if run.Status != string(StatusSuccess) {
		t.Errorf("status = %s, want %s", run.Status, StatusSuccess)
	}
}

func TestExecutorUniquenessClassification(t *testing.T) {
	st := newFakeStore()
	var applied []int
	def := executorDef(map[int]error{
		1: &store.UniqueViolationError{Constraint: "widgets_code_key"},
		3: &store.UniqueViolationError{Constraint: "widgets_code_key"},
	}, &applied)

	// Row 1 conflicts before anything was written: a stored-data conflict.
	// Row 2 succeeds and records its coarse key. Row 3 reuses that key, so
	// its violation is attributed to a duplicate within the file.
	result, err := NewExecutor(st).Run(context.Background(), def, planOf(
		upsert(1, "A"), upsert(2, "A"), upsert(3, "A"),
	), "widgets.csv", "tester")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorRows != 2 || result.SuccessRows != 1 {
		t.Fatalf("counts = %d/%d, want errors=2 success=1", result.ErrorRows, result.SuccessRows)
	}

	run, _ := st.runs.Get(context.Background(), result.ImportID)
	if len(run.RowErrors) != 2 {
		t.Fatalf("persisted %d row errors, want 2", len(run.RowErrors))
	}
	if msg := run.RowErrors[0].Message; !strings.Contains(msg, "existing stored data") {
		t.Errorf("row 1 message %q should point at stored data", msg)
	}
	if msg := run.RowErrors[1].Message; !strings.Contains(msg, "within this file") {
		t.Errorf("row 3 message %q should point at an in-file duplicate", msg)
	}
}
