package importer

import (
	"reflect"
	"testing"
)

func f64ptr(v float64) *float64 { return &v }

// widgetDef is a self-contained definition exercising every field type.
func widgetDef() Definition {
	return Definition{
		Kind:  EntityKind("WIDGET"),
		Label: "Widgets",
		Fields: []FieldSpec{
			{Field: "code", Labels: []string{"Widget Code"}, Type: FieldText, Required: true},
			{Field: "name", Labels: []string{"Widget Name", "Name"}, Type: FieldText, Required: true},
			{Field: "launched", Labels: []string{"Launched"}, Type: FieldDate},
			{Field: "active", Labels: []string{"Active"}, Type: FieldBool},
			{Field: "tier", Labels: []string{"Tier"}, Type: FieldEnum, EnumValues: []string{"basic", "premium"}, Default: "basic"},
			{Field: "weight", Labels: []string{"Weight"}, Type: FieldNumber, Min: f64ptr(0), Max: f64ptr(100)},
		},
	}
}

func TestResolveColumns(t *testing.T) {
	def := widgetDef()

	tests := []struct {
		name    string
		header  []string
		want    map[string]int
		wantErr bool
	}{
		{
			name:   "exact labels",
			header: []string{"Widget Code", "Widget Name", "Launched"},
			want:   map[string]int{"code": 0, "name": 1, "launched": 2},
		},
		{
			name:   "alternate label",
			header: []string{"Name", "Widget Code"},
			want:   map[string]int{"name": 0, "code": 1},
		},
		{
			name:   "BOM and whitespace stripped fallback",
			header: []string{"\uFEFFWidget Code", "  Widget Name  "},
			want:   map[string]int{"code": 0, "name": 1},
		},
		{
			name:   "unknown columns ignored",
			header: []string{"Widget Code", "Internal Notes"},
			want:   map[string]int{"code": 0},
		},
		{
			name:    "case sensitive match",
			header:  []string{"widget code", "WIDGET NAME"},
			wantErr: true,
		},
		{
			name:    "nothing recognizable",
			header:  []string{"A", "B", "C"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveColumns(tt.header, def)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if _, ok := err.(*ParseError); !ok {
					t.Fatalf("expected ParseError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapRow(t *testing.T) {
	def := widgetDef()
	cols := map[string]int{"code": 0, "name": 1, "launched": 2, "active": 3, "tier": 4, "weight": 5}

	tests := []struct {
		name string
		raw  []string
		want map[string]string
	}{
		{
			name: "all values present",
			raw:  []string{"W-1", "Sprocket", "2026-03-15", "yes", "premium", "12.5"},
			want: map[string]string{
				"code": "W-1", "name": "Sprocket", "launched": "2026-03-15",
				"active": "true", "tier": "premium", "weight": "12.5",
			},
		},
		{
			name: "day first date normalized",
			raw:  []string{"W-2", "Gear", "15/3/2026", "no", "", ""},
			want: map[string]string{
				"code": "W-2", "name": "Gear", "launched": "2026-03-15",
				"active": "false", "tier": "basic",
			},
		},
		{
			name: "unparseable date kept raw for the validator",
			raw:  []string{"W-3", "Cog", "March 15", "", "", ""},
			want: map[string]string{
				"code": "W-3", "name": "Cog", "launched": "March 15",
				"active": "false", "tier": "basic",
			},
		},
		{
			name: "enum canonicalized case insensitively",
			raw:  []string{"W-4", "Axle", "", "TRUE", "Premium", ""},
			want: map[string]string{
				"code": "W-4", "name": "Axle",
				"active": "true", "tier": "premium",
			},
		},
		{
			name: "short row tolerated",
			raw:  []string{"W-5", "Bolt"},
			want: map[string]string{
				"code": "W-5", "name": "Bolt",
				"active": "false", "tier": "basic",
			},
		},
		{
			name: "cells trimmed",
			raw:  []string{"  W-6  ", ` ="Nut" `, "", "", "", ""},
			want: map[string]string{
				"code": "W-6", "name": "Nut",
				"active": "false", "tier": "basic",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, fe := MapRow(tt.raw, 1, cols, def)
			if fe != nil {
				t.Fatalf("unexpected conversion error: %v", fe)
			}
			if !reflect.DeepEqual(row.Values, tt.want) {
				t.Errorf("got %v, want %v", row.Values, tt.want)
			}
		})
	}
}

func TestMapRowNormalizeHook(t *testing.T) {
	def := widgetDef()
	def.Normalize = func(row *CanonicalRow) *FieldError {
		if row.Get("code") == "BAD" {
			return &FieldError{Field: "code", Message: "rejected", Value: "BAD"}
		}
		row.Values["code"] = "N-" + row.Get("code")
		return nil
	}
	cols := map[string]int{"code": 0, "name": 1}

	row, fe := MapRow([]string{"W-1", "Sprocket"}, 3, cols, def)
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got := row.Get("code"); got != "N-W-1" {
		t.Errorf("hook did not run: code = %q", got)
	}

	_, fe = MapRow([]string{"BAD", "Sprocket"}, 7, cols, def)
	if fe == nil {
		t.Fatal("expected conversion error")
	}
	if fe.Row != 7 || fe.Stage != StageConversion {
		t.Errorf("error not tagged: row=%d stage=%q", fe.Row, fe.Stage)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"2026-03-15", "2026-03-15", true},
		{"15/3/2026", "2026-03-15", true},
		{"1/1/2026", "2026-01-01", true},
		{"05/03/2026", "2026-03-05", true},
		{"2026-3-5", "2026-3-5", false},  // canonical form requires padding
		{"3/15/2026", "3/15/2026", false}, // month-first is not accepted
		{"31/2/2026", "31/2/2026", false},
		{"yesterday", "yesterday", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeDate(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NormalizeDate(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"Active", true},
		{"on", true},
		{" yes ", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"y", false},
		{"", false},
		{"anything else", false},
	}

	for _, tt := range tests {
		if got := Truthy(tt.input); got != tt.want {
			t.Errorf("Truthy(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestQuantizeHours(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{8.0, 8.0},
		{8.1, 8.0},
		{7.9, 8.0},
		{8.13, 8.25},
		{0.25, 0.25},
		{0.1, 0.0},
		{23.99, 24.0},
		{2.625, 2.75}, // half steps round away from zero
	}

	for _, tt := range tests {
		if got := QuantizeHours(tt.input); got != tt.want {
			t.Errorf("QuantizeHours(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"8", 8, false},
		{"7.5", 7.5, false},
		{" 1,234.5 ", 1234.5, false},
		{"-2", -2, false},
		{"eight", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseNumber(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseNumber(%q) = %v, want error", tt.input, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v", tt.input, got, err, tt.want)
		}
	}
}
