package schema

import (
	"strings"
	"testing"
)

func TestValidateDefaultValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		errorMsg string
	}{
		{name: "CURRENT_TIMESTAMP", value: "CURRENT_TIMESTAMP"},
		{name: "CURRENT_DATE", value: "CURRENT_DATE"},
		{name: "LOCALTIMESTAMP", value: "LOCALTIMESTAMP"},
		{name: "function call", value: "gen_random_uuid()"},
		{name: "integer", value: "500"},
		{name: "negative decimal", value: "-1.5"},
		{name: "boolean", value: "true"},
		{name: "string literal", value: "'member'"},
		{name: "timestamp with space", value: "CURRENT TIMESTAMP", errorMsg: "CURRENT_TIMESTAMP"},
		{name: "date with space", value: "current date", errorMsg: "CURRENT_DATE"},
		{name: "function without parens", value: "gen_random_uuid", errorMsg: "missing ()"},
		{name: "now without parens", value: "now", errorMsg: "missing ()"},
		{name: "empty", value: "  ", errorMsg: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDefaultValue(tt.value)
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("expected %q to be valid, got %v", tt.value, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for %q", tt.value)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %v", tt.errorMsg, err)
			}
		})
	}
}

func TestIsNumeric(t *testing.T) {
	for s, want := range map[string]bool{
		"0": true, "42": true, "-3": true, "1.25": true,
		"": false, "-": false, ".": false, "1a": false,
	} {
		if got := isNumeric(s); got != want {
			t.Errorf("isNumeric(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestValidateTable(t *testing.T) {
	valid := func() *TableMetadata {
		return &TableMetadata{
			Name: "widgets",
			Columns: []ColumnMetadata{
				{Name: "id", SQLType: "bigint", Identity: &IdentityColumn{Generation: IdentityAlways}},
				{Name: "label", SQLType: "varchar(20)"},
				{Name: "touched_at", SQLType: "timestamp", AutoUpdate: true},
			},
			PrimaryKey:  &PrimaryKeyMetadata{Name: "widgets_pkey", Columns: []string{"id"}},
			Indexes:     []IndexMetadata{{Name: "idx_widgets_label", Columns: []string{"label"}}},
			Constraints: []ConstraintMetadata{{Name: "uk_widget_label", Type: UniqueConstraint, Columns: []string{"label"}}},
		}
	}

	if err := ValidateTable(valid()); err != nil {
		t.Fatalf("expected valid table, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*TableMetadata)
		wantErr string
	}{
		{"no primary key", func(tm *TableMetadata) { tm.PrimaryKey = nil }, "no primary key"},
		{"duplicate column", func(tm *TableMetadata) {
			tm.Columns = append(tm.Columns, ColumnMetadata{Name: "label", SQLType: "text"})
		}, "duplicate column label"},
		{"unknown index column", func(tm *TableMetadata) {
			tm.Indexes[0].Columns = []string{"missing"}
		}, "index idx_widgets_label references unknown column missing"},
		{"unknown constraint column", func(tm *TableMetadata) {
			tm.Constraints[0].Columns = []string{"nope"}
		}, "constraint uk_widget_label references unknown column nope"},
		{"identity on varchar", func(tm *TableMetadata) {
			tm.Columns[1].Identity = &IdentityColumn{Generation: IdentityByDefault}
		}, "identity column label"},
		{"autoUpdate on date", func(tm *TableMetadata) {
			tm.Columns[2].SQLType = "date"
		}, "autoUpdate column touched_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := valid()
			tt.mutate(table)
			err := ValidateTable(table)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
