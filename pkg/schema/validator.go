package schema

import (
	"errors"
	"fmt"
	"strings"
)

// defaultTypos maps misspelled SQL value functions to their correct spelling.
var defaultTypos = []struct{ typo, fix string }{
	{"CURRENT TIMESTAMP", "CURRENT_TIMESTAMP"},
	{"CURRENT TIME", "CURRENT_TIME"},
	{"CURRENT DATE", "CURRENT_DATE"},
	{"NOW ()", "NOW()"},
	{"GEN RANDOM UUID", "gen_random_uuid()"},
	{"UUID GENERATE V4", "uuid_generate_v4()"},
}

var sqlValueKeywords = map[string]bool{
	"NULL": true, "TRUE": true, "FALSE": true,
	"CURRENT_TIMESTAMP": true, "CURRENT_TIME": true, "CURRENT_DATE": true,
	"LOCALTIMESTAMP": true, "LOCALTIME": true,
}

// ValidateDefaultValue rejects default expressions that PostgreSQL would
// either refuse or silently misread.
func ValidateDefaultValue(defaultVal string) error {
	trimmed := strings.TrimSpace(defaultVal)
	if trimmed == "" {
		return errors.New("invalid DEFAULT value: empty expression")
	}
	upper := strings.ToUpper(trimmed)

	for _, m := range defaultTypos {
		if strings.Contains(upper, m.typo) {
			return fmt.Errorf("invalid DEFAULT value %q: %q should be %q", defaultVal, m.typo, m.fix)
		}
	}

	if sqlValueKeywords[upper] || strings.ContainsAny(trimmed, "('") || isNumeric(trimmed) {
		return nil
	}
	lower := strings.ToLower(trimmed)
	for _, fn := range []string{"random", "generate", "uuid", "now"} {
		if strings.Contains(lower, fn) {
			return fmt.Errorf("invalid DEFAULT value %q: looks like a function call missing (), try %s()", defaultVal, trimmed)
		}
	}
	return nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	digits := 0
	for i, c := range s {
		switch {
		case i == 0 && (c == '-' || c == '+'):
		case c == '.':
		case c >= '0' && c <= '9':
			digits++
		default:
			return false
		}
	}
	return digits > 0
}

var integerTypes = map[string]bool{"smallint": true, "integer": true, "bigint": true}

// ValidateTable checks the internal consistency of a parsed table.
func ValidateTable(t *TableMetadata) error {
	var errs []error
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) == 0 {
		errs = append(errs, fmt.Errorf("table %s: no primary key", t.Name))
	}

	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col.Name] {
			errs = append(errs, fmt.Errorf("table %s: duplicate column %s", t.Name, col.Name))
		}
		seen[col.Name] = true

		if col.Identity != nil && !integerTypes[BaseType(col.SQLType)] {
			errs = append(errs, fmt.Errorf("table %s: identity column %s must be an integer type, got %s", t.Name, col.Name, col.SQLType))
		}
		if col.AutoUpdate && !strings.HasPrefix(BaseType(col.SQLType), "timestamp") {
			errs = append(errs, fmt.Errorf("table %s: autoUpdate column %s must be a timestamp, got %s", t.Name, col.Name, col.SQLType))
		}
	}

	check := func(kind, name string, columns []string) {
		for _, c := range columns {
			if !seen[c] {
				errs = append(errs, fmt.Errorf("table %s: %s %s references unknown column %s", t.Name, kind, name, c))
			}
		}
	}
	if t.PrimaryKey != nil {
		check("primary key", t.PrimaryKey.Name, t.PrimaryKey.Columns)
	}
	for _, idx := range t.Indexes {
		check("index", idx.Name, idx.Columns)
	}
	for _, c := range t.Constraints {
		check("constraint", c.Name, c.Columns)
	}
	return errors.Join(errs...)
}
