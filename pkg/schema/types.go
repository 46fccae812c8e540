package schema

import (
	"database/sql"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TypeMapper handles mapping between Go types and PostgreSQL types.
type TypeMapper struct {
	customMappings map[reflect.Type]string
}

// NewTypeMapper creates a new TypeMapper instance.
func NewTypeMapper() *TypeMapper {
	return &TypeMapper{
		customMappings: make(map[reflect.Type]string),
	}
}

// RegisterType registers a custom type mapping.
func (tm *TypeMapper) RegisterType(goType reflect.Type, pgType string) {
	tm.customMappings[goType] = pgType
}

// GoTypeToPostgreSQL maps a Go type to its PostgreSQL equivalent.
// Returns empty string if the type must be declared in the tag.
func (tm *TypeMapper) GoTypeToPostgreSQL(t reflect.Type) string {
	if pgType, ok := tm.customMappings[t]; ok {
		return pgType
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t {
	case reflect.TypeOf(time.Time{}), reflect.TypeOf(sql.NullTime{}), reflect.TypeOf(pgtype.Timestamptz{}):
		return "timestamptz"
	case reflect.TypeOf(pgtype.Timestamp{}):
		return "timestamp"
	case reflect.TypeOf(pgtype.Date{}):
		return "date"
	case reflect.TypeOf(pgtype.Numeric{}):
		return "numeric"
	case reflect.TypeOf(pgtype.Text{}), reflect.TypeOf(sql.NullString{}):
		return "text"
	case reflect.TypeOf(pgtype.Int8{}), reflect.TypeOf(sql.NullInt64{}):
		return "bigint"
	case reflect.TypeOf(pgtype.Int4{}), reflect.TypeOf(sql.NullInt32{}):
		return "integer"
	case reflect.TypeOf(pgtype.Bool{}), reflect.TypeOf(sql.NullBool{}):
		return "boolean"
	case reflect.TypeOf(sql.NullFloat64{}):
		return "double precision"
	case reflect.TypeOf(JSONB{}):
		return "jsonb"
	}

	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "smallint"
	case reflect.Int32, reflect.Int, reflect.Uint16:
		return "integer"
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return "bigint"
	case reflect.Float32:
		return "real"
	case reflect.Float64:
		return "double precision"
	case reflect.String:
		return "text"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytea"
		}
		if elemType := tm.GoTypeToPostgreSQL(t.Elem()); elemType != "" {
			return elemType + "[]"
		}
	case reflect.Map:
		if t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.Interface {
			return "jsonb"
		}
	}
	return ""
}

// IsNullable checks if a Go type can hold SQL NULL.
func IsNullable(t reflect.Type) bool {
	if t.Kind() == reflect.Ptr {
		return true
	}
	switch t {
	case reflect.TypeOf(sql.NullString{}),
		reflect.TypeOf(sql.NullInt64{}),
		reflect.TypeOf(sql.NullInt32{}),
		reflect.TypeOf(sql.NullFloat64{}),
		reflect.TypeOf(sql.NullBool{}),
		reflect.TypeOf(sql.NullTime{}),
		reflect.TypeOf(pgtype.Numeric{}):
		return true
	}
	return false
}

// NormalizeType folds PostgreSQL type aliases so that catalog and database
// spellings of the same type compare equal.
func NormalizeType(sqlType string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(sqlType)), " ")
	switch normalized {
	case "int", "int4", "serial", "serial4":
		return "integer"
	case "int2", "smallserial", "serial2":
		return "smallint"
	case "int8", "bigserial", "serial8":
		return "bigint"
	case "float4":
		return "real"
	case "float8":
		return "double precision"
	case "bool":
		return "boolean"
	case "timestamp without time zone":
		return "timestamp"
	case "timestamp with time zone":
		return "timestamptz"
	case "character varying":
		return "varchar"
	}
	if rest, ok := strings.CutPrefix(normalized, "character varying("); ok {
		return "varchar(" + rest
	}
	if rest, ok := strings.CutPrefix(normalized, "decimal"); ok {
		return "numeric" + rest
	}
	return strings.ReplaceAll(normalized, ", ", ",")
}

// BaseType strips the length or precision modifier, e.g. varchar(100) -> varchar.
func BaseType(sqlType string) string {
	normalized := NormalizeType(sqlType)
	if idx := strings.Index(normalized, "("); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// DefaultTypeMapper is the global type mapper instance.
var DefaultTypeMapper = NewTypeMapper()
