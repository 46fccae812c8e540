package builder

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/andressep95/annotations/pkg/runtime"
	"github.com/andressep95/annotations/pkg/schema"
)

// collect scans every row into T. Errors raised by PostgreSQL while the rows
// are read, e.g. constraint violations of INSERT ... RETURNING, are classified.
func collect[T any](rows pgx.Rows, table *schema.TableMetadata) ([]T, error) {
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		if err := scanIntoStruct(rows, &item, table); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	if err := rows.Err(); err != nil {
		return nil, runtime.Classify(err)
	}
	return results, nil
}

// count drains rows and returns how many there were.
func count(rows pgx.Rows) (int64, error) {
	defer rows.Close()

	var n int64
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, runtime.Classify(err)
	}
	return n, nil
}

// scanIntoStruct scans the current row into dest, matching result columns to
// the table's column names. Unknown result columns are discarded.
func scanIntoStruct(rows pgx.Rows, dest any, table *schema.TableMetadata) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Pointer || destValue.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a pointer to struct, got %T", dest)
	}
	destValue = destValue.Elem()

	fields := rows.FieldDescriptions()
	targets := make([]any, len(fields))
	var jsonTargets []*jsonbScanTarget

	for i, fd := range fields {
		col := table.GetColumnByName(fd.Name)
		if col == nil {
			targets[i] = new(any)
			continue
		}
		field := destValue.FieldByName(col.GoField)
		if !field.IsValid() || !field.CanSet() {
			targets[i] = new(any)
			continue
		}

		if col.IsJSONB && !implements(field.Type(), scannerType) {
			target := &jsonbScanTarget{field: field}
			targets[i] = target
			jsonTargets = append(jsonTargets, target)
			continue
		}
		targets[i] = field.Addr().Interface()
	}

	if err := rows.Scan(targets...); err != nil {
		return fmt.Errorf("failed to scan %s row: %w", table.Name, err)
	}
	for _, target := range jsonTargets {
		if err := target.unmarshal(); err != nil {
			return fmt.Errorf("failed to unmarshal JSONB: %w", err)
		}
	}
	return nil
}

// jsonbScanTarget decodes a JSONB column into a field that is not a Scanner.
type jsonbScanTarget struct {
	field reflect.Value
	data  []byte
}

// Scan implements sql.Scanner.
func (j *jsonbScanTarget) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		j.data = nil
	case []byte:
		j.data = v
	case string:
		j.data = []byte(v)
	default:
		// pgx already decoded it
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal decoded JSONB: %w", err)
		}
		j.data = data
	}
	return nil
}

func (j *jsonbScanTarget) unmarshal() error {
	if j.data == nil {
		return nil
	}
	return json.Unmarshal(j.data, j.field.Addr().Interface())
}

var (
	scannerType = reflect.TypeFor[interface{ Scan(any) error }]()
	valuerType  = reflect.TypeFor[driver.Valuer]()
)

func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

// structToValues returns the insertable columns of model and their values.
// Zero-valued fields are left to the database when the column is an
// identity, serial or defaulted column.
func structToValues(model any, table *schema.TableMetadata) ([]string, []any, error) {
	modelValue := reflect.ValueOf(model)
	if modelValue.Kind() == reflect.Pointer {
		modelValue = modelValue.Elem()
	}
	if modelValue.Kind() != reflect.Struct {
		return nil, nil, fmt.Errorf("model must be a struct, got %T", model)
	}

	var columns []string
	var values []any
	for _, col := range table.Columns {
		field := modelValue.FieldByName(col.GoField)
		if !field.IsValid() {
			continue
		}
		if field.IsZero() && (col.Default != nil || col.Identity != nil || col.AutoIncrement) {
			continue
		}

		value := field.Interface()
		if col.IsJSONB && !implements(field.Type(), valuerType) {
			encoded, err := marshalJSONB(field)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to marshal JSONB field %s: %w", col.GoField, err)
			}
			value = encoded
		}
		columns = append(columns, col.Name)
		values = append(values, value)
	}
	return columns, values, nil
}

// marshalJSONB encodes a JSONB value as text, which pgx sends as jsonb; a
// []byte would be sent as bytea. Nil maps, slices and pointers become NULL.
func marshalJSONB(field reflect.Value) (any, error) {
	switch field.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if field.IsNil() {
			return nil, nil
		}
	}
	data, err := json.Marshal(field.Interface())
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
