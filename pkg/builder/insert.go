package builder

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Values sets the values to insert (single or multiple rows).
func (q *InsertQuery[T]) Values(values ...T) *InsertQuery[T] {
	q.values = append(q.values, values...)
	return q
}

// Returning specifies columns to return after insert.
func (q *InsertQuery[T]) Returning(columns ...string) *InsertQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the INSERT SQL and arguments. Every row must supply the
// same columns; mixing a zero-valued defaulted field in one row with a set
// value in another is an error.
func (q *InsertQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.values) == 0 {
		return "", nil, fmt.Errorf("no values to insert into %s", q.table.Name)
	}

	var columns []string
	var args []any
	rowClauses := make([]string, len(q.values))
	paramNum := 1

	for i, row := range q.values {
		rowColumns, rowValues, err := structToValues(row, q.table)
		if err != nil {
			return "", nil, fmt.Errorf("failed to extract values from row %d: %w", i, err)
		}
		if i == 0 {
			columns = rowColumns
		} else if !slices.Equal(columns, rowColumns) {
			return "", nil, fmt.Errorf("row %d sets columns (%s), row 0 sets (%s)",
				i, strings.Join(rowColumns, ", "), strings.Join(columns, ", "))
		}

		placeholders := make([]string, len(rowValues))
		for j := range rowValues {
			placeholders[j] = fmt.Sprintf("$%d", paramNum)
			paramNum++
		}
		rowClauses[i] = "(" + strings.Join(placeholders, ", ") + ")"
		args = append(args, rowValues...)
	}

	var sql strings.Builder
	sql.WriteString("INSERT INTO ")
	sql.WriteString(q.db.qualify(q.table))
	if len(columns) == 0 {
		if len(q.values) > 1 {
			return "", nil, fmt.Errorf("multi-row insert into %s with only default values", q.table.Name)
		}
		sql.WriteString(" DEFAULT VALUES")
	} else {
		sql.WriteString(" (")
		sql.WriteString(strings.Join(columns, ", "))
		sql.WriteString(") VALUES ")
		sql.WriteString(strings.Join(rowClauses, ", "))
	}

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the INSERT query and returns the number of inserted rows.
func (q *InsertQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	if len(q.returning) == 0 {
		return q.db.db.Exec(ctx, sql, args...)
	}

	rows, err := q.db.db.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return count(rows)
}

// ExecReturning executes the INSERT and returns the inserted rows, with the
// values the database filled in.
func (q *InsertQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.Returning("*")
	}

	sql, args, err := q.ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.db.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return collect[T](rows, q.table)
}

// One inserts a single row and returns it as stored.
func (q *InsertQuery[T]) One(ctx context.Context, value T) (*T, error) {
	rows, err := q.Values(value).ExecReturning(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("insert into %s returned %d rows", q.table.Name, len(rows))
	}
	return &rows[0], nil
}
