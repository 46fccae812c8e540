package builder

import (
	"context"
	"fmt"
	"strings"
)

// Set sets a column value for the UPDATE. Columns are written in call order.
func (q *UpdateQuery[T]) Set(column string, value any) *UpdateQuery[T] {
	q.sets = append(q.sets, assignment{column: column, value: value})
	return q
}

// Where adds a WHERE condition.
func (q *UpdateQuery[T]) Where(condition Condition) *UpdateQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// Returning specifies columns to return after update.
func (q *UpdateQuery[T]) Returning(columns ...string) *UpdateQuery[T] {
	q.returning = columns
	return q
}

// ToSQL generates the UPDATE SQL and arguments.
func (q *UpdateQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.sets) == 0 {
		return "", nil, fmt.Errorf("no columns to update in %s", q.table.Name)
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("refusing to update every row of %s", q.table.Name)
	}

	var sql strings.Builder
	var args []any

	sql.WriteString("UPDATE ")
	sql.WriteString(q.db.qualify(q.table))
	sql.WriteString(" SET ")
	for i, set := range q.sets {
		if q.table.GetColumnByName(set.column) == nil {
			return "", nil, fmt.Errorf("table %s has no column %s", q.table.Name, set.column)
		}
		if i > 0 {
			sql.WriteString(", ")
		}
		fmt.Fprintf(&sql, "%s = $%d", set.column, i+1)
		args = append(args, set.value)
	}

	where, whereArgs, err := whereBuilder{conditions: q.where, start: len(args) + 1}.build()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	sql.WriteString(" ")
	sql.WriteString(where)
	args = append(args, whereArgs...)

	if len(q.returning) > 0 {
		sql.WriteString(" RETURNING ")
		sql.WriteString(strings.Join(q.returning, ", "))
	}
	return sql.String(), args, nil
}

// Exec executes the UPDATE query and returns the number of affected rows.
func (q *UpdateQuery[T]) Exec(ctx context.Context) (int64, error) {
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

// ExecReturning executes the UPDATE and returns the updated rows.
func (q *UpdateQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
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
