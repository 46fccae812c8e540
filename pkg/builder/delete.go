package builder

import (
	"context"
	"fmt"
	"strings"
)

// Where narrows the rows to delete. Conditions are joined with AND.
func (q *DeleteQuery[T]) Where(condition Condition) *DeleteQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// Returning sets the RETURNING list.
func (q *DeleteQuery[T]) Returning(columns ...string) *DeleteQuery[T] {
	q.returning = columns
	return q
}

// ToSQL renders the statement. Deleting without a condition is an error:
// clearing a table goes through TRUNCATE, not the builder.
func (q *DeleteQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	if len(q.where) == 0 {
		return "", nil, fmt.Errorf("refusing to delete every row of %s", q.table.Name)
	}
	where, args, err := whereBuilder{conditions: q.where}.build()
	if err != nil {
		return "", nil, fmt.Errorf("delete from %s: %w", q.table.Name, err)
	}

	sql := "DELETE FROM " + q.db.qualify(q.table) + " " + where
	if len(q.returning) > 0 {
		sql += " RETURNING " + strings.Join(q.returning, ", ")
	}
	return sql, args, nil
}

// Exec runs the DELETE and reports how many rows went away. A foreign key
// that restricts the delete surfaces as runtime.ErrForeignKeyViolation.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	sql, args, err := q.ToSQL()
	if err != nil {
		return 0, err
	}
	if len(q.returning) > 0 {
		rows, err := q.db.db.Query(ctx, sql, args...)
		if err != nil {
			return 0, err
		}
		return count(rows)
	}
	return q.db.db.Exec(ctx, sql, args...)
}

// ExecReturning runs the DELETE and scans the removed rows, RETURNING * by
// default.
func (q *DeleteQuery[T]) ExecReturning(ctx context.Context) ([]T, error) {
	if len(q.returning) == 0 {
		q.returning = []string{"*"}
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
