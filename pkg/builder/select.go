package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/andressep95/annotations/pkg/runtime"
)

// Columns specifies which columns to select.
func (q *SelectQuery[T]) Columns(cols ...string) *SelectQuery[T] {
	q.columns = cols
	return q
}

// Where adds a WHERE condition.
func (q *SelectQuery[T]) Where(condition Condition) *SelectQuery[T] {
	q.where = append(q.where, condition)
	return q
}

// And adds an AND condition.
func (q *SelectQuery[T]) And(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicAnd
	return q.Where(condition)
}

// Or adds an OR condition.
func (q *SelectQuery[T]) Or(condition Condition) *SelectQuery[T] {
	condition.Logic = LogicOr
	return q.Where(condition)
}

// InnerJoin joins table on a raw condition.
func (q *SelectQuery[T]) InnerJoin(table, condition string) *SelectQuery[T] {
	q.joins = append(q.joins, Join{Table: table, Condition: condition})
	return q
}

// OrderBy adds an ORDER BY clause.
func (q *SelectQuery[T]) OrderBy(column string, direction OrderDirection) *SelectQuery[T] {
	q.orderBy = append(q.orderBy, OrderBy{Column: column, Direction: direction})
	return q
}

// OrderByAsc adds an ascending ORDER BY clause.
func (q *SelectQuery[T]) OrderByAsc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Asc)
}

// OrderByDesc adds a descending ORDER BY clause.
func (q *SelectQuery[T]) OrderByDesc(column string) *SelectQuery[T] {
	return q.OrderBy(column, Desc)
}

// Limit sets the LIMIT clause.
func (q *SelectQuery[T]) Limit(limit int) *SelectQuery[T] {
	q.limit = &limit
	return q
}

// Offset sets the OFFSET clause.
func (q *SelectQuery[T]) Offset(offset int) *SelectQuery[T] {
	q.offset = &offset
	return q
}

// ToSQL generates the SQL query and arguments.
func (q *SelectQuery[T]) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	if len(q.columns) == 0 {
		sql.WriteString("*")
	} else {
		sql.WriteString(strings.Join(q.columns, ", "))
	}

	args, err := q.writeFrom(&sql)
	if err != nil {
		return "", nil, err
	}

	if len(q.orderBy) > 0 {
		parts := make([]string, len(q.orderBy))
		for i, order := range q.orderBy {
			parts[i] = order.Column + " " + string(order.Direction)
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(parts, ", "))
	}
	if q.limit != nil {
		fmt.Fprintf(&sql, " LIMIT %d", *q.limit)
	}
	if q.offset != nil {
		fmt.Fprintf(&sql, " OFFSET %d", *q.offset)
	}
	return sql.String(), args, nil
}

// writeFrom writes the FROM, JOIN and WHERE clauses shared with Count.
func (q *SelectQuery[T]) writeFrom(sql *strings.Builder) ([]any, error) {
	sql.WriteString(" FROM ")
	sql.WriteString(q.db.qualify(q.table))
	for _, join := range q.joins {
		sql.WriteString(" INNER JOIN ")
		sql.WriteString(join.Table)
		sql.WriteString(" ON ")
		sql.WriteString(join.Condition)
	}

	where, args, err := whereBuilder{conditions: q.where}.build()
	if err != nil {
		return nil, fmt.Errorf("failed to build WHERE clause: %w", err)
	}
	if where != "" {
		sql.WriteString(" ")
		sql.WriteString(where)
	}
	return args, nil
}

// All executes the query and returns all results.
func (q *SelectQuery[T]) All(ctx context.Context) ([]T, error) {
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

// First returns the first result, or runtime.ErrNotFound.
func (q *SelectQuery[T]) First(ctx context.Context) (*T, error) {
	results, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s: %w", q.table.Name, runtime.ErrNotFound)
	}
	return &results[0], nil
}

// CountSQL generates the COUNT(*) form of the query.
func (q *SelectQuery[T]) CountSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	var sql strings.Builder
	sql.WriteString("SELECT COUNT(*)")
	args, err := q.writeFrom(&sql)
	if err != nil {
		return "", nil, err
	}
	return sql.String(), args, nil
}

// Count executes a COUNT query.
func (q *SelectQuery[T]) Count(ctx context.Context) (int64, error) {
	sql, args, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.db.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Exists checks if any rows match the query.
func (q *SelectQuery[T]) Exists(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
