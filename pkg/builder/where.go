package builder

import (
	"fmt"
	"strings"
)

// whereBuilder renders conditions with placeholders numbered from start.
type whereBuilder struct {
	keyword    string
	conditions []Condition
	start      int
}

// build returns the clause with a leading keyword, or "" for no conditions.
func (w whereBuilder) build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}
	keyword := w.keyword
	if keyword == "" {
		keyword = "WHERE"
	}
	sql, args, err := buildConditions(w.conditions, max(w.start, 1))
	if err != nil {
		return "", nil, err
	}
	return keyword + " " + sql, args, nil
}

func buildConditions(conditions []Condition, paramNum int) (string, []any, error) {
	var sb strings.Builder
	var args []any

	for i, cond := range conditions {
		if i > 0 {
			logic := cond.Logic
			if logic == "" {
				logic = LogicAnd
			}
			sb.WriteString(" " + string(logic) + " ")
		}

		var (
			part     string
			partArgs []any
			err      error
		)
		if len(cond.Group) > 0 {
			part, partArgs, err = buildConditions(cond.Group, paramNum)
			part = "(" + part + ")"
		} else {
			part, partArgs, err = buildCondition(cond, paramNum)
		}
		if err != nil {
			return "", nil, err
		}
		if cond.Not {
			part = "NOT (" + part + ")"
		}

		sb.WriteString(part)
		args = append(args, partArgs...)
		paramNum += len(partArgs)
	}
	return sb.String(), args, nil
}

func buildCondition(cond Condition, paramNum int) (string, []any, error) {
	switch cond.Operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return fmt.Sprintf("%s %s $%d", cond.Column, cond.Operator, paramNum), []any{cond.Value}, nil

	case OpIn:
		values, ok := cond.Value.([]any)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("IN on %s requires at least one value", cond.Column)
		}
		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}
		return fmt.Sprintf("%s IN (%s)", cond.Column, strings.Join(placeholders, ", ")), values, nil

	case OpAny:
		return fmt.Sprintf("%s = ANY($%d)", cond.Column, paramNum), []any{cond.Value}, nil

	case OpIsNull, OpIsNotNull:
		return fmt.Sprintf("%s %s", cond.Column, cond.Operator), nil, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpEqual, Value: value}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{Column: column, Operator: OpNotEqual, Value: value}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThan, Value: value}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpGreaterThanOrEqual, Value: value}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThan, Value: value}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{Column: column, Operator: OpLessThanOrEqual, Value: value}
}

// In creates an IN condition with one placeholder per value.
func In(column string, values ...any) Condition {
	return Condition{Column: column, Operator: OpIn, Value: values}
}

// Any matches column against the elements of a single array parameter.
func Any(column string, values any) Condition {
	return Condition{Column: column, Operator: OpAny, Value: values}
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNull}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{Column: column, Operator: OpIsNotNull}
}

// Or joins cond to the previous condition with OR.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = true
	return cond
}

// Group parenthesizes conditions.
func Group(conditions ...Condition) Condition {
	return Condition{Group: conditions}
}
