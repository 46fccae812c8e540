package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		pgErr      *pgconn.PgError
		kind       error
		column     string
		columns    []string
		constraint string
	}{
		{
			name: "unique violation",
			pgErr: &pgconn.PgError{
				Code:           "23505",
				TableName:      "products",
				ConstraintName: "uk_product_name",
				Detail:         "Key (name)=(Laptop) already exists.",
			},
			kind:       ErrDuplicateKey,
			column:     "name",
			columns:    []string{"name"},
			constraint: "uk_product_name",
		},
		{
			name: "composite unique violation",
			pgErr: &pgconn.PgError{
				Code:           "23505",
				TableName:      "user_products",
				ConstraintName: "user_products_pkey",
				Detail:         "Key (user_id, product_id)=(1, 2) already exists.",
			},
			kind:       ErrDuplicateKey,
			columns:    []string{"user_id", "product_id"},
			constraint: "user_products_pkey",
		},
		{
			name: "not null violation",
			pgErr: &pgconn.PgError{
				Code:       "23502",
				TableName:  "students",
				ColumnName: "faculty_id",
			},
			kind:   ErrNotNullViolation,
			column: "faculty_id",
		},
		{
			name: "foreign key violation",
			pgErr: &pgconn.PgError{
				Code:           "23503",
				TableName:      "user_products",
				ConstraintName: "fk_userproduct_product",
				Detail:         `Key (product_id)=(99) is not present in table "products".`,
			},
			kind:       ErrForeignKeyViolation,
			column:     "product_id",
			columns:    []string{"product_id"},
			constraint: "fk_userproduct_product",
		},
		{
			name:       "restrict violation",
			pgErr:      &pgconn.PgError{Code: "23001", ConstraintName: "fk_userproduct_product"},
			kind:       ErrForeignKeyViolation,
			constraint: "fk_userproduct_product",
		},
		{
			name:       "check violation",
			pgErr:      &pgconn.PgError{Code: "23514", ConstraintName: "ck_positive"},
			kind:       ErrCheckViolation,
			constraint: "ck_positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(fmt.Errorf("insert: %w", tt.pgErr))
			require.ErrorIs(t, err, tt.kind)

			var ce *ConstraintError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.column, ce.Column)
			assert.Equal(t, tt.columns, ce.Columns)
			assert.Equal(t, tt.constraint, ce.Constraint)

			var pgErr *pgconn.PgError
			require.ErrorAs(t, err, &pgErr)
			assert.Same(t, tt.pgErr, pgErr)
		})
	}
}

func TestClassify_Passthrough(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.ErrorIs(t, Classify(pgx.ErrNoRows), ErrNotFound)

	plain := errors.New("connection reset")
	assert.Same(t, plain, Classify(plain))

	syntax := &pgconn.PgError{Code: "42601"}
	assert.Same(t, error(syntax), Classify(syntax))
}

func TestConstraintError_Message(t *testing.T) {
	err := Classify(&pgconn.PgError{
		Code:           "23505",
		TableName:      "products",
		ConstraintName: "uk_product_name",
		Detail:         "Key (name)=(Laptop) already exists.",
	})
	assert.Equal(t,
		"duplicate key value on uk_product_name (table products, column name): Key (name)=(Laptop) already exists.",
		err.Error())
	assert.NotErrorIs(t, err, ErrForeignKeyViolation)
}

func TestQueryError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23502", TableName: "students", ColumnName: "faculty_id"}
	err := newQueryError("INSERT INTO academic.students ...", pgErr)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "INSERT INTO academic.students ...", qe.Query)
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.Contains(t, err.Error(), "Query: INSERT INTO academic.students")

	assert.Same(t, ErrNotFound, newQueryError("SELECT 1", pgx.ErrNoRows))
}
