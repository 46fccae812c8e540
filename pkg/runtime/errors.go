// Package runtime connects to PostgreSQL and translates its errors into the
// constraint taxonomy of the catalogs.
package runtime

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when a unique constraint is violated.
	ErrDuplicateKey = errors.New("duplicate key value")

	// ErrNotNullViolation is returned when a NOT NULL column receives NULL.
	ErrNotNullViolation = errors.New("not null violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is
	// violated, including deletes blocked by RESTRICT.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrCheckViolation is returned when a CHECK constraint fails.
	ErrCheckViolation = errors.New("check violation")
)

// SQLSTATE codes of integrity constraint violations.
const (
	codeRestrictViolation   = "23001"
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// ConstraintError describes a write rejected by an integrity constraint.
type ConstraintError struct {
	Kind       error
	Table      string
	Column     string
	Constraint string
	// Columns lists the key columns named in Detail, e.g. "Key (name)=(x) already exists."
	Columns []string
	Detail  string
	Err     *pgconn.PgError
}

// Error implements the error interface.
func (e *ConstraintError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Constraint != "" {
		fmt.Fprintf(&b, " on %s", e.Constraint)
	}
	if e.Table != "" {
		fmt.Fprintf(&b, " (table %s", e.Table)
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %s", e.Column)
		}
		b.WriteString(")")
	}
	if e.Detail != "" {
		b.WriteString(": " + e.Detail)
	}
	return b.String()
}

// Is matches the sentinel kind.
func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the PostgreSQL error.
func (e *ConstraintError) Unwrap() error {
	return e.Err
}

var detailKey = regexp.MustCompile(`Key \((.+?)\)=`)

// Classify maps PostgreSQL integrity violations to a *ConstraintError and
// pgx.ErrNoRows to ErrNotFound. Other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var kind error
	switch pgErr.Code {
	case codeUniqueViolation:
		kind = ErrDuplicateKey
	case codeNotNullViolation:
		kind = ErrNotNullViolation
	case codeForeignKeyViolation, codeRestrictViolation:
		kind = ErrForeignKeyViolation
	case codeCheckViolation:
		kind = ErrCheckViolation
	default:
		return err
	}

	ce := &ConstraintError{
		Kind:       kind,
		Table:      pgErr.TableName,
		Column:     pgErr.ColumnName,
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Err:        pgErr,
	}
	if m := detailKey.FindStringSubmatch(pgErr.Detail); m != nil {
		for _, c := range strings.Split(m[1], ",") {
			ce.Columns = append(ce.Columns, strings.Trim(strings.TrimSpace(c), `"`))
		}
	}
	if ce.Column == "" && len(ce.Columns) == 1 {
		ce.Column = ce.Columns[0]
	}
	return ce
}

// QueryError carries the failed statement alongside the classified error.
type QueryError struct {
	Query string
	Err   error
}

func newQueryError(query string, err error) error {
	classified := Classify(err)
	if errors.Is(classified, ErrNotFound) {
		return ErrNotFound
	}
	return &QueryError{Query: query, Err: classified}
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v\nQuery: %s", e.Err, e.Query)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}
