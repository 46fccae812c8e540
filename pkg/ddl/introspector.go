package ddl

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/andressep95/annotations/pkg/schema"
)

// Querier is the read side of a pool, connection or transaction.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Introspector reads table definitions of one namespace from
// information_schema and pg_catalog.
type Introspector struct {
	db        Querier
	namespace string
}

// NewIntrospector creates an introspector for namespace.
func NewIntrospector(db Querier, namespace string) *Introspector {
	if namespace == "" {
		namespace = "public"
	}
	return &Introspector{db: db, namespace: namespace}
}

// IntrospectSchema introspects every base table of the namespace.
func (i *Introspector) IntrospectSchema(ctx context.Context) (map[string]*schema.TableMetadata, error) {
	names, err := i.getTableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	tables := make(map[string]*schema.TableMetadata, len(names))
	for _, name := range names {
		table, err := i.IntrospectTable(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect table %s.%s: %w", i.namespace, name, err)
		}
		tables[name] = table
	}
	return tables, nil
}

// IntrospectTable introspects a single table.
func (i *Introspector) IntrospectTable(ctx context.Context, tableName string) (*schema.TableMetadata, error) {
	table := &schema.TableMetadata{Name: tableName}

	var err error
	if table.Columns, err = i.getColumns(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	if table.PrimaryKey, err = i.getPrimaryKey(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to get primary key: %w", err)
	}
	if table.ForeignKeys, err = i.getForeignKeys(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to get foreign keys: %w", err)
	}
	if table.Indexes, err = i.getIndexes(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to get indexes: %w", err)
	}
	if table.Constraints, err = i.getConstraints(ctx, tableName); err != nil {
		return nil, fmt.Errorf("failed to get constraints: %w", err)
	}
	return table, nil
}

func (i *Introspector) getTableNames(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_name::text
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`
	rows, err := i.db.Query(ctx, query, i.namespace)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (i *Introspector) getColumns(ctx context.Context, tableName string) ([]schema.ColumnMetadata, error) {
	const query = `
		SELECT
			column_name::text,
			data_type::text,
			udt_name::text,
			character_maximum_length::int,
			numeric_precision::int,
			numeric_scale::int,
			is_nullable::text,
			column_default::text,
			ordinal_position::int,
			identity_generation::text
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`
	rows, err := i.db.Query(ctx, query, i.namespace, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.ColumnMetadata
	for rows.Next() {
		var (
			col                       schema.ColumnMetadata
			dataType, udtName         string
			maxLength, precision, scl *int
			isNullable                string
			position                  int
			identity                  *string
		)
		if err := rows.Scan(&col.Name, &dataType, &udtName, &maxLength, &precision, &scl,
			&isNullable, &col.Default, &position, &identity); err != nil {
			return nil, err
		}

		col.SQLType = buildSQLType(dataType, udtName, maxLength, precision, scl)
		col.Nullable = isNullable == "YES"
		col.Position = position - 1
		if identity != nil && *identity != "" {
			col.Identity = &schema.IdentityColumn{Generation: schema.IdentityGeneration(*identity)}
		}
		if isSequenceDefault(col.Default) {
			col.AutoIncrement = true
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// conkeyColumns renders the ordered column names of a pg_constraint key array.
func conkeyColumns(keyExpr, relExpr string) string {
	return fmt.Sprintf(`ARRAY(
				SELECT a.attname::text
				FROM unnest(%s) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = %s AND a.attnum = k.attnum
				ORDER BY k.ord
			)`, keyExpr, relExpr)
}

const constraintFrom = `
		FROM pg_constraint con
		JOIN pg_class rel ON rel.oid = con.conrelid
		JOIN pg_namespace nsp ON nsp.oid = rel.relnamespace`

func (i *Introspector) getPrimaryKey(ctx context.Context, tableName string) (*schema.PrimaryKeyMetadata, error) {
	query := `
		SELECT con.conname::text, ` + conkeyColumns("con.conkey", "con.conrelid") +
		constraintFrom + `
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype = 'p'
	`
	rows, err := i.db.Query(ctx, query, i.namespace, tableName)
	if err != nil {
		return nil, err
	}
	pks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.PrimaryKeyMetadata, error) {
		var pk schema.PrimaryKeyMetadata
		err := row.Scan(&pk.Name, &pk.Columns)
		return pk, err
	})
	if err != nil || len(pks) == 0 {
		return nil, err
	}
	return &pks[0], nil
}

func (i *Introspector) getForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKeyMetadata, error) {
	query := `
		SELECT
			con.conname::text,
			` + conkeyColumns("con.conkey", "con.conrelid") + `,
			ref.relname::text,
			` + conkeyColumns("con.confkey", "con.confrelid") + `,
			con.confdeltype::text,
			con.confupdtype::text` +
		constraintFrom + `
		JOIN pg_class ref ON ref.oid = con.confrelid
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype = 'f'
		ORDER BY con.conname
	`
	rows, err := i.db.Query(ctx, query, i.namespace, tableName)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.ForeignKeyMetadata, error) {
		var fk schema.ForeignKeyMetadata
		var onDelete, onUpdate string
		if err := row.Scan(&fk.Name, &fk.Columns, &fk.ReferencedTable, &fk.ReferencedColumns, &onDelete, &onUpdate); err != nil {
			return fk, err
		}
		var err error
		if fk.OnDelete, err = schema.ParseReferenceAction(onDelete); err != nil {
			return fk, err
		}
		fk.OnUpdate, err = schema.ParseReferenceAction(onUpdate)
		return fk, err
	})
}

// getIndexes returns standalone indexes only. Indexes backing a PRIMARY KEY
// or UNIQUE constraint are reported through the constraint.
func (i *Introspector) getIndexes(ctx context.Context, tableName string) ([]schema.IndexMetadata, error) {
	const query = `
		SELECT
			i.relname::text,
			array_agg(a.attname::text ORDER BY x.ordinality),
			ix.indisunique,
			am.amname::text
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_am am ON i.relam = am.oid
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS x(attnum, ordinality)
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = x.attnum
		WHERE n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
			AND NOT EXISTS (
				SELECT 1 FROM pg_constraint c
				WHERE c.conindid = ix.indexrelid AND c.conrelid = t.oid
			)
		GROUP BY i.relname, ix.indisunique, am.amname
		ORDER BY i.relname
	`
	rows, err := i.db.Query(ctx, query, i.namespace, tableName)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.IndexMetadata, error) {
		var idx schema.IndexMetadata
		err := row.Scan(&idx.Name, &idx.Columns, &idx.Unique, &idx.Type)
		return idx, err
	})
}

func (i *Introspector) getConstraints(ctx context.Context, tableName string) ([]schema.ConstraintMetadata, error) {
	query := `
		SELECT
			con.conname::text,
			con.contype::text,
			pg_get_constraintdef(con.oid),
			` + conkeyColumns("con.conkey", "con.conrelid") +
		constraintFrom + `
		WHERE nsp.nspname = $1 AND rel.relname = $2 AND con.contype IN ('c', 'u')
		ORDER BY con.conname
	`
	rows, err := i.db.Query(ctx, query, i.namespace, tableName)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (schema.ConstraintMetadata, error) {
		var c schema.ConstraintMetadata
		var contype, def string
		var columns []string
		if err := row.Scan(&c.Name, &contype, &def, &columns); err != nil {
			return c, err
		}
		switch contype {
		case "c":
			c.Type = schema.CheckConstraint
			c.Expression = strings.TrimPrefix(def, "CHECK ")
		case "u":
			c.Type = schema.UniqueConstraint
			c.Columns = columns
		}
		return c, nil
	})
}

// buildSQLType constructs the catalog spelling of an information_schema type.
func buildSQLType(dataType, udtName string, maxLength, precision, scale *int) string {
	switch dataType {
	case "character varying":
		if maxLength != nil {
			return fmt.Sprintf("varchar(%d)", *maxLength)
		}
		return "varchar"
	case "character":
		if maxLength != nil {
			return fmt.Sprintf("char(%d)", *maxLength)
		}
		return "char"
	case "numeric":
		if precision != nil && scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *precision, *scale)
		}
		return "numeric"
	case "ARRAY":
		if base, ok := strings.CutPrefix(udtName, "_"); ok {
			return schema.NormalizeType(base) + "[]"
		}
		return udtName
	case "USER-DEFINED":
		return udtName
	default:
		return schema.NormalizeType(dataType)
	}
}
