package builder

import (
	"fmt"
	"reflect"

	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
	"github.com/andressep95/annotations/pkg/schema"
)

// DB binds a runtime connection to the catalog whose tables it queries.
type DB struct {
	db      *runtime.DB
	catalog *registry.Registry
}

// New creates a query builder for catalog on db. db may be nil when only
// ToSQL is used.
func New(db *runtime.DB, catalog *registry.Registry) *DB {
	return &DB{db: db, catalog: catalog}
}

// Runtime returns the underlying runtime.DB.
func (d *DB) Runtime() *runtime.DB {
	return d.db
}

// Catalog returns the catalog the builder resolves models against.
func (d *DB) Catalog() *registry.Registry {
	return d.catalog
}

func tableFor[T any](d *DB) (*schema.TableMetadata, error) {
	if d == nil || d.catalog == nil {
		return nil, fmt.Errorf("builder has no catalog")
	}
	return d.catalog.Get(reflect.TypeFor[T]())
}

// Select creates a new type-safe SELECT query.
// Usage: builder.Select[Student](db).Where(...).All(ctx)
func Select[T any](d *DB) *SelectQuery[T] {
	table, err := tableFor[T](d)
	return &SelectQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Insert creates a new type-safe INSERT query.
// Usage: builder.Insert[Product](db).Values(p).Exec(ctx)
func Insert[T any](d *DB) *InsertQuery[T] {
	table, err := tableFor[T](d)
	return &InsertQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Update creates a new type-safe UPDATE query.
// Usage: builder.Update[Profile](db).Set("bio", "...").Where(...).Exec(ctx)
func Update[T any](d *DB) *UpdateQuery[T] {
	table, err := tableFor[T](d)
	return &UpdateQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

// Delete creates a new type-safe DELETE query.
// Usage: builder.Delete[User](db).Where(...).Exec(ctx)
func Delete[T any](d *DB) *DeleteQuery[T] {
	table, err := tableFor[T](d)
	return &DeleteQuery[T]{
		db:    d,
		table: table,
		err:   err,
	}
}

func (d *DB) qualify(table *schema.TableMetadata) string {
	return d.catalog.Qualify(table.Name)
}
