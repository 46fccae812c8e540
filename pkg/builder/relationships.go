package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/andressep95/annotations/pkg/runtime"
	"github.com/andressep95/annotations/pkg/schema"
)

// Children loads the rows of C that reference parent through its foreign key.
// The catalog must hold exactly one HasMany or HasOne edge from P to C.
//
//	students, err := builder.Children[academic.Student](ctx, db, faculty)
func Children[C, P any](ctx context.Context, d *DB, parent P) ([]C, error) {
	query, err := childrenQuery[C](d, parent)
	if err != nil {
		return nil, err
	}
	return query.All(ctx)
}

// Child loads the single row of C that references parent through a HasOne
// edge, or runtime.ErrNotFound.
func Child[C, P any](ctx context.Context, d *DB, parent P) (*C, error) {
	query, err := childrenQuery[C](d, parent, schema.HasOne)
	if err != nil {
		return nil, err
	}
	return query.First(ctx)
}

func childrenQuery[C, P any](d *DB, parent P, types ...schema.RelationshipType) (*SelectQuery[C], error) {
	if len(types) == 0 {
		types = []schema.RelationshipType{schema.HasMany, schema.HasOne}
	}
	source, target, err := edgeTables[P, C](d)
	if err != nil {
		return nil, err
	}
	rel, err := singleEdge(source, target, types...)
	if err != nil {
		return nil, err
	}

	keys, err := columnValues(parent, source, rel.References)
	if err != nil {
		return nil, err
	}
	query := Select[C](d)
	for i, column := range rel.ForeignKey {
		query.Where(Eq(column, keys[i]))
	}
	for _, column := range orderColumns(target) {
		query.OrderByAsc(column)
	}
	return query, nil
}

// Parent loads the row of P that child references through a BelongsTo edge.
// A child whose foreign key is unset yields runtime.ErrNotFound.
//
//	faculty, err := builder.Parent[academic.Faculty](ctx, db, student)
func Parent[P, C any](ctx context.Context, d *DB, child C) (*P, error) {
	source, target, err := edgeTables[C, P](d)
	if err != nil {
		return nil, err
	}
	rel, err := singleEdge(source, target, schema.BelongsTo)
	if err != nil {
		return nil, err
	}

	keys, err := columnValues(child, source, rel.ForeignKey)
	if err != nil {
		return nil, err
	}
	query := Select[P](d)
	for i, column := range rel.References {
		if keys[i] == nil {
			return nil, fmt.Errorf("%s.%s is null: %w", source.Name, rel.ForeignKey[i], runtime.ErrNotFound)
		}
		query.Where(Eq(column, keys[i]))
	}
	return query.First(ctx)
}

// Related loads the rows of T linked to source through the join entity J.
//
//	products, err := builder.Related[commerce.Product, commerce.UserProduct](ctx, db, user)
func Related[T, J, S any](ctx context.Context, d *DB, source S) ([]T, error) {
	query, err := relatedQuery[T, J](d, source)
	if err != nil {
		return nil, err
	}
	return query.All(ctx)
}

func relatedQuery[T, J, S any](d *DB, source S) (*SelectQuery[T], error) {
	sourceTable, target, err := edgeTables[S, T](d)
	if err != nil {
		return nil, err
	}
	join, err := tableFor[J](d)
	if err != nil {
		return nil, err
	}

	var rel *schema.RelationshipMetadata
	for _, r := range sourceTable.RelationshipsTo(target.Name, schema.ManyToMany) {
		if r.JoinTable == join.Name {
			rel = &r
			break
		}
	}
	if rel == nil {
		return nil, fmt.Errorf("no many-to-many edge from %s to %s through %s", sourceTable.Name, target.Name, join.Name)
	}

	keys, err := columnValues(source, sourceTable, rel.References)
	if err != nil {
		return nil, err
	}

	targetName, joinName := d.qualify(target), d.qualify(join)
	on := ""
	for i, column := range rel.JoinForeignKey {
		if i > 0 {
			on += " AND "
		}
		on += fmt.Sprintf("%s.%s = %s.%s", targetName, rel.JoinReferences[i], joinName, column)
	}

	query := Select[T](d).Columns(targetName + ".*").InnerJoin(joinName, on)
	for i, column := range rel.ForeignKey {
		query.Where(Eq(joinName+"."+column, keys[i]))
	}
	for _, column := range orderColumns(target) {
		query.OrderByAsc(targetName + "." + column)
	}
	return query, nil
}

func edgeTables[S, T any](d *DB) (*schema.TableMetadata, *schema.TableMetadata, error) {
	source, err := tableFor[S](d)
	if err != nil {
		return nil, nil, err
	}
	target, err := tableFor[T](d)
	if err != nil {
		return nil, nil, err
	}
	if !d.catalog.Resolved() {
		return nil, nil, fmt.Errorf("catalog %s is not resolved", d.catalog.Name())
	}
	return source, target, nil
}

func singleEdge(source, target *schema.TableMetadata, types ...schema.RelationshipType) (*schema.RelationshipMetadata, error) {
	edges := source.RelationshipsTo(target.Name, types...)
	switch len(edges) {
	case 0:
		return nil, fmt.Errorf("no %v edge from %s to %s", types, source.Name, target.Name)
	case 1:
		return &edges[0], nil
	default:
		return nil, fmt.Errorf("%d edges from %s to %s, expected one", len(edges), source.Name, target.Name)
	}
}

// columnValues reads the values of columns from model. Nil pointers read as nil.
func columnValues(model any, table *schema.TableMetadata, columns []string) ([]any, error) {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("nil %s", table.Name)
		}
		v = v.Elem()
	}

	values := make([]any, len(columns))
	for i, name := range columns {
		col := table.GetColumnByName(name)
		if col == nil {
			return nil, fmt.Errorf("table %s has no column %s", table.Name, name)
		}
		field := v.FieldByName(col.GoField)
		if !field.IsValid() {
			return nil, fmt.Errorf("%s has no field %s", v.Type(), col.GoField)
		}
		if field.Kind() == reflect.Pointer {
			if field.IsNil() {
				continue
			}
			field = field.Elem()
		}
		values[i] = field.Interface()
	}
	return values, nil
}

// orderColumns gives loaders a stable order: the primary key.
func orderColumns(t *schema.TableMetadata) []string {
	if t.PrimaryKey == nil {
		return nil
	}
	return t.PrimaryKey.Columns
}
