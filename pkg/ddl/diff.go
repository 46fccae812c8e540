// Package ddl renders catalogs as PostgreSQL DDL and checks live databases
// against them.
package ddl

import (
	"fmt"
	"strings"

	"github.com/andressep95/annotations/pkg/schema"
)

// SchemaDiff is the difference between a catalog and one database namespace.
type SchemaDiff struct {
	Namespace      string
	TablesAdded    []schema.TableMetadata // in dependency order
	TablesDropped  []schema.TableMetadata
	TablesModified []TableDiff
}

// TableDiff represents changes to a single table.
type TableDiff struct {
	TableName          string
	ColumnsAdded       []schema.ColumnMetadata
	ColumnsDropped     []schema.ColumnMetadata
	ColumnsModified    []ColumnDiff
	IndexesAdded       []schema.IndexMetadata
	IndexesDropped     []schema.IndexMetadata
	ForeignKeysAdded   []schema.ForeignKeyMetadata
	ForeignKeysDropped []schema.ForeignKeyMetadata
	ConstraintsAdded   []schema.ConstraintMetadata
	ConstraintsDropped []schema.ConstraintMetadata
	PrimaryKeyChanged  *PrimaryKeyChange
}

// ColumnDiff represents changes to a single column. OldColumn is the database
// side, NewColumn the catalog side.
type ColumnDiff struct {
	ColumnName      string
	OldColumn       schema.ColumnMetadata
	NewColumn       schema.ColumnMetadata
	TypeChanged     bool
	NullChanged     bool
	DefaultChanged  bool
	IdentityChanged bool
}

// PrimaryKeyChange represents a change to the primary key.
type PrimaryKeyChange struct {
	Old *schema.PrimaryKeyMetadata
	New *schema.PrimaryKeyMetadata
}

// HasChanges returns true if there are any schema differences.
func (d *SchemaDiff) HasChanges() bool {
	return len(d.TablesAdded) > 0 || d.HasDrift()
}

// HasDrift reports differences that creating missing tables cannot fix.
func (d *SchemaDiff) HasDrift() bool {
	return len(d.TablesDropped) > 0 || len(d.TablesModified) > 0
}

// HasChanges returns true if the table has any changes.
func (t *TableDiff) HasChanges() bool {
	return len(t.ColumnsAdded) > 0 ||
		len(t.ColumnsDropped) > 0 ||
		len(t.ColumnsModified) > 0 ||
		len(t.IndexesAdded) > 0 ||
		len(t.IndexesDropped) > 0 ||
		len(t.ForeignKeysAdded) > 0 ||
		len(t.ForeignKeysDropped) > 0 ||
		len(t.ConstraintsAdded) > 0 ||
		len(t.ConstraintsDropped) > 0 ||
		t.PrimaryKeyChanged != nil
}

func (c *ColumnDiff) hasChanges() bool {
	return c.TypeChanged || c.NullChanged || c.DefaultChanged || c.IdentityChanged
}

// Summary returns one human readable line per difference.
func (d *SchemaDiff) Summary() []string {
	var lines []string
	for _, t := range d.TablesAdded {
		lines = append(lines, fmt.Sprintf("missing table %s", t.Name))
	}
	for _, t := range d.TablesDropped {
		lines = append(lines, fmt.Sprintf("unexpected table %s", t.Name))
	}
	for _, td := range d.TablesModified {
		lines = append(lines, td.Summary()...)
	}
	return lines
}

// Summary returns one human readable line per table difference.
func (t *TableDiff) Summary() []string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, t.TableName+": "+fmt.Sprintf(format, args...))
	}
	for _, c := range t.ColumnsAdded {
		add("missing column %s %s", c.Name, c.SQLType)
	}
	for _, c := range t.ColumnsDropped {
		add("unexpected column %s", c.Name)
	}
	for _, c := range t.ColumnsModified {
		var what []string
		if c.TypeChanged {
			what = append(what, fmt.Sprintf("type %s, want %s", c.OldColumn.SQLType, c.NewColumn.SQLType))
		}
		if c.NullChanged {
			what = append(what, fmt.Sprintf("nullable %t, want %t", c.OldColumn.Nullable, c.NewColumn.Nullable))
		}
		if c.DefaultChanged {
			what = append(what, fmt.Sprintf("default %s, want %s", describeDefault(c.OldColumn.Default), describeDefault(c.NewColumn.Default)))
		}
		if c.IdentityChanged {
			what = append(what, fmt.Sprintf("identity %s, want %s", describeIdentity(c.OldColumn.Identity), describeIdentity(c.NewColumn.Identity)))
		}
		add("column %s: %s", c.ColumnName, strings.Join(what, "; "))
	}
	if pk := t.PrimaryKeyChanged; pk != nil {
		add("primary key %s, want %s", describePK(pk.Old), describePK(pk.New))
	}
	for _, idx := range t.IndexesAdded {
		add("missing index %s", idx.Name)
	}
	for _, idx := range t.IndexesDropped {
		add("unexpected index %s", idx.Name)
	}
	for _, fk := range t.ForeignKeysAdded {
		add("missing foreign key %s", fk.Name)
	}
	for _, fk := range t.ForeignKeysDropped {
		add("unexpected foreign key %s", fk.Name)
	}
	for _, c := range t.ConstraintsAdded {
		add("missing %s constraint %s", strings.ToLower(string(c.Type)), c.Name)
	}
	for _, c := range t.ConstraintsDropped {
		add("unexpected %s constraint %s", strings.ToLower(string(c.Type)), c.Name)
	}
	return lines
}

func describeDefault(d *string) string {
	if d == nil {
		return "none"
	}
	return *d
}

func describeIdentity(id *schema.IdentityColumn) string {
	if id == nil {
		return "none"
	}
	return string(id.Generation)
}

func describePK(pk *schema.PrimaryKeyMetadata) string {
	if pk == nil {
		return "none"
	}
	return fmt.Sprintf("%s(%s)", pk.Name, strings.Join(pk.Columns, ", "))
}
