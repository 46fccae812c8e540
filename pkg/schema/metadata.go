// Package schema turns tagged Go structs into table metadata and resolves the
// relationships between them.
package schema

import (
	"reflect"
	"slices"
)

// TableMetadata describes one table parsed from a Go struct.
type TableMetadata struct {
	Name          string
	GoType        reflect.Type
	Columns       []ColumnMetadata
	PrimaryKey    *PrimaryKeyMetadata
	ForeignKeys   []ForeignKeyMetadata
	Indexes       []IndexMetadata
	Constraints   []ConstraintMetadata
	Relationships []RelationshipMetadata
}

// ColumnMetadata describes a single column.
type ColumnMetadata struct {
	Name          string
	GoField       string
	GoType        reflect.Type
	SQLType       string
	Nullable      bool
	Default       *string
	Unique        bool
	AutoIncrement bool
	Identity      *IdentityColumn
	IsJSONB       bool
	// AutoUpdate columns are refreshed to CURRENT_TIMESTAMP by a trigger on every UPDATE.
	AutoUpdate bool
	Position   int
}

// IdentityGeneration is the GENERATED clause of an identity column.
type IdentityGeneration string

const (
	IdentityAlways    IdentityGeneration = "ALWAYS"
	IdentityByDefault IdentityGeneration = "BY DEFAULT"
)

// IdentityColumn marks a column as GENERATED ... AS IDENTITY.
type IdentityColumn struct {
	Generation IdentityGeneration
}

// PrimaryKeyMetadata is the primary key of a table.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// ReferenceAction is the referential action of a foreign key.
type ReferenceAction string

const (
	NoAction   ReferenceAction = "NO ACTION"
	Restrict   ReferenceAction = "RESTRICT"
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// ForeignKeyMetadata is a FOREIGN KEY constraint owned by a table.
type ForeignKeyMetadata struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferenceAction
	OnUpdate          ReferenceAction
	// OrphanRemoval marks children that must be deleted once detached from
	// their parent. It is metadata only and has no DDL counterpart.
	OrphanRemoval bool
}

// IndexMetadata is a standalone index.
type IndexMetadata struct {
	Name    string
	Columns []string
	Unique  bool
	Type    string
}

// ConstraintType is the kind of a table constraint.
type ConstraintType string

const (
	UniqueConstraint ConstraintType = "UNIQUE"
	CheckConstraint  ConstraintType = "CHECK"
)

// ConstraintMetadata is a UNIQUE or CHECK table constraint.
type ConstraintMetadata struct {
	Name       string
	Type       ConstraintType
	Columns    []string
	Expression string
}

// RelationshipType is the cardinality of a relationship edge, seen from its source table.
type RelationshipType string

const (
	BelongsTo  RelationshipType = "belongsTo"
	HasOne     RelationshipType = "hasOne"
	HasMany    RelationshipType = "hasMany"
	ManyToMany RelationshipType = "manyToMany"
)

// RelationshipMetadata is one resolved edge between two tables.
//
// For BelongsTo, ForeignKey lives on the source table and References on the
// target. For HasOne and HasMany, ForeignKey lives on the target table and
// References on the source. For ManyToMany, ForeignKey and JoinForeignKey
// live on JoinTable and point at References (source) and JoinReferences
// (target).
type RelationshipMetadata struct {
	Type           RelationshipType
	SourceTable    string
	TargetTable    string
	ForeignKey     []string
	References     []string
	JoinTable      string
	JoinForeignKey []string
	JoinReferences []string
	ConstraintName string
	OnDelete       ReferenceAction
	OrphanRemoval  bool
	Required       bool
}

// GetColumnByName returns the column with the given name or nil.
func (t *TableMetadata) GetColumnByName(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetColumnByField returns the column mapped to the given Go field or nil.
func (t *TableMetadata) GetColumnByField(field string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].GoField == field {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	return slices.Contains(t.PrimaryKey.Columns, column)
}

// IsKey reports whether columns, in any order, form the primary key or a
// unique key of the table.
func (t *TableMetadata) IsKey(columns []string) bool {
	if len(columns) == 0 {
		return false
	}
	if t.PrimaryKey != nil && sameSet(t.PrimaryKey.Columns, columns) {
		return true
	}
	if len(columns) == 1 {
		if col := t.GetColumnByName(columns[0]); col != nil && col.Unique {
			return true
		}
	}
	for _, c := range t.Constraints {
		if c.Type == UniqueConstraint && sameSet(c.Columns, columns) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && sameSet(idx.Columns, columns) {
			return true
		}
	}
	return false
}

// RelationshipsTo returns the edges from this table to target.
func (t *TableMetadata) RelationshipsTo(target string, types ...RelationshipType) []RelationshipMetadata {
	var out []RelationshipMetadata
	for _, rel := range t.Relationships {
		if rel.TargetTable != target {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, rel.Type) {
			continue
		}
		out = append(out, rel)
	}
	return out
}

// UniqueConstraints returns every uniqueness rule on the table, including
// inline column UNIQUE flags expressed as single-column constraints named the
// way PostgreSQL names them.
func (t *TableMetadata) UniqueConstraints() []ConstraintMetadata {
	var out []ConstraintMetadata
	for _, col := range t.Columns {
		if col.Unique {
			out = append(out, ConstraintMetadata{
				Name:    t.Name + "_" + col.Name + "_key",
				Type:    UniqueConstraint,
				Columns: []string{col.Name},
			})
		}
	}
	for _, c := range t.Constraints {
		if c.Type == UniqueConstraint {
			out = append(out, c)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
