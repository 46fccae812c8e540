// Package describe turns a catalog into a document for display and export.
package describe

import (
	"fmt"
	"slices"
	"strings"

	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/schema"
)

type Catalog struct {
	Name      string  `json:"name" yaml:"name"`
	Namespace string  `json:"namespace" yaml:"namespace"`
	Tables    []Table `json:"tables" yaml:"tables"`
}

type Table struct {
	Name          string         `json:"name" yaml:"name"`
	Model         string         `json:"model" yaml:"model"`
	PrimaryKey    *Key           `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
	Columns       []Column       `json:"columns" yaml:"columns"`
	ForeignKeys   []ForeignKey   `json:"foreignKeys,omitempty" yaml:"foreignKeys,omitempty"`
	Uniques       []Key          `json:"uniques,omitempty" yaml:"uniques,omitempty"`
	Checks        []Check        `json:"checks,omitempty" yaml:"checks,omitempty"`
	Indexes       []Index        `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

type Column struct {
	Name       string `json:"name" yaml:"name"`
	Field      string `json:"field" yaml:"field"`
	Type       string `json:"type" yaml:"type"`
	Nullable   bool   `json:"nullable" yaml:"nullable"`
	Default    string `json:"default,omitempty" yaml:"default,omitempty"`
	Identity   string `json:"identity,omitempty" yaml:"identity,omitempty"`
	Unique     bool   `json:"unique,omitempty" yaml:"unique,omitempty"`
	AutoUpdate bool   `json:"autoUpdate,omitempty" yaml:"autoUpdate,omitempty"`
}

type Key struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

type Check struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

type ForeignKey struct {
	Name          string   `json:"name" yaml:"name"`
	Columns       []string `json:"columns" yaml:"columns"`
	References    string   `json:"references" yaml:"references"`
	OnDelete      string   `json:"onDelete" yaml:"onDelete"`
	OnUpdate      string   `json:"onUpdate" yaml:"onUpdate"`
	OrphanRemoval bool     `json:"orphanRemoval,omitempty" yaml:"orphanRemoval,omitempty"`
}

type Index struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Method  string   `json:"method" yaml:"method"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

type Relationship struct {
	Type          string   `json:"type" yaml:"type"`
	Target        string   `json:"target" yaml:"target"`
	ForeignKey    []string `json:"foreignKey" yaml:"foreignKey"`
	References    []string `json:"references" yaml:"references"`
	Through       string   `json:"through,omitempty" yaml:"through,omitempty"`
	Constraint    string   `json:"constraint" yaml:"constraint"`
	OnDelete      string   `json:"onDelete" yaml:"onDelete"`
	OrphanRemoval bool     `json:"orphanRemoval,omitempty" yaml:"orphanRemoval,omitempty"`
	Required      bool     `json:"required" yaml:"required"`
}

// Describe builds the document of catalog. Tables come in dependency order.
func Describe(catalog *registry.Registry) (*Catalog, error) {
	tables, err := catalog.Ordered()
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", catalog.Name(), err)
	}
	doc := &Catalog{Name: catalog.Name(), Namespace: catalog.Namespace()}
	for _, t := range tables {
		doc.Tables = append(doc.Tables, describeTable(t))
	}
	return doc, nil
}

func describeTable(t *schema.TableMetadata) Table {
	table := Table{Name: t.Name}
	if t.GoType != nil {
		table.Model = t.GoType.String()
	}
	if t.PrimaryKey != nil {
		table.PrimaryKey = &Key{Name: t.PrimaryKey.Name, Columns: t.PrimaryKey.Columns}
	}

	for _, c := range t.Columns {
		col := Column{
			Name:       c.Name,
			Field:      c.GoField,
			Type:       c.SQLType,
			Nullable:   c.Nullable,
			Unique:     c.Unique,
			AutoUpdate: c.AutoUpdate,
		}
		if c.Default != nil {
			col.Default = *c.Default
		}
		switch {
		case c.Identity != nil:
			col.Identity = string(c.Identity.Generation)
		case c.AutoIncrement:
			col.Identity = "SERIAL"
		}
		table.Columns = append(table.Columns, col)
	}

	for _, fk := range t.ForeignKeys {
		table.ForeignKeys = append(table.ForeignKeys, ForeignKey{
			Name:          fk.Name,
			Columns:       fk.Columns,
			References:    fmt.Sprintf("%s(%s)", fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", ")),
			OnDelete:      action(fk.OnDelete),
			OnUpdate:      action(fk.OnUpdate),
			OrphanRemoval: fk.OrphanRemoval,
		})
	}

	for _, c := range t.Constraints {
		switch c.Type {
		case schema.CheckConstraint:
			table.Checks = append(table.Checks, Check{Name: c.Name, Expression: c.Expression})
		default:
			table.Uniques = append(table.Uniques, Key{Name: c.Name, Columns: c.Columns})
		}
	}

	for _, idx := range t.Indexes {
		method := idx.Type
		if method == "" {
			method = "btree"
		}
		table.Indexes = append(table.Indexes, Index{Name: idx.Name, Columns: idx.Columns, Method: method, Unique: idx.Unique})
	}

	for _, r := range t.Relationships {
		table.Relationships = append(table.Relationships, Relationship{
			Type:          string(r.Type),
			Target:        r.TargetTable,
			ForeignKey:    r.ForeignKey,
			References:    r.References,
			Through:       r.JoinTable,
			Constraint:    r.ConstraintName,
			OnDelete:      action(r.OnDelete),
			OrphanRemoval: r.OrphanRemoval,
			Required:      r.Required,
		})
	}
	return table
}

func action(a schema.ReferenceAction) string {
	if a == "" {
		return string(schema.NoAction)
	}
	return string(a)
}

// Flags renders the column properties as a short list, e.g. "PK, NOT NULL".
func (t Table) Flags(c Column) string {
	var flags []string
	if t.PrimaryKey != nil && slices.Contains(t.PrimaryKey.Columns, c.Name) {
		flags = append(flags, "PK")
	}
	if c.Identity != "" {
		flags = append(flags, "IDENTITY "+c.Identity)
	}
	if !c.Nullable {
		flags = append(flags, "NOT NULL")
	}
	if c.Unique {
		flags = append(flags, "UNIQUE")
	}
	for _, fk := range t.ForeignKeys {
		if slices.Contains(fk.Columns, c.Name) {
			flags = append(flags, "FK "+fk.References)
		}
	}
	if c.AutoUpdate {
		flags = append(flags, "AUTO UPDATE")
	}
	return strings.Join(flags, ", ")
}

// Edge renders a relationship as one line, e.g. "users 1-N user_products (user_id)".
func (r Relationship) Edge(source string) string {
	arrow := map[string]string{
		string(schema.BelongsTo):  "N-1",
		string(schema.HasOne):     "1-1",
		string(schema.HasMany):    "1-N",
		string(schema.ManyToMany): "M-N",
	}[r.Type]
	line := fmt.Sprintf("%s %s %s (%s)", source, arrow, r.Target, strings.Join(r.ForeignKey, ", "))
	if r.Through != "" {
		line += " via " + r.Through
	}
	return line
}
