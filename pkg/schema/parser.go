package schema

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `db:"..."`).
	StructTagKey = "db"
)

// TableNamer lets a model choose its table name.
type TableNamer interface {
	TableName() string
}

// Parser parses struct definitions to extract table metadata.
type Parser struct {
	typeMapper *TypeMapper
	cache      map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		typeMapper: DefaultTypeMapper,
		cache:      make(map[reflect.Type]*TableMetadata),
	}
}

// Parse extracts TableMetadata from a Go struct type.
// Parser is not safe for concurrent use; Registry serializes access to it.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:        extractTableName(modelType),
		GoType:      modelType,
		Columns:     make([]ColumnMetadata, 0),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
		Indexes:     make([]IndexMetadata, 0),
		Constraints: make([]ConstraintMetadata, 0),
	}

	if err := p.parseFields(modelType, table); err != nil {
		return nil, err
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	p.cache[modelType] = table
	return table, nil
}

// parseFields walks the exported fields of t, flattening untagged embedded
// structs into the same table.
func (p *Parser) parseFields(t reflect.Type, table *TableMetadata) error {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tagValue, hasTag := field.Tag.Lookup(StructTagKey)

		if field.Anonymous && !hasTag {
			ft := field.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := p.parseFields(ft, table); err != nil {
					return err
				}
				continue
			}
		}
		if !field.IsExported() || tagValue == "" || tagValue == "-" {
			continue
		}

		opts, err := parseTag(tagValue)
		if err != nil {
			return fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}

		column, err := p.createColumnMetadata(field, opts, len(table.Columns))
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}

		if opts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{Name: table.Name + "_pkey"}
			}
			table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
		}

		if name, ok := opts.Lookup("unique"); ok && name != "" {
			addToConstraint(table, name, column.Name)
		}

		if name, ok := opts.Lookup("index"); ok {
			if name == "" {
				name = fmt.Sprintf("idx_%s_%s", table.Name, column.Name)
			}
			addToIndex(table, name, column.Name)
		}

		if ref, ok := opts.Lookup("fk"); ok {
			fk, err := parseForeignKey(table.Name, column.Name, ref, opts)
			if err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			table.ForeignKeys = append(table.ForeignKeys, fk)
		}

		table.Columns = append(table.Columns, column)
	}
	return nil
}

// extractTableName returns TableName() when the model implements TableNamer,
// otherwise the snake_case form of the struct name.
func extractTableName(modelType reflect.Type) string {
	v := reflect.New(modelType)
	if namer, ok := v.Interface().(TableNamer); ok {
		return namer.TableName()
	}
	if namer, ok := v.Elem().Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return toSnakeCase(modelType.Name())
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) (ColumnMetadata, error) {
	column := ColumnMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
	}
	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else {
		column.SQLType = p.typeMapper.GoTypeToPostgreSQL(field.Type)
	}
	if column.SQLType == "" {
		return column, fmt.Errorf("cannot infer SQL type for %s, declare it in the tag", field.Type)
	}
	column.IsJSONB = column.SQLType == "jsonb"

	// notNull wins over pointer nullability so required references can
	// still be left unset in Go.
	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")

	if defaultVal, ok := opts.Lookup("default"); ok {
		if err := ValidateDefaultValue(defaultVal); err != nil {
			return column, err
		}
		column.Default = &defaultVal
	}

	// unique(name) is collected as a named table constraint instead.
	if name, ok := opts.Lookup("unique"); ok && name == "" {
		column.Unique = true
	}

	column.AutoIncrement = opts.Has("autoIncrement") || opts.Has("serial")
	switch {
	case opts.Has("identity"), opts.Has("identityAlways"):
		column.Identity = &IdentityColumn{Generation: IdentityAlways}
	case opts.Has("identityByDefault"):
		column.Identity = &IdentityColumn{Generation: IdentityByDefault}
	}
	if column.Identity != nil || column.AutoIncrement {
		column.Nullable = false
	}

	column.AutoUpdate = opts.Has("autoUpdate")
	return column, nil
}

func addToConstraint(table *TableMetadata, name, column string) {
	for i := range table.Constraints {
		if table.Constraints[i].Name == name {
			table.Constraints[i].Columns = append(table.Constraints[i].Columns, column)
			return
		}
	}
	table.Constraints = append(table.Constraints, ConstraintMetadata{
		Name:    name,
		Type:    UniqueConstraint,
		Columns: []string{column},
	})
}

func addToIndex(table *TableMetadata, name, column string) {
	for i := range table.Indexes {
		if table.Indexes[i].Name == name {
			table.Indexes[i].Columns = append(table.Indexes[i].Columns, column)
			return
		}
	}
	table.Indexes = append(table.Indexes, IndexMetadata{
		Name:    name,
		Columns: []string{column},
		Type:    "btree",
	})
}

// parseForeignKey builds the FK for a column tagged fk(table.column) or fk(table(column)).
func parseForeignKey(tableName, columnName, ref string, opts *TagOptions) (ForeignKeyMetadata, error) {
	var refTable, refColumn string
	if before, after, ok := strings.Cut(ref, "."); ok {
		refTable, refColumn = before, after
	} else if idx := strings.Index(ref, "("); idx > 0 && strings.HasSuffix(ref, ")") {
		refTable, refColumn = ref[:idx], ref[idx+1:len(ref)-1]
	}
	if refTable == "" || refColumn == "" {
		return ForeignKeyMetadata{}, fmt.Errorf("invalid foreign key reference %q, want table.column", ref)
	}

	name := opts.Get("fkName")
	if name == "" {
		name = fmt.Sprintf("fk_%s_%s_%s", tableName, columnName, refTable)
	}
	onDelete, err := ParseReferenceAction(opts.Get("onDelete"))
	if err != nil {
		return ForeignKeyMetadata{}, err
	}
	onUpdate, err := ParseReferenceAction(opts.Get("onUpdate"))
	if err != nil {
		return ForeignKeyMetadata{}, err
	}
	return ForeignKeyMetadata{
		Name:              name,
		Columns:           []string{columnName},
		ReferencedTable:   refTable,
		ReferencedColumns: []string{refColumn},
		OnDelete:          onDelete,
		OnUpdate:          onUpdate,
		OrphanRemoval:     opts.Has("orphanRemoval"),
	}, nil
}

// ParseReferenceAction converts a tag or catalog value to ReferenceAction.
// An empty action means NO ACTION.
func ParseReferenceAction(action string) (ReferenceAction, error) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "", "NOACTION", "NO ACTION", "A":
		return NoAction, nil
	case "CASCADE", "C":
		return Cascade, nil
	case "RESTRICT", "R":
		return Restrict, nil
	case "SETNULL", "SET NULL", "N":
		return SetNull, nil
	case "SETDEFAULT", "SET DEFAULT", "D":
		return SetDefault, nil
	default:
		return NoAction, fmt.Errorf("unknown referential action %q", action)
	}
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // Column name (first element)
	Options map[string]string // Other options
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3"
func parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 || parts[0] == "" {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for _, opt := range parts[1:] {
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else if key, value, ok := strings.Cut(opt, ":"); ok {
			opts.Options[key] = value
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

// Lookup returns the value of an option and whether it was present.
func (t *TagOptions) Lookup(key string) (string, bool) {
	v, ok := t.Options[key]
	return v, ok
}

var pgTypes = []string{
	"uuid", "varchar", "text", "char",
	"smallint", "integer", "bigint", "serial", "bigserial",
	"numeric", "decimal", "real", "double precision",
	"boolean", "bool",
	"date", "time", "timestamp", "timestamptz", "interval",
	"json", "jsonb",
	"bytea",
	"inet", "cidr",
}

// GetSQLType returns the SQL type declared in the tag options, e.g. varchar(100) or numeric(10,2).
func (t *TagOptions) GetSQLType() string {
	for _, pgType := range pgTypes {
		if value, ok := t.Lookup(pgType); ok {
			if value != "" {
				return fmt.Sprintf("%s(%s)", pgType, value)
			}
			return pgType
		}
	}
	return ""
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts a string from PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, ch := range s {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}
