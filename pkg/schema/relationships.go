package schema

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

var (
	// ErrUnknownTable is returned when a foreign key references a table outside the catalog.
	ErrUnknownTable = errors.New("unknown referenced table")

	// ErrNotAKey is returned when a foreign key references columns that are
	// neither the primary key nor a unique key of the target.
	ErrNotAKey = errors.New("referenced columns are not a primary or unique key")

	// ErrDuplicateJoinTable is returned when two join tables link the same pair of tables.
	ErrDuplicateJoinTable = errors.New("many-to-many pair backed by more than one join table")

	// ErrDependencyCycle is returned when tables reference each other in a cycle.
	ErrDependencyCycle = errors.New("foreign key dependency cycle")
)

// Resolve derives the relationship edges of every table from its foreign keys
// and checks referential integrity across the set. Existing relationships are
// replaced. All integrity problems are reported together.
func Resolve(tables []*TableMetadata) error {
	byName := make(map[string]*TableMetadata, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
		t.Relationships = nil
	}

	var errs []error
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			target, err := checkForeignKey(t, fk, byName)
			if err != nil {
				errs = append(errs, err)
				continue
			}

			required := true
			for _, c := range fk.Columns {
				if col := t.GetColumnByName(c); col == nil || col.Nullable {
					required = false
				}
			}

			t.Relationships = append(t.Relationships, RelationshipMetadata{
				Type:           BelongsTo,
				SourceTable:    t.Name,
				TargetTable:    target.Name,
				ForeignKey:     fk.Columns,
				References:     fk.ReferencedColumns,
				ConstraintName: fk.Name,
				OnDelete:       fk.OnDelete,
				OrphanRemoval:  fk.OrphanRemoval,
				Required:       required,
			})

			inverse := HasMany
			if t.IsKey(fk.Columns) {
				inverse = HasOne
			}
			target.Relationships = append(target.Relationships, RelationshipMetadata{
				Type:           inverse,
				SourceTable:    target.Name,
				TargetTable:    t.Name,
				ForeignKey:     fk.Columns,
				References:     fk.ReferencedColumns,
				ConstraintName: fk.Name,
				OnDelete:       fk.OnDelete,
				OrphanRemoval:  fk.OrphanRemoval,
				Required:       required,
			})
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	joinTables := make(map[string]string)
	for _, t := range tables {
		left, right, ok := joinTableKeys(t)
		if !ok {
			continue
		}
		pair := pairKey(left.ReferencedTable, right.ReferencedTable)
		if existing, dup := joinTables[pair]; dup {
			errs = append(errs, fmt.Errorf("%w: %s and %s both join %s", ErrDuplicateJoinTable, existing, t.Name, pair))
			continue
		}
		joinTables[pair] = t.Name

		addManyToMany(byName[left.ReferencedTable], t.Name, left, right)
		addManyToMany(byName[right.ReferencedTable], t.Name, right, left)
	}
	return errors.Join(errs...)
}

func checkForeignKey(t *TableMetadata, fk ForeignKeyMetadata, byName map[string]*TableMetadata) (*TableMetadata, error) {
	target, ok := byName[fk.ReferencedTable]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w %q", t.Name, fk.Name, ErrUnknownTable, fk.ReferencedTable)
	}
	if len(fk.Columns) != len(fk.ReferencedColumns) {
		return nil, fmt.Errorf("%s: %s: %d columns reference %d columns", t.Name, fk.Name, len(fk.Columns), len(fk.ReferencedColumns))
	}

	var errs []error
	for i, c := range fk.Columns {
		src := t.GetColumnByName(c)
		ref := target.GetColumnByName(fk.ReferencedColumns[i])
		switch {
		case src == nil:
			errs = append(errs, fmt.Errorf("%s: %s: unknown column %s", t.Name, fk.Name, c))
		case ref == nil:
			errs = append(errs, fmt.Errorf("%s: %s: unknown referenced column %s.%s", t.Name, fk.Name, target.Name, fk.ReferencedColumns[i]))
		case BaseType(src.SQLType) != BaseType(ref.SQLType):
			errs = append(errs, fmt.Errorf("%s: %s: column %s is %s but %s.%s is %s",
				t.Name, fk.Name, c, src.SQLType, target.Name, ref.Name, ref.SQLType))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if !target.IsKey(fk.ReferencedColumns) {
		return nil, fmt.Errorf("%s: %s: %w: %s(%s)", t.Name, fk.Name, ErrNotAKey,
			target.Name, strings.Join(fk.ReferencedColumns, ", "))
	}
	return target, nil
}

// joinTableKeys reports whether t is a join table, i.e. its primary key is
// exactly the columns of two single-column foreign keys.
func joinTableKeys(t *TableMetadata) (ForeignKeyMetadata, ForeignKeyMetadata, bool) {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 2 {
		return ForeignKeyMetadata{}, ForeignKeyMetadata{}, false
	}
	var keys []ForeignKeyMetadata
	for _, pkCol := range t.PrimaryKey.Columns {
		for _, fk := range t.ForeignKeys {
			if len(fk.Columns) == 1 && fk.Columns[0] == pkCol {
				keys = append(keys, fk)
				break
			}
		}
	}
	if len(keys) != 2 {
		return ForeignKeyMetadata{}, ForeignKeyMetadata{}, false
	}
	return keys[0], keys[1], true
}

func addManyToMany(source *TableMetadata, joinTable string, toSource, toTarget ForeignKeyMetadata) {
	source.Relationships = append(source.Relationships, RelationshipMetadata{
		Type:           ManyToMany,
		SourceTable:    source.Name,
		TargetTable:    toTarget.ReferencedTable,
		ForeignKey:     toSource.Columns,
		References:     toSource.ReferencedColumns,
		JoinTable:      joinTable,
		JoinForeignKey: toTarget.Columns,
		JoinReferences: toTarget.ReferencedColumns,
		ConstraintName: toSource.Name,
		OnDelete:       toSource.OnDelete,
		OrphanRemoval:  toSource.OrphanRemoval,
		Required:       true,
	})
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "<->" + b
}

// SortByDependency orders tables so that every referenced table precedes the
// tables referencing it. Ties are broken by name. Self references are
// allowed; references to tables outside the set are ignored.
func SortByDependency(tables []*TableMetadata) ([]*TableMetadata, error) {
	byName := make(map[string]*TableMetadata, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	pending := make(map[string]int, len(tables))
	dependents := make(map[string][]string)
	for _, t := range tables {
		deps := make(map[string]struct{})
		for _, fk := range t.ForeignKeys {
			if fk.ReferencedTable == t.Name {
				continue
			}
			if _, ok := byName[fk.ReferencedTable]; ok {
				deps[fk.ReferencedTable] = struct{}{}
			}
		}
		pending[t.Name] = len(deps)
		for dep := range deps {
			dependents[dep] = append(dependents[dep], t.Name)
		}
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	sorted := make([]*TableMetadata, 0, len(tables))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, byName[name])
		for _, dependent := range dependents[name] {
			pending[dependent]--
			if pending[dependent] == 0 {
				ready = append(ready, dependent)
				sort.Strings(ready)
			}
		}
	}

	if len(sorted) != len(tables) {
		var cyclic []string
		for name, n := range pending {
			if n > 0 {
				cyclic = append(cyclic, name)
			}
		}
		slices.Sort(cyclic)
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(cyclic, ", "))
	}
	return sorted, nil
}
