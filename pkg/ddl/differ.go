package ddl

import (
	"slices"
	"strings"

	"github.com/andressep95/annotations/pkg/schema"
)

// Differ compares a catalog with an introspected namespace.
type Differ struct{}

// NewDiffer creates a new schema differ.
func NewDiffer() *Differ {
	return &Differ{}
}

// Compare diffs code tables (from structs) against db tables (from
// introspection). The result is deterministic: names are sorted and added
// tables are in dependency order.
func (d *Differ) Compare(namespace string, code, db map[string]*schema.TableMetadata) (*SchemaDiff, error) {
	diff := &SchemaDiff{Namespace: namespace}

	var missing []*schema.TableMetadata
	for _, name := range sortedKeys(code) {
		codeTable := code[name]
		dbTable, ok := db[name]
		if !ok {
			missing = append(missing, codeTable)
			continue
		}
		if td := d.compareTable(codeTable, dbTable); td.HasChanges() {
			diff.TablesModified = append(diff.TablesModified, td)
		}
	}

	sorted, err := schema.SortByDependency(missing)
	if err != nil {
		return nil, err
	}
	for _, t := range sorted {
		diff.TablesAdded = append(diff.TablesAdded, *t)
	}

	var extra []*schema.TableMetadata
	for _, name := range sortedKeys(db) {
		if _, ok := code[name]; !ok {
			extra = append(extra, db[name])
		}
	}
	if sorted, err := schema.SortByDependency(extra); err == nil {
		extra = sorted
	}
	for _, t := range extra {
		diff.TablesDropped = append(diff.TablesDropped, *t)
	}
	return diff, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (d *Differ) compareTable(code, db *schema.TableMetadata) TableDiff {
	diff := TableDiff{TableName: code.Name}
	d.compareColumns(code, db, &diff)
	d.comparePrimaryKey(code, db, &diff)
	d.compareIndexes(code, db, &diff)
	d.compareForeignKeys(code, db, &diff)
	d.compareConstraints(code, db, &diff)
	return diff
}

func (d *Differ) compareColumns(code, db *schema.TableMetadata, diff *TableDiff) {
	for _, codeCol := range code.Columns {
		dbCol := db.GetColumnByName(codeCol.Name)
		if dbCol == nil {
			diff.ColumnsAdded = append(diff.ColumnsAdded, codeCol)
			continue
		}
		if colDiff := d.compareColumn(codeCol, *dbCol); colDiff.hasChanges() {
			diff.ColumnsModified = append(diff.ColumnsModified, colDiff)
		}
	}
	for _, dbCol := range db.Columns {
		if code.GetColumnByName(dbCol.Name) == nil {
			diff.ColumnsDropped = append(diff.ColumnsDropped, dbCol)
		}
	}
}

func (d *Differ) compareColumn(codeCol, dbCol schema.ColumnMetadata) ColumnDiff {
	diff := ColumnDiff{
		ColumnName: codeCol.Name,
		OldColumn:  dbCol,
		NewColumn:  codeCol,
	}
	diff.TypeChanged = schema.NormalizeType(codeCol.SQLType) != schema.NormalizeType(dbCol.SQLType)
	diff.NullChanged = codeCol.Nullable != dbCol.Nullable
	diff.IdentityChanged = !sameIdentity(codeCol.Identity, dbCol.Identity)
	diff.DefaultChanged = !d.isSameDefaultWithSerial(codeCol, dbCol)
	return diff
}

func sameIdentity(a, b *schema.IdentityColumn) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Generation == b.Generation
}

func (d *Differ) comparePrimaryKey(code, db *schema.TableMetadata, diff *TableDiff) {
	codePK, dbPK := code.PrimaryKey, db.PrimaryKey
	if codePK == nil && dbPK == nil {
		return
	}
	if codePK == nil || dbPK == nil || !slices.Equal(codePK.Columns, dbPK.Columns) || codePK.Name != dbPK.Name {
		diff.PrimaryKeyChanged = &PrimaryKeyChange{Old: dbPK, New: codePK}
	}
}

func (d *Differ) compareIndexes(code, db *schema.TableMetadata, diff *TableDiff) {
	dbIndexes := make(map[string]schema.IndexMetadata, len(db.Indexes))
	for _, idx := range db.Indexes {
		dbIndexes[idx.Name] = idx
	}
	codeNames := make(map[string]bool, len(code.Indexes))

	for _, idx := range sortedBy(code.Indexes, func(i schema.IndexMetadata) string { return i.Name }) {
		codeNames[idx.Name] = true
		dbIdx, ok := dbIndexes[idx.Name]
		if ok && slices.Equal(idx.Columns, dbIdx.Columns) && idx.Unique == dbIdx.Unique && sameIndexType(idx.Type, dbIdx.Type) {
			continue
		}
		if ok {
			diff.IndexesDropped = append(diff.IndexesDropped, dbIdx)
		}
		diff.IndexesAdded = append(diff.IndexesAdded, idx)
	}
	for _, idx := range sortedBy(db.Indexes, func(i schema.IndexMetadata) string { return i.Name }) {
		if !codeNames[idx.Name] {
			diff.IndexesDropped = append(diff.IndexesDropped, idx)
		}
	}
}

func sameIndexType(a, b string) bool {
	if a == "" {
		a = "btree"
	}
	if b == "" {
		b = "btree"
	}
	return a == b
}

func (d *Differ) compareForeignKeys(code, db *schema.TableMetadata, diff *TableDiff) {
	dbFKs := make(map[string]schema.ForeignKeyMetadata, len(db.ForeignKeys))
	for _, fk := range db.ForeignKeys {
		dbFKs[fk.Name] = fk
	}
	codeNames := make(map[string]bool, len(code.ForeignKeys))

	for _, fk := range sortedBy(code.ForeignKeys, func(f schema.ForeignKeyMetadata) string { return f.Name }) {
		codeNames[fk.Name] = true
		dbFK, ok := dbFKs[fk.Name]
		if ok && sameForeignKey(fk, dbFK) {
			continue
		}
		if ok {
			diff.ForeignKeysDropped = append(diff.ForeignKeysDropped, dbFK)
		}
		diff.ForeignKeysAdded = append(diff.ForeignKeysAdded, fk)
	}
	for _, fk := range sortedBy(db.ForeignKeys, func(f schema.ForeignKeyMetadata) string { return f.Name }) {
		if !codeNames[fk.Name] {
			diff.ForeignKeysDropped = append(diff.ForeignKeysDropped, fk)
		}
	}
}

func sameForeignKey(a, b schema.ForeignKeyMetadata) bool {
	return slices.Equal(a.Columns, b.Columns) &&
		a.ReferencedTable == b.ReferencedTable &&
		slices.Equal(a.ReferencedColumns, b.ReferencedColumns) &&
		action(a.OnDelete) == action(b.OnDelete) &&
		action(a.OnUpdate) == action(b.OnUpdate)
}

func action(a schema.ReferenceAction) schema.ReferenceAction {
	if a == "" {
		return schema.NoAction
	}
	return a
}

// compareConstraints matches UNIQUE constraints by column set, so an inline
// column UNIQUE equals a table-level one over the same column. CHECK
// constraints match by name.
func (d *Differ) compareConstraints(code, db *schema.TableMetadata, diff *TableDiff) {
	codeUnique := code.UniqueConstraints()
	codeChecks := filterConstraints(code.Constraints, schema.CheckConstraint)

	dbByKey := make(map[string]schema.ConstraintMetadata)
	for _, c := range db.Constraints {
		dbByKey[constraintKey(c)] = c
	}
	codeKeys := make(map[string]bool)

	for _, c := range sortedBy(append(codeUnique, codeChecks...), func(c schema.ConstraintMetadata) string { return c.Name }) {
		key := constraintKey(c)
		codeKeys[key] = true
		dbC, ok := dbByKey[key]
		if ok && (c.Type != schema.UniqueConstraint || c.Name == dbC.Name || isInlineUnique(code, c)) {
			continue
		}
		if ok {
			diff.ConstraintsDropped = append(diff.ConstraintsDropped, dbC)
		}
		diff.ConstraintsAdded = append(diff.ConstraintsAdded, c)
	}
	for _, c := range sortedBy(db.Constraints, func(c schema.ConstraintMetadata) string { return c.Name }) {
		if !codeKeys[constraintKey(c)] {
			diff.ConstraintsDropped = append(diff.ConstraintsDropped, c)
		}
	}
}

func filterConstraints(cs []schema.ConstraintMetadata, t schema.ConstraintType) []schema.ConstraintMetadata {
	var out []schema.ConstraintMetadata
	for _, c := range cs {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// isInlineUnique reports whether c was synthesized from a column UNIQUE flag,
// whose database name PostgreSQL picks itself.
func isInlineUnique(t *schema.TableMetadata, c schema.ConstraintMetadata) bool {
	if len(c.Columns) != 1 {
		return false
	}
	col := t.GetColumnByName(c.Columns[0])
	return col != nil && col.Unique
}

func constraintKey(c schema.ConstraintMetadata) string {
	if c.Type == schema.UniqueConstraint {
		cols := slices.Clone(c.Columns)
		slices.Sort(cols)
		return "unique:" + strings.Join(cols, ",")
	}
	return "check:" + c.Name
}

func sortedBy[T any](items []T, key func(T) string) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int { return strings.Compare(key(a), key(b)) })
	return out
}

// isSameDefaultWithSerial treats a serial column in code as equal to a
// nextval() default in the database.
func (d *Differ) isSameDefaultWithSerial(codeCol, dbCol schema.ColumnMetadata) bool {
	if codeCol.Identity != nil || dbCol.Identity != nil {
		return true
	}
	if isAutoIncrement(codeCol) && isSequenceDefault(dbCol.Default) {
		return true
	}
	return isSameDefault(codeCol.Default, dbCol.Default)
}

func isAutoIncrement(col schema.ColumnMetadata) bool {
	if col.AutoIncrement {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(col.SQLType)) {
	case "serial", "bigserial", "smallserial", "serial2", "serial4", "serial8":
		return true
	}
	return false
}

func isSequenceDefault(def *string) bool {
	if def == nil {
		return false
	}
	normalized := strings.ToLower(*def)
	return strings.Contains(normalized, "nextval(") && strings.Contains(normalized, "_seq")
}

func isSameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return normalizeDefault(*a) == normalizeDefault(*b)
}

// normalizeDefault folds the spellings PostgreSQL uses when it stores a
// default expression, e.g. 'x'::character varying or now().
func normalizeDefault(def string) string {
	normalized := strings.ToLower(strings.TrimSpace(def))
	for strings.HasPrefix(normalized, "(") && strings.HasSuffix(normalized, ")") {
		normalized = strings.TrimSpace(normalized[1 : len(normalized)-1])
	}
	if idx := strings.Index(normalized, "::"); idx != -1 {
		normalized = normalized[:idx]
	}
	switch normalized {
	case "now()", "transaction_timestamp()":
		return "current_timestamp"
	}
	return strings.TrimSpace(normalized)
}
