package ddl

import (
	"fmt"
	"slices"
	"strings"

	"github.com/andressep95/annotations/pkg/schema"
)

// PlannerOptions configures DDL generation.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE SCHEMA, TABLE and INDEX
	// statements so the output can be replayed. Default: true.
	IfNotExists bool
}

// Planner generates SQL statements from schema diffs.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a planner with default options.
func NewPlanner() *Planner {
	return &Planner{
		options: PlannerOptions{IfNotExists: true},
	}
}

// NewPlannerWithOptions creates a planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// CreateCatalog plans the DDL of tables in an empty namespace.
func (p *Planner) CreateCatalog(namespace string, tables []*schema.TableMetadata) (upSQL, downSQL string, err error) {
	sorted, err := schema.SortByDependency(tables)
	if err != nil {
		return "", "", err
	}
	diff := &SchemaDiff{Namespace: namespace}
	for _, t := range sorted {
		diff.TablesAdded = append(diff.TablesAdded, *t)
	}
	up, down := p.Plan(diff)
	return up, down, nil
}

// Plan generates up and down SQL from a schema diff. The down SQL undoes the
// up SQL statement by statement in reverse order.
func (p *Planner) Plan(diff *SchemaDiff) (upSQL, downSQL string) {
	var up, down []string
	ns := diff.Namespace

	if len(diff.TablesAdded) > 0 && ns != "" {
		if p.options.IfNotExists {
			up = append(up, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s;", ns))
		} else {
			up = append(up, fmt.Sprintf("CREATE SCHEMA %s;", ns))
		}
	}

	for i := range diff.TablesAdded {
		table := &diff.TablesAdded[i]
		up = append(up, p.generateCreateTable(ns, table))
		down = append(down, p.generateDropTable(ns, table))
	}

	for _, tableDiff := range diff.TablesModified {
		alterUp, alterDown := p.generateAlterTable(ns, tableDiff)
		up = append(up, alterUp...)
		down = append(down, alterDown...)
	}

	for i := len(diff.TablesDropped) - 1; i >= 0; i-- {
		table := &diff.TablesDropped[i]
		up = append(up, p.generateDropTable(ns, table))
		down = append(down, p.generateCreateTable(ns, table))
	}

	slices.Reverse(down)
	return joinStatements(up), joinStatements(down)
}

func joinStatements(stmts []string) string {
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n\n") + "\n"
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// generateCreateTable generates CREATE TABLE plus its indexes and triggers.
func (p *Planner) generateCreateTable(ns string, table *schema.TableMetadata) string {
	var parts []string

	var singlePK string
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) == 1 {
		singlePK = table.PrimaryKey.Columns[0]
	}

	for _, col := range table.Columns {
		def := p.generateColumnDefinition(col)
		if col.Name == singlePK {
			def += " PRIMARY KEY"
		}
		parts = append(parts, "    "+def)
	}

	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			table.PrimaryKey.Name, strings.Join(table.PrimaryKey.Columns, ", ")))
	}

	for _, c := range table.Constraints {
		parts = append(parts, "    "+constraintDefinition(c))
	}

	for _, fk := range table.ForeignKeys {
		parts = append(parts, "    "+foreignKeyDefinition(ns, fk))
	}

	create := "CREATE TABLE"
	if p.options.IfNotExists {
		create = "CREATE TABLE IF NOT EXISTS"
	}
	stmts := []string{fmt.Sprintf("%s %s (\n%s\n);", create, qualify(ns, table.Name), strings.Join(parts, ",\n"))}

	for _, idx := range table.Indexes {
		stmts = append(stmts, p.generateCreateIndex(ns, table.Name, idx))
	}
	stmts = append(stmts, p.generateAutoUpdateTrigger(ns, table)...)

	return strings.Join(stmts, "\n\n")
}

// generateColumnDefinition generates a column definition.
func (p *Planner) generateColumnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}

	if col.Identity != nil {
		// identity columns are implicitly NOT NULL and cannot carry a DEFAULT
		parts = append(parts, fmt.Sprintf("GENERATED %s AS IDENTITY", col.Identity.Generation))
	} else {
		if !col.Nullable {
			parts = append(parts, "NOT NULL")
		}
		if col.Default != nil {
			parts = append(parts, "DEFAULT", *col.Default)
		}
	}

	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

func constraintDefinition(c schema.ConstraintMetadata) string {
	switch c.Type {
	case schema.CheckConstraint:
		return fmt.Sprintf("CONSTRAINT %s CHECK %s", c.Name, parenthesize(c.Expression))
	default:
		return fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", c.Name, strings.Join(c.Columns, ", "))
	}
}

func parenthesize(expr string) string {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return expr
	}
	return "(" + expr + ")"
}

func foreignKeyDefinition(ns string, fk schema.ForeignKeyMetadata) string {
	parts := []string{
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s)", fk.Name, strings.Join(fk.Columns, ", ")),
		fmt.Sprintf("REFERENCES %s (%s)", qualify(ns, fk.ReferencedTable), strings.Join(fk.ReferencedColumns, ", ")),
	}
	if fk.OnDelete != schema.NoAction && fk.OnDelete != "" {
		parts = append(parts, "ON DELETE "+string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.NoAction && fk.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+string(fk.OnUpdate))
	}
	return strings.Join(parts, " ")
}

func (p *Planner) generateCreateIndex(ns, tableName string, idx schema.IndexMetadata) string {
	parts := []string{"CREATE"}
	if idx.Unique {
		parts = append(parts, "UNIQUE")
	}
	parts = append(parts, "INDEX")
	if p.options.IfNotExists {
		parts = append(parts, "IF NOT EXISTS")
	}
	parts = append(parts, idx.Name, "ON", qualify(ns, tableName))
	if idx.Type != "" && idx.Type != "btree" {
		parts = append(parts, "USING", idx.Type)
	}
	parts = append(parts, "("+strings.Join(idx.Columns, ", ")+")")
	return strings.Join(parts, " ") + ";"
}

func autoUpdateFunction(table string) string { return table + "_auto_update" }
func autoUpdateTrigger(table string) string  { return "trg_" + table + "_auto_update" }

// generateAutoUpdateTrigger refreshes autoUpdate columns on every UPDATE.
func (p *Planner) generateAutoUpdateTrigger(ns string, table *schema.TableMetadata) []string {
	var assignments []string
	for _, col := range table.Columns {
		if col.AutoUpdate {
			assignments = append(assignments, fmt.Sprintf("    NEW.%s = CURRENT_TIMESTAMP;", col.Name))
		}
	}
	if len(assignments) == 0 {
		return nil
	}

	fn := qualify(ns, autoUpdateFunction(table.Name))
	trigger := autoUpdateTrigger(table.Name)
	target := qualify(ns, table.Name)

	stmts := []string{
		fmt.Sprintf("CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$\nBEGIN\n%s\n    RETURN NEW;\nEND;\n$$ LANGUAGE plpgsql;",
			fn, strings.Join(assignments, "\n")),
	}
	if p.options.IfNotExists {
		stmts = append(stmts, fmt.Sprintf("DROP TRIGGER IF EXISTS %s ON %s;", trigger, target))
	}
	stmts = append(stmts, fmt.Sprintf("CREATE TRIGGER %s BEFORE UPDATE ON %s FOR EACH ROW EXECUTE FUNCTION %s();",
		trigger, target, fn))
	return stmts
}

// generateDropTable drops a table together with its auto-update function.
func (p *Planner) generateDropTable(ns string, table *schema.TableMetadata) string {
	stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s;", qualify(ns, table.Name))
	if slices.ContainsFunc(table.Columns, func(c schema.ColumnMetadata) bool { return c.AutoUpdate }) {
		stmt += fmt.Sprintf("\n\nDROP FUNCTION IF EXISTS %s();", qualify(ns, autoUpdateFunction(table.Name)))
	}
	return stmt
}

// generateAlterTable generates ALTER TABLE statements for table modifications.
func (p *Planner) generateAlterTable(ns string, diff TableDiff) (upSQL, downSQL []string) {
	table := qualify(ns, diff.TableName)
	pair := func(up, down string) {
		upSQL = append(upSQL, up)
		downSQL = append(downSQL, down)
	}

	for _, fk := range diff.ForeignKeysDropped {
		pair(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, fk.Name),
			fmt.Sprintf("ALTER TABLE %s ADD %s;", table, foreignKeyDefinition(ns, fk)))
	}
	for _, c := range diff.ConstraintsDropped {
		pair(fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, c.Name),
			fmt.Sprintf("ALTER TABLE %s ADD %s;", table, constraintDefinition(c)))
	}
	for _, idx := range diff.IndexesDropped {
		pair(fmt.Sprintf("DROP INDEX IF EXISTS %s;", qualify(ns, idx.Name)),
			p.generateCreateIndex(ns, diff.TableName, idx))
	}

	for _, col := range diff.ColumnsAdded {
		pair(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, p.generateColumnDefinition(col)),
			fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", table, col.Name))
	}
	for _, col := range diff.ColumnsDropped {
		pair(fmt.Sprintf("ALTER TABLE %s DROP COLUMN IF EXISTS %s;", table, col.Name),
			fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s;", table, p.generateColumnDefinition(col)))
	}
	for _, colDiff := range diff.ColumnsModified {
		up, down := p.generateColumnModification(table, colDiff)
		upSQL = append(upSQL, up...)
		downSQL = append(downSQL, down...)
	}

	if diff.PrimaryKeyChanged != nil {
		up, down := p.generatePrimaryKeyChange(table, diff.PrimaryKeyChanged)
		upSQL = append(upSQL, up...)
		downSQL = append(downSQL, down...)
	}

	for _, idx := range diff.IndexesAdded {
		pair(p.generateCreateIndex(ns, diff.TableName, idx),
			fmt.Sprintf("DROP INDEX IF EXISTS %s;", qualify(ns, idx.Name)))
	}
	for _, c := range diff.ConstraintsAdded {
		pair(fmt.Sprintf("ALTER TABLE %s ADD %s;", table, constraintDefinition(c)),
			fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, c.Name))
	}
	for _, fk := range diff.ForeignKeysAdded {
		pair(fmt.Sprintf("ALTER TABLE %s ADD %s;", table, foreignKeyDefinition(ns, fk)),
			fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, fk.Name))
	}
	return upSQL, downSQL
}

// generateColumnModification moves a column from OldColumn to NewColumn.
// downSQL mirrors upSQL statement by statement.
func (p *Planner) generateColumnModification(table string, d ColumnDiff) (upSQL, downSQL []string) {
	alter := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s", table, d.ColumnName)

	if d.TypeChanged {
		upSQL = append(upSQL, alter+" TYPE "+typeChange(d.ColumnName, d.OldColumn.SQLType, d.NewColumn.SQLType)+";")
		downSQL = append(downSQL, alter+" TYPE "+typeChange(d.ColumnName, d.NewColumn.SQLType, d.OldColumn.SQLType)+";")
	}

	if d.IdentityChanged {
		upSQL = append(upSQL, alter+identityChange(d.OldColumn.Identity, d.NewColumn.Identity)+";")
		downSQL = append(downSQL, alter+identityChange(d.NewColumn.Identity, d.OldColumn.Identity)+";")
	}

	if d.NullChanged {
		set, drop := alter+" SET NOT NULL;", alter+" DROP NOT NULL;"
		if d.NewColumn.Nullable {
			upSQL, downSQL = append(upSQL, drop), append(downSQL, set)
		} else {
			upSQL, downSQL = append(upSQL, set), append(downSQL, drop)
		}
	}

	if d.DefaultChanged {
		upSQL = append(upSQL, alter+defaultChange(d.NewColumn.Default)+";")
		downSQL = append(downSQL, alter+defaultChange(d.OldColumn.Default)+";")
	}

	return upSQL, downSQL
}

// typeChange renders the TYPE clause; a USING cast is added when the base type changes.
func typeChange(column, from, to string) string {
	target := schema.NormalizeType(to)
	if schema.BaseType(from) == schema.BaseType(to) {
		return target
	}
	return fmt.Sprintf("%s USING %s::%s", target, column, target)
}

func identityChange(from, to *schema.IdentityColumn) string {
	switch {
	case to == nil:
		return " DROP IDENTITY IF EXISTS"
	case from == nil:
		return fmt.Sprintf(" ADD GENERATED %s AS IDENTITY", to.Generation)
	default:
		return fmt.Sprintf(" SET GENERATED %s", to.Generation)
	}
}

func defaultChange(def *string) string {
	if def == nil {
		return " DROP DEFAULT"
	}
	return " SET DEFAULT " + *def
}

// generatePrimaryKeyChange mirrors each up statement in downSQL; Plan reverses the order.
func (p *Planner) generatePrimaryKeyChange(table string, pk *PrimaryKeyChange) (upSQL, downSQL []string) {
	if pk.Old != nil {
		upSQL = append(upSQL, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, pk.Old.Name))
		downSQL = append(downSQL, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
			table, pk.Old.Name, strings.Join(pk.Old.Columns, ", ")))
	}
	if pk.New != nil {
		upSQL = append(upSQL, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s PRIMARY KEY (%s);",
			table, pk.New.Name, strings.Join(pk.New.Columns, ", ")))
		downSQL = append(downSQL, fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;", table, pk.New.Name))
	}
	return upSQL, downSQL
}
