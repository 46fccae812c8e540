package ddl

import (
	"strings"
	"testing"

	"github.com/andressep95/annotations/pkg/schema"
)

func ptr(s string) *string { return &s }

func shopTables() []*schema.TableMetadata {
	customers := &schema.TableMetadata{
		Name: "customers",
		Columns: []schema.ColumnMetadata{
			{Name: "id", SQLType: "bigint", Identity: &schema.IdentityColumn{Generation: schema.IdentityAlways}},
			{Name: "email", SQLType: "varchar(150)"},
			{Name: "created_at", SQLType: "date", Nullable: true, Default: ptr("CURRENT_DATE")},
		},
		PrimaryKey: &schema.PrimaryKeyMetadata{Name: "customers_pkey", Columns: []string{"id"}},
		Constraints: []schema.ConstraintMetadata{
			{Name: "uk_customer_email", Type: schema.UniqueConstraint, Columns: []string{"email"}},
		},
	}
	items := &schema.TableMetadata{
		Name: "items",
		Columns: []schema.ColumnMetadata{
			{Name: "id", SQLType: "bigint", Identity: &schema.IdentityColumn{Generation: schema.IdentityAlways}},
			{Name: "label", SQLType: "varchar(100)", Unique: true},
		},
		PrimaryKey: &schema.PrimaryKeyMetadata{Name: "items_pkey", Columns: []string{"id"}},
	}
	carts := &schema.TableMetadata{
		Name: "carts",
		Columns: []schema.ColumnMetadata{
			{Name: "customer_id", SQLType: "bigint"},
			{Name: "item_id", SQLType: "bigint"},
			{Name: "quantity", SQLType: "integer"},
			{Name: "updated_at", SQLType: "timestamp", Nullable: true, Default: ptr("CURRENT_TIMESTAMP"), AutoUpdate: true},
		},
		PrimaryKey: &schema.PrimaryKeyMetadata{Name: "carts_pkey", Columns: []string{"customer_id", "item_id"}},
		ForeignKeys: []schema.ForeignKeyMetadata{
			{Name: "fk_cart_customer", Columns: []string{"customer_id"}, ReferencedTable: "customers",
				ReferencedColumns: []string{"id"}, OnDelete: schema.Cascade, OnUpdate: schema.NoAction},
			{Name: "fk_cart_item", Columns: []string{"item_id"}, ReferencedTable: "items",
				ReferencedColumns: []string{"id"}, OnDelete: schema.Restrict, OnUpdate: schema.NoAction},
		},
		Indexes: []schema.IndexMetadata{
			{Name: "idx_carts_item_id", Columns: []string{"item_id"}, Type: "btree"},
		},
	}
	return []*schema.TableMetadata{carts, customers, items}
}

func TestCreateCatalog(t *testing.T) {
	up, down, err := NewPlanner().CreateCatalog("shop", shopTables())
	if err != nil {
		t.Fatalf("CreateCatalog failed: %v", err)
	}

	expected := []string{
		"CREATE SCHEMA IF NOT EXISTS shop;",
		"CREATE TABLE IF NOT EXISTS shop.customers (",
		"    id bigint GENERATED ALWAYS AS IDENTITY PRIMARY KEY,",
		"    email varchar(150) NOT NULL,",
		"    created_at date DEFAULT CURRENT_DATE,",
		"    CONSTRAINT uk_customer_email UNIQUE (email)",
		"    label varchar(100) NOT NULL UNIQUE",
		"    CONSTRAINT carts_pkey PRIMARY KEY (customer_id, item_id),",
		"    CONSTRAINT fk_cart_customer FOREIGN KEY (customer_id) REFERENCES shop.customers (id) ON DELETE CASCADE,",
		"    CONSTRAINT fk_cart_item FOREIGN KEY (item_id) REFERENCES shop.items (id) ON DELETE RESTRICT",
		"CREATE INDEX IF NOT EXISTS idx_carts_item_id ON shop.carts (item_id);",
	}
	for _, want := range expected {
		if !strings.Contains(up, want) {
			t.Errorf("Expected up SQL to contain %q, got:\n%s", want, up)
		}
	}

	customers := strings.Index(up, "shop.customers (")
	items := strings.Index(up, "shop.items (")
	carts := strings.Index(up, "shop.carts (")
	if customers > carts || items > carts {
		t.Errorf("Expected referenced tables before carts, got:\n%s", up)
	}

	if !strings.HasSuffix(up, "\n") {
		t.Error("Expected trailing newline")
	}

	dropCarts := strings.Index(down, "DROP TABLE IF EXISTS shop.carts;")
	dropCustomers := strings.Index(down, "DROP TABLE IF EXISTS shop.customers;")
	if dropCarts == -1 || dropCustomers == -1 || dropCarts > dropCustomers {
		t.Errorf("Expected carts dropped before customers, got:\n%s", down)
	}
	if !strings.Contains(down, "DROP FUNCTION IF EXISTS shop.carts_auto_update();") {
		t.Errorf("Expected trigger function dropped, got:\n%s", down)
	}
}

func TestCreateCatalogCycle(t *testing.T) {
	a := &schema.TableMetadata{Name: "a", ForeignKeys: []schema.ForeignKeyMetadata{{Name: "fk_a_b", Columns: []string{"b_id"}, ReferencedTable: "b", ReferencedColumns: []string{"id"}}}}
	b := &schema.TableMetadata{Name: "b", ForeignKeys: []schema.ForeignKeyMetadata{{Name: "fk_b_a", Columns: []string{"a_id"}, ReferencedTable: "a", ReferencedColumns: []string{"id"}}}}

	if _, _, err := NewPlanner().CreateCatalog("cyc", []*schema.TableMetadata{a, b}); err == nil {
		t.Fatal("Expected dependency cycle error")
	}
}

func TestGenerateAutoUpdateTrigger(t *testing.T) {
	tables := shopTables()
	sql := NewPlanner().generateCreateTable("shop", tables[0])

	expected := []string{
		"CREATE OR REPLACE FUNCTION shop.carts_auto_update() RETURNS trigger AS $$",
		"    NEW.updated_at = CURRENT_TIMESTAMP;",
		"DROP TRIGGER IF EXISTS trg_carts_auto_update ON shop.carts;",
		"CREATE TRIGGER trg_carts_auto_update BEFORE UPDATE ON shop.carts FOR EACH ROW EXECUTE FUNCTION shop.carts_auto_update();",
	}
	for _, want := range expected {
		if !strings.Contains(sql, want) {
			t.Errorf("Expected %q, got:\n%s", want, sql)
		}
	}

	noReplay := NewPlannerWithOptions(PlannerOptions{IfNotExists: false}).generateCreateTable("shop", tables[0])
	if strings.Contains(noReplay, "DROP TRIGGER") {
		t.Errorf("Expected no DROP TRIGGER without IfNotExists, got:\n%s", noReplay)
	}
	if !strings.HasPrefix(noReplay, "CREATE TABLE shop.carts (") {
		t.Errorf("Expected plain CREATE TABLE, got:\n%s", noReplay)
	}
}

func TestGenerateCreateIndexUsing(t *testing.T) {
	p := NewPlannerWithOptions(PlannerOptions{})
	sql := p.generateCreateIndex("shop", "docs", schema.IndexMetadata{
		Name: "idx_docs_body", Columns: []string{"body"}, Unique: true, Type: "gin",
	})
	if sql != "CREATE UNIQUE INDEX idx_docs_body ON shop.docs USING gin (body);" {
		t.Errorf("Unexpected index SQL: %s", sql)
	}
}

func TestConstraintDefinitionCheck(t *testing.T) {
	got := constraintDefinition(schema.ConstraintMetadata{Name: "chk_qty", Type: schema.CheckConstraint, Expression: "quantity > 0"})
	if got != "CONSTRAINT chk_qty CHECK (quantity > 0)" {
		t.Errorf("Unexpected CHECK: %s", got)
	}
	got = constraintDefinition(schema.ConstraintMetadata{Name: "chk_qty", Type: schema.CheckConstraint, Expression: "(quantity > 0)"})
	if got != "CONSTRAINT chk_qty CHECK (quantity > 0)" {
		t.Errorf("Expected expression not to be wrapped twice: %s", got)
	}
}

func TestPlanAlterTable(t *testing.T) {
	diff := &SchemaDiff{
		Namespace: "shop",
		TablesModified: []TableDiff{{
			TableName:    "items",
			ColumnsAdded: []schema.ColumnMetadata{{Name: "sku", SQLType: "varchar(20)", Nullable: true}},
			ColumnsModified: []ColumnDiff{{
				ColumnName:     "label",
				OldColumn:      schema.ColumnMetadata{Name: "label", SQLType: "text", Nullable: true},
				NewColumn:      schema.ColumnMetadata{Name: "label", SQLType: "varchar(100)", Default: ptr("'none'")},
				TypeChanged:    true,
				NullChanged:    true,
				DefaultChanged: true,
			}},
			IndexesDropped: []schema.IndexMetadata{{Name: "idx_items_old", Columns: []string{"label"}}},
		}},
	}

	up, down := NewPlanner().Plan(diff)

	expectedUp := []string{
		"DROP INDEX IF EXISTS shop.idx_items_old;",
		"ALTER TABLE shop.items ADD COLUMN sku varchar(20);",
		"ALTER TABLE shop.items ALTER COLUMN label TYPE varchar(100) USING label::varchar(100);",
		"ALTER TABLE shop.items ALTER COLUMN label SET NOT NULL;",
		"ALTER TABLE shop.items ALTER COLUMN label SET DEFAULT 'none';",
	}
	last := -1
	for _, want := range expectedUp {
		idx := strings.Index(up, want)
		if idx == -1 {
			t.Errorf("Expected up SQL to contain %q, got:\n%s", want, up)
			continue
		}
		if idx < last {
			t.Errorf("Expected %q later in up SQL, got:\n%s", want, up)
		}
		last = idx
	}
	if strings.Contains(up, "CREATE SCHEMA") {
		t.Errorf("Expected no CREATE SCHEMA for a pure alter, got:\n%s", up)
	}

	expectedDown := []string{
		"ALTER TABLE shop.items ALTER COLUMN label DROP DEFAULT;",
		"ALTER TABLE shop.items ALTER COLUMN label DROP NOT NULL;",
		"ALTER TABLE shop.items ALTER COLUMN label TYPE text USING label::text;",
		"ALTER TABLE shop.items DROP COLUMN IF EXISTS sku;",
		"CREATE INDEX IF NOT EXISTS idx_items_old ON shop.items (label);",
	}
	last = -1
	for _, want := range expectedDown {
		idx := strings.Index(down, want)
		if idx == -1 {
			t.Errorf("Expected down SQL to contain %q, got:\n%s", want, down)
			continue
		}
		if idx < last {
			t.Errorf("Expected %q later in down SQL, got:\n%s", want, down)
		}
		last = idx
	}
}

func TestPlanPrimaryKeyAndIdentityChange(t *testing.T) {
	diff := &SchemaDiff{
		Namespace: "shop",
		TablesModified: []TableDiff{{
			TableName: "items",
			ColumnsModified: []ColumnDiff{{
				ColumnName:      "id",
				OldColumn:       schema.ColumnMetadata{Name: "id", SQLType: "bigint"},
				NewColumn:       schema.ColumnMetadata{Name: "id", SQLType: "bigint", Identity: &schema.IdentityColumn{Generation: schema.IdentityByDefault}},
				IdentityChanged: true,
			}},
			PrimaryKeyChanged: &PrimaryKeyChange{
				Old: &schema.PrimaryKeyMetadata{Name: "items_old_pkey", Columns: []string{"label"}},
				New: &schema.PrimaryKeyMetadata{Name: "items_pkey", Columns: []string{"id"}},
			},
		}},
	}

	up, down := NewPlanner().Plan(diff)

	if !strings.Contains(up, "ALTER TABLE shop.items ALTER COLUMN id ADD GENERATED BY DEFAULT AS IDENTITY;") {
		t.Errorf("Expected identity added, got:\n%s", up)
	}
	dropOld := strings.Index(up, "DROP CONSTRAINT IF EXISTS items_old_pkey;")
	addNew := strings.Index(up, "ADD CONSTRAINT items_pkey PRIMARY KEY (id);")
	if dropOld == -1 || addNew == -1 || dropOld > addNew {
		t.Errorf("Expected old PK dropped before new PK added, got:\n%s", up)
	}

	dropNew := strings.Index(down, "DROP CONSTRAINT IF EXISTS items_pkey;")
	addOld := strings.Index(down, "ADD CONSTRAINT items_old_pkey PRIMARY KEY (label);")
	if dropNew == -1 || addOld == -1 || dropNew > addOld {
		t.Errorf("Expected new PK dropped before old PK restored, got:\n%s", down)
	}
	if !strings.Contains(down, "ALTER COLUMN id DROP IDENTITY IF EXISTS;") {
		t.Errorf("Expected identity dropped in down SQL, got:\n%s", down)
	}
}

func TestPlanEmpty(t *testing.T) {
	up, down := NewPlanner().Plan(&SchemaDiff{Namespace: "shop"})
	if up != "" || down != "" {
		t.Errorf("Expected empty plan, got up=%q down=%q", up, down)
	}
}

func TestTypeChange(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"varchar(50)", "varchar(100)", "varchar(100)"},
		{"int4", "bigint", "bigint USING c::bigint"},
		{"numeric(10,2)", "numeric(12,2)", "numeric(12,2)"},
	}
	for _, tt := range tests {
		if got := typeChange("c", tt.from, tt.to); got != tt.want {
			t.Errorf("typeChange(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}
