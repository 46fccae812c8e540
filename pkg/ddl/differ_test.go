package ddl

import (
	"strings"
	"testing"

	"github.com/andressep95/annotations/pkg/schema"
)

func byName(tables []*schema.TableMetadata) map[string]*schema.TableMetadata {
	m := make(map[string]*schema.TableMetadata, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return m
}

// introspected mirrors how PostgreSQL reports the shop catalog after it has
// been created from the planner output.
func introspected() map[string]*schema.TableMetadata {
	db := byName(shopTables())
	for _, t := range db {
		clone := *t
		clone.Columns = append([]schema.ColumnMetadata(nil), t.Columns...)
		clone.Constraints = append([]schema.ConstraintMetadata(nil), t.Constraints...)
		db[t.Name] = &clone
	}

	items := db["items"]
	items.Columns[1].Unique = false
	items.Columns[1].SQLType = "character varying(100)"
	items.Constraints = append(items.Constraints, schema.ConstraintMetadata{
		Name: "items_label_key", Type: schema.UniqueConstraint, Columns: []string{"label"},
	})

	customers := db["customers"]
	customers.Columns[2].Default = ptr("CURRENT_DATE")
	customers.Columns[0].SQLType = "int8"

	carts := db["carts"]
	carts.Columns[3].AutoUpdate = false
	carts.Columns[3].SQLType = "timestamp without time zone"
	carts.Columns[3].Default = ptr("CURRENT_TIMESTAMP")
	return db
}

func TestCompareEmptyDatabase(t *testing.T) {
	diff, err := NewDiffer().Compare("shop", byName(shopTables()), map[string]*schema.TableMetadata{})
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if len(diff.TablesAdded) != 3 {
		t.Fatalf("Expected 3 tables added, got %d", len(diff.TablesAdded))
	}
	if got := diff.TablesAdded[2].Name; got != "carts" {
		t.Errorf("Expected carts last in dependency order, got %s", got)
	}
	if diff.HasDrift() {
		t.Error("Expected no drift against an empty database")
	}
	if !diff.HasChanges() {
		t.Error("Expected changes against an empty database")
	}
}

func TestCompareInSync(t *testing.T) {
	diff, err := NewDiffer().Compare("shop", byName(shopTables()), introspected())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if diff.HasChanges() {
		t.Errorf("Expected no changes, got:\n%s", strings.Join(diff.Summary(), "\n"))
	}
}

func TestCompareDetectsDrift(t *testing.T) {
	db := introspected()

	customers := db["customers"]
	customers.Columns = append(customers.Columns[:1:1], customers.Columns[2])
	customers.Columns[1].Nullable = false

	carts := db["carts"]
	carts.ForeignKeys = []schema.ForeignKeyMetadata{carts.ForeignKeys[0], carts.ForeignKeys[1]}
	carts.ForeignKeys[1].OnDelete = schema.Cascade
	carts.Indexes = nil

	db["audit_log"] = &schema.TableMetadata{Name: "audit_log"}

	diff, err := NewDiffer().Compare("shop", byName(shopTables()), db)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !diff.HasDrift() {
		t.Fatal("Expected drift")
	}

	if len(diff.TablesDropped) != 1 || diff.TablesDropped[0].Name != "audit_log" {
		t.Errorf("Expected audit_log reported as unexpected, got %+v", diff.TablesDropped)
	}

	tables := map[string]TableDiff{}
	for _, td := range diff.TablesModified {
		tables[td.TableName] = td
	}

	c := tables["customers"]
	if len(c.ColumnsAdded) != 1 || c.ColumnsAdded[0].Name != "email" {
		t.Errorf("Expected missing email column, got %+v", c.ColumnsAdded)
	}
	if len(c.ColumnsModified) != 1 || !c.ColumnsModified[0].NullChanged {
		t.Errorf("Expected created_at nullability change, got %+v", c.ColumnsModified)
	}

	k := tables["carts"]
	if len(k.ForeignKeysAdded) != 1 || k.ForeignKeysAdded[0].Name != "fk_cart_item" {
		t.Errorf("Expected fk_cart_item to be re-added, got %+v", k.ForeignKeysAdded)
	}
	if len(k.ForeignKeysDropped) != 1 || k.ForeignKeysDropped[0].OnDelete != schema.Cascade {
		t.Errorf("Expected the CASCADE variant dropped, got %+v", k.ForeignKeysDropped)
	}
	if len(k.IndexesAdded) != 1 || k.IndexesAdded[0].Name != "idx_carts_item_id" {
		t.Errorf("Expected missing index, got %+v", k.IndexesAdded)
	}

	summary := strings.Join(diff.Summary(), "\n")
	for _, want := range []string{"unexpected table audit_log", "customers: missing column email"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, summary)
		}
	}
}

func TestCompareRenamedUniqueConstraint(t *testing.T) {
	db := introspected()
	db["customers"].Constraints[0].Name = "customers_email_key"

	diff, err := NewDiffer().Compare("shop", byName(shopTables()), db)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if len(diff.TablesModified) != 1 {
		t.Fatalf("Expected customers modified, got %d tables", len(diff.TablesModified))
	}
	td := diff.TablesModified[0]
	if len(td.ConstraintsAdded) != 1 || td.ConstraintsAdded[0].Name != "uk_customer_email" {
		t.Errorf("Expected uk_customer_email added, got %+v", td.ConstraintsAdded)
	}
	if len(td.ConstraintsDropped) != 1 || td.ConstraintsDropped[0].Name != "customers_email_key" {
		t.Errorf("Expected customers_email_key dropped, got %+v", td.ConstraintsDropped)
	}
}

func TestSerialDefaultsMatch(t *testing.T) {
	code := map[string]*schema.TableMetadata{
		"legacy": {
			Name:       "legacy",
			Columns:    []schema.ColumnMetadata{{Name: "id", SQLType: "serial", AutoIncrement: true}},
			PrimaryKey: &schema.PrimaryKeyMetadata{Name: "legacy_pkey", Columns: []string{"id"}},
		},
	}
	db := map[string]*schema.TableMetadata{
		"legacy": {
			Name:       "legacy",
			Columns:    []schema.ColumnMetadata{{Name: "id", SQLType: "integer", Default: ptr("nextval('legacy_id_seq'::regclass)")}},
			PrimaryKey: &schema.PrimaryKeyMetadata{Name: "legacy_pkey", Columns: []string{"id"}},
		},
	}

	diff, err := NewDiffer().Compare("public", code, db)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if diff.HasChanges() {
		t.Errorf("Expected serial and nextval default to match, got:\n%s", strings.Join(diff.Summary(), "\n"))
	}
}

func TestNormalizeDefault(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"now()", "current_timestamp"},
		{"CURRENT_TIMESTAMP", "current_timestamp"},
		{"'pending'::character varying", "'pending'"},
		{"(0)", "0"},
		{"true", "true"},
	}
	for _, tt := range tests {
		if got := normalizeDefault(tt.input); got != tt.want {
			t.Errorf("normalizeDefault(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
