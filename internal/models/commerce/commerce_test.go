package commerce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andressep95/annotations/pkg/builder"
	"github.com/andressep95/annotations/pkg/ddl"
	"github.com/andressep95/annotations/pkg/schema"
)

func TestCatalog(t *testing.T) {
	catalog, err := Catalog()
	require.NoError(t, err)
	assert.Equal(t, Name, catalog.Name())
	assert.True(t, catalog.Resolved())

	again, err := Catalog()
	require.NoError(t, err)
	assert.Same(t, catalog, again)

	ordered, err := catalog.Ordered()
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, "user_products", ordered[2].Name)
}

func TestUserProductsTable(t *testing.T) {
	catalog, err := Catalog()
	require.NoError(t, err)
	table, err := catalog.GetByName("user_products")
	require.NoError(t, err)

	require.NotNil(t, table.PrimaryKey)
	assert.Equal(t, "user_products_pkey", table.PrimaryKey.Name)
	assert.Equal(t, []string{"user_id", "product_id"}, table.PrimaryKey.Columns)

	fks := map[string]schema.ForeignKeyMetadata{}
	for _, fk := range table.ForeignKeys {
		fks[fk.Name] = fk
	}
	require.Contains(t, fks, "fk_userproduct_user")
	require.Contains(t, fks, "fk_userproduct_product")
	assert.Equal(t, schema.Cascade, fks["fk_userproduct_user"].OnDelete)
	assert.Equal(t, schema.Restrict, fks["fk_userproduct_product"].OnDelete)
	assert.True(t, fks["fk_userproduct_user"].OrphanRemoval)

	var indexes []string
	for _, idx := range table.Indexes {
		indexes = append(indexes, idx.Name)
	}
	assert.ElementsMatch(t, []string{"idx_user_products_user_id", "idx_user_products_product_id"}, indexes)

	quantity := table.GetColumnByName("quantity")
	require.NotNil(t, quantity)
	assert.False(t, quantity.Nullable)
}

func TestRelationships(t *testing.T) {
	catalog, err := Catalog()
	require.NoError(t, err)
	users, err := catalog.GetByName("users")
	require.NoError(t, err)
	products, err := catalog.GetByName("products")
	require.NoError(t, err)
	orders, err := catalog.GetByName("user_products")
	require.NoError(t, err)

	assert.Len(t, users.RelationshipsTo("user_products", schema.HasMany), 1)
	assert.Len(t, products.RelationshipsTo("user_products", schema.HasMany), 1)
	assert.Len(t, orders.RelationshipsTo("users", schema.BelongsTo), 1)

	m2m := users.RelationshipsTo("products", schema.ManyToMany)
	require.Len(t, m2m, 1)
	assert.Equal(t, "user_products", m2m[0].JoinTable)
	assert.Equal(t, []string{"user_id"}, m2m[0].ForeignKey)
	assert.Equal(t, []string{"product_id"}, m2m[0].JoinForeignKey)
	assert.True(t, m2m[0].OrphanRemoval)

	assert.Len(t, products.RelationshipsTo("users", schema.ManyToMany), 1)
}

func TestCatalogDDL(t *testing.T) {
	catalog, err := Catalog()
	require.NoError(t, err)

	up, down, err := ddl.NewPlanner().CreateCatalog(Namespace, catalog.All())
	require.NoError(t, err)

	for _, want := range []string{
		"CREATE SCHEMA IF NOT EXISTS commerce;",
		"CREATE TABLE IF NOT EXISTS commerce.users (",
		"id bigint GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		"CONSTRAINT uk_user_name UNIQUE (name)",
		"CONSTRAINT uk_user_email UNIQUE (email)",
		"CONSTRAINT uk_product_name UNIQUE (name)",
		"price numeric(10,2)",
		"stock integer DEFAULT 0",
		"created_at date DEFAULT CURRENT_DATE",
		"CONSTRAINT user_products_pkey PRIMARY KEY (user_id, product_id)",
		"CONSTRAINT fk_userproduct_user FOREIGN KEY (user_id) REFERENCES commerce.users (id) ON DELETE CASCADE",
		"CONSTRAINT fk_userproduct_product FOREIGN KEY (product_id) REFERENCES commerce.products (id) ON DELETE RESTRICT",
		"CREATE INDEX IF NOT EXISTS idx_user_products_user_id ON commerce.user_products (user_id);",
		"CREATE INDEX IF NOT EXISTS idx_user_products_product_id ON commerce.user_products (product_id);",
	} {
		assert.Contains(t, up, want)
	}
	assert.Contains(t, down, "DROP TABLE IF EXISTS commerce.user_products;")
}

func TestLoaderQueries(t *testing.T) {
	catalog, err := Catalog()
	require.NoError(t, err)
	db := builder.New(nil, catalog)

	sql, args, err := builder.Select[UserProduct](db).Where(builder.Eq("user_id", int64(3))).ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM commerce.user_products WHERE user_id = $1", sql)
	assert.Equal(t, []any{int64(3)}, args)

	sql, args, err = builder.Insert[UserProduct](db).
		Values(UserProduct{UserProductKey: UserProductKey{UserID: 1, ProductID: 2}, Quantity: 4}).
		ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO commerce.user_products (user_id, product_id, quantity) VALUES ($1, $2, $3)", sql)
	assert.Equal(t, []any{int64(1), int64(2), int32(4)}, args)
}
