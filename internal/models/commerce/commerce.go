// Package commerce is the store catalog: users buying products through the
// user_products join table.
package commerce

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/andressep95/annotations/pkg/builder"
	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
)

const (
	// Name is the catalog name.
	Name = "commerce"
	// Namespace is the PostgreSQL schema of the catalog.
	Namespace = "commerce"
)

// User is a customer. Deleting one deletes its purchases.
type User struct {
	ID        int64     `db:"id,primaryKey,bigint,identityByDefault"`
	Name      string    `db:"name,varchar(100),notNull,unique(uk_user_name)"`
	Email     string    `db:"email,varchar(150),notNull,unique(uk_user_email)"`
	CreatedAt time.Time `db:"created_at,date,default(CURRENT_DATE)"`
}

func (User) TableName() string { return "users" }

// Product is a catalog item. It cannot be deleted while purchases reference it.
type Product struct {
	ID        int64          `db:"id,primaryKey,bigint,identityByDefault"`
	Name      string         `db:"name,varchar(100),notNull,unique(uk_product_name)"`
	Price     pgtype.Numeric `db:"price,numeric(10,2)"`
	Stock     *int32         `db:"stock,integer,default(0)"`
	CreatedAt time.Time      `db:"created_at,date,default(CURRENT_DATE)"`
}

func (Product) TableName() string { return "products" }

// UserProductKey is the composite primary key of UserProduct.
type UserProductKey struct {
	UserID    int64 `db:"user_id,bigint,primaryKey,fk(users.id),fkName(fk_userproduct_user),onDelete(cascade),orphanRemoval,index"`
	ProductID int64 `db:"product_id,bigint,primaryKey,fk(products.id),fkName(fk_userproduct_product),onDelete(restrict),orphanRemoval,index"`
}

// UserProduct records a purchase.
type UserProduct struct {
	UserProductKey
	Quantity  int32     `db:"quantity,integer,notNull"`
	OrderDate time.Time `db:"order_date,date,default(CURRENT_DATE)"`
}

func (UserProduct) TableName() string { return "user_products" }

// Catalog returns the resolved commerce catalog.
var Catalog = sync.OnceValues(func() (*registry.Registry, error) {
	catalog := registry.New(Name, Namespace)
	if err := catalog.Register(User{}, Product{}, UserProduct{}); err != nil {
		return nil, err
	}
	if err := catalog.Resolve(); err != nil {
		return nil, err
	}
	return catalog, nil
})

// Bind returns a query builder for the catalog on db.
func Bind(db *runtime.DB) (*builder.DB, error) {
	catalog, err := Catalog()
	if err != nil {
		return nil, err
	}
	return builder.New(db, catalog), nil
}

// OrdersOfUser returns the purchases made by u.
func OrdersOfUser(ctx context.Context, db *builder.DB, u User) ([]UserProduct, error) {
	return builder.Children[UserProduct](ctx, db, u)
}

// OrdersOfProduct returns the purchases of p.
func OrdersOfProduct(ctx context.Context, db *builder.DB, p Product) ([]UserProduct, error) {
	return builder.Children[UserProduct](ctx, db, p)
}

// ProductsOfUser returns the products u bought.
func ProductsOfUser(ctx context.Context, db *builder.DB, u User) ([]Product, error) {
	return builder.Related[Product, UserProduct](ctx, db, u)
}

// BuyersOfProduct returns the users who bought p.
func BuyersOfProduct(ctx context.Context, db *builder.DB, p Product) ([]User, error) {
	return builder.Related[User, UserProduct](ctx, db, p)
}
