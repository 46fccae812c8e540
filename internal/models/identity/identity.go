// Package identity is the account catalog. Every user has at most one
// profile.
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/andressep95/annotations/pkg/builder"
	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
	"github.com/andressep95/annotations/pkg/schema"
)

const (
	// Name is the catalog name.
	Name = "identity"
	// Namespace is the PostgreSQL schema of the catalog.
	Namespace = "identity"
)

// User is a login account. password_hash holds a bcrypt-sized digest.
type User struct {
	ID            int64      `db:"id,primaryKey,bigint,identityByDefault"`
	Username      string     `db:"username,varchar(50),notNull,unique(uk_user_username)"`
	Email         string     `db:"email,varchar(100),notNull,unique(uk_user_email)"`
	PasswordHash  string     `db:"password_hash,varchar(60),notNull"`
	AccountLocked *bool      `db:"account_locked,boolean,default(false)"`
	LastLogin     *time.Time `db:"last_login,timestamp"`
	CreatedAt     time.Time  `db:"created_at,timestamp,default(CURRENT_TIMESTAMP)"`
}

func (User) TableName() string { return "users" }

// UserProfile holds the optional personal data of a User. Both timestamps
// default to the insert time; keeping updated_at current is left to writers.
type UserProfile struct {
	ID                int64        `db:"id,primaryKey,bigint,identityByDefault"`
	UserID            int64        `db:"user_id,bigint,notNull,unique(uk_profile_user),fk(users.id),fkName(fk_profile_user),onDelete(cascade)"`
	FirstName         string       `db:"first_name,varchar(50),notNull"`
	LastName          string       `db:"last_name,varchar(50),notNull"`
	DateOfBirth       *time.Time   `db:"date_of_birth,date"`
	PhoneNumber       *string      `db:"phone_number,varchar(20)"`
	Address           *string      `db:"address,varchar(200)"`
	Bio               *string      `db:"bio,text"`
	ProfilePictureURL *string      `db:"profile_picture_url,varchar(255)"`
	Preferences       schema.JSONB `db:"preferences,jsonb"`
	CreatedAt         time.Time    `db:"created_at,timestamp,default(CURRENT_TIMESTAMP)"`
	UpdatedAt         time.Time    `db:"updated_at,timestamp,default(CURRENT_TIMESTAMP)"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// Catalog returns the resolved identity catalog.
var Catalog = sync.OnceValues(func() (*registry.Registry, error) {
	catalog := registry.New(Name, Namespace)
	if err := catalog.Register(User{}, UserProfile{}); err != nil {
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

// ProfileOfUser returns the profile of u, or runtime.ErrNotFound.
func ProfileOfUser(ctx context.Context, db *builder.DB, u User) (*UserProfile, error) {
	return builder.Child[UserProfile](ctx, db, u)
}

// UserOfProfile returns the owner of p.
func UserOfProfile(ctx context.Context, db *builder.DB, p UserProfile) (*User, error) {
	return builder.Parent[User](ctx, db, p)
}
