// Package testdb starts one PostgreSQL container per test binary and hands
// out namespaces on it.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andressep95/annotations/pkg/ddl"
	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
)

var (
	once     sync.Once
	connStr  string
	startErr error
)

func start() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("annotations"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		startErr = fmt.Errorf("failed to start PostgreSQL container: %w", err)
		return
	}

	connStr, startErr = container.ConnectionString(ctx, "sslmode=disable")
}

// URL returns the connection string of the shared container, starting it on
// first use. The container is reaped by testcontainers when the binary exits.
func URL(t testing.TB) string {
	t.Helper()
	once.Do(start)
	if startErr != nil {
		t.Fatalf("testdb: %v", startErr)
	}
	return connStr
}

// Connect returns a DB whose namespace is empty. The namespace is dropped and
// the pool closed when the test finishes.
func Connect(t testing.TB, namespace string) *runtime.DB {
	t.Helper()
	ctx := context.Background()

	db, err := runtime.ConnectWithURL(ctx, URL(t), namespace)
	if err != nil {
		t.Fatalf("testdb: failed to connect: %v", err)
	}
	drop := "DROP SCHEMA IF EXISTS " + runtime.QuoteIdent(namespace) + " CASCADE"
	if _, err := db.Exec(ctx, drop); err != nil {
		t.Fatalf("testdb: failed to reset %s: %v", namespace, err)
	}
	if _, err := db.Exec(ctx, "CREATE SCHEMA "+runtime.QuoteIdent(namespace)); err != nil {
		t.Fatalf("testdb: failed to create %s: %v", namespace, err)
	}

	t.Cleanup(func() {
		if _, err := db.Exec(ctx, drop); err != nil {
			t.Logf("testdb: failed to drop %s: %v", namespace, err)
		}
		db.Close()
	})
	return db
}

// Materialize connects to an empty namespace named after catalog and creates
// the catalog tables in it.
func Materialize(t testing.TB, catalog *registry.Registry) *runtime.DB {
	t.Helper()
	db := Connect(t, catalog.Namespace())
	if _, err := ddl.NewApplier(db).Materialize(context.Background(), catalog); err != nil {
		t.Fatalf("testdb: failed to materialize %s: %v", catalog.Name(), err)
	}
	return db
}

// Truncate empties tables of the DB's namespace and restarts their identities.
func Truncate(t testing.TB, db *runtime.DB, tables ...string) {
	t.Helper()
	qualified := make([]string, len(tables))
	for i, table := range tables {
		qualified[i] = runtime.QuoteIdent(db.Namespace()) + "." + runtime.QuoteIdent(table)
	}
	sql := "TRUNCATE " + strings.Join(qualified, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := db.Exec(context.Background(), sql); err != nil {
		t.Fatalf("testdb: %v", err)
	}
}
