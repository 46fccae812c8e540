package runtime

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is a PostgreSQL connection pool bound to one namespace.
type DB struct {
	pool   *pgxpool.Pool
	config *Config
}

// Config represents database configuration. URL, when set, wins over the
// discrete connection fields.
type Config struct {
	URL       string
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	SSLMode   string
	Namespace string
	MaxConns  int32
	MinConns  int32
}

// NewDB wraps an existing pool.
func NewDB(pool *pgxpool.Pool, namespace string) *DB {
	return &DB{
		pool:   pool,
		config: &Config{Namespace: namespace},
	}
}

// Connect opens a pool, pins search_path to the configured namespace and
// makes sure the namespace exists.
func Connect(ctx context.Context, config *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnectionString(config))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.Namespace != "" {
		poolConfig.ConnConfig.RuntimeParams["search_path"] = SearchPath(config.Namespace)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool, config: config}
	if config.Namespace != "" {
		if _, err := db.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+QuoteIdent(config.Namespace)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create namespace %s: %w", config.Namespace, err)
		}
	}
	return db, nil
}

// ConnectWithURL connects using a connection URL and namespace.
func ConnectWithURL(ctx context.Context, url, namespace string) (*DB, error) {
	return Connect(ctx, &Config{URL: url, Namespace: namespace})
}

// Namespace returns the PostgreSQL schema the pool is bound to.
func (db *DB) Namespace() string {
	return db.config.Namespace
}

// Pool returns the underlying pgxpool.Pool.
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Begin starts a new transaction.
func (db *DB) Begin(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

// Exec executes a statement and returns the number of affected rows.
func (db *DB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	result, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, newQueryError(sql, err)
	}
	return result.RowsAffected(), nil
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	rows, err := db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, newQueryError(sql, err)
	}
	return rows, nil
}

// QueryRow executes a query that returns at most one row. Errors surface from
// Scan, classified like Exec errors; an empty result yields ErrNotFound.
func (db *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &row{sql: sql, row: db.pool.QueryRow(ctx, sql, args...)}
}

type row struct {
	sql string
	row pgx.Row
}

func (r *row) Scan(dest ...any) error {
	if err := r.row.Scan(dest...); err != nil {
		return newQueryError(r.sql, err)
	}
	return nil
}

// SearchPath returns the search_path value for a namespace.
func SearchPath(namespace string) string {
	return QuoteIdent(namespace) + ", public"
}

// QuoteIdent quotes a single SQL identifier.
func QuoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// buildConnectionString builds a PostgreSQL connection string from config.
func buildConnectionString(config *Config) string {
	if config.URL != "" {
		return config.URL
	}

	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}
	port := config.Port
	if port == 0 {
		port = 5432
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%d", config.Host, port),
		Path:     "/" + config.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// DefaultConfig returns a default database configuration.
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5432,
		Database: "postgres",
		User:     "postgres",
		SSLMode:  "prefer",
		MaxConns: 10,
		MinConns: 2,
	}
}
