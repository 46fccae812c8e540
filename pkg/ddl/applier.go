package ddl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/andressep95/annotations/pkg/registry"
	"github.com/andressep95/annotations/pkg/runtime"
)

// ErrDrift is returned by Materialize when existing tables differ from the
// catalog or the namespace holds tables the catalog does not know.
var ErrDrift = errors.New("database has drifted from the catalog")

// DefaultLockID is the advisory lock key serializing materialization.
const DefaultLockID int64 = 0x616e6e6f

// Applier checks and materializes catalogs against a live database. It only
// ever creates missing tables; differences in existing ones are reported.
type Applier struct {
	db      *runtime.DB
	planner *Planner
	differ  *Differ
	lockID  int64
}

// NewApplier creates an applier on db.
func NewApplier(db *runtime.DB) *Applier {
	return &Applier{
		db:      db,
		planner: NewPlanner(),
		differ:  NewDiffer(),
		lockID:  DefaultLockID,
	}
}

// WithLockID sets a custom advisory lock ID.
func (a *Applier) WithLockID(lockID int64) *Applier {
	a.lockID = lockID
	return a
}

// Planner returns the planner used to render DDL.
func (a *Applier) Planner() *Planner {
	return a.planner
}

// Verify introspects the catalog's namespace and diffs it against the catalog.
func (a *Applier) Verify(ctx context.Context, catalog *registry.Registry) (*SchemaDiff, error) {
	return a.diff(ctx, a.db, catalog)
}

func (a *Applier) diff(ctx context.Context, q Querier, catalog *registry.Registry) (*SchemaDiff, error) {
	db, err := NewIntrospector(q, catalog.Namespace()).IntrospectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %s: %w", catalog.Namespace(), err)
	}
	diff, err := a.differ.Compare(catalog.Namespace(), catalog.GetAllTables(), db)
	if err != nil {
		return nil, fmt.Errorf("failed to compare catalog %s: %w", catalog.Name(), err)
	}
	return diff, nil
}

// Materialize creates the catalog tables missing from the database in one
// transaction. The returned diff describes what was found before applying.
func (a *Applier) Materialize(ctx context.Context, catalog *registry.Registry) (*SchemaDiff, error) {
	log := zerolog.Ctx(ctx).With().
		Str("catalog", catalog.Name()).
		Str("namespace", catalog.Namespace()).
		Logger()

	conn, err := a.db.Pool().Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if err := a.lock(ctx, conn); err != nil {
		return nil, err
	}
	log.Debug().Int64("lock_id", a.lockID).Msg("advisory lock acquired")
	defer func() {
		if err := a.unlock(context.WithoutCancel(ctx), conn); err != nil {
			log.Warn().Err(err).Msg("failed to release advisory lock")
		}
	}()

	diff, err := a.diff(ctx, conn, catalog)
	if err != nil {
		return nil, err
	}
	if diff.HasDrift() {
		return diff, fmt.Errorf("%w: %s", ErrDrift, strings.Join(diff.Summary(), "; "))
	}
	if len(diff.TablesAdded) == 0 {
		log.Info().Msg("catalog already materialized")
		return diff, nil
	}

	up, _ := a.planner.Plan(&SchemaDiff{Namespace: diff.Namespace, TablesAdded: diff.TablesAdded})
	statements := splitSQL(up)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range statements {
		log.Debug().Int("statement", i+1).Str("sql", stmt).Msg("executing")
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("statement %d failed: %w\nSQL: %s", i+1, runtime.Classify(err), stmt)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	log.Info().
		Int("tables", len(diff.TablesAdded)).
		Int("statements", len(statements)).
		Msg("catalog materialized")
	return diff, nil
}

// lock and unlock run on the same session; advisory locks are per connection.
func (a *Applier) lock(ctx context.Context, conn *pgxpool.Conn) error {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", a.lockID); err != nil {
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}
	return nil
}

func (a *Applier) unlock(ctx context.Context, conn *pgxpool.Conn) error {
	var released bool
	if err := conn.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", a.lockID).Scan(&released); err != nil {
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	if !released {
		return errors.New("advisory lock was not held")
	}
	return nil
}
