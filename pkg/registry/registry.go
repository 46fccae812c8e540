// Package registry groups parsed tables into a named catalog bound to a
// PostgreSQL namespace.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"sync"

	"github.com/andressep95/annotations/pkg/schema"
)

// Registry is a thread-safe catalog of table metadata.
type Registry struct {
	name      string
	namespace string

	mu       sync.RWMutex
	parser   *schema.Parser
	tables   map[reflect.Type]*schema.TableMetadata
	names    map[string]*schema.TableMetadata
	order    []*schema.TableMetadata
	resolved bool
}

// New creates an empty catalog whose tables live in namespace.
func New(name, namespace string) *Registry {
	return &Registry{
		name:      name,
		namespace: namespace,
		parser:    schema.NewParser(),
		tables:    make(map[reflect.Type]*schema.TableMetadata),
		names:     make(map[string]*schema.TableMetadata),
	}
}

// Name returns the catalog name.
func (r *Registry) Name() string { return r.name }

// Namespace returns the PostgreSQL schema holding the catalog's tables.
func (r *Registry) Namespace() string { return r.namespace }

// Qualify returns table prefixed with the catalog namespace.
func (r *Registry) Qualify(table string) string {
	if r.namespace == "" {
		return table
	}
	return r.namespace + "." + table
}

// Register parses and adds models to the catalog. Registering the same type
// twice is a no-op; two types mapping to one table name is an error.
func (r *Registry) Register(models ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, model := range models {
		modelType := reflect.TypeOf(model)
		if modelType == nil {
			return fmt.Errorf("catalog %s: cannot register nil model", r.name)
		}
		for modelType.Kind() == reflect.Pointer {
			modelType = modelType.Elem()
		}
		if _, ok := r.tables[modelType]; ok {
			continue
		}

		table, err := r.parser.Parse(modelType)
		if err != nil {
			return fmt.Errorf("catalog %s: failed to parse model %s: %w", r.name, modelType.Name(), err)
		}
		if existing, ok := r.names[table.Name]; ok {
			return fmt.Errorf("catalog %s: table %s is mapped by both %s and %s",
				r.name, table.Name, existing.GoType.Name(), modelType.Name())
		}

		r.tables[modelType] = table
		r.names[table.Name] = table
		r.order = append(r.order, table)
		r.resolved = false
	}
	return nil
}

// Resolve derives the relationship edges of every registered table and
// checks referential integrity across the catalog.
func (r *Registry) Resolve() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := schema.Resolve(r.order); err != nil {
		return fmt.Errorf("catalog %s: %w", r.name, err)
	}
	r.resolved = true
	return nil
}

// Resolved reports whether the relationships reflect every registered table.
func (r *Registry) Resolved() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolved
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("catalog %s: model type %s not registered", r.name, modelType.Name())
	}
	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("catalog %s: table %s not registered", r.name, tableName)
	}
	return table, nil
}

// All returns the tables in registration order.
func (r *Registry) All() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]*schema.TableMetadata(nil), r.order...)
}

// Ordered returns the tables so that referenced tables come first.
func (r *Registry) Ordered() ([]*schema.TableMetadata, error) {
	return schema.SortByDependency(r.All())
}

// Relationships returns every resolved edge, grouped by source table in
// registration order.
func (r *Registry) Relationships() []schema.RelationshipMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rels []schema.RelationshipMetadata
	for _, table := range r.order {
		rels = append(rels, table.Relationships...)
	}
	return rels
}

// GetAllTables returns all registered tables keyed by table name.
func (r *Registry) GetAllTables() map[string]*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make(map[string]*schema.TableMetadata, len(r.names))
	maps.Copy(tables, r.names)
	return tables
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	_, ok := r.tables[modelType]
	r.mu.RUnlock()
	return ok
}

// HasTable checks if a table name is registered.
func (r *Registry) HasTable(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()
	return ok
}
