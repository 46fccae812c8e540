// Package models lists the catalogs shipped with annotations.
package models

import (
	"fmt"
	"slices"

	"github.com/andressep95/annotations/internal/models/academic"
	"github.com/andressep95/annotations/internal/models/commerce"
	"github.com/andressep95/annotations/internal/models/identity"
	"github.com/andressep95/annotations/pkg/registry"
)

var builders = map[string]func() (*registry.Registry, error){
	commerce.Name: commerce.Catalog,
	academic.Name: academic.Catalog,
	identity.Name: identity.Catalog,
}

// Names returns the catalog names in sorted order.
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the catalog called name.
func Lookup(name string) (*registry.Registry, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown catalog %q (known: %v)", name, Names())
	}
	catalog, err := build()
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}
	return catalog, nil
}

// Catalogs returns every catalog ordered by name.
func Catalogs() ([]*registry.Registry, error) {
	catalogs := make([]*registry.Registry, 0, len(builders))
	for _, name := range Names() {
		catalog, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, catalog)
	}
	return catalogs, nil
}
