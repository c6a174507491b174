// Package demos holds the pluggable modules that are offered every shared
// timeline item.
package demos

import (
	"context"
	"fmt"
	"sort"

	"github.com/telhawk-systems/mirror-notify/internal/models"
)

// Module is a registered demo. Modules that want timeline items also
// implement ItemHandler.
type Module interface {
	Name() string
}

// ItemHandler receives a fetched timeline item. A nil Resource means the
// module has nothing to insert.
type ItemHandler interface {
	HandleItem(ctx context.Context, item models.Resource) (models.Resource, error)
}

// Factory builds a fresh module instance.
type Factory func() Module

// Registry maps demo names to factories. It is populated before startup and
// only read afterwards.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in demos.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.factories["echo"] = func() Module { return NewEcho() }
	r.factories["html"] = func() Module { return NewHTMLCard() }
	return r
}

func (r *Registry) Register(name string, factory Factory) error {
	if name == "" || factory == nil {
		return fmt.Errorf("demo registration requires a name and factory")
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("demo %q already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Names lists registered demos in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named demos in the given order. Unknown or repeated
// names are configuration errors.
func (r *Registry) Build(names []string) ([]Module, error) {
	modules := make([]Module, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown demo %q (available: %v)", name, r.Names())
		}
		if seen[name] {
			return nil, fmt.Errorf("demo %q enabled more than once", name)
		}
		seen[name] = true
		modules = append(modules, factory())
	}
	return modules, nil
}
