package schema

import (
	"fmt"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// Registry maps entity names to their descriptors. It is populated once
// during startup and safe for concurrent read-only access afterwards.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty descriptor registry
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
	}
}

// Register validates and stores a descriptor. Inconsistent metadata fails
// here, at startup, rather than at query time.
func (r *Registry) Register(d *Descriptor) error {
	if err := validate(d); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[d.Entity]; exists {
		return shared.NewConfiguration(fmt.Sprintf("entity %q is already registered", d.Entity))
	}
	r.descriptors[d.Entity] = d
	return nil
}

// MustRegister registers a descriptor and panics on configuration errors.
// Intended for startup wiring where a bad descriptor is unrecoverable.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Describe returns the descriptor registered for entity
func (r *Registry) Describe(entity string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[entity]
	if !ok {
		return nil, shared.NewConfiguration(fmt.Sprintf("no descriptor registered for entity %q", entity))
	}
	return d, nil
}

// Entities lists the registered entity names
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	return names
}

func validate(d *Descriptor) error {
	if d == nil || d.Entity == "" {
		return shared.NewConfiguration("descriptor requires an entity name")
	}
	if d.Table == "" {
		return shared.NewConfiguration(fmt.Sprintf("entity %q requires a table name", d.Entity))
	}
	if len(d.Columns) == 0 {
		return shared.NewConfiguration(fmt.Sprintf("entity %q requires a column projection", d.Entity))
	}

	for _, u := range d.Unique {
		if u.Column == "" || u.Value == nil {
			return shared.NewConfiguration(fmt.Sprintf("entity %q: unique field %q requires a column and value accessor", d.Entity, u.Field))
		}
	}

	for _, ref := range d.ParentRefs {
		if ref.Field == "" || ref.Table == "" || ref.Column == "" || ref.LocalColumn == "" {
			return shared.NewConfiguration(fmt.Sprintf("entity %q: parent reference %q is incomplete", d.Entity, ref.Field))
		}
	}

	for _, c := range d.Children {
		if c.Entity == "" {
			return shared.NewConfiguration(fmt.Sprintf("entity %q: child collection %q requires a referenced entity", d.Entity, c.Field))
		}
		if c.Items == nil || c.SetParent == nil {
			return shared.NewConfiguration(fmt.Sprintf("entity %q: child collection %q requires items and set-parent accessors", d.Entity, c.Field))
		}
		if c.ManyToMany {
			if c.CombineKey == "" {
				return shared.NewConfiguration(fmt.Sprintf("entity %q: many-to-many child %q requires a combine key", d.Entity, c.Field))
			}
		} else {
			if c.ForeignKey == "" {
				return shared.NewConfiguration(fmt.Sprintf("entity %q: child collection %q requires a foreign key", d.Entity, c.Field))
			}
			if c.Assign == nil {
				return shared.NewConfiguration(fmt.Sprintf("entity %q: child collection %q requires an assign function", d.Entity, c.Field))
			}
		}
	}

	for _, f := range append(append([]DerivedField{}, d.OneToOne...), d.Sums...) {
		if f.Entity == "" || f.OriginColumn == "" || f.ReferenceColumn == "" || f.ValueColumn == "" {
			return shared.NewConfiguration(fmt.Sprintf("entity %q: derived field %q is incomplete", d.Entity, f.Field))
		}
	}

	return nil
}
