// Package schema holds the static persistence metadata the engine is driven
// by. Each entity type registers a Descriptor once at startup; descriptors
// are validated at registration and never mutate afterwards.
package schema

import (
	"github.com/storefront/backend/internal/domain/shared"
)

// UniqueField declares a uniqueness constraint on one column. TenantScoped
// constraints are checked within the owning company only.
type UniqueField struct {
	// Field is the logical name surfaced in conflict messages
	Field string
	// Column is the database column carrying the value
	Column string
	// TenantScoped restricts the constraint to rows of the same company
	TenantScoped bool
	// Value reads the constrained value off an entity instance
	Value func(rec shared.Record) any
}

// ParentReference declares a join-based lookup to a referenced table.
// The join alias is the Field name.
type ParentReference struct {
	Field string
	// LocalColumn is the foreign-key column on the base table
	LocalColumn string
	// Table and Column identify the referenced side of the join
	Table  string
	Column string
	// DetailOnly references are joined when fetching a single record but
	// skipped on list queries
	DetailOnly bool
}

// ChildCollection declares a one-to-many or many-to-many child set.
type ChildCollection struct {
	Field string
	// Entity is the registered name of the child type
	Entity string
	// ForeignKey is the child column holding the parent code (one-to-many)
	ForeignKey string
	// CombineKey is the child column holding the parent code for
	// many-to-many link rows
	CombineKey string
	ManyToMany bool
	// IdentityKey marks child keys as database-generated; when false the
	// synchronizer mints keys for incoming rows without one
	IdentityKey bool
	// CascadeDelete propagates parent soft/hard deletes into the children
	CascadeDelete bool
	// Items reads the in-memory child collection off a parent instance
	Items func(parent shared.Record) []shared.Record
	// SetParent writes the parent's code into the child's foreign-key or
	// combine-key field
	SetParent func(child shared.Record, parentCode string)
	// Attach writes a loaded child collection back onto a parent instance
	Attach func(parent shared.Record, children []shared.Record)
	// Assign copies the business fields of src onto dst, preserving dst's
	// identity and audit history. Required for one-to-many collections.
	Assign func(dst, src shared.Record)
}

// DerivedField declares a read-time value resolved from a referenced
// entity: the referenced engine is searched where ReferenceColumn equals
// the row's OriginColumn value, scoped to the row's company.
type DerivedField struct {
	Field string
	// Entity is the registered name of the referenced type
	Entity string
	// OriginColumn is the column on this entity whose value drives the lookup
	OriginColumn string
	// ReferenceColumn is the column on the referenced entity to match
	ReferenceColumn string
	// ValueColumn is the referenced column projected as the result
	ValueColumn string
}

// Descriptor is the immutable persistence metadata of one entity type.
type Descriptor struct {
	// Entity is the registered name, unique across the registry
	Entity string
	// Table is the backing table name
	Table string
	// PrimaryKey is the primary key column; empty skips primary-key
	// duplicate checks
	PrimaryKey string
	// TenantAgnostic entities carry no company scoping
	TenantAgnostic bool
	// Columns is the full projection of the base type, used when a caller
	// requests no explicit field list
	Columns []string
	// DefaultSort orders list queries when the caller gives no sort spec
	DefaultSort *shared.SortSpec

	Unique     []UniqueField
	ParentRefs []ParentReference
	Children   []ChildCollection
	// OneToOne fields resolve to the single matching value
	OneToOne []DerivedField
	// Sums aggregate the numeric value column across all matches
	Sums []DerivedField
}

// Child returns the child collection descriptor by field name
func (d *Descriptor) Child(field string) (ChildCollection, bool) {
	for _, c := range d.Children {
		if c.Field == field {
			return c, true
		}
	}
	return ChildCollection{}, false
}

// ParentRef returns the parent reference descriptor by field name
func (d *Descriptor) ParentRef(field string) (ParentReference, bool) {
	for _, r := range d.ParentRefs {
		if r.Field == field {
			return r, true
		}
	}
	return ParentReference{}, false
}

// HasColumn reports whether column belongs to the base projection
func (d *Descriptor) HasColumn(column string) bool {
	for _, c := range d.Columns {
		if c == column {
			return true
		}
	}
	return false
}
