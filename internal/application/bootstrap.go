// Package application wires the schema registry, scope resolver and one
// engine service per entity into a ready-to-serve set.
package application

import (
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/partner"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/engine/schema"
	"github.com/storefront/backend/internal/engine/scope"
)

// Engines bundles the engine service of every storefront entity
type Engines struct {
	Companies  *engine.Service[*partner.Company]
	Customers  *engine.Service[*partner.Customer]
	Addresses  *engine.Service[*partner.Address]
	Categories *engine.Service[*catalog.Category]
	Products   *engine.Service[*catalog.Product]
	Reviews    *engine.Service[*catalog.Review]
	Orders     *engine.Service[*trade.Order]
	OrderItems *engine.Service[*trade.OrderItem]
	OrderTags  *engine.Service[*trade.OrderTag]

	Hub      *engine.Hub
	Registry *schema.Registry
}

// NewRegistry builds the schema registry with every storefront entity
func NewRegistry() (*schema.Registry, error) {
	registry := schema.NewRegistry()
	descriptors := []schema.Descriptor{
		partner.CompanyDescriptor(),
		partner.CustomerDescriptor(),
		partner.AddressDescriptor(),
		catalog.CategoryDescriptor(),
		catalog.ProductDescriptor(),
		catalog.ReviewDescriptor(),
		trade.OrderDescriptor(),
		trade.OrderItemDescriptor(),
		trade.OrderTagDescriptor(),
	}
	for i := range descriptors {
		if err := registry.Register(&descriptors[i]); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// RegisterDistributions declares how shared entities become visible
// outside their owning company
func RegisterDistributions(resolver *scope.Resolver) error {
	configs := []scope.DistributionConfig{
		{
			Table:  "products",
			Mode:   scope.ModeSingle,
			Column: "distributed_to",
		},
		{
			Table:         "orders",
			Mode:          scope.ModeMultiple,
			MappingTable:  "distribution_maps",
			ItemColumn:    "item_code",
			CompanyColumn: "company_code",
		},
	}
	for _, cfg := range configs {
		if err := resolver.RegisterDistribution(cfg); err != nil {
			return err
		}
	}
	return nil
}

// NewEngines constructs the full engine set. deps.Registry and deps.Hub
// may be nil; they are created here.
func NewEngines(deps engine.Deps) (*Engines, error) {
	if deps.Registry == nil {
		registry, err := NewRegistry()
		if err != nil {
			return nil, err
		}
		deps.Registry = registry
	}
	if deps.Hub == nil {
		deps.Hub = engine.NewHub()
	}
	if deps.Scope != nil {
		if err := RegisterDistributions(deps.Scope); err != nil {
			return nil, err
		}
	}

	e := &Engines{Hub: deps.Hub, Registry: deps.Registry}
	var err error

	if e.Companies, err = engine.NewService(deps, "Company", func() *partner.Company { return &partner.Company{} }); err != nil {
		return nil, err
	}
	if e.Customers, err = engine.NewService(deps, "Customer", func() *partner.Customer { return &partner.Customer{} }); err != nil {
		return nil, err
	}
	if e.Addresses, err = engine.NewService(deps, "Address", func() *partner.Address { return &partner.Address{} }); err != nil {
		return nil, err
	}
	if e.Categories, err = engine.NewService(deps, "Category", func() *catalog.Category { return &catalog.Category{} }); err != nil {
		return nil, err
	}
	if e.Products, err = engine.NewService(deps, "Product", func() *catalog.Product { return &catalog.Product{} }); err != nil {
		return nil, err
	}
	if e.Reviews, err = engine.NewService(deps, "Review", func() *catalog.Review { return &catalog.Review{} }); err != nil {
		return nil, err
	}
	if e.Orders, err = engine.NewService(deps, "Order", func() *trade.Order { return &trade.Order{} }); err != nil {
		return nil, err
	}
	if e.OrderItems, err = engine.NewService(deps, "OrderItem", func() *trade.OrderItem { return &trade.OrderItem{} }); err != nil {
		return nil, err
	}
	if e.OrderTags, err = engine.NewService(deps, "OrderTag", func() *trade.OrderTag { return &trade.OrderTag{} }); err != nil {
		return nil, err
	}

	return e, nil
}
