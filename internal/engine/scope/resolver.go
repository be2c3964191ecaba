// Package scope resolves tenant visibility into the filter conditions
// every query against an entity table must carry. An unresolved scope
// never degrades to an unfiltered query: every fallback path pins the
// filter to the requesting tenant.
package scope

import (
	"context"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
)

// DataLevel selects how far a query may see across the company tree
type DataLevel string

const (
	// LevelTenant restricts visibility to the requesting company
	LevelTenant DataLevel = "tenant"
	// LevelTenantAndDescendants adds every company below the requester
	LevelTenantAndDescendants DataLevel = "tenant_descendants"
	// LevelDistributed applies the table's cross-tenant sharing rules
	LevelDistributed DataLevel = "distributed"
)

// DistributionMode describes how a table is shared across tenants
type DistributionMode string

const (
	// ModeSingle marks sharing via a "visible to" column on the table itself
	ModeSingle DistributionMode = "single"
	// ModeMultiple marks sharing resolved through a mapping table
	ModeMultiple DistributionMode = "multiple"
)

// DistributionConfig is the per-table cross-tenant sharing rule
type DistributionConfig struct {
	Table string
	Mode  DistributionMode
	// Column is the shared visibility column (Single mode)
	Column string
	// MappingTable maps item codes to company codes (Multiple mode)
	MappingTable string
	// ItemColumn is the mapping column holding the shared item's code
	ItemColumn string
	// CompanyColumn is the mapping column holding the granted company
	CompanyColumn string
}

// CompanyHierarchy walks the company tree. Implementations read the
// companies table; the resolver only sees codes.
type CompanyHierarchy interface {
	// Children returns the direct child company codes of code
	Children(ctx context.Context, code string) ([]string, error)
	// Ancestors returns the parent chain of code, nearest first
	Ancestors(ctx context.Context, code string) ([]string, error)
	// IsStation reports whether code is a mapped leaf company that
	// receives distributed items directly
	IsStation(ctx context.Context, code string) (bool, error)
}

// MappingStore resolves distribution-mapping rows to shared item codes
type MappingStore interface {
	ItemCodes(ctx context.Context, cfg DistributionConfig, companyCodes []string) ([]string, error)
}

// visibilityGroup is the predicate group reserved for scope conditions so
// caller-supplied groups never collide with it.
const visibilityGroup = 9000

// Resolver produces the visibility filter for a (table, tenant, level)
// triple. Distribution configs are registered once at startup.
type Resolver struct {
	tree     CompanyHierarchy
	mappings MappingStore

	mu      sync.RWMutex
	configs map[string]DistributionConfig
}

// NewResolver creates a scope resolver over the given company tree
func NewResolver(tree CompanyHierarchy, mappings MappingStore) *Resolver {
	return &Resolver{
		tree:     tree,
		mappings: mappings,
		configs:  make(map[string]DistributionConfig),
	}
}

// RegisterDistribution stores the sharing rule for a table
func (r *Resolver) RegisterDistribution(cfg DistributionConfig) error {
	if cfg.Table == "" {
		return shared.NewConfiguration("distribution config requires a table")
	}
	switch cfg.Mode {
	case ModeSingle:
		if cfg.Column == "" {
			return shared.NewConfiguration("single-mode distribution requires a column")
		}
	case ModeMultiple:
		if cfg.MappingTable == "" || cfg.ItemColumn == "" || cfg.CompanyColumn == "" {
			return shared.NewConfiguration("multiple-mode distribution requires a mapping table and columns")
		}
	default:
		return shared.NewConfiguration("unknown distribution mode")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.Table] = cfg
	return nil
}

// Distribution returns the sharing rule registered for table, if any
func (r *Resolver) Distribution(table string) (DistributionConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[table]
	return cfg, ok
}

// Resolve produces the conditions to AND into every query against table
// on behalf of tenant. Soft-deleted rows are filtered out unconditionally.
func (r *Resolver) Resolve(ctx context.Context, table, tenant string, level DataLevel) ([]shared.SearchCondition, error) {
	conditions, err := r.visibility(ctx, table, tenant, level)
	if err != nil {
		return nil, err
	}
	return append(conditions, NotDeleted()), nil
}

// NotDeleted is the filter hiding soft-deleted rows from all reads
func NotDeleted() shared.SearchCondition {
	return shared.NewCondition("modification_state", shared.OpNotEqual, string(shared.StateDeleted))
}

func (r *Resolver) visibility(ctx context.Context, table, tenant string, level DataLevel) ([]shared.SearchCondition, error) {
	switch level {
	case LevelTenantAndDescendants:
		return r.tenantAndDescendants(ctx, tenant)
	case LevelDistributed:
		cfg, ok := r.Distribution(table)
		if !ok {
			// No sharing rule for this table: distributed access means
			// nothing wider than the tenant itself.
			return tenantOnly(tenant), nil
		}
		return r.distributed(ctx, cfg, tenant)
	default:
		return tenantOnly(tenant), nil
	}
}

func tenantOnly(tenant string) []shared.SearchCondition {
	return []shared.SearchCondition{
		shared.NewCondition("company_code", shared.OpEqualExact, tenant),
	}
}

func (r *Resolver) tenantAndDescendants(ctx context.Context, tenant string) ([]shared.SearchCondition, error) {
	descendants, err := r.descendants(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(descendants) == 0 {
		return tenantOnly(tenant), nil
	}
	codes := append([]string{tenant}, descendants...)
	return []shared.SearchCondition{
		shared.NewCondition("company_code", shared.OpIn, codes),
	}, nil
}

func (r *Resolver) distributed(ctx context.Context, cfg DistributionConfig, tenant string) ([]shared.SearchCondition, error) {
	switch cfg.Mode {
	case ModeSingle:
		descendants, err := r.descendants(ctx, tenant)
		if err != nil {
			return nil, err
		}
		codes := append([]string{tenant}, descendants...)
		// Either the row is distributed to a company in the tenant's
		// subtree, or the tenant owns it outright.
		return []shared.SearchCondition{
			shared.NewCondition(cfg.Column, shared.OpIn, codes).Grouped(visibilityGroup, shared.CombineOr),
			shared.NewCondition("company_code", shared.OpEqualExact, tenant).Grouped(visibilityGroup, shared.CombineOr),
		}, nil

	case ModeMultiple:
		companies, err := r.mappedCompanies(ctx, tenant)
		if err != nil {
			return nil, err
		}
		items, err := r.mappings.ItemCodes(ctx, cfg, companies)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return tenantOnly(tenant), nil
		}
		return []shared.SearchCondition{
			shared.NewCondition("code", shared.OpIn, items),
		}, nil

	default:
		return tenantOnly(tenant), nil
	}
}

// mappedCompanies returns the companies whose mapping rows grant the
// tenant visibility: the tenant alone when it is a station, otherwise its
// ancestor chain plus its whole subtree.
func (r *Resolver) mappedCompanies(ctx context.Context, tenant string) ([]string, error) {
	station, err := r.tree.IsStation(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if station {
		return []string{tenant}, nil
	}

	ancestors, err := r.tree.Ancestors(ctx, tenant)
	if err != nil {
		return nil, err
	}
	descendants, err := r.descendants(ctx, tenant)
	if err != nil {
		return nil, err
	}

	companies := make([]string, 0, len(ancestors)+len(descendants)+1)
	companies = append(companies, ancestors...)
	companies = append(companies, tenant)
	companies = append(companies, descendants...)
	return companies, nil
}

// descendants collects every company below code, breadth-first. A visited
// set guards against cycles in misconfigured trees.
func (r *Resolver) descendants(ctx context.Context, code string) ([]string, error) {
	var result []string
	visited := map[string]bool{code: true}
	frontier := []string{code}

	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]

		children, err := r.tree.Children(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if visited[child] {
				continue
			}
			visited[child] = true
			result = append(result, child)
			frontier = append(frontier, child)
		}
	}
	return result, nil
}
