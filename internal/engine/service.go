// Package engine implements the metadata-driven persistence engine. One
// Service instance per registered entity type provides create, update,
// delete, search and paging against that type's table, driven entirely by
// its schema descriptor: uniqueness checks, parent-reference joins,
// child-collection synchronization, tenant scoping, derived-field
// resolution and audit stamping all come from the descriptor, not from
// per-entity code.
package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/query"
	"github.com/storefront/backend/internal/engine/schema"
	"github.com/storefront/backend/internal/engine/scope"
)

// Deps bundles the collaborators every engine service shares
type Deps struct {
	DB       *gorm.DB
	Dialect  query.Dialect
	Registry *schema.Registry
	Scope    *scope.Resolver
	Hub      *Hub
	Identity Identity
	// Events is optional; without it the *WithEvent operations degrade to
	// their plain counterparts
	Events EventSink
	Logger *zap.Logger
}

// QueryOptions tune read operations
type QueryOptions struct {
	// Level selects the tenant visibility; zero value is tenant-only
	Level scope.DataLevel
	// WithChildren loads each result's child collections
	WithChildren bool
}

// Service is the engine instance for one entity type. T is the pointer
// type of the registered entity (e.g. *catalog.Product).
type Service[T shared.Record] struct {
	deps      Deps
	desc      *schema.Descriptor
	adapter   *Adapter
	newRecord func() T
	log       *zap.Logger
}

// NewService creates the engine service for a registered entity and adds
// it to the hub so sibling engines can reach it.
func NewService[T shared.Record](deps Deps, entity string, newRecord func() T) (*Service[T], error) {
	desc, err := deps.Registry.Describe(entity)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Service[T]{
		deps:      deps,
		desc:      desc,
		adapter:   NewAdapter(deps.DB),
		newRecord: newRecord,
		log:       deps.Logger.With(zap.String("entity", entity)),
	}
	if deps.Hub != nil {
		if err := deps.Hub.register(entity, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Descriptor returns the entity's schema descriptor
func (s *Service[T]) Descriptor() *schema.Descriptor {
	return s.desc
}

func (s *Service[T]) descriptor() *schema.Descriptor {
	return s.desc
}

// transaction runs fn inside one unit of work: commit on nil error,
// rollback on any error.
func (s *Service[T]) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.deps.DB.WithContext(ctx).Transaction(fn)
}

// scopeConditions resolves the visibility filter for a read or write.
// Tenant-agnostic entities only filter out soft-deleted rows.
func (s *Service[T]) scopeConditions(ctx context.Context, tenant string, level scope.DataLevel) ([]shared.SearchCondition, error) {
	if s.desc.TenantAgnostic {
		return []shared.SearchCondition{scope.NotDeleted()}, nil
	}
	if level == "" {
		level = scope.LevelTenant
	}
	return s.deps.Scope.Resolve(ctx, s.desc.Table, tenant, level)
}

// joinsFor selects the parent-reference joins a query needs: references
// named by the projection, conditions or sort are joined; detail fetches
// additionally join every reference, including detail-only ones.
func (s *Service[T]) joinsFor(fields []string, conds []shared.SearchCondition, sort *shared.SortSpec, detail bool) []query.Join {
	referenced := make(map[string]bool)
	mark := func(col string) {
		if i := strings.Index(col, "."); i > 0 {
			referenced[col[:i]] = true
		}
	}
	for _, f := range fields {
		mark(f)
	}
	for _, c := range conds {
		mark(c.Field)
	}
	if sort != nil {
		mark(sort.Field)
	}

	var joins []query.Join
	for _, r := range s.desc.ParentRefs {
		if !detail && r.DetailOnly {
			continue
		}
		if !detail && !referenced[r.Field] {
			continue
		}
		joins = append(joins, query.Join{
			Alias:       r.Field,
			Table:       r.Table,
			Column:      r.Column,
			LocalColumn: r.LocalColumn,
		})
	}
	return joins
}

// buildQuery assembles the dialect-independent query for the entity table
func (s *Service[T]) buildQuery(conds []shared.SearchCondition, sort *shared.SortSpec, fields []string, page *shared.PageRequest, detail bool) query.Query {
	if sort == nil {
		sort = s.desc.DefaultSort
	}
	return query.Query{
		Table:      s.desc.Table,
		PrimaryKey: s.desc.PrimaryKey,
		Joins:      s.joinsFor(fields, conds, sort, detail),
		Conditions: conds,
		Sort:       sort,
		Fields:     fields,
		Columns:    s.desc.Columns,
		Page:       page,
	}
}

// primaryKey falls back to the code column when no primary-key descriptor
// is registered, so lookups by code still work.
func (s *Service[T]) primaryKey() string {
	if s.desc.PrimaryKey != "" {
		return s.desc.PrimaryKey
	}
	return "code"
}

// GetByCode fetches a single record by its code, scoped to the tenant.
// A missing or soft-deleted record is a NotFound error.
func (s *Service[T]) GetByCode(ctx context.Context, tenant, code string, opts ...QueryOptions) (T, error) {
	opt := firstOption(opts)
	var zero T

	conds, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return zero, err
	}
	conds = shared.MergeConditions(conds, shared.NewCondition(s.primaryKey(), shared.OpEqualExact, code))

	q := s.buildQuery(conds, nil, nil, nil, false)
	sql, args, err := s.deps.Dialect.Compile(q)
	if err != nil {
		return zero, err
	}
	items, err := scanTyped[T](ctx, s.deps.DB, sql, args)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, shared.NewNotFound(s.desc.Entity + " not found")
	}

	rec := items[0]
	if opt.WithChildren {
		if err := s.attachChildren(ctx, s.deps.DB, rec); err != nil {
			return zero, err
		}
	}
	return rec, nil
}

// GetDetail fetches a single record as a field map, joining every parent
// reference (detail-only included) and resolving any requested derived
// fields.
func (s *Service[T]) GetDetail(ctx context.Context, tenant, code string, fields []string) (shared.FieldMap, error) {
	conds, err := s.scopeConditions(ctx, tenant, "")
	if err != nil {
		return nil, err
	}
	conds = shared.MergeConditions(conds, shared.NewCondition(s.primaryKey(), shared.OpEqualExact, code))

	rows, err := s.searchMaps(ctx, s.deps.DB, conds, fields, nil, nil, true)
	if err != nil {
		return nil, err
	}
	if len(rows.items) == 0 {
		return nil, shared.NewNotFound(s.desc.Entity + " not found")
	}
	return rows.items[0], nil
}

// GetAll returns every visible record of the entity
func (s *Service[T]) GetAll(ctx context.Context, tenant string, opts ...QueryOptions) ([]T, error) {
	return s.Search(ctx, tenant, nil, nil, opts...)
}

// GetAllPaged returns one page of the entity's visible records
func (s *Service[T]) GetAllPaged(ctx context.Context, tenant string, page shared.PageRequest, opts ...QueryOptions) (shared.Paginated[T], error) {
	return s.SearchPaged(ctx, tenant, nil, nil, page, opts...)
}

// Search returns every visible record matching the conditions
func (s *Service[T]) Search(ctx context.Context, tenant string, conds []shared.SearchCondition, sort *shared.SortSpec, opts ...QueryOptions) ([]T, error) {
	opt := firstOption(opts)

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return nil, err
	}
	all := shared.MergeConditions(conds, scoped...)

	q := s.buildQuery(all, sort, nil, nil, false)
	sql, args, err := s.deps.Dialect.Compile(q)
	if err != nil {
		return nil, err
	}
	items, err := scanTyped[T](ctx, s.deps.DB, sql, args)
	if err != nil {
		return nil, err
	}

	if opt.WithChildren {
		for _, rec := range items {
			if err := s.attachChildren(ctx, s.deps.DB, rec); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// SearchPaged returns one page of matching records plus the grand total
func (s *Service[T]) SearchPaged(ctx context.Context, tenant string, conds []shared.SearchCondition, sort *shared.SortSpec, page shared.PageRequest, opts ...QueryOptions) (shared.Paginated[T], error) {
	opt := firstOption(opts)
	page = page.Normalize()
	var zero shared.Paginated[T]

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return zero, err
	}
	all := shared.MergeConditions(conds, scoped...)

	q := s.buildQuery(all, sort, nil, &page, false)
	sql, args, err := s.deps.Dialect.Compile(q)
	if err != nil {
		return zero, err
	}
	items, err := scanTyped[T](ctx, s.deps.DB, sql, args)
	if err != nil {
		return zero, err
	}

	countSQL, countArgs, err := s.deps.Dialect.CompileCount(q)
	if err != nil {
		return zero, err
	}
	total, err := s.adapter.Count(ctx, s.deps.DB, countSQL, countArgs)
	if err != nil {
		return zero, err
	}

	if opt.WithChildren {
		for _, rec := range items {
			if err := s.attachChildren(ctx, s.deps.DB, rec); err != nil {
				return zero, err
			}
		}
	}
	return shared.NewPaginated(items, total, page.Page, page.PageSize), nil
}

// SearchFields returns matching rows projected to the requested fields.
// Derived fields named in the projection are resolved per row; the
// primary key is always included even when omitted by the caller.
func (s *Service[T]) SearchFields(ctx context.Context, tenant string, conds []shared.SearchCondition, fields []string, sort *shared.SortSpec, opts ...QueryOptions) ([]shared.FieldMap, error) {
	opt := firstOption(opts)

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return nil, err
	}
	all := shared.MergeConditions(conds, scoped...)

	result, err := s.searchMaps(ctx, s.deps.DB, all, fields, sort, nil, false)
	if err != nil {
		return nil, err
	}
	return result.items, nil
}

// SearchFieldsPaged is SearchFields with a paging window. The page and the
// grand total come back from a single round trip via the compiled
// total-row window column.
func (s *Service[T]) SearchFieldsPaged(ctx context.Context, tenant string, conds []shared.SearchCondition, fields []string, sort *shared.SortSpec, page shared.PageRequest, opts ...QueryOptions) (shared.Paginated[shared.FieldMap], error) {
	opt := firstOption(opts)
	page = page.Normalize()
	var zero shared.Paginated[shared.FieldMap]

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return zero, err
	}
	all := shared.MergeConditions(conds, scoped...)

	result, err := s.searchMaps(ctx, s.deps.DB, all, fields, sort, &page, false)
	if err != nil {
		return zero, err
	}

	total := result.total
	if len(result.items) == 0 {
		// Page beyond the end of the result set: the window column never
		// came back, so fall back to an explicit count.
		q := s.buildQuery(all, sort, nil, nil, false)
		countSQL, countArgs, err := s.deps.Dialect.CompileCount(q)
		if err != nil {
			return zero, err
		}
		total, err = s.adapter.Count(ctx, s.deps.DB, countSQL, countArgs)
		if err != nil {
			return zero, err
		}
	}
	return shared.NewPaginated(result.items, total, page.Page, page.PageSize), nil
}

// Count returns the number of visible records matching the conditions
func (s *Service[T]) Count(ctx context.Context, tenant string, conds []shared.SearchCondition, opts ...QueryOptions) (int64, error) {
	opt := firstOption(opts)

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return 0, err
	}
	all := shared.MergeConditions(conds, scoped...)

	q := s.buildQuery(all, nil, nil, nil, false)
	sql, args, err := s.deps.Dialect.CompileCount(q)
	if err != nil {
		return 0, err
	}
	return s.adapter.Count(ctx, s.deps.DB, sql, args)
}

// CountLimit returns the number of matching records, never scanning more
// than limit rows. Used for incremental total estimation on large sets.
func (s *Service[T]) CountLimit(ctx context.Context, tenant string, conds []shared.SearchCondition, limit int, opts ...QueryOptions) (int64, error) {
	opt := firstOption(opts)

	scoped, err := s.scopeConditions(ctx, tenant, opt.Level)
	if err != nil {
		return 0, err
	}
	all := shared.MergeConditions(conds, scoped...)

	q := s.buildQuery(all, nil, nil, nil, false)
	sql, args, err := s.deps.Dialect.CompileCountLimit(q, limit)
	if err != nil {
		return 0, err
	}
	return s.adapter.Count(ctx, s.deps.DB, sql, args)
}

// mapResult carries the rows of a projected query plus the total taken
// from the window column when the query was paged.
type mapResult struct {
	items []shared.FieldMap
	total int64
}

// searchMaps is the projected read path shared by SearchFields, paging and
// detail fetches: it splits derived fields out of the projection, compiles
// and runs the query, extracts the window total, and resolves the derived
// fields per row.
func (s *Service[T]) searchMaps(ctx context.Context, tx *gorm.DB, conds []shared.SearchCondition, fields []string, sort *shared.SortSpec, page *shared.PageRequest, detail bool) (mapResult, error) {
	dbFields, derived := s.splitDerived(fields)

	q := s.buildQuery(conds, sort, dbFields, page, detail)
	sql, args, err := s.deps.Dialect.Compile(q)
	if err != nil {
		return mapResult{}, err
	}
	rows, err := s.adapter.FieldMaps(ctx, tx, sql, args)
	if err != nil {
		return mapResult{}, err
	}

	var total int64
	if page != nil && len(rows) > 0 {
		total = rows[0].Decimal(query.TotalRowColumn).IntPart()
		for _, row := range rows {
			delete(row, query.TotalRowColumn)
		}
	}

	if len(derived) > 0 {
		if err := s.resolveDerived(ctx, tx, rows, derived); err != nil {
			return mapResult{}, err
		}
	}
	return mapResult{items: rows, total: total}, nil
}

// splitDerived separates database columns from derived-field names in a
// requested projection, forcing the columns derived resolution depends on
// (primary key, company code, origin columns) into the database list.
func (s *Service[T]) splitDerived(fields []string) (dbFields []string, derived []schema.DerivedField) {
	if len(fields) == 0 {
		return nil, nil
	}

	derivedByName := make(map[string]schema.DerivedField)
	for _, f := range s.desc.OneToOne {
		derivedByName[f.Field] = f
	}
	for _, f := range s.desc.Sums {
		derivedByName[f.Field] = f
	}

	for _, f := range fields {
		if d, ok := derivedByName[f]; ok {
			derived = append(derived, d)
			continue
		}
		dbFields = append(dbFields, f)
	}

	ensure := func(col string) {
		for _, f := range dbFields {
			if f == col {
				return
			}
		}
		dbFields = append(dbFields, col)
	}
	ensure(s.primaryKey())
	for _, d := range derived {
		ensure(d.OriginColumn)
	}
	if len(derived) > 0 && !s.desc.TenantAgnostic {
		ensure("company_code")
	}
	return dbFields, derived
}

// attachChildren loads each child collection of rec and writes it back
// onto the record via the descriptor's attach accessor.
func (s *Service[T]) attachChildren(ctx context.Context, tx *gorm.DB, rec T) error {
	base := rec.Base()
	for _, c := range s.desc.Children {
		if c.Attach == nil {
			continue
		}
		childEng, err := s.deps.Hub.engine(c.Entity)
		if err != nil {
			return err
		}
		children, err := childEng.loadRowsTx(ctx, tx, s.childConditions(c, base))
		if err != nil {
			return err
		}
		c.Attach(rec, children)
	}
	return nil
}

// childConditions filters a child table to the live rows belonging to a
// parent: foreign key (or combine key) plus the parent's tenant.
func (s *Service[T]) childConditions(c schema.ChildCollection, parent *shared.EntityBase) []shared.SearchCondition {
	key := c.ForeignKey
	if c.ManyToMany {
		key = c.CombineKey
	}
	conds := []shared.SearchCondition{
		shared.NewCondition(key, shared.OpEqualExact, parent.Code),
		scope.NotDeleted(),
	}
	if !s.desc.TenantAgnostic {
		conds = append(conds, shared.NewCondition("company_code", shared.OpEqualExact, parent.CompanyCode))
	}
	return conds
}

// facade: searchMapsTx runs a projected query on the caller's transaction
// without adding scope; sibling engines pass fully-built conditions.
func (s *Service[T]) searchMapsTx(ctx context.Context, tx *gorm.DB, conds []shared.SearchCondition, fields []string) ([]shared.FieldMap, error) {
	result, err := s.searchMaps(ctx, tx, conds, fields, nil, nil, false)
	if err != nil {
		return nil, err
	}
	return result.items, nil
}

// facade: loadRowsTx loads typed rows on the caller's transaction
func (s *Service[T]) loadRowsTx(ctx context.Context, tx *gorm.DB, conds []shared.SearchCondition) ([]shared.Record, error) {
	q := s.buildQuery(conds, nil, nil, nil, false)
	sql, args, err := s.deps.Dialect.Compile(q)
	if err != nil {
		return nil, err
	}
	items, err := scanTyped[T](ctx, tx, sql, args)
	if err != nil {
		return nil, err
	}
	records := make([]shared.Record, len(items))
	for i, item := range items {
		records[i] = item
	}
	return records, nil
}

func firstOption(opts []QueryOptions) QueryOptions {
	if len(opts) > 0 {
		return opts[0]
	}
	return QueryOptions{}
}
