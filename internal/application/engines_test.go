package application_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/storefront/backend/internal/application"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/partner"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/engine/query"
	"github.com/storefront/backend/internal/engine/scope"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

func newTestEngines(t *testing.T) (*application.Engines, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&partner.Company{}, &partner.Customer{}, &partner.Address{},
		&catalog.Category{}, &catalog.Product{}, &catalog.Review{},
		&trade.Order{}, &trade.OrderItem{}, &trade.OrderTag{},
		&event.OutboxEntry{},
	))
	require.NoError(t, db.Exec(`CREATE TABLE distribution_maps (
		code VARCHAR(64) PRIMARY KEY,
		item_code VARCHAR(64) NOT NULL,
		company_code VARCHAR(64) NOT NULL,
		modification_state VARCHAR(16) NOT NULL DEFAULT 'Added'
	)`).Error)

	resolver := scope.NewResolver(
		persistence.NewGormCompanyHierarchy(db),
		persistence.NewGormMappingStore(db),
	)

	engines, err := application.NewEngines(engine.Deps{
		DB:       db,
		Dialect:  query.NewPostgres(),
		Scope:    resolver,
		Identity: engine.StaticIdentity("tester"),
		Events:   event.NewOutboxSink(),
	})
	require.NoError(t, err)
	return engines, db
}

func TestInsertMintsCodeAndAudit(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{Name: "Widget", SKU: "SKU-1", Price: decimal.NewFromInt(10)}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))

	assert.NotEmpty(t, p.Code)
	assert.Equal(t, "acme", p.CompanyCode)
	assert.Equal(t, "tester", p.CreatedBy)
	assert.Equal(t, "tester", p.ModifiedBy)
	assert.Equal(t, shared.StateAdded, p.ModificationState)
	assert.False(t, p.CreatedDate.IsZero())
	assert.Equal(t, "acme", p.Scope)
	assert.Equal(t, shared.ScopeTypeCompany, p.ScopeType)

	got, err := e.Products.GetByCode(ctx, "acme", p.Code)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
}

func TestInsertExplicitCodeConflicts(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	first := &catalog.Product{Name: "A", SKU: "SKU-A"}
	first.Code = "P-1"
	require.NoError(t, e.Products.Insert(ctx, "acme", first))

	dup := &catalog.Product{Name: "B", SKU: "SKU-B"}
	dup.Code = "P-1"
	err := e.Products.Insert(ctx, "acme", dup)
	assert.True(t, shared.IsConflict(err))

	// A soft-deleted row still occupies its key physically.
	require.NoError(t, e.Products.Delete(ctx, "acme", "P-1"))
	again := &catalog.Product{Name: "C", SKU: "SKU-C"}
	again.Code = "P-1"
	err = e.Products.Insert(ctx, "acme", again)
	assert.True(t, shared.IsConflict(err))
}

func TestUniqueConstraintIsTenantScoped(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	require.NoError(t, e.Products.Insert(ctx, "acme", &catalog.Product{Name: "A", SKU: "SKU-1"}))

	err := e.Products.Insert(ctx, "acme", &catalog.Product{Name: "B", SKU: "SKU-1"})
	assert.True(t, shared.IsConflict(err))

	// Same SKU in another company is fine.
	require.NoError(t, e.Products.Insert(ctx, "globex", &catalog.Product{Name: "B", SKU: "SKU-1"}))
}

func TestUpdateRevalidatesChangedUniqueOnly(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	a := &catalog.Product{Name: "A", SKU: "SKU-A"}
	b := &catalog.Product{Name: "B", SKU: "SKU-B"}
	require.NoError(t, e.Products.Insert(ctx, "acme", a))
	require.NoError(t, e.Products.Insert(ctx, "acme", b))

	// Unchanged SKU does not trip its own uniqueness check.
	a.Name = "A renamed"
	require.NoError(t, e.Products.Update(ctx, "acme", a))

	got, err := e.Products.GetByCode(ctx, "acme", a.Code)
	require.NoError(t, err)
	assert.Equal(t, "A renamed", got.Name)
	assert.Equal(t, shared.StateUpdated, got.ModificationState)
	assert.Equal(t, "tester", got.CreatedBy)

	// Taking another live row's SKU is a conflict.
	b.SKU = "SKU-A"
	err = e.Products.Update(ctx, "acme", b)
	assert.True(t, shared.IsConflict(err))
}

func TestUpdateMissingTargetIsNotFound(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	ghost := &catalog.Product{Name: "Ghost", SKU: "SKU-G"}
	ghost.Code = "missing"
	err := e.Products.Update(ctx, "acme", ghost)
	assert.True(t, shared.IsNotFound(err))

	blank := &catalog.Product{Name: "Blank"}
	err = e.Products.Update(ctx, "acme", blank)
	assert.True(t, shared.IsKind(err, shared.KindInvalidInput))
}

func TestSoftDeleteHidesRowButKeepsIt(t *testing.T) {
	e, db := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{Name: "Widget", SKU: "SKU-1"}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))
	require.NoError(t, e.Products.Delete(ctx, "acme", p.Code))

	_, err := e.Products.GetByCode(ctx, "acme", p.Code)
	assert.True(t, shared.IsNotFound(err))

	items, err := e.Products.GetAll(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, items)

	// The row itself survives with the deleted state.
	var state string
	require.NoError(t, db.Raw("SELECT modification_state FROM products WHERE code = ?", p.Code).Scan(&state).Error)
	assert.Equal(t, "Deleted", state)

	// Deleting again is NotFound, not a silent no-op.
	err = e.Products.Delete(ctx, "acme", p.Code)
	assert.True(t, shared.IsNotFound(err))
}

func TestRemovePhysicallyDeletes(t *testing.T) {
	e, db := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{
		Name: "Widget", SKU: "SKU-1",
		Reviews: []*catalog.Review{{Reviewer: "ann", Rating: decimal.NewFromInt(5)}},
	}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))
	require.NoError(t, e.Products.Remove(ctx, "acme", p.Code))

	var count int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM products").Scan(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM product_reviews").Scan(&count).Error)
	assert.Zero(t, count)
}

func TestCascadeSoftDelete(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{
		Name: "Widget", SKU: "SKU-1",
		Reviews: []*catalog.Review{
			{Reviewer: "ann", Rating: decimal.NewFromInt(4)},
			{Reviewer: "bob", Rating: decimal.NewFromInt(5)},
		},
	}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))

	reviews, err := e.Reviews.GetAll(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, r := range reviews {
		assert.Equal(t, p.Code, r.ProductCode)
		assert.Equal(t, "acme", r.CompanyCode)
		assert.NotEmpty(t, r.Code)
	}

	require.NoError(t, e.Products.Delete(ctx, "acme", p.Code))
	reviews, err = e.Reviews.GetAll(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestGetByCodeWithChildren(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	c := &partner.Customer{
		Name: "Ann", Email: "ann@example.com",
		Addresses: []*partner.Address{{Line1: "1 Main St", City: "Springfield", Country: "US"}},
	}
	require.NoError(t, e.Customers.Insert(ctx, "acme", c))

	got, err := e.Customers.GetByCode(ctx, "acme", c.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	require.Len(t, got.Addresses, 1)
	assert.Equal(t, "1 Main St", got.Addresses[0].Line1)
	assert.Equal(t, c.Code, got.Addresses[0].CustomerCode)
}

func TestChildDiffOnUpdate(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	o := &trade.Order{
		OrderNumber: "SO-1", Status: trade.OrderStatusDraft,
		Items: []*trade.OrderItem{
			{ProductCode: "p1", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)},
			{ProductCode: "p2", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(20)},
		},
	}
	require.NoError(t, e.Orders.Insert(ctx, "acme", o))

	loaded, err := e.Orders.GetByCode(ctx, "acme", o.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	var keep, drop *trade.OrderItem
	for _, it := range loaded.Items {
		if it.ProductCode == "p1" {
			keep = it
		} else {
			drop = it
		}
	}
	require.NotNil(t, keep)
	require.NotNil(t, drop)
	keptCode := keep.Code

	// Keep p1 with a new quantity, drop p2, add p3.
	keep.Quantity = decimal.NewFromInt(5)
	loaded.Items = []*trade.OrderItem{
		keep,
		{ProductCode: "p3", Quantity: decimal.NewFromInt(3), UnitPrice: decimal.NewFromInt(30)},
	}
	require.NoError(t, e.Orders.Update(ctx, "acme", loaded))

	after, err := e.Orders.GetByCode(ctx, "acme", o.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	require.Len(t, after.Items, 2)

	byProduct := map[string]*trade.OrderItem{}
	for _, it := range after.Items {
		byProduct[it.ProductCode] = it
	}
	require.Contains(t, byProduct, "p1")
	require.Contains(t, byProduct, "p3")

	// The matched row kept its identity and creation audit.
	assert.Equal(t, keptCode, byProduct["p1"].Code)
	assert.True(t, byProduct["p1"].Quantity.Equal(decimal.NewFromInt(5)),
		"got %s", byProduct["p1"].Quantity)
	assert.Equal(t, shared.StateUpdated, byProduct["p1"].ModificationState)

	// Running the same update again changes nothing.
	require.NoError(t, e.Orders.Update(ctx, "acme", after))
	again, err := e.Orders.GetByCode(ctx, "acme", o.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	assert.Len(t, again.Items, 2)
}

func TestManyToManyReplace(t *testing.T) {
	e, db := newTestEngines(t)
	ctx := context.Background()

	o := &trade.Order{
		OrderNumber: "SO-1",
		Tags:        []*trade.OrderTag{{Tag: "rush"}, {Tag: "gift"}},
	}
	require.NoError(t, e.Orders.Insert(ctx, "acme", o))

	loaded, err := e.Orders.GetByCode(ctx, "acme", o.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	require.Len(t, loaded.Tags, 2)

	loaded.Tags = []*trade.OrderTag{{Tag: "gift"}, {Tag: "fragile"}}
	require.NoError(t, e.Orders.Update(ctx, "acme", loaded))

	after, err := e.Orders.GetByCode(ctx, "acme", o.Code, engine.QueryOptions{WithChildren: true})
	require.NoError(t, err)
	tags := map[string]bool{}
	for _, tg := range after.Tags {
		tags[tg.Tag] = true
	}
	assert.Equal(t, map[string]bool{"gift": true, "fragile": true}, tags)

	// Replacement soft-deletes the old link rows rather than erasing them.
	var total int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM order_tags").Scan(&total).Error)
	assert.Equal(t, int64(4), total)
}

func TestDeleteBlockedByValidation(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	o := &trade.Order{OrderNumber: "SO-1", Status: trade.OrderStatusShipped}
	require.NoError(t, e.Orders.Insert(ctx, "acme", o))

	err := e.Orders.Delete(ctx, "acme", o.Code)
	assert.True(t, shared.IsKind(err, shared.KindValidationFailed))

	// The order is still there.
	_, err = e.Orders.GetByCode(ctx, "acme", o.Code)
	assert.NoError(t, err)
}

func TestTenantIsolation(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{Name: "Widget", SKU: "SKU-1"}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))

	_, err := e.Products.GetByCode(ctx, "globex", p.Code)
	assert.True(t, shared.IsNotFound(err))

	items, err := e.Products.GetAll(ctx, "globex")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestWritesScopedToCallerTenant(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	victim := &catalog.Product{Name: "Globex widget", SKU: "SKU-G"}
	require.NoError(t, e.Products.Insert(ctx, "globex", victim))

	// An update naming another tenant's company_code must not reach that
	// tenant's row: the caller's tenant wins and the target is not found.
	forged := &catalog.Product{Name: "Defaced", SKU: "SKU-G"}
	forged.Code = victim.Code
	forged.CompanyCode = "globex"
	err := e.Products.Update(ctx, "acme", forged)
	assert.True(t, shared.IsNotFound(err))

	got, err := e.Products.GetByCode(ctx, "globex", victim.Code)
	require.NoError(t, err)
	assert.Equal(t, "Globex widget", got.Name)

	// An insert carrying a foreign company_code lands in the caller's
	// tenant, not the named one.
	smuggled := &catalog.Product{Name: "Smuggled", SKU: "SKU-X"}
	smuggled.CompanyCode = "globex"
	require.NoError(t, e.Products.Insert(ctx, "acme", smuggled))
	assert.Equal(t, "acme", smuggled.CompanyCode)
	assert.Equal(t, "acme", smuggled.Scope)

	_, err = e.Products.GetByCode(ctx, "globex", smuggled.Code)
	assert.True(t, shared.IsNotFound(err))
	_, err = e.Products.GetByCode(ctx, "acme", smuggled.Code)
	assert.NoError(t, err)
}

func TestSearchAndPaging(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		p := &catalog.Product{
			Name:  fmt.Sprintf("Widget %02d", i),
			SKU:   fmt.Sprintf("SKU-%02d", i),
			Price: decimal.NewFromInt(int64(i)),
		}
		require.NoError(t, e.Products.Insert(ctx, "acme", p))
	}

	t.Run("typed page", func(t *testing.T) {
		page, err := e.Products.GetAllPaged(ctx, "acme", shared.PageRequest{Page: 2, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(25), page.Total)
		require.Len(t, page.Items, 10)
		// Default sort is by name ascending.
		assert.Equal(t, "Widget 11", page.Items[0].Name)
		assert.Equal(t, 3, page.TotalPages())
		assert.True(t, page.HasNext())
		assert.True(t, page.HasPrevious())
	})

	t.Run("last page is short", func(t *testing.T) {
		page, err := e.Products.GetAllPaged(ctx, "acme", shared.PageRequest{Page: 3, PageSize: 10})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
		assert.False(t, page.HasNext())
	})

	t.Run("conditions", func(t *testing.T) {
		items, err := e.Products.Search(ctx, "acme", []shared.SearchCondition{
			shared.NewCondition("price", shared.OpGreaterThan, 20),
		}, shared.SortByDesc("price"))
		require.NoError(t, err)
		require.Len(t, items, 5)
		assert.Equal(t, "Widget 25", items[0].Name)
	})

	t.Run("count", func(t *testing.T) {
		total, err := e.Products.Count(ctx, "acme", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(25), total)

		bounded, err := e.Products.CountLimit(ctx, "acme", nil, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), bounded)
	})
}

func TestSearchFieldsPaged(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		p := &catalog.Product{Name: fmt.Sprintf("Widget %d", i), SKU: fmt.Sprintf("SKU-%d", i)}
		require.NoError(t, e.Products.Insert(ctx, "acme", p))
	}

	t.Run("window total in one trip", func(t *testing.T) {
		page, err := e.Products.SearchFieldsPaged(ctx, "acme", nil,
			[]string{"name", "sku"}, shared.SortBy("name"), shared.PageRequest{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Widget 1", page.Items[0].String("name"))
		// The window column never leaks into the rows.
		assert.False(t, page.Items[0].Has(query.TotalRowColumn))
	})

	t.Run("page beyond the end still reports the total", func(t *testing.T) {
		page, err := e.Products.SearchFieldsPaged(ctx, "acme", nil,
			[]string{"name"}, nil, shared.PageRequest{Page: 9, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, int64(5), page.Total)
	})
}

func TestDerivedFields(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	cat := &catalog.Category{Name: "Electronics"}
	require.NoError(t, e.Categories.Insert(ctx, "acme", cat))

	p := &catalog.Product{
		Name: "Widget", SKU: "SKU-1", CategoryCode: cat.Code,
		Reviews: []*catalog.Review{
			{Reviewer: "ann", Rating: decimal.RequireFromString("4.5")},
			{Reviewer: "bob", Rating: decimal.RequireFromString("4.0")},
		},
	}
	require.NoError(t, e.Products.Insert(ctx, "acme", p))

	detail, err := e.Products.GetDetail(ctx, "acme", p.Code, []string{"name", "category_name", "review_score"})
	require.NoError(t, err)

	assert.Equal(t, "Widget", detail.String("name"))
	assert.Equal(t, "Electronics", detail.String("category_name"))
	assert.True(t, detail.Decimal("review_score").Equal(decimal.RequireFromString("8.5")),
		"got %s", detail.Decimal("review_score"))
}

func TestDerivedFieldsInProjectedSearch(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	cat := &catalog.Category{Name: "Tools"}
	require.NoError(t, e.Categories.Insert(ctx, "acme", cat))
	require.NoError(t, e.Products.Insert(ctx, "acme",
		&catalog.Product{Name: "Hammer", SKU: "SKU-1", CategoryCode: cat.Code}))
	require.NoError(t, e.Products.Insert(ctx, "acme",
		&catalog.Product{Name: "Saw", SKU: "SKU-2"}))

	rows, err := e.Products.SearchFields(ctx, "acme", nil,
		[]string{"name", "category_name"}, shared.SortBy("name"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Tools", rows[0].String("category_name"))
	// No matching category leaves the field absent rather than erroring.
	assert.False(t, rows[1].Has("category_name"))
}

func TestDistributedVisibility(t *testing.T) {
	e, db := newTestEngines(t)
	ctx := context.Background()

	hq := &partner.Company{Name: "HQ"}
	require.NoError(t, e.Companies.Insert(ctx, "", hq))
	east := &partner.Company{Name: "East", ParentCode: hq.Code}
	require.NoError(t, e.Companies.Insert(ctx, "", east))
	store := &partner.Company{Name: "Store 1", ParentCode: east.Code, IsStation: true}
	require.NoError(t, e.Companies.Insert(ctx, "", store))

	t.Run("single-column distribution", func(t *testing.T) {
		p := &catalog.Product{Name: "Shared widget", SKU: "SKU-S", DistributedTo: east.Code}
		require.NoError(t, e.Products.Insert(ctx, hq.Code, p))

		// Not visible at plain tenant level.
		items, err := e.Products.GetAll(ctx, east.Code)
		require.NoError(t, err)
		assert.Empty(t, items)

		// Visible at distributed level, to the target and its subtree owner.
		items, err = e.Products.GetAll(ctx, east.Code, engine.QueryOptions{Level: scope.LevelDistributed})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Shared widget", items[0].Name)

		// The owner always sees its own rows at distributed level.
		items, err = e.Products.GetAll(ctx, hq.Code, engine.QueryOptions{Level: scope.LevelDistributed})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("tenant and descendants", func(t *testing.T) {
		p := &catalog.Product{Name: "Store widget", SKU: "SKU-T"}
		require.NoError(t, e.Products.Insert(ctx, store.Code, p))

		items, err := e.Products.Search(ctx, east.Code, []shared.SearchCondition{
			shared.NewCondition("sku", shared.OpEqualExact, "SKU-T"),
		}, nil, engine.QueryOptions{Level: scope.LevelTenantAndDescendants})
		require.NoError(t, err)
		assert.Len(t, items, 1)

		// A caller-supplied membership filter that duplicates the resolved
		// scope collapses into it instead of blowing up the merge.
		items, err = e.Products.Search(ctx, east.Code, []shared.SearchCondition{
			shared.NewCondition("company_code", shared.OpIn, []string{east.Code, store.Code}),
			shared.NewCondition("sku", shared.OpEqualExact, "SKU-T"),
		}, nil, engine.QueryOptions{Level: scope.LevelTenantAndDescendants})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("mapping distribution", func(t *testing.T) {
		o := &trade.Order{OrderNumber: "SO-SHARED"}
		require.NoError(t, e.Orders.Insert(ctx, hq.Code, o))

		require.NoError(t, db.Exec(
			"INSERT INTO distribution_maps (code, item_code, company_code) VALUES (?, ?, ?)",
			"m1", o.Code, store.Code).Error)

		// The station granted the mapping sees the order.
		items, err := e.Orders.GetAll(ctx, store.Code, engine.QueryOptions{Level: scope.LevelDistributed})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "SO-SHARED", items[0].OrderNumber)

		// A non-station company resolves its whole branch, so the grant
		// to the store below east makes the order visible to east too.
		items, err = e.Orders.GetAll(ctx, east.Code, engine.QueryOptions{Level: scope.LevelDistributed})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "SO-SHARED", items[0].OrderNumber)

		// A branch with no grants anywhere degrades to tenant-only.
		west := &partner.Company{Name: "West", ParentCode: hq.Code}
		require.NoError(t, e.Companies.Insert(ctx, "", west))
		items, err = e.Orders.GetAll(ctx, west.Code, engine.QueryOptions{Level: scope.LevelDistributed})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestWriteWithEventRecordsOutboxRow(t *testing.T) {
	e, db := newTestEngines(t)
	ctx := context.Background()

	p := &catalog.Product{Name: "Widget", SKU: "SKU-1"}
	require.NoError(t, e.Products.InsertWithEvent(ctx, "acme", p, "product.created", `{"sku":"SKU-1"}`))

	var entries []event.OutboxEntry
	require.NoError(t, db.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, "product.created", entries[0].EventType)
	assert.Equal(t, "Product", entries[0].EntityName)
	assert.Equal(t, p.Code, entries[0].EntityCode)
	assert.Equal(t, "acme", entries[0].CompanyCode)
	assert.Equal(t, "tester", entries[0].Actor)
	assert.False(t, entries[0].Processed)
}

func TestCompanyIsTenantAgnostic(t *testing.T) {
	e, _ := newTestEngines(t)
	ctx := context.Background()

	c := &partner.Company{Name: "HQ"}
	require.NoError(t, e.Companies.Insert(ctx, "", c))
	assert.Equal(t, shared.ScopeTypeGlobal, c.ScopeType)

	// Companies are visible regardless of the requesting tenant.
	got, err := e.Companies.GetByCode(ctx, "anything", c.Code)
	require.NoError(t, err)
	assert.Equal(t, "HQ", got.Name)

	dup := &partner.Company{Name: "HQ"}
	err = e.Companies.Insert(ctx, "", dup)
	assert.True(t, shared.IsConflict(err))
}
