package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// Product is a sellable catalog item. Reviews are a child collection;
// category_name and review_score are derived on field-projected reads.
// DistributedTo shares a product with a whole subtree of the company
// tree (single-column distribution).
type Product struct {
	shared.EntityBase
	Name          string          `gorm:"size:200;not null" json:"name"`
	SKU           string          `gorm:"size:64;index" json:"sku"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"price"`
	CategoryCode  string          `gorm:"size:64;index" json:"category_code"`
	DistributedTo string          `gorm:"size:64;index" json:"distributed_to"`

	Reviews []*Review `gorm:"-" json:"reviews,omitempty"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// ProductDescriptor returns the persistence metadata for Product
func ProductDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Product",
		Table:      "products",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "name", "sku", "description", "price",
			"category_code", "distributed_to",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortBy("name"),
		Unique: []schema.UniqueField{
			{
				Field:        "SKU",
				Column:       "sku",
				TenantScoped: true,
				Value:        func(rec shared.Record) any { return rec.(*Product).SKU },
			},
		},
		ParentRefs: []schema.ParentReference{
			{
				Field:       "Category",
				LocalColumn: "category_code",
				Table:       "categories",
				Column:      "code",
				DetailOnly:  true,
			},
		},
		Children: []schema.ChildCollection{
			{
				Field:         "Reviews",
				Entity:        "Review",
				ForeignKey:    "product_code",
				CascadeDelete: true,
				Items: func(parent shared.Record) []shared.Record {
					p := parent.(*Product)
					items := make([]shared.Record, len(p.Reviews))
					for i, r := range p.Reviews {
						items[i] = r
					}
					return items
				},
				SetParent: func(child shared.Record, parentCode string) {
					child.(*Review).ProductCode = parentCode
				},
				Attach: func(parent shared.Record, children []shared.Record) {
					p := parent.(*Product)
					p.Reviews = make([]*Review, len(children))
					for i, ch := range children {
						p.Reviews[i] = ch.(*Review)
					}
				},
				Assign: func(dst, src shared.Record) {
					d, s := dst.(*Review), src.(*Review)
					d.Reviewer = s.Reviewer
					d.Rating = s.Rating
					d.Comment = s.Comment
				},
			},
		},
		OneToOne: []schema.DerivedField{
			{
				Field:           "category_name",
				Entity:          "Category",
				OriginColumn:    "category_code",
				ReferenceColumn: "code",
				ValueColumn:     "name",
			},
		},
		Sums: []schema.DerivedField{
			{
				Field:           "review_score",
				Entity:          "Review",
				OriginColumn:    "code",
				ReferenceColumn: "product_code",
				ValueColumn:     "rating",
			},
		},
	}
}
