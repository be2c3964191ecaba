// Package catalog holds the product catalog entities.
package catalog

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// Category groups products. Products reference it by code and surface
// its name as a derived field on detail reads.
type Category struct {
	shared.EntityBase
	Name        string `gorm:"size:200;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// CategoryDescriptor returns the persistence metadata for Category
func CategoryDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Category",
		Table:      "categories",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "name", "description",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortBy("name"),
		Unique: []schema.UniqueField{
			{
				Field:        "Name",
				Column:       "name",
				TenantScoped: true,
				Value:        func(rec shared.Record) any { return rec.(*Category).Name },
			},
		},
	}
}
