package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// Review is a customer rating of one product
type Review struct {
	shared.EntityBase
	ProductCode string          `gorm:"size:64;index" json:"product_code"`
	Reviewer    string          `gorm:"size:128" json:"reviewer"`
	Rating      decimal.Decimal `gorm:"type:decimal(4,2);not null;default:0" json:"rating"`
	Comment     string          `gorm:"type:text" json:"comment"`
}

// TableName returns the table name for GORM
func (Review) TableName() string {
	return "product_reviews"
}

// ReviewDescriptor returns the persistence metadata for Review
func ReviewDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Review",
		Table:      "product_reviews",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "product_code", "reviewer", "rating",
			"comment",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortByDesc("created_date"),
	}
}
