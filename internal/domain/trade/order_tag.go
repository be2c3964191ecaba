package trade

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// OrderTag is a many-to-many link row labeling an order. Link rows are
// replaced, not diffed: the synchronizer soft-deletes the existing set
// and inserts the incoming one with fresh keys.
type OrderTag struct {
	shared.EntityBase
	OrderCode string `gorm:"size:64;index" json:"order_code"`
	Tag       string `gorm:"size:64;not null" json:"tag"`
}

// TableName returns the table name for GORM
func (OrderTag) TableName() string {
	return "order_tags"
}

// OrderTagDescriptor returns the persistence metadata for OrderTag
func OrderTagDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "OrderTag",
		Table:      "order_tags",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "order_code", "tag",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
	}
}
