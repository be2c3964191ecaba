package trade

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// OrderItem is one line of an order
type OrderItem struct {
	shared.EntityBase
	OrderCode   string          `gorm:"size:64;index" json:"order_code"`
	ProductCode string          `gorm:"size:64;index" json:"product_code"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"unit_price"`
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal returns quantity times unit price
func (i *OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// OrderItemDescriptor returns the persistence metadata for OrderItem
func OrderItemDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "OrderItem",
		Table:      "order_items",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "order_code", "product_code",
			"quantity", "unit_price",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
	}
}
