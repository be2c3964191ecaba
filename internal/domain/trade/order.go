// Package trade holds the order entities.
package trade

import (
	"github.com/shopspring/decimal"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// OrderStatus is the fulfilment state of an order
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a customer purchase. Items are a one-to-many child
// collection diffed on update; Tags are many-to-many link rows replaced
// wholesale. Orders are shared across companies through the
// distribution_maps table (mapping distribution).
type Order struct {
	shared.EntityBase
	OrderNumber  string          `gorm:"size:64;index" json:"order_number"`
	CustomerCode string          `gorm:"size:64;index" json:"customer_code"`
	Status       OrderStatus     `gorm:"size:20;not null;default:'draft'" json:"status"`
	Total        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"total"`

	Items []*OrderItem `gorm:"-" json:"items,omitempty"`
	Tags  []*OrderTag  `gorm:"-" json:"tags,omitempty"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// ValidationFailures blocks deletion of orders already handed to the
// carrier
func (o *Order) ValidationFailures() []string {
	if o.Status == OrderStatusShipped {
		return []string{"shipped orders cannot be deleted"}
	}
	return nil
}

// OrderDescriptor returns the persistence metadata for Order
func OrderDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Order",
		Table:      "orders",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "order_number", "customer_code",
			"status", "total",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortByDesc("created_date"),
		Unique: []schema.UniqueField{
			{
				Field:        "OrderNumber",
				Column:       "order_number",
				TenantScoped: true,
				Value:        func(rec shared.Record) any { return rec.(*Order).OrderNumber },
			},
		},
		ParentRefs: []schema.ParentReference{
			{
				Field:       "Customer",
				LocalColumn: "customer_code",
				Table:       "customers",
				Column:      "code",
				DetailOnly:  true,
			},
		},
		Children: []schema.ChildCollection{
			{
				Field:         "Items",
				Entity:        "OrderItem",
				ForeignKey:    "order_code",
				CascadeDelete: true,
				Items: func(parent shared.Record) []shared.Record {
					o := parent.(*Order)
					items := make([]shared.Record, len(o.Items))
					for i, it := range o.Items {
						items[i] = it
					}
					return items
				},
				SetParent: func(child shared.Record, parentCode string) {
					child.(*OrderItem).OrderCode = parentCode
				},
				Attach: func(parent shared.Record, children []shared.Record) {
					o := parent.(*Order)
					o.Items = make([]*OrderItem, len(children))
					for i, ch := range children {
						o.Items[i] = ch.(*OrderItem)
					}
				},
				Assign: func(dst, src shared.Record) {
					d, s := dst.(*OrderItem), src.(*OrderItem)
					d.ProductCode = s.ProductCode
					d.Quantity = s.Quantity
					d.UnitPrice = s.UnitPrice
				},
			},
			{
				Field:      "Tags",
				Entity:     "OrderTag",
				CombineKey: "order_code",
				ManyToMany: true,
				Items: func(parent shared.Record) []shared.Record {
					o := parent.(*Order)
					items := make([]shared.Record, len(o.Tags))
					for i, tg := range o.Tags {
						items[i] = tg
					}
					return items
				},
				SetParent: func(child shared.Record, parentCode string) {
					child.(*OrderTag).OrderCode = parentCode
				},
				Attach: func(parent shared.Record, children []shared.Record) {
					o := parent.(*Order)
					o.Tags = make([]*OrderTag, len(children))
					for i, ch := range children {
						o.Tags[i] = ch.(*OrderTag)
					}
				},
			},
		},
	}
}
