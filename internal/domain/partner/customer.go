package partner

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// Customer is a storefront buyer. Addresses live in their own table and
// are synchronized as a child collection on every customer write.
type Customer struct {
	shared.EntityBase
	Name  string `gorm:"size:200;not null" json:"name"`
	Email string `gorm:"size:200" json:"email"`
	Phone string `gorm:"size:40" json:"phone"`

	Addresses []*Address `gorm:"-" json:"addresses,omitempty"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// Address is a delivery address owned by one customer
type Address struct {
	shared.EntityBase
	CustomerCode string `gorm:"size:64;index" json:"customer_code"`
	Line1        string `gorm:"size:200" json:"line1"`
	City         string `gorm:"size:100" json:"city"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country"`
	IsDefault    bool   `json:"is_default"`
}

// TableName returns the table name for GORM
func (Address) TableName() string {
	return "customer_addresses"
}

// CustomerDescriptor returns the persistence metadata for Customer
func CustomerDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Customer",
		Table:      "customers",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "name", "email", "phone",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortBy("name"),
		Unique: []schema.UniqueField{
			{
				Field:        "Email",
				Column:       "email",
				TenantScoped: true,
				Value:        func(rec shared.Record) any { return rec.(*Customer).Email },
			},
		},
		Children: []schema.ChildCollection{
			{
				Field:         "Addresses",
				Entity:        "Address",
				ForeignKey:    "customer_code",
				CascadeDelete: true,
				Items: func(parent shared.Record) []shared.Record {
					c := parent.(*Customer)
					items := make([]shared.Record, len(c.Addresses))
					for i, a := range c.Addresses {
						items[i] = a
					}
					return items
				},
				SetParent: func(child shared.Record, parentCode string) {
					child.(*Address).CustomerCode = parentCode
				},
				Attach: func(parent shared.Record, children []shared.Record) {
					c := parent.(*Customer)
					c.Addresses = make([]*Address, len(children))
					for i, ch := range children {
						c.Addresses[i] = ch.(*Address)
					}
				},
				Assign: func(dst, src shared.Record) {
					d, s := dst.(*Address), src.(*Address)
					d.Line1 = s.Line1
					d.City = s.City
					d.PostalCode = s.PostalCode
					d.Country = s.Country
					d.IsDefault = s.IsDefault
				},
			},
		},
	}
}

// AddressDescriptor returns the persistence metadata for Address
func AddressDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:     "Address",
		Table:      "customer_addresses",
		PrimaryKey: "code",
		Columns: []string{
			"code", "company_code", "customer_code", "line1", "city",
			"postal_code", "country", "is_default",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
	}
}
