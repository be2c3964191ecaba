// Package partner holds the tenant tree and customer entities.
package partner

import (
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// Company is a node in the tenant tree. Every other entity belongs to
// exactly one company; visibility levels walk this tree.
type Company struct {
	shared.EntityBase
	Name       string `gorm:"size:200;not null" json:"name"`
	ParentCode string `gorm:"size:64;index" json:"parent_code"`
	// IsStation marks leaf companies that receive distributed items
	// directly instead of through their subtree
	IsStation bool `json:"is_station"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// CompanyDescriptor returns the persistence metadata for Company.
// Companies are tenant-agnostic: the tree itself is shared.
func CompanyDescriptor() schema.Descriptor {
	return schema.Descriptor{
		Entity:         "Company",
		Table:          "companies",
		PrimaryKey:     "code",
		TenantAgnostic: true,
		Columns: []string{
			"code", "company_code", "name", "parent_code", "is_station",
			"created_by", "created_date", "modified_by", "modified_date",
			"modification_state", "scope", "scope_type",
		},
		DefaultSort: shared.SortBy("name"),
		Unique: []schema.UniqueField{
			{
				Field:  "Name",
				Column: "name",
				Value:  func(rec shared.Record) any { return rec.(*Company).Name },
			},
		},
	}
}
