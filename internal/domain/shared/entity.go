package shared

import "time"

// ModificationState marks the persistence lifecycle of a row.
// Soft-deleted rows keep their data but become invisible to all reads.
type ModificationState string

const (
	// StateAdded marks a freshly inserted row
	StateAdded ModificationState = "Added"
	// StateUpdated marks a row that has been modified after insert
	StateUpdated ModificationState = "Updated"
	// StateDeleted marks a soft-deleted row
	StateDeleted ModificationState = "Deleted"
)

// ScopeType values stamped onto rows alongside the audit fields
const (
	// ScopeTypeCompany marks a row written under a company tenant
	ScopeTypeCompany = "Company"
	// ScopeTypeGlobal marks a row of a tenant-agnostic entity
	ScopeTypeGlobal = "Global"
)

// EntityBase provides the identity, tenancy and audit columns shared by
// every persisted entity. The audit fields are set exclusively by the
// engine's stamper; client-supplied values are overwritten on every
// write path.
type EntityBase struct {
	Code              string            `gorm:"primaryKey;size:64" json:"code"`
	CompanyCode       string            `gorm:"size:64;index" json:"company_code"`
	CreatedBy         string            `gorm:"size:128" json:"created_by"`
	CreatedDate       time.Time         `json:"created_date"`
	ModifiedBy        string            `gorm:"size:128" json:"modified_by"`
	ModifiedDate      time.Time         `json:"modified_date"`
	ModificationState ModificationState `gorm:"size:16;index" json:"modification_state"`
	Scope             string            `gorm:"size:64" json:"scope"`
	ScopeType         string            `gorm:"size:32" json:"scope_type"`
}

// Base returns the embedded entity base, giving the engine uniform access
// to identity and audit fields on any registered type.
func (e *EntityBase) Base() *EntityBase {
	return e
}

// IsDeleted reports whether the row is soft-deleted
func (e *EntityBase) IsDeleted() bool {
	return e.ModificationState == StateDeleted
}

// Record is the contract every engine-managed entity satisfies by
// embedding EntityBase.
type Record interface {
	Base() *EntityBase
}

// Validatable is an optional capability an entity type may implement.
// A delete target returning any failures aborts the delete with the
// concatenated messages.
type Validatable interface {
	ValidationFailures() []string
}
