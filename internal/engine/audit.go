package engine

import (
	"context"
	"time"

	"github.com/storefront/backend/internal/domain/shared"
)

// Identity supplies the current actor name for audit stamping. The engine
// treats the value as an opaque string.
type Identity interface {
	Actor(ctx context.Context) string
}

// StaticIdentity is an Identity returning a fixed actor name, used by
// system jobs and tests.
type StaticIdentity string

// Actor returns the fixed actor name
func (s StaticIdentity) Actor(context.Context) string { return string(s) }

// auditStamp is the actor/timestamp pair applied to a write. Child
// mutations reuse the parent's stamp so a whole write shares one actor
// and one instant.
type auditStamp struct {
	actor string
	at    time.Time
}

func newStamp(actor string) auditStamp {
	return auditStamp{actor: actor, at: time.Now().UTC()}
}

// stampCreated sets the creation audit fields on a fresh row. The scope
// columns mirror the tenancy the row is written under; company_code must
// already carry the caller's tenant.
func stampCreated(base *shared.EntityBase, stamp auditStamp) {
	base.CreatedBy = stamp.actor
	base.CreatedDate = stamp.at
	base.ModifiedBy = stamp.actor
	base.ModifiedDate = stamp.at
	base.ModificationState = shared.StateAdded
	base.Scope = base.CompanyCode
	if base.CompanyCode == "" {
		base.ScopeType = shared.ScopeTypeGlobal
	} else {
		base.ScopeType = shared.ScopeTypeCompany
	}
}

// stampModified sets the modification audit fields, carrying the creation
// and scope fields over from the persisted row.
func stampModified(base *shared.EntityBase, existing *shared.EntityBase, stamp auditStamp) {
	base.CreatedBy = existing.CreatedBy
	base.CreatedDate = existing.CreatedDate
	base.ModifiedBy = stamp.actor
	base.ModifiedDate = stamp.at
	base.ModificationState = shared.StateUpdated
	base.Scope = existing.Scope
	base.ScopeType = existing.ScopeType
}

// stampDeleted flips the row to the soft-deleted state
func stampDeleted(base *shared.EntityBase, stamp auditStamp) {
	base.ModifiedBy = stamp.actor
	base.ModifiedDate = stamp.at
	base.ModificationState = shared.StateDeleted
}
