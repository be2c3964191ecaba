package engine

import (
	"context"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// insertChildrenTx persists the child collections of a freshly inserted
// parent. Children inherit the parent's tenant and audit stamp; keys are
// minted for non-identity children arriving without one.
func (s *Service[T]) insertChildrenTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error {
	base := rec.Base()
	for _, c := range s.desc.Children {
		childEng, err := s.deps.Hub.engine(c.Entity)
		if err != nil {
			return err
		}
		for _, child := range c.Items(rec) {
			s.prepareChild(c, child, base)
			if err := childEng.insertRowTx(ctx, tx, child, stamp); err != nil {
				return err
			}
		}
	}
	return nil
}

// syncChildrenTx reconciles the incoming child collections of an updated
// parent against the persisted ones. One-to-many collections are diffed
// by key; many-to-many collections are replaced outright.
func (s *Service[T]) syncChildrenTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error {
	for _, c := range s.desc.Children {
		childEng, err := s.deps.Hub.engine(c.Entity)
		if err != nil {
			return err
		}
		if c.ManyToMany {
			err = s.replaceChildrenTx(ctx, tx, childEng, c, rec, stamp)
		} else {
			err = s.diffChildrenTx(ctx, tx, childEng, c, rec, stamp)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// replaceChildrenTx soft-deletes the whole existing many-to-many set and
// re-inserts the incoming one with the combine key set to the parent.
func (s *Service[T]) replaceChildrenTx(ctx context.Context, tx *gorm.DB, childEng facade, c schema.ChildCollection, rec shared.Record, stamp auditStamp) error {
	base := rec.Base()

	existing, err := childEng.loadRowsTx(ctx, tx, s.childConditions(c, base))
	if err != nil {
		return err
	}
	for _, old := range existing {
		if err := childEng.softDeleteRowTx(ctx, tx, old, stamp); err != nil {
			return err
		}
	}

	for _, child := range c.Items(rec) {
		// Link rows are always re-minted; a stale incoming key would
		// collide with its own soft-deleted predecessor.
		child.Base().Code = ""
		s.prepareChild(c, child, base)
		if err := childEng.insertRowTx(ctx, tx, child, stamp); err != nil {
			return err
		}
	}
	return nil
}

// diffChildrenTx reconciles a one-to-many collection: existing rows whose
// key is absent from the incoming set are soft-deleted, keyless incoming
// rows are inserted, and key matches are copied field-by-field onto the
// persisted row so its audit history survives.
func (s *Service[T]) diffChildrenTx(ctx context.Context, tx *gorm.DB, childEng facade, c schema.ChildCollection, rec shared.Record, stamp auditStamp) error {
	base := rec.Base()

	existing, err := childEng.loadRowsTx(ctx, tx, s.childConditions(c, base))
	if err != nil {
		return err
	}
	existingByCode := make(map[string]shared.Record, len(existing))
	for _, e := range existing {
		existingByCode[e.Base().Code] = e
	}

	incoming := c.Items(rec)
	incomingCodes := make(map[string]bool, len(incoming))

	for _, child := range incoming {
		code := child.Base().Code
		if code == "" {
			s.prepareChild(c, child, base)
			if err := childEng.insertRowTx(ctx, tx, child, stamp); err != nil {
				return err
			}
			continue
		}
		incomingCodes[code] = true

		persisted, matched := existingByCode[code]
		if !matched {
			// Caller-supplied key with no persisted counterpart: treat as
			// a fresh insert preserving the key.
			s.prepareChild(c, child, base)
			if err := childEng.insertRowTx(ctx, tx, child, stamp); err != nil {
				return err
			}
			continue
		}

		c.Assign(persisted, child)
		stampModified(persisted.Base(), persisted.Base(), stamp)
		if err := childEng.updateRowTx(ctx, tx, persisted); err != nil {
			return err
		}
	}

	for code, old := range existingByCode {
		if incomingCodes[code] {
			continue
		}
		if err := childEng.softDeleteRowTx(ctx, tx, old, stamp); err != nil {
			return err
		}
	}
	return nil
}

// prepareChild stamps tenancy and parentage onto a child row before it is
// written: the parent's company, the parent code in the foreign or
// combine key, and a minted key for non-identity children without one.
func (s *Service[T]) prepareChild(c schema.ChildCollection, child shared.Record, parent *shared.EntityBase) {
	cb := child.Base()
	cb.CompanyCode = parent.CompanyCode
	c.SetParent(child, parent.Code)
	if !c.IdentityKey && cb.Code == "" {
		cb.Code = s.adapter.NewCode()
	}
}
