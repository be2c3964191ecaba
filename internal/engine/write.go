package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
)

// Insert persists a fresh record and its child collections. A missing
// code is engine-assigned; an explicit code is checked for duplicates
// before any write.
func (s *Service[T]) Insert(ctx context.Context, tenant string, rec T) error {
	return s.insertOp(ctx, tenant, rec, "", "")
}

// InsertWithEvent is Insert plus a domain-event row recorded in the same
// transaction.
func (s *Service[T]) InsertWithEvent(ctx context.Context, tenant string, rec T, eventType, payload string) error {
	return s.insertOp(ctx, tenant, rec, eventType, payload)
}

func (s *Service[T]) insertOp(ctx context.Context, tenant string, rec T, eventType, payload string) error {
	stamp := newStamp(s.deps.Identity.Actor(ctx))
	base := rec.Base()
	// The caller's tenant wins over whatever the record carries; a
	// client-supplied company_code must not place rows in another tenant.
	if !s.desc.TenantAgnostic {
		base.CompanyCode = tenant
	}
	explicitKey := base.Code != ""
	if !explicitKey {
		base.Code = s.adapter.NewCode()
	}

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		if explicitKey && s.desc.PrimaryKey != "" {
			taken, err := s.primaryKeyTaken(ctx, tx, base)
			if err != nil {
				return err
			}
			if taken {
				return shared.NewConflict(fmt.Sprintf("%s with code %q already exists", s.desc.Entity, base.Code))
			}
		}
		if err := s.insertRowTx(ctx, tx, rec, stamp); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, base, stamp, eventType, payload)
	})
	if err != nil {
		return err
	}

	s.log.Debug("record inserted",
		zap.String("code", base.Code),
		zap.String("company", base.CompanyCode),
	)
	return nil
}

// Update re-validates changed unique values, re-stamps the modification
// audit and synchronizes child collections. A missing or soft-deleted
// target is a NotFound error.
func (s *Service[T]) Update(ctx context.Context, tenant string, rec T) error {
	return s.updateOp(ctx, tenant, rec, "", "")
}

// UpdateWithEvent is Update plus a domain-event row recorded in the same
// transaction.
func (s *Service[T]) UpdateWithEvent(ctx context.Context, tenant string, rec T, eventType, payload string) error {
	return s.updateOp(ctx, tenant, rec, eventType, payload)
}

func (s *Service[T]) updateOp(ctx context.Context, tenant string, rec T, eventType, payload string) error {
	base := rec.Base()
	if base.Code == "" {
		return shared.NewDomainError(shared.KindInvalidInput, "update requires a code")
	}
	// As on insert, the caller's tenant overrides the record's own
	// company_code, and the target row is fetched under that tenant.
	if !s.desc.TenantAgnostic {
		base.CompanyCode = tenant
	}
	stamp := newStamp(s.deps.Identity.Actor(ctx))

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.fetchForWrite(ctx, tx, tenant, base.Code)
		if err != nil {
			return err
		}
		if err := s.checkUnique(ctx, tx, rec, existing); err != nil {
			return err
		}
		stampModified(base, existing.Base(), stamp)
		if err := s.updateRowTx(ctx, tx, rec); err != nil {
			return err
		}
		if err := s.syncChildrenTx(ctx, tx, rec, stamp); err != nil {
			return err
		}
		return s.recordEvent(ctx, tx, base, stamp, eventType, payload)
	})
	if err != nil {
		return err
	}

	s.log.Debug("record updated",
		zap.String("code", base.Code),
		zap.String("company", base.CompanyCode),
	)
	return nil
}

// Delete soft-deletes a record: its modification state flips to Deleted
// and cascade-flagged child collections are marked with it. The row stays
// in storage but becomes invisible to all reads.
func (s *Service[T]) Delete(ctx context.Context, tenant, code string) error {
	return s.deleteOp(ctx, tenant, code, false)
}

// Remove physically deletes a record, cascading the same way Delete does
func (s *Service[T]) Remove(ctx context.Context, tenant, code string) error {
	return s.deleteOp(ctx, tenant, code, true)
}

func (s *Service[T]) deleteOp(ctx context.Context, tenant, code string, hard bool) error {
	stamp := newStamp(s.deps.Identity.Actor(ctx))

	err := s.transaction(ctx, func(tx *gorm.DB) error {
		existing, err := s.fetchForWrite(ctx, tx, tenant, code)
		if err != nil {
			return err
		}
		if v, ok := any(existing).(shared.Validatable); ok {
			if failures := v.ValidationFailures(); len(failures) > 0 {
				return shared.NewValidationFailed(strings.Join(failures, "; "))
			}
		}
		if hard {
			return s.removeRowTx(ctx, tx, existing, stamp)
		}
		return s.softDeleteRowTx(ctx, tx, existing, stamp)
	})
	if err != nil {
		return err
	}

	s.log.Debug("record deleted",
		zap.String("code", code),
		zap.Bool("hard", hard),
	)
	return nil
}

// fetchForWrite loads the live row a write targets, scoped to its tenant.
// Absence is a NotFound error, never a silent no-op.
func (s *Service[T]) fetchForWrite(ctx context.Context, tx *gorm.DB, tenant, code string) (T, error) {
	rec := s.newRecord()
	q := tx.WithContext(ctx).Table(s.desc.Table).
		Where(s.primaryKey()+" = ?", code).
		Where("modification_state <> ?", shared.StateDeleted)
	if !s.desc.TenantAgnostic {
		q = q.Where("company_code = ?", tenant)
	}
	if err := q.First(rec).Error; err != nil {
		var zero T
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, shared.NewNotFound(s.desc.Entity + " not found")
		}
		return zero, err
	}
	return rec, nil
}

// primaryKeyTaken checks an explicit key against every row of the table,
// soft-deleted rows included, since those still occupy the key physically.
func (s *Service[T]) primaryKeyTaken(ctx context.Context, tx *gorm.DB, base *shared.EntityBase) (bool, error) {
	q := tx.WithContext(ctx).Table(s.desc.Table).Where(s.desc.PrimaryKey+" = ?", base.Code)
	if !s.desc.TenantAgnostic {
		q = q.Where("company_code = ?", base.CompanyCode)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// checkUnique validates the descriptor's unique fields. With an existing
// row given (update path) only fields whose value actually changed are
// re-validated, and the row itself is excluded from the duplicate scan.
func (s *Service[T]) checkUnique(ctx context.Context, tx *gorm.DB, rec shared.Record, existing shared.Record) error {
	base := rec.Base()
	for _, u := range s.desc.Unique {
		value := u.Value(rec)
		if existing != nil && !valuesDiffer(value, u.Value(existing)) {
			continue
		}

		q := tx.WithContext(ctx).Table(s.desc.Table).
			Where(u.Column+" = ?", value).
			Where("modification_state <> ?", shared.StateDeleted)
		if u.TenantScoped && !s.desc.TenantAgnostic {
			q = q.Where("company_code = ?", base.CompanyCode)
		}
		if existing != nil {
			q = q.Where(s.primaryKey()+" <> ?", base.Code)
		}

		var count int64
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.NewConflict(fmt.Sprintf("%s %q is already in use", u.Field, fmt.Sprintf("%v", value)))
		}
	}
	return nil
}

// valuesDiffer compares two unique-field values structurally
func valuesDiffer(a, b any) bool {
	return !reflect.DeepEqual(a, b)
}

// facade: insertRowTx persists one fresh row and recurses into its child
// collections, all under the caller's transaction and audit stamp. Key
// minting is the caller's concern: roots are minted on insert, children
// by prepareChild when their key is not identity-generated.
func (s *Service[T]) insertRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error {
	base := rec.Base()
	if err := s.checkUnique(ctx, tx, rec, nil); err != nil {
		return err
	}
	stampCreated(base, stamp)

	res := tx.WithContext(ctx).Table(s.desc.Table).Create(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewPersistenceFailure(fmt.Sprintf("insert of %s %q affected no rows", s.desc.Entity, base.Code))
	}
	return s.insertChildrenTx(ctx, tx, rec, stamp)
}

// facade: updateRowTx persists a full-row update. Audit fields must
// already be stamped by the caller.
func (s *Service[T]) updateRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record) error {
	base := rec.Base()
	res := tx.WithContext(ctx).Table(s.desc.Table).
		Where(s.primaryKey()+" = ?", base.Code).
		Save(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewPersistenceFailure(fmt.Sprintf("update of %s %q affected no rows", s.desc.Entity, base.Code))
	}
	return nil
}

// facade: softDeleteRowTx cascades into cascade-flagged children, then
// flips the row's modification state to Deleted.
func (s *Service[T]) softDeleteRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error {
	if err := s.cascadeTx(ctx, tx, rec, stamp, false); err != nil {
		return err
	}

	base := rec.Base()
	stampDeleted(base, stamp)
	res := tx.WithContext(ctx).Table(s.desc.Table).
		Where(s.primaryKey()+" = ?", base.Code).
		Updates(map[string]any{
			"modification_state": base.ModificationState,
			"modified_by":        base.ModifiedBy,
			"modified_date":      base.ModifiedDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewPersistenceFailure(fmt.Sprintf("soft delete of %s %q affected no rows", s.desc.Entity, base.Code))
	}
	return nil
}

// facade: removeRowTx cascades into cascade-flagged children, then
// physically deletes the row.
func (s *Service[T]) removeRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error {
	if err := s.cascadeTx(ctx, tx, rec, stamp, true); err != nil {
		return err
	}

	base := rec.Base()
	res := tx.WithContext(ctx).Table(s.desc.Table).
		Where(s.primaryKey()+" = ?", base.Code).
		Delete(rec)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return shared.NewPersistenceFailure(fmt.Sprintf("removal of %s %q affected no rows", s.desc.Entity, base.Code))
	}
	return nil
}

// cascadeTx propagates a delete into every cascade-flagged child
// collection; children without the flag are untouched.
func (s *Service[T]) cascadeTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp, hard bool) error {
	base := rec.Base()
	for _, c := range s.desc.Children {
		if !c.CascadeDelete {
			continue
		}
		childEng, err := s.deps.Hub.engine(c.Entity)
		if err != nil {
			return err
		}
		children, err := childEng.loadRowsTx(ctx, tx, s.childConditions(c, base))
		if err != nil {
			return err
		}
		for _, child := range children {
			if hard {
				err = childEng.removeRowTx(ctx, tx, child, stamp)
			} else {
				err = childEng.softDeleteRowTx(ctx, tx, child, stamp)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// recordEvent appends a domain-event row inside the write's transaction.
// A failing sink aborts the whole unit of work.
func (s *Service[T]) recordEvent(ctx context.Context, tx *gorm.DB, base *shared.EntityBase, stamp auditStamp, eventType, payload string) error {
	if eventType == "" || s.deps.Events == nil {
		return nil
	}
	return s.deps.Events.Record(ctx, tx, shared.DomainEvent{
		EventType:   eventType,
		EntityName:  s.desc.Entity,
		EntityCode:  base.Code,
		CompanyCode: base.CompanyCode,
		Actor:       stamp.actor,
		Payload:     payload,
		OccurredAt:  stamp.at,
	})
}
