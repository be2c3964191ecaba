package engine

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
	"github.com/storefront/backend/internal/engine/scope"
)

// resolveDerived writes the requested derived values onto each projected
// row. Resolution is per row by design: a secondary scoped query against
// the referenced entity's engine, one-to-one taking the single match and
// sums aggregating the numeric value column across all matches.
func (s *Service[T]) resolveDerived(ctx context.Context, tx *gorm.DB, rows []shared.FieldMap, requested []schema.DerivedField) error {
	oneToOne := make(map[string]bool, len(s.desc.OneToOne))
	for _, f := range s.desc.OneToOne {
		oneToOne[f.Field] = true
	}

	for _, f := range requested {
		eng, err := s.deps.Hub.engine(f.Entity)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if oneToOne[f.Field] {
				err = s.resolveOneToOne(ctx, tx, eng, f, row)
			} else {
				err = s.resolveSum(ctx, tx, eng, f, row)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveOneToOne looks up the single referenced value for a row. No
// match leaves the field absent rather than erroring.
func (s *Service[T]) resolveOneToOne(ctx context.Context, tx *gorm.DB, eng facade, f schema.DerivedField, row shared.FieldMap) error {
	matches, err := s.lookupDerived(ctx, tx, eng, f, row)
	if err != nil {
		return err
	}
	if len(matches) > 0 && matches[0].Has(f.ValueColumn) {
		row[f.Field] = matches[0][f.ValueColumn]
	}
	return nil
}

// resolveSum aggregates the referenced value column across all matches.
// Non-numeric or missing values contribute zero; the sum never fails on a
// bad value.
func (s *Service[T]) resolveSum(ctx context.Context, tx *gorm.DB, eng facade, f schema.DerivedField, row shared.FieldMap) error {
	matches, err := s.lookupDerived(ctx, tx, eng, f, row)
	if err != nil {
		return err
	}
	total := decimal.Zero
	for _, m := range matches {
		total = total.Add(m.Decimal(f.ValueColumn))
	}
	row[f.Field] = total
	return nil
}

// lookupDerived runs the secondary query behind a derived field: the
// referenced entity filtered to rows whose reference column equals the
// row's origin value, scoped to the row's tenant.
func (s *Service[T]) lookupDerived(ctx context.Context, tx *gorm.DB, eng facade, f schema.DerivedField, row shared.FieldMap) ([]shared.FieldMap, error) {
	if !row.Has(f.OriginColumn) {
		return nil, nil
	}
	origin := row[f.OriginColumn]

	conds := []shared.SearchCondition{
		shared.NewCondition(f.ReferenceColumn, shared.OpEqualExact, origin),
		scope.NotDeleted(),
	}
	if !eng.descriptor().TenantAgnostic {
		conds = append(conds, shared.NewCondition("company_code", shared.OpEqualExact, row.String("company_code")))
	}
	return eng.searchMapsTx(ctx, tx, conds, []string{f.ValueColumn})
}
