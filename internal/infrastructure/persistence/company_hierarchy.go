package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/engine/scope"
)

// GormCompanyHierarchy implements scope.CompanyHierarchy against the
// companies table. It reads only codes and tree columns so it does not
// depend on the partner entity.
type GormCompanyHierarchy struct {
	db *gorm.DB
}

// NewGormCompanyHierarchy creates a new GormCompanyHierarchy
func NewGormCompanyHierarchy(db *gorm.DB) *GormCompanyHierarchy {
	return &GormCompanyHierarchy{db: db}
}

// Children returns the direct child company codes of code
func (r *GormCompanyHierarchy) Children(ctx context.Context, code string) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Table("companies").
		Where("parent_code = ? AND modification_state <> ?", code, "Deleted").
		Pluck("code", &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to load children of company %s: %w", code, err)
	}
	return codes, nil
}

// Ancestors returns the parent chain of code, nearest first. A broken
// chain (missing parent row) terminates the walk instead of failing,
// and a cycle in parent_code stops at the first repeated code.
func (r *GormCompanyHierarchy) Ancestors(ctx context.Context, code string) ([]string, error) {
	var ancestors []string
	seen := map[string]bool{code: true}

	current := code
	for {
		var parent string
		err := r.db.WithContext(ctx).
			Table("companies").
			Where("code = ?", current).
			Pluck("parent_code", &parent).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, fmt.Errorf("failed to load parent of company %s: %w", current, err)
		}
		if parent == "" || seen[parent] {
			break
		}
		ancestors = append(ancestors, parent)
		seen[parent] = true
		current = parent
	}
	return ancestors, nil
}

// IsStation reports whether code is a mapped leaf company that receives
// distributed items directly
func (r *GormCompanyHierarchy) IsStation(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Table("companies").
		Where("code = ? AND is_station = ?", code, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check station flag of company %s: %w", code, err)
	}
	return count > 0, nil
}

// Ensure GormCompanyHierarchy implements scope.CompanyHierarchy
var _ scope.CompanyHierarchy = (*GormCompanyHierarchy)(nil)
