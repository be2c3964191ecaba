package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/engine/scope"
)

// GormMappingStore implements scope.MappingStore. The mapping table name
// and columns come from the registered distribution config, so one store
// serves every multi-mode table.
type GormMappingStore struct {
	db *gorm.DB
}

// NewGormMappingStore creates a new GormMappingStore
func NewGormMappingStore(db *gorm.DB) *GormMappingStore {
	return &GormMappingStore{db: db}
}

// ItemCodes returns the distinct item codes granted to any of the given
// companies. Soft-deleted mapping rows are excluded.
func (r *GormMappingStore) ItemCodes(ctx context.Context, cfg scope.DistributionConfig, companyCodes []string) ([]string, error) {
	if len(companyCodes) == 0 {
		return nil, nil
	}

	var codes []string
	if err := r.db.WithContext(ctx).
		Table(cfg.MappingTable).
		Distinct(cfg.ItemColumn).
		Where(cfg.CompanyColumn+" IN ?", companyCodes).
		Where("modification_state <> ?", "Deleted").
		Pluck(cfg.ItemColumn, &codes).Error; err != nil {
		return nil, fmt.Errorf("failed to load mappings from %s: %w", cfg.MappingTable, err)
	}
	return codes, nil
}

// Ensure GormMappingStore implements scope.MappingStore
var _ scope.MappingStore = (*GormMappingStore)(nil)
