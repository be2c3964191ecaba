package engine

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
)

// Adapter executes compiled queries against the underlying store and
// materializes rows into loosely-typed results. Typed materialization
// lives on the services themselves, where the concrete type is known.
type Adapter struct {
	db *gorm.DB
}

// NewAdapter creates an adapter over a GORM connection
func NewAdapter(db *gorm.DB) *Adapter {
	return &Adapter{db: db}
}

// DB returns the underlying connection
func (a *Adapter) DB() *gorm.DB {
	return a.db
}

// FieldMaps runs a compiled query and returns each row as a FieldMap
func (a *Adapter) FieldMaps(ctx context.Context, tx *gorm.DB, sql string, args []any) ([]shared.FieldMap, error) {
	var rows []map[string]any
	if err := tx.WithContext(ctx).Raw(sql, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]shared.FieldMap, len(rows))
	for i, row := range rows {
		result[i] = shared.FieldMap(row)
	}
	return result, nil
}

// Count runs a compiled count query
func (a *Adapter) Count(ctx context.Context, tx *gorm.DB, sql string, args []any) (int64, error) {
	var count int64
	if err := tx.WithContext(ctx).Raw(sql, args...).Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// NewCode mints a surrogate key for records and child rows whose key is
// not database-generated.
func (a *Adapter) NewCode() string {
	return uuid.New().String()
}

// scanTyped materializes a compiled query into typed records. Columns the
// target type does not carry (such as the paging total) are ignored.
func scanTyped[T any](ctx context.Context, tx *gorm.DB, sql string, args []any) ([]T, error) {
	var items []T
	if err := tx.WithContext(ctx).Raw(sql, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
