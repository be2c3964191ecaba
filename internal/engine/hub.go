package engine

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine/schema"
)

// EventSink is the event publisher collaborator. It is called once per
// *WithEvent write, inside the same transaction; its failure aborts the
// transaction.
type EventSink interface {
	Record(ctx context.Context, tx *gorm.DB, event shared.DomainEvent) error
}

// facade is the untyped surface each typed service exposes to its
// siblings. Child-collection synchronization and derived-field resolution
// cross entity types through it.
type facade interface {
	descriptor() *schema.Descriptor
	// searchMapsTx runs a projected query on the current transaction,
	// already filtered by the caller's conditions (no scope is added)
	searchMapsTx(ctx context.Context, tx *gorm.DB, conds []shared.SearchCondition, fields []string) ([]shared.FieldMap, error)
	// loadRowsTx loads typed rows as Records on the current transaction
	loadRowsTx(ctx context.Context, tx *gorm.DB, conds []shared.SearchCondition) ([]shared.Record, error)
	// insertRowTx persists a fresh row, recursing into its own children
	insertRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error
	// updateRowTx persists a full-row update without re-stamping
	updateRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record) error
	// softDeleteRowTx marks a row deleted and cascades per its descriptor
	softDeleteRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error
	// removeRowTx physically deletes a row and cascades per its descriptor
	removeRowTx(ctx context.Context, tx *gorm.DB, rec shared.Record, stamp auditStamp) error
}

// Hub resolves entity names to their engine instances. Services register
// themselves on construction; lookups happen when child synchronization or
// derived-field resolution crosses to a referenced entity.
type Hub struct {
	mu      sync.RWMutex
	engines map[string]facade
}

// NewHub creates an empty engine hub
func NewHub() *Hub {
	return &Hub{engines: make(map[string]facade)}
}

func (h *Hub) register(entity string, e facade) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.engines[entity]; exists {
		return shared.NewConfiguration(fmt.Sprintf("engine for entity %q is already registered", entity))
	}
	h.engines[entity] = e
	return nil
}

func (h *Hub) engine(entity string) (facade, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.engines[entity]
	if !ok {
		return nil, shared.NewConfiguration(fmt.Sprintf("no engine registered for entity %q", entity))
	}
	return e, nil
}
