// Package event persists domain events through a transactional outbox.
// Events are written in the same transaction as the entity change and
// handed to subscribers by a polling dispatcher, so an event exists if
// and only if its write committed.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/engine"
)

// OutboxEntry is the stored form of a domain event
type OutboxEntry struct {
	ID          string    `gorm:"primaryKey;column:id"`
	EventType   string    `gorm:"column:event_type"`
	EntityName  string    `gorm:"column:entity_name"`
	EntityCode  string    `gorm:"column:entity_code"`
	CompanyCode string    `gorm:"column:company_code"`
	Actor       string    `gorm:"column:actor"`
	Payload     string    `gorm:"column:payload"`
	Processed   bool      `gorm:"column:processed"`
	OccurredAt  time.Time `gorm:"column:occurred_at"`
}

// TableName returns the outbox table name
func (OutboxEntry) TableName() string {
	return "event_outbox"
}

// OutboxSink implements engine.EventSink by appending entries to the
// outbox table within the caller's transaction.
type OutboxSink struct{}

// NewOutboxSink creates a new OutboxSink
func NewOutboxSink() *OutboxSink {
	return &OutboxSink{}
}

// Record appends the event to the outbox inside tx
func (s *OutboxSink) Record(ctx context.Context, tx *gorm.DB, ev shared.DomainEvent) error {
	entry := &OutboxEntry{
		ID:          uuid.New().String(),
		EventType:   ev.EventType,
		EntityName:  ev.EntityName,
		EntityCode:  ev.EntityCode,
		CompanyCode: ev.CompanyCode,
		Actor:       ev.Actor,
		Payload:     ev.Payload,
		Processed:   false,
		OccurredAt:  ev.OccurredAt,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record %s event for %s/%s: %w",
			ev.EventType, ev.EntityName, ev.EntityCode, err)
	}
	return nil
}

// Ensure OutboxSink implements engine.EventSink
var _ engine.EventSink = (*OutboxSink)(nil)
