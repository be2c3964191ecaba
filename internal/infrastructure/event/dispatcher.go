package event

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler consumes a committed outbox entry. Returning an error leaves
// the entry unprocessed for the next poll.
type Handler func(ctx context.Context, entry OutboxEntry) error

// Dispatcher polls the outbox and delivers unprocessed entries to a
// handler. Delivery is at-least-once: an entry is only marked processed
// after the handler returns nil.
type Dispatcher struct {
	db       *gorm.DB
	handler  Handler
	interval time.Duration
	batch    int
	log      *zap.Logger
}

// NewDispatcher creates a dispatcher polling at the given interval
func NewDispatcher(db *gorm.DB, handler Handler, interval time.Duration, log *zap.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Dispatcher{
		db:       db,
		handler:  handler,
		interval: interval,
		batch:    100,
		log:      log,
	}
}

// Run polls until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Poll(ctx); err != nil {
				d.log.Warn("outbox poll failed", zap.Error(err))
			}
		}
	}
}

// Poll delivers one batch of unprocessed entries
func (d *Dispatcher) Poll(ctx context.Context) error {
	var entries []OutboxEntry
	if err := d.db.WithContext(ctx).
		Where("processed = ?", false).
		Order("occurred_at ASC").
		Limit(d.batch).
		Find(&entries).Error; err != nil {
		return err
	}

	for _, entry := range entries {
		if err := d.handler(ctx, entry); err != nil {
			d.log.Warn("event handler failed",
				zap.String("event_type", entry.EventType),
				zap.String("entity_code", entry.EntityCode),
				zap.Error(err))
			continue
		}
		if err := d.db.WithContext(ctx).
			Model(&OutboxEntry{}).
			Where("id = ?", entry.ID).
			Update("processed", true).Error; err != nil {
			return err
		}
	}
	return nil
}
