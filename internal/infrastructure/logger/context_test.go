package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestWithContext(t *testing.T) {
	t.Run("stores and retrieves logger", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)

		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("returns no-op logger when absent", func(t *testing.T) {
		log := FromContext(context.Background())
		assert.NotNil(t, log)
	})
}

func TestWithRequestID(t *testing.T) {
	ctx, enriched := WithRequestID(context.Background(), zap.NewNop(), "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))
}

func TestWithTenant(t *testing.T) {
	ctx, _ := WithTenant(context.Background(), zap.NewNop(), "C1")

	assert.Equal(t, "C1", GetTenant(ctx))
}

func TestWithActor(t *testing.T) {
	ctx := WithActor(context.Background(), "alice")

	assert.Equal(t, "alice", GetActor(ctx))
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenant(ctx))
	assert.Empty(t, GetActor(ctx))
}
