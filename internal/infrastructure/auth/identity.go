package auth

import (
	"context"

	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// ContextIdentity resolves the acting user from the request context,
// where the auth middleware stores it after validating the bearer token.
type ContextIdentity struct {
	// Fallback names the actor for calls outside an authenticated
	// request, such as migrations and background jobs.
	Fallback string
}

// Actor returns the authenticated username, or the fallback when the
// context carries none
func (p ContextIdentity) Actor(ctx context.Context) string {
	if actor := logger.GetActor(ctx); actor != "" {
		return actor
	}
	if p.Fallback != "" {
		return p.Fallback
	}
	return "system"
}

// Ensure ContextIdentity implements engine.Identity
var _ engine.Identity = ContextIdentity{}
