package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
)

// Context keys set by the auth middleware
const (
	ClaimsKey     = "jwt_claims"
	TenantKey     = "tenant_code"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	JWTService *auth.JWTService
	// SkipPaths are exact paths served without authentication
	SkipPaths []string
}

// DefaultAuthConfig returns the default auth middleware configuration
func DefaultAuthConfig(jwtService *auth.JWTService) AuthConfig {
	return AuthConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/ready"},
	}
}

// Auth validates the bearer token and seeds the request context with
// the tenant and actor, which downstream reads use for scoping and
// audit stamping.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		token := strings.TrimPrefix(header, BearerPrefix)

		claims, err := cfg.JWTService.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(TenantKey, claims.TenantCode)

		reqLogger := logger.GetGinLogger(c)
		ctx, reqLogger := logger.WithTenant(c.Request.Context(), reqLogger, claims.TenantCode)
		ctx = logger.WithActor(ctx, claims.Username)
		c.Set("logger", reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Tenant returns the authenticated tenant company code
func Tenant(c *gin.Context) string {
	return c.GetString(TenantKey)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse("UNAUTHORIZED", message))
}
