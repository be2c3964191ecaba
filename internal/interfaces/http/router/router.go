// Package router assembles the gin engine: middleware chain plus one
// route group per entity.
package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/partner"
	"github.com/storefront/backend/internal/domain/trade"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// Options carries the collaborators the router wires together
type Options struct {
	Engines    *application.Engines
	Database   *persistence.Database
	JWTService *auth.JWTService
	Logger     *zap.Logger
	CORS       middleware.CORSConfig
}

// New builds the HTTP router
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(logger.Recovery(opts.Logger))
	r.Use(middleware.CORS(opts.CORS))

	system := handler.NewSystemHandler(opts.Database)
	r.GET("/health", system.Health)
	r.GET("/ready", system.Ready)

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(middleware.DefaultAuthConfig(opts.JWTService)))

	e := opts.Engines
	handler.NewEntityHandler(e.Companies, func() *partner.Company { return &partner.Company{} }, "").
		Register(api.Group("/companies"))
	handler.NewEntityHandler(e.Customers, func() *partner.Customer { return &partner.Customer{} }, "customer").
		Register(api.Group("/customers"))
	handler.NewEntityHandler(e.Categories, func() *catalog.Category { return &catalog.Category{} }, "").
		Register(api.Group("/categories"))
	handler.NewEntityHandler(e.Products, func() *catalog.Product { return &catalog.Product{} }, "product").
		Register(api.Group("/products"))
	handler.NewEntityHandler(e.Reviews, func() *catalog.Review { return &catalog.Review{} }, "").
		Register(api.Group("/reviews"))
	handler.NewEntityHandler(e.Orders, func() *trade.Order { return &trade.Order{} }, "order").
		Register(api.Group("/orders"))

	return r
}
