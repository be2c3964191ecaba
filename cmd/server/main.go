package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application"
	"github.com/storefront/backend/internal/engine"
	"github.com/storefront/backend/internal/engine/scope"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	log, err := logger.NewFromConfig(cfg.Log, cfg.App.Env)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("driver", cfg.Database.Driver))

	gormLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	dialect, err := persistence.DialectFor(cfg.Database.Driver)
	if err != nil {
		log.Fatal("Unsupported database driver", zap.Error(err))
	}

	resolver := scope.NewResolver(
		persistence.NewGormCompanyHierarchy(db.DB),
		persistence.NewGormMappingStore(db.DB),
	)

	engines, err := application.NewEngines(engine.Deps{
		DB:       db.DB,
		Dialect:  dialect,
		Scope:    resolver,
		Identity: &auth.ContextIdentity{},
		Events:   event.NewOutboxSink(),
		Logger:   log,
	})
	if err != nil {
		log.Fatal("Failed to build engines", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)

	dispatcher := event.NewDispatcher(db.DB, logEventHandler(log), 5*time.Second, log)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Run(dispatchCtx)

	r := router.New(router.Options{
		Engines:    engines,
		Database:   db,
		JWTService: jwtService,
		Logger:     log,
		CORS:       middleware.DefaultCORSConfig(),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopDispatch()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// logEventHandler drains the outbox into the application log. Real
// deployments swap this for a broker publisher.
func logEventHandler(log *zap.Logger) event.Handler {
	return func(_ context.Context, entry event.OutboxEntry) error {
		log.Info("Event dispatched",
			zap.String("event", entry.EventType),
			zap.String("entity", entry.EntityName),
			zap.String("entity_code", entry.EntityCode),
			zap.String("tenant", entry.CompanyCode))
		return nil
	}
}
