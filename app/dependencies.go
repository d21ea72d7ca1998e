package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/order-protection/config"
	"github.com/upb/order-protection/middleware"
	"github.com/upb/order-protection/repositories"
	"github.com/upb/order-protection/repositories/postgres"
	"github.com/upb/order-protection/services/audit"
	"github.com/upb/order-protection/services/protection"
	"github.com/upb/order-protection/services/providers"
	"github.com/upb/order-protection/services/providers/shopify"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for pending events to be written
const auditStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when DATABASE_URL is not set
	Logger *zap.Logger

	// Repositories
	Events repositories.ProtectionEventRepository

	// Storefront
	Platforms *providers.Registry
	Platform  *providers.Platform

	// Services
	Audit      *audit.AuditService // nil when auditing is disabled
	Protection *protection.Service

	// Auth
	AuthMiddleware *middleware.AuthMiddleware // nil when auth is disabled
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storefront: %w", err)
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initAudit(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initServices()
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("platform", deps.Platform.Name),
		zap.Bool("audit", deps.Audit != nil),
		zap.Bool("auth", deps.AuthMiddleware != nil))
	return deps, nil
}

// initProviders registers the known storefront platforms and builds the configured one
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()
	if err := registry.RegisterBuilder(shopify.PlatformName, shopify.NewBuilder()); err != nil {
		return err
	}
	d.Platforms = registry

	platform, err := registry.Build(cfg.Storefront.Platform, ProviderConfig(cfg.Storefront), d.Logger)
	if err != nil {
		return err
	}
	d.Platform = platform

	d.Logger.Info("storefront platform initialized",
		zap.String("platform", platform.Name),
		zap.String("base_url", cfg.Storefront.BaseURL),
		zap.String("protection_product", platform.Products.ProtectionProduct().Resolved()))
	return nil
}

// ProviderConfig maps storefront settings onto the provider configuration
func ProviderConfig(sf config.StorefrontConfig) providers.ProviderConfig {
	pc := providers.DefaultProviderConfig()
	pc.BaseURL = sf.BaseURL
	if sf.Timeout > 0 {
		pc.Timeout = sf.Timeout
	}
	if sf.ProviderTag != "" {
		pc.ProviderTag = sf.ProviderTag
	}
	pc.Protection = providers.ProtectionProduct{
		ID:     sf.ProtectionID,
		Handle: sf.ProtectionHandle,
	}
	return pc
}

// initDatabase opens the event store when DATABASE_URL is set
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Warn("DATABASE_URL not set, protection events will not be persisted")
		return nil
	}

	db, err := postgres.NewDB(ctx, *cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if cfg.Database.Migrate {
		if err := postgres.Migrate(*cfg.Database, d.Logger); err != nil {
			_ = db.Close()
			return err
		}
	}

	d.DB = db
	d.Events = postgres.NewProtectionEventRepository(db, d.Logger)
	return nil
}

// initAudit starts the async event writer on top of the repository
func (d *Dependencies) initAudit(cfg *config.Config) error {
	if d.Events == nil {
		return nil
	}

	service := audit.NewAuditService(d.Events, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := service.Start(); err != nil {
		return err
	}
	d.Audit = service
	return nil
}

func (d *Dependencies) initServices() {
	var recorder audit.Recorder = audit.NopRecorder{}
	if d.Audit != nil {
		recorder = d.Audit
	}
	d.Protection = protection.NewService(d.Platform, recorder, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if !cfg.Auth.Enabled {
		d.Logger.Warn("auth disabled, protection API is open")
		return
	}
	validator := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer token auth enabled", zap.String("issuer", cfg.Auth.Issuer))
}

// Close gracefully shuts down all dependencies. It is safe to call more than once.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain the audit buffer before the pool goes away
	if d.Audit != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.Audit.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.Audit = nil
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.DB = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return errors.Join(errs...)
}
