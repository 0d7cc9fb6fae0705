package container

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-signup-auth/app/db"
	appMiddleware "github.com/FACorreiaa/go-signup-auth/app/middleware"
	"github.com/FACorreiaa/go-signup-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-signup-auth/config"
	"github.com/FACorreiaa/go-signup-auth/internal/api/auth"
	"github.com/FACorreiaa/go-signup-auth/internal/api/dashboard"
	"github.com/FACorreiaa/go-signup-auth/internal/router"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	AuthRepo         auth.AuthRepo
	AuthService      *auth.AuthServiceImpl
	AuthHandler      *auth.HandlerImpl
	DashboardHandler *dashboard.HandlerImpl
}

// NewContainer initializes and returns a new dependency container. With the
// postgres driver it applies migrations and opens the pool first.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	m, err := metrics.InitAppMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	c := &Container{Config: cfg, Logger: logger}

	switch cfg.Repositories.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory credential store; users are lost on restart")
		c.AuthRepo = auth.NewMemoryAuthRepo()
	default:
		dbConfig, err := database.NewDatabaseConfig(cfg, logger)
		if err != nil {
			logger.Error("Failed to generate database config", slog.Any("error", err))
			return nil, err
		}

		if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
			logger.Error("Failed to run database migrations", slog.Any("error", err))
			return nil, err
		}

		pool, err := database.Init(dbConfig, logger)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.Any("error", err))
			return nil, err
		}
		c.Pool = pool
		c.AuthRepo = auth.NewPostgresAuthRepo(pool, cfg.Repositories.Postgres, m, logger)
	}

	tokens := auth.NewTokenCodec(cfg.JWT.SecretKey)
	c.AuthService = auth.NewAuthService(c.AuthRepo, tokens, cfg.Auth, m, logger)
	c.AuthHandler = auth.NewHandlerImpl(c.AuthService, logger)

	dashboardService := dashboard.NewDashboardService(c.AuthService, logger)
	c.DashboardHandler = dashboard.NewHandlerImpl(dashboardService, logger)

	return c, nil
}

// Router builds the application routes from the container's handlers.
func (c *Container) Router() *router.Config {
	return &router.Config{
		AuthHandler:            c.AuthHandler,
		DashboardHandler:       c.DashboardHandler,
		AuthenticateMiddleware: appMiddleware.Authenticate(c.AuthService, c.Logger),
		AllowedOrigins:         c.Config.Server.AllowedOrigins,
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready. Always true without a pool.
func (c *Container) WaitForDB(ctx context.Context) bool {
	if c.Pool == nil {
		return true
	}
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}
