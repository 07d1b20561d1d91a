// Package app wires the service's shared dependencies — config, logger,
// database pool, bearer validator, metrics registry — into the composition
// root shared by cmd/lightbridge-authz-rest and cmd/lightbridge-authz-grpc.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ADORSYS-GIS/lightbridge-authz/internal/bearer"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/config"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/httpserver"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/platform"
	"github.com/ADORSYS-GIS/lightbridge-authz/internal/telemetry"
	"github.com/ADORSYS-GIS/lightbridge-authz/migrations"
	"github.com/ADORSYS-GIS/lightbridge-authz/pkg/apikey"
	"github.com/ADORSYS-GIS/lightbridge-authz/pkg/authz"
)

// Deps holds everything both composition roots build on top of: the loaded
// config, a logger, a migrated database pool, the bearer validator, and a
// dedicated metrics registry.
type Deps struct {
	Config    *config.Config
	Logger    *slog.Logger
	DB        *pgxpool.Pool
	Validator *bearer.Validator
	Metrics   *prometheus.Registry
}

// Bootstrap loads config, builds the logger, opens and migrates the
// database pool, and constructs the bearer validator. Both cmd binaries call
// this before building their own transport-specific server.
func Bootstrap(ctx context.Context, configPath string) (*Deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Logging.Format, cfg.Logging.Level)

	pool, err := platform.NewPool(ctx, platform.PoolConfig{
		URL:               cfg.Database.URL,
		MaxConns:          int32(cfg.Database.PoolSize),
		MinConns:          int32(cfg.Database.MinIdle),
		ConnectionTimeout: time.Duration(cfg.Database.ConnectionTimeoutSecond) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := platform.RunMigrations(cfg.Database.URL, migrations.FS, migrations.Dir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	cache, err := jwksCache(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	validator := bearer.NewValidator(
		cfg.OAuth2.JWKSURL,
		bearer.NewHTTPFetcher(),
		cache,
		time.Duration(cfg.OAuth2.CacheTTLSecond)*time.Second,
	)

	return &Deps{
		Config:    cfg,
		Logger:    logger,
		DB:        pool,
		Validator: validator,
		Metrics:   telemetry.NewRegistry(),
	}, nil
}

// jwksCache picks a Redis-backed cache when cfg.Redis.Addr is configured,
// falling back to an in-process cache for single-instance deployments.
func jwksCache(ctx context.Context, cfg *config.Config) (bearer.Cache, error) {
	if cfg.Redis.Addr == "" {
		return bearer.NewInProcessCache(), nil
	}

	client, err := platform.NewRedisClient(ctx, cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return bearer.NewRedisCache(client), nil
}

// Close releases the resources Bootstrap opened.
func (d *Deps) Close() {
	d.DB.Close()
}

// NewRESTServer builds the REST management-plane HTTP server, with the
// api-keys handler mounted under the authenticated /api/v1 sub-router.
func NewRESTServer(d *Deps) http.Handler {
	srv := httpserver.NewServer(d.Config.Server.CORSAllowedOrigins, d.Logger, d.DB, d.Metrics, d.Validator)
	srv.APIRouter.Mount("/api-keys", apikey.NewHandler(d.Logger, d.DB).Routes())
	return srv
}

// NewAuthzServer builds the ext_authz Check engine backed by the shared
// api-key store.
func NewAuthzServer(d *Deps) *authz.Server {
	return authz.NewServer(apikey.NewStore(d.DB), d.Logger)
}
