package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig carries the connection-pool tunables from internal/config.
type PoolConfig struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	ConnectionTimeout time.Duration
}

// NewPool builds a pgxpool.Pool sized per cfg and verifies connectivity with
// a single ping before returning. The pool itself is safe for concurrent use
// by every request handler in the process.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnectionTimeout > 0 {
		poolCfg.MaxConnLifetime = 0
		poolCfg.HealthCheckPeriod = 30 * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.acquireTimeout())
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool exhausted or unreachable: %w", err)
	}

	return pool, nil
}

func (c PoolConfig) acquireTimeout() time.Duration {
	if c.ConnectionTimeout > 0 {
		return c.ConnectionTimeout
	}
	return 30 * time.Second
}
