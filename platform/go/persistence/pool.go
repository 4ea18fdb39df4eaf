package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultConnectAttempts = 1
	defaultRetryDelay      = 2 * time.Second
	readinessTimeout       = 2 * time.Second
)

// PoolConfig sizes the pool shared by the apartment, credential and webhook failure stores.
// Zero values keep pgx defaults.
type PoolConfig struct {
	ConnString      string
	ApplicationName string // reported in pg_stat_activity
	MaxConns        int32  // HTTP handlers plus webhook workers share it
	MinConns        int32
	MaxConnIdleTime time.Duration
	// ConnectAttempts retries the initial ping, for deployments where Postgres starts alongside the API.
	ConnectAttempts int
	RetryDelay      time.Duration
}

// NewPool builds the pool and waits until Postgres answers a ping.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.ConnString == "" {
		return nil, errors.New("conn string is required")
	}

	pc, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}
	if cfg.ApplicationName != "" {
		pc.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := waitForPostgres(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForPostgres(ctx context.Context, pool *pgxpool.Pool, cfg PoolConfig) error {
	attempts := cfg.ConnectAttempts
	if attempts < defaultConnectAttempts {
		attempts = defaultConnectAttempts
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping postgres: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("ping postgres after %d attempt(s): %w", attempts, err)
}

// Ready pings the pool with a short deadline; /readyz uses it.
func Ready(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("pool is not initialised")
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return pool.Ping(ctx)
}

// ClosePool closes pool; nil is ignored.
func ClosePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}
