package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
)

const ticketStoreApplicationName = "ticket-intake"

var errTicketStoreNotConfigured = errors.New("ticket store not configured")

// TicketStore owns the Postgres pool backing the tickets table. A zero DSN
// yields a store with no pool; the repository then reports persistence errors.
type TicketStore struct {
	pool *pgxpool.Pool
}

// NewTicketStore connects to the ticket database and verifies it answers.
func NewTicketStore(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*TicketStore, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN/SUPABASE_DB_URL not provided; tickets cannot be stored")
		return &TicketStore{}, nil
	}

	poolCfg, err := ticketStorePoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open ticket store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping ticket store: %w", err)
	}

	logger.Info("ticket store connected",
		zap.String("host", poolCfg.ConnConfig.Host),
		zap.String("database", poolCfg.ConnConfig.Database),
		zap.Int32("max_conns", poolCfg.MaxConns))
	return &TicketStore{pool: pool}, nil
}

func ticketStorePoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		// The DSN carries the database password; keep it out of the error.
		return nil, errors.New("parse ticket store DSN: invalid connection string")
	}
	if poolCfg.ConnConfig.RuntimeParams["application_name"] == "" {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = ticketStoreApplicationName
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}
	return poolCfg, nil
}

// Close releases the pool.
func (s *TicketStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Pool returns the pgx pool, or nil when the store is not configured.
func (s *TicketStore) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping backs the readiness check.
func (s *TicketStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errTicketStoreNotConfigured
	}
	return s.pool.Ping(ctx)
}
