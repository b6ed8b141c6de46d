package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/domain"
)

const (
	ticketListVersionKey = "tickets:list:version"
	ticketListKeyPrefix  = "tickets:list:"

	// DefaultCacheCallTimeout bounds each Redis round trip so a stalled cache
	// leaves the store call its own budget.
	DefaultCacheCallTimeout = 250 * time.Millisecond
)

type cachedTicketRepository struct {
	inner       TicketRepository
	client      redis.UniversalClient
	ttl         time.Duration
	callTimeout time.Duration
	logger      *zap.Logger

	// stale is set when a Create could not bump the list version. ListAll
	// bypasses Redis until a bump succeeds.
	stale atomic.Bool
}

// NewCachedTicketRepository puts a Redis read-through cache in front of ListAll.
// Cached lists are keyed by a version that Create bumps, so a list built before
// an insert is never served after it. Redis errors fall through to inner.
func NewCachedTicketRepository(inner TicketRepository, client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) TicketRepository {
	return newCachedTicketRepository(inner, client, ttl, DefaultCacheCallTimeout, logger)
}

func newCachedTicketRepository(inner TicketRepository, client redis.UniversalClient, ttl, callTimeout time.Duration, logger *zap.Logger) TicketRepository {
	if client == nil {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedTicketRepository{inner: inner, client: client, ttl: ttl, callTimeout: callTimeout, logger: logger}
}

func (r *cachedTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.inner.Create(ctx, ticket); err != nil {
		return err
	}
	if err := r.bumpVersion(ctx); err != nil {
		r.stale.Store(true)
		r.logger.Warn("ticket list cache invalidation failed; bypassing cache", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
	}
	return nil
}

func (r *cachedTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.inner.GetByID(ctx, id)
}

func (r *cachedTicketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	if r.stale.Load() {
		if err := r.bumpVersion(ctx); err != nil {
			return r.inner.ListAll(ctx)
		}
		r.stale.Store(false)
	}

	version, err := r.version(ctx)
	if err != nil {
		r.logger.Warn("ticket list cache unavailable", zap.Error(err))
		return r.inner.ListAll(ctx)
	}
	key := ticketListKeyPrefix + strconv.FormatInt(version, 10)

	raw, err := r.get(ctx, key)
	switch {
	case err == nil:
		var tickets []domain.Ticket
		if jsonErr := json.Unmarshal(raw, &tickets); jsonErr == nil {
			return tickets, nil
		}
		r.logger.Warn("discarding unreadable ticket list cache entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		r.logger.Warn("ticket list cache read failed", zap.Error(err))
	}

	tickets, err := r.inner.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(tickets); err == nil {
		if err := r.set(ctx, key, payload); err != nil {
			r.logger.Warn("ticket list cache write failed", zap.Error(err))
		}
	}
	return tickets, nil
}

func (r *cachedTicketRepository) bumpVersion(ctx context.Context) error {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.client.Incr(ctx, ticketListVersionKey).Err()
}

func (r *cachedTicketRepository) version(ctx context.Context) (int64, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	v, err := r.client.Get(ctx, ticketListVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *cachedTicketRepository) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.client.Get(ctx, key).Bytes()
}

func (r *cachedTicketRepository) set(ctx context.Context, key string, payload []byte) error {
	ctx, cancel := r.callContext(ctx)
	defer cancel()
	return r.client.Set(ctx, key, payload, r.ttl).Err()
}

func (r *cachedTicketRepository) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}
