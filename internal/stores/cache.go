package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ikjoobang/xivix-ai-core-sub000/internal/conversation"
	"github.com/ikjoobang/xivix-ai-core-sub000/pkg/logging"
)

const defaultCacheTTL = 5 * time.Minute

// Backend is the store persistence used behind the cache.
type Backend interface {
	Create(ctx context.Context, s *Store) error
	Get(ctx context.Context, id uuid.UUID) (*Store, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Store, error)
	Update(ctx context.Context, s *Store) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CachedRepository is a Redis read-through cache for single-store lookups.
// Writes go to the backend and invalidate the cached entry.
type CachedRepository struct {
	backend Backend
	redis   *redis.Client
	ttl     time.Duration
	tracer  trace.Tracer
	logger  *logging.Logger
}

func NewCachedRepository(backend Backend, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedRepository{
		backend: backend,
		redis:   client,
		ttl:     ttl,
		tracer:  otel.Tracer("xivix.internal.stores.cache"),
		logger:  logger,
	}
}

// Get returns the store, reading through Redis.
func (c *CachedRepository) Get(ctx context.Context, id uuid.UUID) (*Store, error) {
	ctx, span := c.tracer.Start(ctx, "stores.cache_get")
	defer span.End()

	if c.redis != nil {
		data, err := c.redis.Get(ctx, cacheKey(id)).Bytes()
		switch {
		case err == nil:
			var s Store
			if jsonErr := json.Unmarshal(data, &s); jsonErr == nil {
				return &s, nil
			}
			c.logger.Warn("stores: dropping corrupt cache entry", "store_id", id)
		case !errors.Is(err, redis.Nil):
			span.RecordError(err)
			c.logger.Warn("stores: cache read failed", "store_id", id, "error", err)
		}
	}

	s, err := c.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.put(ctx, s)
	return s, nil
}

func (c *CachedRepository) List(ctx context.Context, ownerID uuid.UUID) ([]Store, error) {
	return c.backend.List(ctx, ownerID)
}

func (c *CachedRepository) Create(ctx context.Context, s *Store) error {
	return c.backend.Create(ctx, s)
}

func (c *CachedRepository) Update(ctx context.Context, s *Store) error {
	if err := c.backend.Update(ctx, s); err != nil {
		return err
	}
	c.Invalidate(ctx, s.ID)
	return nil
}

func (c *CachedRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := c.backend.Delete(ctx, id); err != nil {
		return err
	}
	c.Invalidate(ctx, id)
	return nil
}

// Invalidate drops the cached entry for id.
func (c *CachedRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.logger.Warn("stores: cache invalidate failed", "store_id", id, "error", err)
	}
}

// ResolveStore implements conversation.StoreResolver.
func (c *CachedRepository) ResolveStore(ctx context.Context, storeID string) (*conversation.StoreProfile, error) {
	id, err := uuid.Parse(storeID)
	if err != nil {
		return nil, conversation.ErrStoreNotFound
	}
	s, err := c.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, conversation.ErrStoreNotFound
		}
		return nil, fmt.Errorf("stores: resolve %s: %w", storeID, err)
	}
	return s.Profile(), nil
}

func (c *CachedRepository) put(ctx context.Context, s *Store) {
	if c.redis == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, cacheKey(s.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("stores: cache write failed", "store_id", s.ID, "error", err)
	}
}

func cacheKey(id uuid.UUID) string {
	return "store:" + id.String()
}

// TalkTalkToken returns the partner token used to reply for a store.
func (c *CachedRepository) TalkTalkToken(ctx context.Context, storeID string) (string, error) {
	id, err := uuid.Parse(storeID)
	if err != nil {
		return "", ErrNotFound
	}
	s, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.TalkTalkToken, nil
}

// StoreContact returns the display name and owner email used for
// reminders and owner notifications.
func (c *CachedRepository) StoreContact(ctx context.Context, storeID string) (string, string, error) {
	id, err := uuid.Parse(storeID)
	if err != nil {
		return "", "", ErrNotFound
	}
	s, err := c.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	return s.Name, s.OwnerEmail, nil
}
