// Package cache is a read-through, per-entity cache in front of
// cross-service lookups. TTL expiry is the only eviction mechanism.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/TuanStark/dorm-microservice-system-sub000/pkg/apperr"
)

const (
	DefaultTTL          = time.Hour
	DefaultFetchTimeout = 5 * time.Second
)

var ErrMiss = errors.New("cache miss")

// Store is the raw key/value backend (redis in production).
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Loader fetches the entity snapshot from its owning service on a miss.
type Loader func(ctx context.Context) (any, error)

func UserKey(id string) string    { return "user:" + id }
func RoomKey(id string) string    { return "room:" + id }
func BookingKey(id string) string { return "booking:" + id }

type Cache struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	log          *logrus.Entry
}

func New(store Store, log *logrus.Entry) *Cache {
	return &Cache{store: store, ttl: DefaultTTL, fetchTimeout: DefaultFetchTimeout, log: log}
}

// GetInto resolves key into out, loading from the owning service on a miss.
// A loader timeout is treated as not-found: the caller proceeds without the
// data instead of blocking or retrying.
func (c *Cache) GetInto(ctx context.Context, key string, out any, load Loader) error {
	if b, err := c.store.Get(ctx, key); err == nil {
		return json.Unmarshal(b, out)
	} else if !errors.Is(err, ErrMiss) {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed, falling through")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	v, err := load(fetchCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.log.WithField("key", key).Warn("entity fetch timed out, treating as not found")
			return apperr.NotFoundf("fetch %s: timeout", key)
		}
		return err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", key, err)
	}
	if err := c.store.Set(ctx, key, b, c.ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache populate failed")
	}
	return json.Unmarshal(b, out)
}

// Invalidate drops the snapshot after any write to the underlying entity.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache invalidate failed")
	}
}
