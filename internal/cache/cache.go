package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient builds a redis client, or nil when no address is configured.
// All consumers in this package tolerate a nil client and degrade to
// pass-through behavior.
func NewClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// CatalogCache keeps recent catalog proxy responses so repeated storefront
// scrolling does not hammer the upstream store.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl}
}

func (c *CatalogCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	body, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("[Cache] catalog get failed: %v", err)
		return nil, false
	}
	return body, true
}

func (c *CatalogCache) Set(ctx context.Context, key string, body []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key, body, c.ttl).Err(); err != nil {
		log.Printf("[Cache] catalog set failed: %v", err)
	}
}

// EventDedupe short-circuits repeated webhook deliveries of the same event.
// It is a fast path only: the conditional order-status write remains the
// authoritative idempotency gate, so this fails open on any redis problem.
type EventDedupe struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventDedupe(rdb *redis.Client, ttl time.Duration) *EventDedupe {
	return &EventDedupe{rdb: rdb, ttl: ttl}
}

// FirstDelivery reports whether this event id has not been seen before.
func (d *EventDedupe) FirstDelivery(ctx context.Context, eventID string) bool {
	if d == nil || d.rdb == nil {
		return true
	}
	ok, err := d.rdb.SetNX(ctx, "webhook:seen:"+eventID, "1", d.ttl).Result()
	if err != nil {
		log.Printf("[Cache] webhook dedupe failed: %v", err)
		return true
	}
	return ok
}

// Release forgets a delivery marker. Called when processing the event
// failed after the marker was set, so a redelivery or manual resend is not
// short-circuited away from its retry.
func (d *EventDedupe) Release(ctx context.Context, eventID string) {
	if d == nil || d.rdb == nil {
		return
	}
	if err := d.rdb.Del(ctx, "webhook:seen:"+eventID).Err(); err != nil {
		log.Printf("[Cache] webhook dedupe release failed: %v", err)
	}
}
