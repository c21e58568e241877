package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultReplyTTL bounds how long a reply can be replayed for a redelivered request.
	DefaultReplyTTL = 10 * time.Minute

	replyCacheKeyPrefix = "rpc:reply"
)

// ReplyCache stores encoded RPC replies by request correlation id so a
// redelivered request is answered with the original reply instead of being
// executed twice. Keys are scoped by service name.
// Key format: "rpc:reply:{service}:{correlationID}"
type ReplyCache struct {
	client  *RedisClient
	service string
	ttl     time.Duration
}

// NewReplyCache creates a ReplyCache backed by the given RedisClient. A
// non-positive ttl falls back to DefaultReplyTTL.
func NewReplyCache(r *RedisClient, service string, ttl time.Duration) *ReplyCache {
	if ttl <= 0 {
		ttl = DefaultReplyTTL
	}
	return &ReplyCache{client: r, service: service, ttl: ttl}
}

// Get returns the cached reply for correlationID. ok is false on a miss.
func (c *ReplyCache) Get(ctx context.Context, correlationID string) (reply []byte, ok bool, err error) {
	b, err := c.client.Client().Get(ctx, c.key(correlationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reply cache get: %w", err)
	}
	return b, true, nil
}

// Set stores reply for correlationID with the configured TTL.
func (c *ReplyCache) Set(ctx context.Context, correlationID string, reply []byte) error {
	if err := c.client.Client().Set(ctx, c.key(correlationID), reply, c.ttl).Err(); err != nil {
		return fmt.Errorf("reply cache set: %w", err)
	}
	return nil
}

// key builds the Redis key: "rpc:reply:{service}:{correlationID}"
func (c *ReplyCache) key(correlationID string) string {
	return fmt.Sprintf("%s:%s:%s", replyCacheKeyPrefix, c.service, correlationID)
}
