// Package cache wraps the process-wide Redis-compatible cache client that
// C9's shared state container holds. It is grounded on the go-redis project
// (jeongkyun-oh-klaytn depends directly on github.com/go-redis/redis/v7; the
// module has since moved to github.com/redis/go-redis/v9 under the same
// maintainers, which this module depends on instead).
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper adding one domain-specific operation the core
// needs, an idempotency guard for capture submissions (ClaimCaptureToken),
// plus generic JSON get/set/delete helpers that internal/auth's Redis
// session store builds on.
type Client struct {
	rdb *redis.Client
}

// New dials a Redis-compatible cache at url (e.g. "redis://localhost:6379/0")
// with the given connection pool size.
func New(url string, poolSize int) (*Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = poolSize
	return &Client{rdb: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases pooled connections.
func (c *Client) Close() error { return c.rdb.Close() }

// ClaimCaptureToken atomically marks a capture token's signature hash as
// used, returning true if this call is the first to claim it. This is the
// distributed idempotency guard Stage C's submit path uses so two racing
// submissions of the same token (e.g. a retried client request) cannot both
// proceed to broadcast a chain transaction.
func (c *Client) ClaimCaptureToken(ctx context.Context, signature string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, "capture:claim:"+signature, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// SetJSON stores a pre-marshaled JSON blob with a TTL.
func (c *Client) SetJSON(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetJSON returns a previously stored blob, or (nil, false) on a cache miss.
func (c *Client) GetJSON(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Del removes a key; the Redis session store uses it to revoke a session.
func (c *Client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
