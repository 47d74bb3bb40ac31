package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"docvault/internal/logging"
	"docvault/internal/model"
)

// Cache stores generated thumbnails. Implementations swallow their own errors;
// a failing cache behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, key string) (*model.Thumbnail, bool)
	Set(ctx context.Context, key string, th *model.Thumbnail)
}

// CacheKey identifies a thumbnail by document and source content, so a
// replaced source never serves a stale preview.
func CacheKey(documentID string, src []byte) string {
	return fmt.Sprintf("preview:%s:%016x", documentID, xxhash.Sum64(src))
}

// RedisCache keeps thumbnails as JSON values with a fixed TTL.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logging.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, log logging.Logger) *RedisCache {
	if log == nil {
		log = logging.Nop()
	}
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*model.Thumbnail, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn(ctx, "preview cache get failed", "key", key, "error", err.Error())
		}
		return nil, false
	}

	var th model.Thumbnail
	if err := json.Unmarshal(raw, &th); err != nil {
		c.log.Warn(ctx, "preview cache entry corrupt", "key", key, "error", err.Error())
		return nil, false
	}
	return &th, true
}

func (c *RedisCache) Set(ctx context.Context, key string, th *model.Thumbnail) {
	raw, err := json.Marshal(th)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn(ctx, "preview cache set failed", "key", key, "error", err.Error())
	}
}
