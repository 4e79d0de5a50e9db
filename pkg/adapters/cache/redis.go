// Package cache puts Redis in front of the hot redirect lookup.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/shortlink/pkg/core/domain"
	"github.com/wadjakorntonsri/shortlink/pkg/ports"
)

const keyPrefix = "shortlink:"

// Client is the subset of *redis.Client the cache needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// RedisLinkCache decorates a repository with cache-aside reads of active
// links. Only hits are cached; deactivation evicts every code of the link.
//
// A read that loaded the link before a concurrent SetActive could write the
// stale row back after the eviction. SetActive leaves a marker for one TTL,
// and a fill that finds the marker evicts its own write.
type RedisLinkCache struct {
	ports.Repository
	client Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisLinkCache(next ports.Repository, client Client, ttl time.Duration, logger *slog.Logger) *RedisLinkCache {
	return &RedisLinkCache{Repository: next, client: client, ttl: ttl, logger: logger}
}

// cachedLink keeps the password hash, which domain.Link hides from JSON.
type cachedLink struct {
	ID           string     `json:"id"`
	ShortCode    string     `json:"short_code"`
	CustomAlias  *string    `json:"custom_alias,omitempty"`
	OriginalURL  string     `json:"original_url"`
	PasswordHash *string    `json:"password_hash,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (c *RedisLinkCache) FindActiveByCode(ctx context.Context, code string) (*domain.Link, error) {
	key := codeKey(code)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cl cachedLink
		if err := json.Unmarshal(data, &cl); err == nil {
			return cl.link(), nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("cache read failed", "key", key, "error", err)
	}

	link, err := c.Repository.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	c.store(ctx, link)
	return link, nil
}

func (c *RedisLinkCache) store(ctx context.Context, link *domain.Link) {
	data, err := json.Marshal(cachedLink{
		ID:           link.ID,
		ShortCode:    link.ShortCode,
		CustomAlias:  link.CustomAlias,
		OriginalURL:  link.OriginalURL,
		PasswordHash: link.PasswordHash,
		ExpiresAt:    link.ExpiresAt,
		CreatedAt:    link.CreatedAt,
	})
	if err != nil {
		return
	}

	codesKey := linkKey(link.ID)
	for _, code := range link.Codes() {
		if err := c.client.Set(ctx, codeKey(code), data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "code", code, "error", err)
			return
		}
		c.client.SAdd(ctx, codesKey, codeKey(code))
	}
	c.client.Expire(ctx, codesKey, c.ttl)

	if err := c.client.Get(ctx, changedKey(link.ID)).Err(); !errors.Is(err, redis.Nil) {
		c.evict(ctx, link.ID)
	}
}

func (c *RedisLinkCache) SetActive(ctx context.Context, id string, active bool) error {
	if err := c.Repository.SetActive(ctx, id, active); err != nil {
		return err
	}
	if err := c.client.Set(ctx, changedKey(id), "1", c.ttl).Err(); err != nil {
		c.logger.Warn("cache marker write failed", "link_id", id, "error", err)
	}
	c.evict(ctx, id)
	return nil
}

func (c *RedisLinkCache) evict(ctx context.Context, id string) {
	codesKey := linkKey(id)
	keys, err := c.client.SMembers(ctx, codesKey).Result()
	if err != nil {
		c.logger.Warn("cache evict lookup failed", "link_id", id, "error", err)
		return
	}
	keys = append(keys, codesKey)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache evict failed", "link_id", id, "error", err)
	}
}

func (cl cachedLink) link() *domain.Link {
	return &domain.Link{
		ID:           cl.ID,
		ShortCode:    cl.ShortCode,
		CustomAlias:  cl.CustomAlias,
		OriginalURL:  cl.OriginalURL,
		PasswordHash: cl.PasswordHash,
		ExpiresAt:    cl.ExpiresAt,
		IsActive:     true,
		CreatedAt:    cl.CreatedAt,
	}
}

func codeKey(code string) string { return keyPrefix + "code:" + code }

func linkKey(id string) string { return keyPrefix + "link:" + id + ":codes" }

func changedKey(id string) string { return keyPrefix + "link:" + id + ":changed" }

var _ ports.Repository = (*RedisLinkCache)(nil)
