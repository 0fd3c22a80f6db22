package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clinic-authz/internal/principal"
)

const (
	principalKeyPrefix = "authz:principal:"
	redisPingTimeout   = 5 * time.Second

	errRedisParseURLFmt = "cache: parse redis url: %w"
	errRedisPingFmt     = "cache: ping: %w"
	errRedisEncodeFmt   = "cache: encode principal: %w"
	errRedisSetFmt      = "cache: set %s: %w"
	errRedisDeleteFmt   = "cache: delete %s: %w"
)

// NewRedisClient connects to the Redis server at url and verifies it with a ping
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf(errRedisParseURLFmt, err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf(errRedisPingFmt, err)
	}

	return client, nil
}

// RedisPrincipalCache stores resolved principals in Redis so that every replica shares them
type RedisPrincipalCache struct {
	client *redis.Client
}

// NewRedisPrincipalCache creates a Redis-backed principal cache
func NewRedisPrincipalCache(client *redis.Client) *RedisPrincipalCache {
	return &RedisPrincipalCache{client: client}
}

// Get retrieves a principal. Misses, decode failures and Redis errors all report false.
func (r *RedisPrincipalCache) Get(ctx context.Context, userID uuid.UUID) (principal.Principal, bool) {
	raw, err := r.client.Get(ctx, PrincipalKey(userID)).Bytes()
	if err != nil {
		return principal.Principal{}, false
	}

	var p principal.Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		return principal.Principal{}, false
	}
	return p, true
}

// Set stores a principal with ttl
func (r *RedisPrincipalCache) Set(ctx context.Context, p principal.Principal, ttl time.Duration) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf(errRedisEncodeFmt, err)
	}

	key := PrincipalKey(p.UserID)
	if err := r.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf(errRedisSetFmt, key, err)
	}
	return nil
}

// Delete removes a principal. Deleting a missing key is not an error.
func (r *RedisPrincipalCache) Delete(ctx context.Context, userID uuid.UUID) error {
	key := PrincipalKey(userID)
	if err := r.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf(errRedisDeleteFmt, key, err)
	}
	return nil
}

// PrincipalKey builds the Redis key for a user id
func PrincipalKey(userID uuid.UUID) string {
	return principalKeyPrefix + userID.String()
}
