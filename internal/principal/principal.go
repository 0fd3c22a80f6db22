package principal

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"clinic-authz/internal/policy"
)

// ErrNotFound is returned when a user has no role assignment
var ErrNotFound = errors.New("principal not found")

// Principal is an authenticated user together with the authorization data the engine needs
type Principal struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   policy.Role `json:"role"`
	UnitID string      `json:"unit_id,omitempty"`
}

// Context builds the caller half of a policy context
func (p Principal) Context() policy.Context {
	return policy.Context{UserID: p.UserID.String(), UnitID: p.UnitID}
}

// Resolver looks up the principal for an authenticated user id
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (Principal, error)
}

// Cache stores resolved principals
type Cache interface {
	Get(ctx context.Context, userID uuid.UUID) (Principal, bool)
	Set(ctx context.Context, p Principal, ttl time.Duration) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

// CachedResolver serves principals from a Cache and falls back to source on a miss
type CachedResolver struct {
	source Resolver
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger

	cacheWriteFailures atomic.Int64
}

// NewCachedResolver creates a resolver that caches source results for ttl
func NewCachedResolver(source Resolver, cache Cache, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Resolve returns the cached principal or loads it from source.
// Cache write failures are logged and counted; the principal is still returned.
func (r *CachedResolver) Resolve(ctx context.Context, userID uuid.UUID) (Principal, error) {
	if p, ok := r.cache.Get(ctx, userID); ok {
		return p, nil
	}

	p, err := r.source.Resolve(ctx, userID)
	if err != nil {
		return Principal{}, err
	}

	if err := r.cache.Set(ctx, p, r.ttl); err != nil {
		r.cacheWriteFailures.Add(1)
		r.logger.Warn("principal cache write failed", "user_id", userID, "error", err)
	}
	return p, nil
}

// CacheWriteFailures returns how many resolved principals could not be cached
func (r *CachedResolver) CacheWriteFailures() int64 {
	return r.cacheWriteFailures.Load()
}

// Invalidate drops the cached principal for userID
func (r *CachedResolver) Invalidate(ctx context.Context, userID uuid.UUID) error {
	return r.cache.Delete(ctx, userID)
}

// StaticResolver resolves principals from a fixed map. Used in tests and local runs without a database.
type StaticResolver map[uuid.UUID]Principal

// Resolve implements Resolver
func (s StaticResolver) Resolve(_ context.Context, userID uuid.UUID) (Principal, error) {
	p, ok := s[userID]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}
