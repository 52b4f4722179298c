package directory

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedDirectory decorates a UserDirectory with a short-TTL Redis cache,
// grounded on the teacher's sync.Map-based PermissionCache TTL pattern but
// backed by Redis so the cache is shared across replicas.
type CachedDirectory struct {
	inner UserDirectory
	redis *redis.Client
	ttl   time.Duration
}

// NewCached wraps inner with a Redis-backed cache of the given TTL.
func NewCached(inner UserDirectory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{inner: inner, redis: client, ttl: ttl}
}

func (c *CachedDirectory) EmailOfApplicant(ctx context.Context, applicantID string) (string, error) {
	key := "directory:applicant-email:" + applicantID
	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		return cached, nil
	}

	email, err := c.inner.EmailOfApplicant(ctx, applicantID)
	if err != nil {
		return "", err
	}
	c.redis.Set(ctx, key, email, c.ttl)
	return email, nil
}

func (c *CachedDirectory) AnyApproverEmail(ctx context.Context) (string, error) {
	const key = "directory:any-approver-email"
	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		return cached, nil
	}

	email, err := c.inner.AnyApproverEmail(ctx)
	if err != nil {
		return "", err
	}
	c.redis.Set(ctx, key, email, c.ttl)
	return email, nil
}
