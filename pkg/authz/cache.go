package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// noMembership is the cached marker for "user has no role in this project".
// Caching negative lookups keeps repeated denied requests off the database.
const noMembership = "none"

// RoleCache fronts a MembershipSource with a Redis cache for role lookups.
// Entries expire after the configured TTL; membership mutations call
// Invalidate so changes propagate faster than the TTL bound.
type RoleCache struct {
	src    MembershipSource
	client *redis.Client
	ttl    time.Duration
}

// NewRoleCache creates a caching membership source
func NewRoleCache(src MembershipSource, client *redis.Client, ttl time.Duration) *RoleCache {
	return &RoleCache{
		src:    src,
		client: client,
		ttl:    ttl,
	}
}

// RoleOf returns the cached role when present, falling back to the source.
// Cache errors degrade to source lookups rather than failing the request.
func (c *RoleCache) RoleOf(ctx context.Context, project uuid.UUID, username string) (Role, bool, error) {
	key := roleKey(project, username)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if cached == noMembership {
			return "", false, nil
		}
		role := Role(cached)
		if role.Valid() {
			return role, true, nil
		}
		// Unknown payload, drop it and fall through to the source
		c.client.Del(ctx, key)
	}

	role, found, err := c.src.RoleOf(ctx, project, username)
	if err != nil {
		return "", false, err
	}

	value := noMembership
	if found {
		value = string(role)
	}
	c.client.Set(ctx, key, value, c.ttl)

	return role, found, nil
}

// ProjectExists is a pass-through; existence is checked per request so a
// deleted project is never resurrected by a stale cache entry.
func (c *RoleCache) ProjectExists(ctx context.Context, project uuid.UUID) (bool, error) {
	return c.src.ProjectExists(ctx, project)
}

// Invalidate drops the cached role for a single member
func (c *RoleCache) Invalidate(ctx context.Context, project uuid.UUID, username string) error {
	return c.client.Del(ctx, roleKey(project, username)).Err()
}

// InvalidateProject drops all cached roles for a project
func (c *RoleCache) InvalidateProject(ctx context.Context, project uuid.UUID) error {
	pattern := fmt.Sprintf("role:%s:*", project)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan role cache: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete role cache keys: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func roleKey(project uuid.UUID, username string) string {
	return fmt.Sprintf("role:%s:%s", project, username)
}
