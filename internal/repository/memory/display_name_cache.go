package memory

import (
	"context"
	"time"

	"storefront-chat-be/internal/entity"
	"storefront-chat-be/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// DisplayNameCache remembers the names users identified with so history can
// label authors without a directory lookup per message.
type DisplayNameCache struct {
	cache     *cache.Cache
	directory contract.UserDirectory
}

// NewDisplayNameCache accepts a nil directory; unknown users then resolve to
// their own id.
func NewDisplayNameCache(directory contract.UserDirectory, ttl time.Duration) *DisplayNameCache {
	return &DisplayNameCache{
		cache:     cache.New(ttl, 2*ttl),
		directory: directory,
	}
}

func (c *DisplayNameCache) Remember(identity entity.Identity) {
	if identity.UserId == "" {
		return
	}
	c.cache.Set(identity.UserId, identity.Name(), cache.DefaultExpiration)
}

func (c *DisplayNameCache) Resolve(ctx context.Context, userId string) string {
	if x, found := c.cache.Get(userId); found {
		return x.(string)
	}

	if c.directory != nil {
		if name, err := c.directory.FindUsername(ctx, userId); err == nil && name != "" {
			c.cache.Set(userId, name, cache.DefaultExpiration)
			return name
		}
	}
	return userId
}
