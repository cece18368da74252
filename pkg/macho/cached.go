package macho

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/wheelfix/pkg/cache"
	"github.com/matzehuels/wheelfix/pkg/errors"
	"github.com/matzehuels/wheelfix/pkg/observability"
)

const cacheKeyType = "inspect"

// DependencyInspector is the interface CachedInspector wraps.
type DependencyInspector interface {
	Dependencies(path string) ([]string, error)
}

// CachedInspector memoizes another inspector's results keyed by the SHA-256
// of the file's content. Editing a binary changes its content, so entries
// never go stale. Cache failures fall through to the wrapped inspector.
type CachedInspector struct {
	Inner DependencyInspector
	Cache cache.Cache
}

// NewCachedInspector wraps inner with c. A nil cache disables caching.
func NewCachedInspector(inner DependencyInspector, c cache.Cache) *CachedInspector {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &CachedInspector{Inner: inner, Cache: c}
}

// Dependencies returns the cached result for the file's content or asks
// the wrapped inspector and stores its answer.
func (c *CachedInspector) Dependencies(path string) ([]string, error) {
	hash, err := cache.HashFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInspection, err, "read %s", path)
	}
	ctx := context.Background()
	key := cache.Key(cacheKeyType, hash)
	hooks := observability.Cache()

	if data, ok, err := c.Cache.Get(ctx, key); err == nil && ok {
		var names []string
		if json.Unmarshal(data, &names) == nil {
			hooks.OnCacheHit(cacheKeyType)
			return names, nil
		}
	}
	hooks.OnCacheMiss(cacheKeyType)

	names, err := c.Inner.Dependencies(path)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(names); err == nil {
		if c.Cache.Set(ctx, key, data, cache.TTLInspect) == nil {
			hooks.OnCacheSet(cacheKeyType, len(data))
		}
	}
	return names, nil
}
