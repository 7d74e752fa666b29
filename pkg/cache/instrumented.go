package cache

import (
	"context"
	"time"

	"github.com/matzehuels/folio/pkg/observability"
)

// Instrumented reports hits, misses and writes of an inner cache to the
// registered observability hooks, labelled with keyType.
type Instrumented struct {
	Cache
	keyType string
}

// Instrument wraps c so its traffic is reported as keyType.
func Instrument(c Cache, keyType string) *Instrumented {
	return &Instrumented{Cache: c, keyType: keyType}
}

// Get reads through to the inner cache and records a hit or miss.
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, c.keyType)
		} else {
			observability.Cache().OnCacheMiss(ctx, c.keyType)
		}
	}
	return data, hit, err
}

// Set writes through to the inner cache and records the entry size.
func (c *Instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.Cache.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, c.keyType, len(data))
	return nil
}
