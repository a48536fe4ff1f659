package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// VisitCounter is the single-instance counterpart of the Redis counter.
type VisitCounter struct {
	cache *cache.Cache
}

func NewVisitCounter() *VisitCounter {
	// Entries carry their own window; purge expired ones every 10 minutes
	return &VisitCounter{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

func (c *VisitCounter) Count(_ context.Context, key string) (int64, error) {
	if x, found := c.cache.Get(key); found {
		return x.(int64), nil
	}
	return 0, nil
}

func (c *VisitCounter) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	if err := c.cache.Add(key, int64(1), window); err == nil {
		return 1, nil
	}
	n, err := c.cache.IncrementInt64(key, 1)
	if err != nil {
		// Expired between Add and Increment; start a new window.
		c.cache.Set(key, int64(1), window)
		return 1, nil
	}
	return n, nil
}
