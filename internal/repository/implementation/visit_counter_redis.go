package implementation

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVisitCounter counts requests per key. The window starts with the first
// increment and the key expires with it.
type RedisVisitCounter struct {
	client *redis.Client
}

func NewRedisVisitCounter(client *redis.Client) *RedisVisitCounter {
	return &RedisVisitCounter{client: client}
}

func (c *RedisVisitCounter) Count(ctx context.Context, key string) (int64, error) {
	n, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisVisitCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
