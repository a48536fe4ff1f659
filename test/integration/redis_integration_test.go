package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/internal/repository/implementation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRedis(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisTagIndex_CapHoldsUnderConcurrency(t *testing.T) {
	client := openRedis(t)
	ctx := context.Background()
	index := implementation.NewRedisTagIndex(client)
	subject := "it-" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, "rag_tag_list:"+subject) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := index.Add(ctx, subject, fmt.Sprintf("tag-%d", i), 5)
			if err != nil {
				assert.ErrorIs(t, err, contract.ErrTagLimitReached)
			}
		}(i)
	}
	wg.Wait()

	tags, err := index.List(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, tags, 5)

	added, err := index.Add(ctx, subject, tags[0], 5)
	require.NoError(t, err, "re-adding an owned tag is not a new tag")
	assert.False(t, added)

	require.NoError(t, index.Remove(ctx, subject, tags[0]))
	added, err = index.Add(ctx, subject, "fresh", 5)
	require.NoError(t, err)
	assert.True(t, added)
}

func TestRedisVisitCounter(t *testing.T) {
	client := openRedis(t)
	ctx := context.Background()
	counter := implementation.NewRedisVisitCounter(client)
	key := "it-access:" + uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, key) })

	n, err := counter.Count(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 3; i++ {
		_, err := counter.Increment(ctx, key, time.Minute)
		require.NoError(t, err)
	}
	n, err = counter.Count(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
