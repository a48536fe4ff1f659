package implementation

import (
	"context"
	"fmt"
	"sort"

	"ai-agent-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const ragTagKeyPrefix = "rag_tag_list:"

// addTagScript checks membership and cardinality and adds in one step, so two
// concurrent uploads cannot both take the last slot.
var addTagScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 1 then
	return 0
end
if redis.call('SCARD', KEYS[1]) >= tonumber(ARGV[2]) then
	return -1
end
redis.call('SADD', KEYS[1], ARGV[1])
return 1
`)

type RedisTagIndex struct {
	client *redis.Client
}

func NewRedisTagIndex(client *redis.Client) contract.TagIndex {
	return &RedisTagIndex{client: client}
}

func tagKey(subjectId string) string {
	return ragTagKeyPrefix + subjectId
}

func (r *RedisTagIndex) List(ctx context.Context, subjectId string) ([]string, error) {
	tags, err := r.client.SMembers(ctx, tagKey(subjectId)).Result()
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

func (r *RedisTagIndex) Add(ctx context.Context, subjectId, tag string, limit int) (bool, error) {
	res, err := addTagScript.Run(ctx, r.client, []string{tagKey(subjectId)}, tag, limit).Int()
	if err != nil {
		return false, fmt.Errorf("add tag: %w", err)
	}
	switch res {
	case -1:
		return false, contract.ErrTagLimitReached
	case 0:
		return false, nil
	default:
		return true, nil
	}
}

func (r *RedisTagIndex) Remove(ctx context.Context, subjectId, tag string) error {
	if err := r.client.SRem(ctx, tagKey(subjectId), tag).Err(); err != nil {
		return fmt.Errorf("remove tag: %w", err)
	}
	return nil
}
