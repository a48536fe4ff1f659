package memory

import (
	"context"
	"sort"
	"sync"

	"ai-agent-be/internal/repository/contract"
)

// TagIndex keeps context tags in process memory. Used when no Redis is
// configured and in tests.
type TagIndex struct {
	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

func NewTagIndex() *TagIndex {
	return &TagIndex{tags: make(map[string]map[string]struct{})}
}

var _ contract.TagIndex = (*TagIndex)(nil)

func (t *TagIndex) List(_ context.Context, subjectId string) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.tags[subjectId]))
	for tag := range t.tags[subjectId] {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}

func (t *TagIndex) Add(_ context.Context, subjectId, tag string, limit int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.tags[subjectId]
	if !ok {
		set = make(map[string]struct{})
		t.tags[subjectId] = set
	}
	if _, exists := set[tag]; exists {
		return false, nil
	}
	if len(set) >= limit {
		return false, contract.ErrTagLimitReached
	}
	set[tag] = struct{}{}
	return true, nil
}

func (t *TagIndex) Remove(_ context.Context, subjectId, tag string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tags[subjectId], tag)
	return nil
}
