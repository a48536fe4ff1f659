package rule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-agent-be/internal/entity"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
)

// NullRule always passes.
type NullRule struct{}

func (NullRule) Code() string { return CodeNull }

func (NullRule) Evaluate(_ context.Context, req *entity.ChatRequest, _ *entity.Account) (Outcome, error) {
	return Passed(req), nil
}

// Counter counts visits per key inside a rolling window.
type Counter interface {
	Count(ctx context.Context, key string) (int64, error)
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// AccessLimitRule caps how many requests a subject can make per window. Only
// requests that pass the whole chain are counted.
type AccessLimitRule struct {
	counter   Counter
	limit     int64
	window    time.Duration
	whitelist map[string]struct{}
}

func NewAccessLimitRule(counter Counter, limit int, window time.Duration, whitelist []string) *AccessLimitRule {
	wl := make(map[string]struct{}, len(whitelist))
	for _, s := range whitelist {
		wl[s] = struct{}{}
	}
	return &AccessLimitRule{counter: counter, limit: int64(limit), window: window, whitelist: wl}
}

func (r *AccessLimitRule) Code() string { return CodeAccessLimit }

func accessKey(subjectId string) string {
	return "access_limit:" + subjectId
}

func (r *AccessLimitRule) Evaluate(ctx context.Context, req *entity.ChatRequest, _ *entity.Account) (Outcome, error) {
	if _, ok := r.whitelist[req.SubjectId]; ok {
		return Passed(req), nil
	}

	count, err := r.counter.Count(ctx, accessKey(req.SubjectId))
	if err != nil {
		return Outcome{}, err
	}
	if count >= r.limit {
		return Block(CodeAccessLimit, fmt.Sprintf("request limit of %d per %s reached", r.limit, r.window)), nil
	}
	return Passed(req), nil
}

// Commit counts the visit after every rule in the chain has passed.
func (r *AccessLimitRule) Commit(ctx context.Context, req *entity.ChatRequest) error {
	if _, ok := r.whitelist[req.SubjectId]; ok {
		return nil
	}
	_, err := r.counter.Increment(ctx, accessKey(req.SubjectId), r.window)
	return err
}

// SensitiveWordRule blocks requests containing any configured word. Matching
// is case-insensitive over every message.
type SensitiveWordRule struct {
	trie *ahocorasick.Trie
}

func NewSensitiveWordRule(words []string) *SensitiveWordRule {
	lowered := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			lowered = append(lowered, w)
		}
	}
	if len(lowered) == 0 {
		return &SensitiveWordRule{}
	}
	return &SensitiveWordRule{trie: ahocorasick.NewTrieBuilder().AddStrings(lowered).Build()}
}

func (r *SensitiveWordRule) Code() string { return CodeSensitiveWord }

func (r *SensitiveWordRule) Evaluate(_ context.Context, req *entity.ChatRequest, _ *entity.Account) (Outcome, error) {
	if r.trie == nil {
		return Passed(req), nil
	}
	for _, text := range req.Texts() {
		if matches := r.trie.MatchString(strings.ToLower(text)); len(matches) > 0 {
			return Block(CodeSensitiveWord, "message contains restricted content"), nil
		}
	}
	return Passed(req), nil
}

// AccountStatusRule blocks disabled accounts.
type AccountStatusRule struct{}

func (AccountStatusRule) Code() string       { return CodeAccountStatus }
func (AccountStatusRule) NeedsAccount() bool { return true }

func (AccountStatusRule) Evaluate(_ context.Context, req *entity.ChatRequest, account *entity.Account) (Outcome, error) {
	if account == nil {
		return Outcome{}, ErrNoAccount
	}
	if !account.IsAvailable() {
		return Block(CodeAccountStatus, "account is disabled"), nil
	}
	return Passed(req), nil
}

// ModelTypeRule blocks models outside the account's allow-list. An empty
// model name is checked as the default model.
type ModelTypeRule struct {
	defaultModel string
}

func NewModelTypeRule(defaultModel string) *ModelTypeRule {
	return &ModelTypeRule{defaultModel: defaultModel}
}

func (r *ModelTypeRule) Code() string       { return CodeModelType }
func (r *ModelTypeRule) NeedsAccount() bool { return true }

func (r *ModelTypeRule) Evaluate(_ context.Context, req *entity.ChatRequest, account *entity.Account) (Outcome, error) {
	if account == nil {
		return Outcome{}, ErrNoAccount
	}
	model := req.Model
	if model == "" {
		model = r.defaultModel
	}
	if !account.AllowsModel(model) {
		return Block(CodeModelType, fmt.Sprintf("model %s is not enabled for this account", model)), nil
	}
	return Passed(req), nil
}

// QuotaStore performs the atomic conditional decrement.
type QuotaStore interface {
	TryDecrementQuota(ctx context.Context, subjectId string, amount int) (bool, error)
}

// UserQuotaRule spends one unit of quota per request.
type UserQuotaRule struct {
	store QuotaStore
}

func NewUserQuotaRule(store QuotaStore) *UserQuotaRule {
	return &UserQuotaRule{store: store}
}

func (r *UserQuotaRule) Code() string           { return CodeUserQuota }
func (r *UserQuotaRule) NeedsAccount() bool     { return true }
func (r *UserQuotaRule) ConsumesResource() bool { return true }

func (r *UserQuotaRule) Evaluate(ctx context.Context, req *entity.ChatRequest, account *entity.Account) (Outcome, error) {
	if account == nil {
		return Outcome{}, ErrNoAccount
	}
	if account.QuotaRemaining <= 0 {
		return Block(CodeUserQuota, "account quota exhausted"), nil
	}
	ok, err := r.store.TryDecrementQuota(ctx, req.SubjectId, 1)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		// Another request spent the last unit first.
		return Block(CodeUserQuota, "account quota exhausted"), nil
	}
	return Passed(req), nil
}
