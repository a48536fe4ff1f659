package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/pkg/events"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/rag/retriever"

	"github.com/stretchr/testify/require"
)

type fakeAccountRepo struct {
	mu         sync.Mutex
	accounts   map[string]*entity.Account
	findErr    error
	addErr     error
	decrements int
}

func newFakeAccountRepo(accounts ...*entity.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{accounts: map[string]*entity.Account{}}
	for _, a := range accounts {
		r.accounts[a.SubjectId] = a
	}
	return r
}

func (r *fakeAccountRepo) FindBySubject(_ context.Context, subjectId string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[subjectId], nil
}

func (r *fakeAccountRepo) FindOrCreate(_ context.Context, defaults *entity.Account) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if a, ok := r.accounts[defaults.SubjectId]; ok {
		copied := *a
		return &copied, nil
	}
	created := *defaults
	r.accounts[defaults.SubjectId] = &created
	copied := created
	return &copied, nil
}

func (r *fakeAccountRepo) TryDecrementQuota(_ context.Context, subjectId string, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decrements++
	a, ok := r.accounts[subjectId]
	if !ok || a.QuotaRemaining < amount {
		return false, nil
	}
	a.QuotaRemaining -= amount
	return true, nil
}

func (r *fakeAccountRepo) AddQuota(_ context.Context, subjectId string, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	if a, ok := r.accounts[subjectId]; ok {
		a.QuotaTotal += amount
		a.QuotaRemaining += amount
	}
	return nil
}

func (r *fakeAccountRepo) UpdateStatus(_ context.Context, subjectId string, status entity.AccountStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.accounts[subjectId]; ok {
		a.Status = status
	}
	return nil
}

type fakeUnitOfWork struct {
	accounts contract.AccountRepository
	factory  *fakeFactory
}

func (u *fakeUnitOfWork) Begin(context.Context) error { return nil }

func (u *fakeUnitOfWork) Commit() error {
	u.factory.mu.Lock()
	defer u.factory.mu.Unlock()
	u.factory.commits++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error { return nil }

func (u *fakeUnitOfWork) AccountRepository() contract.AccountRepository { return u.accounts }

func (u *fakeUnitOfWork) ContextDocumentRepository() contract.ContextDocumentRepository {
	return nil
}

type fakeFactory struct {
	accounts *fakeAccountRepo

	mu      sync.Mutex
	commits int
}

func (f *fakeFactory) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &fakeUnitOfWork{accounts: f.accounts, factory: f}
}

func (f *fakeFactory) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

// quotaStore adapts the fake repository to the quota rule.
type quotaStore struct{ repo *fakeAccountRepo }

func (q quotaStore) TryDecrementQuota(ctx context.Context, subjectId string, amount int) (bool, error) {
	return q.repo.TryDecrementQuota(ctx, subjectId, amount)
}

type recordingProvider struct {
	mu       sync.Mutex
	chunks   []llm.Chunk
	calls    int
	messages []llm.Message
}

func (p *recordingProvider) StreamChat(ctx context.Context, messages []llm.Message, _ ...llm.Option) (<-chan llm.Chunk, error) {
	p.mu.Lock()
	p.calls++
	p.messages = append([]llm.Message(nil), messages...)
	p.mu.Unlock()

	ch := make(chan llm.Chunk)
	go func() {
		defer close(ch)
		for _, c := range p.chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (p *recordingProvider) lastMessages() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages
}

func (p *recordingProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeSearcher struct {
	fragments []retriever.Fragment
	err       error
	calls     int
	filter    retriever.Filter
	query     string
}

func (s *fakeSearcher) SimilaritySearch(_ context.Context, query string, filter retriever.Filter, _ int) ([]retriever.Fragment, error) {
	s.calls++
	s.filter = filter
	s.query = query
	return s.fragments, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// waitLast returns the newest event's payload once one has been published.
// Usage events are published in the background.
func (p *recordingPublisher) waitLast(t *testing.T) map[string]interface{} {
	t.Helper()
	require.Eventually(t, func() bool { return p.count() > 0 }, time.Second, 5*time.Millisecond, "no usage event published")
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1].Payload()
}

type fakeContextStore struct {
	mu          sync.Mutex
	upserts     []string
	upsertErr   error
	deleteCalls int
	counted     []retriever.Filter
}

func (s *fakeContextStore) UpsertDocuments(_ context.Context, _, _, source string, chunks []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, source)
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	return len(chunks), nil
}

func (s *fakeContextStore) DeleteByFilter(_ context.Context, _ retriever.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	return 3, nil
}

func (s *fakeContextStore) CountByFilter(_ context.Context, filter retriever.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counted = append(s.counted, filter)
	return 7, nil
}

var errStore = errors.New("store unavailable")

func drain(ch <-chan string) []string {
	var items []string
	for item := range ch {
		items = append(items, item)
	}
	return items
}
