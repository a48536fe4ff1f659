package rule

import (
	"context"
	"errors"
	"testing"

	"ai-agent-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyRule struct {
	code     string
	outcome  OutcomeType
	err      error
	consumes bool
	calls    int
}

type committingSpy struct {
	spyRule
	commitErr error
	commits   int
}

func (s *committingSpy) Commit(context.Context, *entity.ChatRequest) error {
	s.commits++
	return s.commitErr
}

func (s *spyRule) Code() string           { return s.code }
func (s *spyRule) ConsumesResource() bool { return s.consumes }

func (s *spyRule) Evaluate(_ context.Context, req *entity.ChatRequest, _ *entity.Account) (Outcome, error) {
	s.calls++
	if s.err != nil {
		return Outcome{}, s.err
	}
	if s.outcome == Blocked {
		return Block("", "spy says no"), nil
	}
	return Passed(req), nil
}

func testRequest() *entity.ChatRequest {
	return &entity.ChatRequest{SubjectId: "u1", Model: "glm:4flash"}
}

func TestEvaluate_EmptyChainPassesRequestThrough(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)

	req := testRequest()
	out, err := reg.Evaluate(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, Pass, out.Type)
	assert.Same(t, req, out.Request)
}

func TestEvaluate_ShortCircuitsOnFirstBlock(t *testing.T) {
	first := &spyRule{code: "A", outcome: Pass}
	blocker := &spyRule{code: "B", outcome: Blocked}
	later := &spyRule{code: "C", outcome: Pass}
	reg, err := NewRegistry(first, blocker, later)
	require.NoError(t, err)

	out, err := reg.Evaluate(context.Background(), testRequest(), nil, "A", "B", "C")
	require.NoError(t, err)
	assert.True(t, out.IsBlocked())
	assert.Equal(t, "B", out.Code, "empty block code is filled with the rule code")
	assert.Equal(t, "B: spy says no", out.String())

	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, blocker.calls)
	assert.Zero(t, later.calls)
}

func TestEvaluate_FollowsCallerOrder(t *testing.T) {
	a := &spyRule{code: "A", outcome: Blocked}
	b := &spyRule{code: "B", outcome: Blocked}
	reg, err := NewRegistry(a, b)
	require.NoError(t, err)

	out, err := reg.Evaluate(context.Background(), testRequest(), nil, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, "B", out.Code)
	assert.Zero(t, a.calls)
}

func TestEvaluate_RuleErrorIsFaultNotBlock(t *testing.T) {
	boom := errors.New("store down")
	reg, err := NewRegistry(&spyRule{code: "A", err: boom})
	require.NoError(t, err)

	_, err = reg.Evaluate(context.Background(), testRequest(), nil, "A")
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "A", fault.Code)
	assert.ErrorIs(t, err, boom)
}

func TestEvaluate_UnknownCode(t *testing.T) {
	reg, err := NewRegistry(&spyRule{code: "A"})
	require.NoError(t, err)

	_, err = reg.Evaluate(context.Background(), testRequest(), nil, "A", "NOPE")
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestEvaluate_ConsumerMustRunLast(t *testing.T) {
	quota := &spyRule{code: "Q", consumes: true}
	check := &spyRule{code: "A"}
	reg, err := NewRegistry(quota, check)
	require.NoError(t, err)

	_, err = reg.Evaluate(context.Background(), testRequest(), nil, "Q", "A")
	assert.ErrorIs(t, err, ErrConsumerOrder)
	assert.Zero(t, quota.calls, "nothing runs when the order is invalid")
	assert.Zero(t, check.calls)

	assert.NoError(t, reg.Validate("A", "Q"))
	assert.ErrorIs(t, reg.Validate("Q", "A"), ErrConsumerOrder)
}

func TestNewRegistry_DuplicateCode(t *testing.T) {
	_, err := NewRegistry(&spyRule{code: "A"}, &spyRule{code: "A"})
	assert.Error(t, err)
}

func TestNeedsAccount(t *testing.T) {
	reg, err := NewRegistry(NullRule{}, AccountStatusRule{}, NewSensitiveWordRule(nil))
	require.NoError(t, err)

	assert.False(t, reg.NeedsAccount(CodeNull, CodeSensitiveWord))
	assert.True(t, reg.NeedsAccount(CodeNull, CodeAccountStatus))
	assert.False(t, reg.NeedsAccount())
}

func TestEvaluate_CommitRunsOnlyWhenChainPasses(t *testing.T) {
	counting := &committingSpy{spyRule: spyRule{code: "A"}}
	blocker := &spyRule{code: "B", outcome: Blocked}
	passer := &spyRule{code: "C"}
	reg, err := NewRegistry(counting, blocker, passer)
	require.NoError(t, err)

	out, err := reg.Evaluate(context.Background(), testRequest(), nil, "A", "B")
	require.NoError(t, err)
	assert.True(t, out.IsBlocked())
	assert.Zero(t, counting.commits)

	out, err = reg.Evaluate(context.Background(), testRequest(), nil, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, Pass, out.Type)
	assert.Equal(t, 1, counting.commits)
}

func TestEvaluate_CommitFailureIsFault(t *testing.T) {
	boom := errors.New("counter down")
	reg, err := NewRegistry(&committingSpy{spyRule: spyRule{code: "A"}, commitErr: boom})
	require.NoError(t, err)

	_, err = reg.Evaluate(context.Background(), testRequest(), nil, "A")
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "A", fault.Code)
	assert.ErrorIs(t, err, boom)
}
