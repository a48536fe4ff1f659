// Package rule implements the ordered, short-circuiting checks that gate every
// chat request before any model is called.
package rule

import (
	"context"
	"errors"
	"fmt"

	"ai-agent-be/internal/entity"
)

// Rule codes.
const (
	CodeNull          = "NULL"
	CodeAccessLimit   = "ACCESS_LIMIT"
	CodeSensitiveWord = "SENSITIVE_WORD"
	CodeUserQuota     = "USER_QUOTA"
	CodeModelType     = "MODEL_TYPE"
	CodeAccountStatus = "ACCOUNT_STATUS"
)

type OutcomeType int

const (
	Pass OutcomeType = iota
	Blocked
)

func (t OutcomeType) String() string {
	if t == Blocked {
		return "BLOCKED"
	}
	return "PASS"
}

type Outcome struct {
	Type    OutcomeType
	Request *entity.ChatRequest
	Code    string
	Message string
}

func Passed(req *entity.ChatRequest) Outcome {
	return Outcome{Type: Pass, Request: req}
}

func Block(code, message string) Outcome {
	return Outcome{Type: Blocked, Code: code, Message: message}
}

func (o Outcome) IsBlocked() bool { return o.Type == Blocked }

// String is the text sent to the caller when the request is blocked.
func (o Outcome) String() string {
	if o.Type == Pass {
		return o.Type.String()
	}
	return fmt.Sprintf("%s: %s", o.Code, o.Message)
}

// Rule checks one aspect of a request. Returning an error means the rule
// could not reach a verdict, which is different from blocking.
type Rule interface {
	Code() string
	Evaluate(ctx context.Context, req *entity.ChatRequest, account *entity.Account) (Outcome, error)
}

// Consumer marks rules that change external state when they pass, such as a
// quota decrement. They must run after every non-consuming rule.
type Consumer interface {
	ConsumesResource() bool
}

// Committer marks rules whose side effect is applied only once the whole
// chain has passed. A request blocked by any rule never reaches Commit.
type Committer interface {
	Commit(ctx context.Context, req *entity.ChatRequest) error
}

func consumes(r Rule) bool {
	c, ok := r.(Consumer)
	return ok && c.ConsumesResource()
}

var (
	ErrUnknownRule   = errors.New("rule: unknown rule code")
	ErrConsumerOrder = errors.New("rule: resource consuming rule must run after all other rules")
	ErrNoAccount     = errors.New("rule: account required but not loaded")
)

// FaultError wraps a failure inside a rule. It is an internal fault, never a
// blocked outcome.
type FaultError struct {
	Code string
	Err  error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("rule %s failed: %v", e.Code, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }
