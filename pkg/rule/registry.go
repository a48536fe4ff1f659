package rule

import (
	"context"
	"fmt"

	"ai-agent-be/internal/entity"
)

// Registry holds every known rule by code. It is built once at startup and
// read-only afterwards.
type Registry struct {
	rules map[string]Rule
}

func NewRegistry(rules ...Rule) (*Registry, error) {
	m := make(map[string]Rule, len(rules))
	for _, r := range rules {
		code := r.Code()
		if _, dup := m[code]; dup {
			return nil, fmt.Errorf("rule: duplicate code %s", code)
		}
		m[code] = r
	}
	return &Registry{rules: m}, nil
}

// Validate checks that every code is registered and that consuming rules come
// last.
func (r *Registry) Validate(codes ...string) error {
	_, err := r.lookup(codes)
	return err
}

func (r *Registry) lookup(codes []string) ([]Rule, error) {
	chain := make([]Rule, 0, len(codes))
	seenConsumer := ""
	for _, code := range codes {
		rl, ok := r.rules[code]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, code)
		}
		if consumes(rl) {
			seenConsumer = code
		} else if seenConsumer != "" {
			return nil, fmt.Errorf("%w: %s is listed after %s", ErrConsumerOrder, code, seenConsumer)
		}
		chain = append(chain, rl)
	}
	return chain, nil
}

// Evaluate runs the rules named by codes in order and returns the first
// blocked outcome. Later rules are not run once one blocks. When every rule
// passes, committing rules apply their side effects in chain order. With no
// codes the request passes unchanged.
func (r *Registry) Evaluate(ctx context.Context, req *entity.ChatRequest, account *entity.Account, codes ...string) (Outcome, error) {
	chain, err := r.lookup(codes)
	if err != nil {
		return Outcome{}, err
	}

	for _, rl := range chain {
		outcome, err := rl.Evaluate(ctx, req, account)
		if err != nil {
			return Outcome{}, &FaultError{Code: rl.Code(), Err: err}
		}
		if outcome.IsBlocked() {
			if outcome.Code == "" {
				outcome.Code = rl.Code()
			}
			return outcome, nil
		}
	}

	for _, rl := range chain {
		if c, ok := rl.(Committer); ok {
			if err := c.Commit(ctx, req); err != nil {
				return Outcome{}, &FaultError{Code: rl.Code(), Err: err}
			}
		}
	}
	return Passed(req), nil
}

// NeedsAccount reports whether any rule in codes reads the account.
func (r *Registry) NeedsAccount(codes ...string) bool {
	for _, code := range codes {
		if rl, ok := r.rules[code]; ok {
			if na, ok := rl.(interface{ NeedsAccount() bool }); ok && na.NeedsAccount() {
				return true
			}
		}
	}
	return false
}
