package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled limits how fast new generations are started against one upstream.
type Throttled struct {
	next    StreamingProvider
	limiter *rate.Limiter
}

func NewThrottled(next StreamingProvider, perSecond float64, burst int) *Throttled {
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (t *Throttled) StreamChat(ctx context.Context, history []Message, options ...Option) (<-chan Chunk, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.next.StreamChat(ctx, history, options...)
}
