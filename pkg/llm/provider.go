package llm

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole maps wire roles onto the three known roles. Anything unknown is
// treated as a user turn.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystem, RoleAssistant:
		return Role(s)
	default:
		return RoleUser
	}
}

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    Role
	Content string
}

// Chunk is one increment of a streamed completion. A chunk carrying Err is
// always the last one sent.
type Chunk struct {
	Delta string
	Err   error
}

// RecoverStream turns a panic in a provider's stream goroutine into a final
// error chunk. Defer it after close(out) so it runs first.
func RecoverStream(ctx context.Context, out chan<- Chunk) {
	if p := recover(); p != nil {
		select {
		case out <- Chunk{Err: fmt.Errorf("provider panic: %v", p)}:
		case <-ctx.Done():
		}
	}
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func ApplyOptions(options ...Option) Options {
	o := Options{Temperature: 0.7}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// StreamingProvider is the contract every model backend implements.
//
// StreamChat starts generation and returns a channel of chunks. The channel is
// closed when generation finishes, fails or ctx is cancelled. Implementations
// must stop sending once ctx is done.
type StreamingProvider interface {
	StreamChat(ctx context.Context, history []Message, options ...Option) (<-chan Chunk, error)
}
