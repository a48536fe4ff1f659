// Package stream adapts a provider's chunk stream into the outbound text
// stream: empty chunks dropped, failures reported in-band, never empty.
package stream

import (
	"context"
	"fmt"

	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/llm/router"
)

const (
	NoResponsePlaceholder = "No response generated"
	errorPrefix           = "Error: "
)

// ErrorItem renders a failure as an outbound item.
func ErrorItem(err error) string {
	return errorPrefix + err.Error()
}

// Summary describes how a stream ended.
type Summary struct {
	Forwarded   int
	Placeholder bool
	Err         error
	Cancelled   bool
}

type Responder struct {
	logger  logger.ILogger
	options []llm.Option
}

func NewResponder(log logger.ILogger, options ...llm.Option) *Responder {
	return &Responder{logger: log, options: options}
}

// Stream starts generation on binding and returns the outbound items. The
// channel always closes. Cancelling ctx stops generation and closes it
// without further items. onDone, when set, runs exactly once before close.
func (r *Responder) Stream(ctx context.Context, binding router.Binding, messages []llm.Message, onDone func(Summary)) <-chan string {
	out := make(chan string)

	go func() {
		ctx, cancel := context.WithCancel(ctx)
		var summary Summary
		defer func() {
			if p := recover(); p != nil {
				err := fmt.Errorf("provider panic: %v", p)
				r.logger.Error("STREAM", "Provider panicked", map[string]interface{}{"model": binding.Name, "error": err.Error()})
				summary.Err = err
				r.emit(ctx, out, ErrorItem(err))
			}
			cancel()
			if onDone != nil {
				onDone(summary)
			}
			close(out)
		}()

		chunks, err := binding.Provider.StreamChat(ctx, messages, r.options...)
		if err != nil {
			if ctx.Err() != nil {
				summary.Cancelled = true
				return
			}
			summary.Err = err
			r.logger.Warn("STREAM", "Provider failed to start", map[string]interface{}{"model": binding.Name, "error": err.Error()})
			r.emit(ctx, out, ErrorItem(err))
			return
		}

		for {
			select {
			case <-ctx.Done():
				summary.Cancelled = true
				return
			case chunk, ok := <-chunks:
				if !ok {
					if ctx.Err() != nil {
						summary.Cancelled = true
						return
					}
					if summary.Forwarded == 0 {
						summary.Placeholder = true
						r.emit(ctx, out, NoResponsePlaceholder)
					}
					return
				}
				if chunk.Err != nil {
					summary.Err = chunk.Err
					r.logger.Warn("STREAM", "Provider failed mid-stream", map[string]interface{}{
						"model":     binding.Name,
						"forwarded": summary.Forwarded,
						"error":     chunk.Err.Error(),
					})
					r.emit(ctx, out, ErrorItem(chunk.Err))
					return
				}
				if chunk.Delta == "" {
					continue
				}
				if !r.emit(ctx, out, chunk.Delta) {
					summary.Cancelled = true
					return
				}
				summary.Forwarded++
			}
		}
	}()

	return out
}

func (r *Responder) emit(ctx context.Context, out chan<- string, item string) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
