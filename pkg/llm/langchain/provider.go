// Package langchain adapts langchaingo models to llm.StreamingProvider.
package langchain

import (
	"context"
	"fmt"
	"strings"

	"ai-agent-be/pkg/llm"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type Provider struct {
	model llms.Model
}

var _ llm.StreamingProvider = &Provider{}

func New(model llms.Model) *Provider {
	return &Provider{model: model}
}

// NewOpenAICompatible targets any endpoint speaking the OpenAI chat API
// (GLM, DashScope and similar).
func NewOpenAICompatible(baseURL, model, apiKey string) (*Provider, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai-compatible model %s: %w", model, err)
	}
	return New(m), nil
}

func NewOllama(baseURL, model string) (*Provider, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	m, err := ollama.New(ollama.WithServerURL(baseURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("create ollama model %s: %w", model, err)
	}
	return New(m), nil
}

func toMessageContent(history []llm.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history))
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, msg.Content))
	}
	return out
}

func (p *Provider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Chunk, error) {
	options := llm.ApplyOptions(opts...)
	messages := toMessageContent(history)

	callOpts := []llms.CallOption{llms.WithTemperature(options.Temperature)}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer llm.RecoverStream(ctx, out)

		streamed := false
		callOpts = append(callOpts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed = true
			select {
			case out <- llm.Chunk{Delta: string(chunk)}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))

		resp, err := p.model.GenerateContent(ctx, messages, callOpts...)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			select {
			case out <- llm.Chunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		// Some backends ignore the streaming callback and only return the
		// final content.
		if !streamed && resp != nil && len(resp.Choices) > 0 {
			var sb strings.Builder
			for _, choice := range resp.Choices {
				sb.WriteString(choice.Content)
			}
			select {
			case out <- llm.Chunk{Delta: sb.String()}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}
