// Package openai streams chat completions from OpenAI-style APIs with the
// go-openai client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ai-agent-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

type Provider struct {
	client *goopenai.Client
	model  string
}

var _ llm.StreamingProvider = &Provider{}

func NewProvider(baseURL, model, apiKey string) *Provider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: goopenai.NewClientWithConfig(cfg), model: model}
}

func toChatMessages(history []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, len(history))
	for i, msg := range history {
		role := goopenai.ChatMessageRoleUser
		switch msg.Role {
		case llm.RoleSystem:
			role = goopenai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			role = goopenai.ChatMessageRoleAssistant
		}
		out[i] = goopenai.ChatCompletionMessage{Role: role, Content: msg.Content}
	}
	return out
}

func (p *Provider) StreamChat(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan llm.Chunk, error) {
	options := llm.ApplyOptions(opts...)
	req := goopenai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toChatMessages(history),
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		Stream:      true,
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start completion stream: %w", err)
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		defer llm.RecoverStream(ctx, out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					select {
					case out <- llm.Chunk{Err: err}:
					case <-ctx.Done():
					}
				}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				select {
				case out <- llm.Chunk{Delta: choice.Delta.Content}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
