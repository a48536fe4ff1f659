package entity

import "ai-agent-be/pkg/llm"

// ChatRequest is one chat turn after authentication. It is not mutated once
// the pipeline starts.
type ChatRequest struct {
	SubjectId  string
	Model      string
	Messages   []llm.Message
	ContextTag string
}

// Texts returns every message's content in order.
func (r *ChatRequest) Texts() []string {
	out := make([]string, len(r.Messages))
	for i, m := range r.Messages {
		out[i] = m.Content
	}
	return out
}
