// Package prompt assembles the final message lists sent to a model.
package prompt

import (
	"strings"

	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/rag/retriever"
)

// AnswerPrompt prepends the citation policy, with the retrieved context
// substituted, to the caller's history. The history is copied and never
// reordered or trimmed.
func AnswerPrompt(history []llm.Message, ctx retriever.Context) []llm.Message {
	contexts := ctx.Text()
	if strings.TrimSpace(contexts) == "" {
		contexts = NoContextMarker
	}
	system := strings.Replace(answerTemplate, contextsPlaceholder, contexts, 1)
	return withSystem(system, history)
}

// TitlePrompt asks for a short conversation title. It uses no retrieval.
func TitlePrompt(history []llm.Message) []llm.Message {
	return withSystem(titleInstruction, history)
}

func withSystem(system string, history []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history)+1)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: system})
	return append(out, history...)
}
