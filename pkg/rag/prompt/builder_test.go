package prompt

import (
	"strings"
	"testing"

	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/rag/retriever"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: "caller system prompt"},
		{Role: llm.RoleUser, Content: "What is the capital?"},
		{Role: llm.RoleAssistant, Content: "Which country?"},
		{Role: llm.RoleUser, Content: "France"},
	}
}

func TestAnswerPrompt_WithContext(t *testing.T) {
	ctx := retriever.Context{Fragments: []retriever.Fragment{{Text: "Paris is the capital. "}, {Text: "It is in France."}}}
	history := sampleHistory()

	got := AnswerPrompt(history, ctx)

	require.Len(t, got, len(history)+1)
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.Contains(t, got[0].Content, "GIVEN CONTEXTS:\nParis is the capital. It is in France.")
	assert.Contains(t, got[0].Content, ContextCitation)
	assert.Contains(t, got[0].Content, KnowledgeCitation)
	assert.NotContains(t, got[0].Content, contextsPlaceholder)
	assert.NotContains(t, got[0].Content, NoContextMarker)

	if diff := cmp.Diff(history, got[1:]); diff != "" {
		t.Errorf("history changed (-want +got):\n%s", diff)
	}
}

func TestAnswerPrompt_EmptyContextIsExplicit(t *testing.T) {
	got := AnswerPrompt(sampleHistory(), retriever.Context{})

	system := got[0].Content
	assert.Contains(t, system, "GIVEN CONTEXTS:\n"+NoContextMarker)
	assert.Contains(t, system, "no grounding context is available")
	assert.Len(t, got, len(sampleHistory())+1)
}

func TestAnswerPrompt_WhitespaceContextCountsAsEmpty(t *testing.T) {
	got := AnswerPrompt(nil, retriever.Context{Fragments: []retriever.Fragment{{Text: "  \n"}}})
	assert.Contains(t, got[0].Content, NoContextMarker)
	assert.Len(t, got, 1)
}

func TestAnswerPrompt_Idempotent(t *testing.T) {
	ctx := retriever.Context{Fragments: []retriever.Fragment{{Text: "fact"}}}
	first := AnswerPrompt(sampleHistory(), ctx)
	second := AnswerPrompt(sampleHistory(), ctx)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestAnswerPrompt_DoesNotAliasCallerSlice(t *testing.T) {
	history := make([]llm.Message, 2, 10)
	history[0] = llm.Message{Role: llm.RoleUser, Content: "a"}
	history[1] = llm.Message{Role: llm.RoleUser, Content: "b"}

	got := AnswerPrompt(history, retriever.Context{})
	got[1].Content = "mutated"
	assert.Equal(t, "a", history[0].Content)
}

func TestAnswerPrompt_ContextWithBracesIsLiteral(t *testing.T) {
	ctx := retriever.Context{Fragments: []retriever.Fragment{{Text: "func main() { {contexts} }"}}}
	got := AnswerPrompt(nil, ctx)
	assert.Equal(t, 1, strings.Count(got[0].Content, "func main() { {contexts} }"))
}

func TestTitlePrompt(t *testing.T) {
	history := sampleHistory()
	got := TitlePrompt(history)

	require.Len(t, got, len(history)+1)
	assert.Equal(t, llm.RoleSystem, got[0].Role)
	assert.Contains(t, got[0].Content, "Title Case")
	assert.Contains(t, got[0].Content, "at most 8 words")
	assert.Contains(t, got[0].Content, "no punctuation")
	assert.Empty(t, cmp.Diff(history, got[1:]))
	assert.Empty(t, cmp.Diff(got, TitlePrompt(history)))
}
