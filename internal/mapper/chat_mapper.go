package mapper

import (
	"strings"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/entity"
	"ai-agent-be/pkg/llm"
)

// DefaultGreeting stands in for an empty conversation so the model always
// has a user turn to answer.
const DefaultGreeting = "Hi"

// ToChatRequest builds the immutable pipeline request. ragTag is accepted as
// an alias of contextTag.
func ToChatRequest(subjectId string, req *dto.ChatRequestDTO) *entity.ChatRequest {
	messages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llm.Message{
			Role:    llm.ParseRole(strings.ToLower(strings.TrimSpace(m.Role))),
			Content: m.Content,
		})
	}
	if len(messages) == 0 {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: DefaultGreeting})
	}

	tag := strings.TrimSpace(req.ContextTag)
	if tag == "" {
		tag = strings.TrimSpace(req.RagTag)
	}

	return &entity.ChatRequest{
		SubjectId:  subjectId,
		Model:      strings.TrimSpace(req.Model),
		Messages:   messages,
		ContextTag: tag,
	}
}
