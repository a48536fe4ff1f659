package dto

type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content" validate:"max=65536"`
}

// ChatRequestDTO is the body of the streaming chat endpoints.
type ChatRequestDTO struct {
	Model      string       `json:"model" validate:"max=64"`
	Messages   []MessageDTO `json:"messages" validate:"max=200,dive"`
	RagTag     string       `json:"ragTag" validate:"max=64"`
	ContextTag string       `json:"contextTag" validate:"max=64"`
}

// ChatSocketRequest is one turn sent over the websocket endpoint.
type ChatSocketRequest struct {
	ChatRequestDTO
	Mode string `json:"mode" validate:"omitempty,oneof=answer title"`
}

const (
	ChatModeAnswer = "answer"
	ChatModeTitle  = "title"
)

// Terminal stream items that are not produced by a model.
const (
	TokenErrorCode   = "TOKEN_ERROR"
	UnknownErrorCode = "UN_ERROR"
	StreamDoneMarker = "[DONE]"
)
