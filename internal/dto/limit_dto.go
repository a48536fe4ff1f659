package dto

import "fmt"

// LimitExceededError is returned when a per-subject resource cap would be
// exceeded. Nothing is written when it is returned.
type LimitExceededError struct {
	Code  string `json:"code"`
	Limit int    `json:"limit"`
	Used  int    `json:"used"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: limit of %d reached", e.Code, e.Limit)
}

// LimitExceededData is the data payload for 429 responses
type LimitExceededData struct {
	Limit int `json:"limit"`
	Used  int `json:"used"`
}

type LimitExceededResponse struct {
	Success   bool              `json:"success"`
	Code      int               `json:"code"`
	Message   string            `json:"message"`
	ErrorType string            `json:"error_type"`
	Data      LimitExceededData `json:"data"`
}
