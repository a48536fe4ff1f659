package dto

type ContextTagsResponse struct {
	Tags  []string `json:"tags"`
	Limit int      `json:"limit"`
}

type ContextSummaryResponse struct {
	RagTag string `json:"ragTag"`
	Chunks int64  `json:"chunks"`
}

type UploadContextRequest struct {
	RagTag string `form:"ragTag" validate:"required,max=64,excludesall=/"`
}

type UploadContextResponse struct {
	RagTag    string   `json:"ragTag"`
	Documents []string `json:"documents"`
	Chunks    int      `json:"chunks"`
}

type QuotaResponse struct {
	SubjectId      string   `json:"subjectId"`
	QuotaTotal     int      `json:"quotaTotal"`
	QuotaRemaining int      `json:"quotaRemaining"`
	Status         string   `json:"status"`
	AllowedModels  []string `json:"allowedModels"`
}

// UsageEventMessage is the payload consumed from the usage topic.
type UsageEventMessage struct {
	RunId      string `json:"run_id"`
	Kind       string `json:"kind"`
	SubjectId  string `json:"subject_id"`
	Requested  string `json:"requested_model"`
	Resolved   string `json:"resolved_model"`
	Fallback   bool   `json:"fallback"`
	FinalState string `json:"final_state"`
	BlockCode  string `json:"block_code,omitempty"`
	Items      int    `json:"items"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Payload flattens the message for the event bus using the JSON field names.
func (m UsageEventMessage) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"run_id":          m.RunId,
		"kind":            m.Kind,
		"subject_id":      m.SubjectId,
		"requested_model": m.Requested,
		"resolved_model":  m.Resolved,
		"fallback":        m.Fallback,
		"final_state":     m.FinalState,
		"items":           m.Items,
		"duration_ms":     m.DurationMs,
	}
	if m.BlockCode != "" {
		payload["block_code"] = m.BlockCode
	}
	if m.Error != "" {
		payload["error"] = m.Error
	}
	return payload
}

// AdjustQuotaRequest grants additional quota to a subject.
type AdjustQuotaRequest struct {
	Amount int `json:"amount" validate:"required,gt=0,lte=1000000"`
}

type AdjustQuotaResponse struct {
	SubjectId      string `json:"subjectId"`
	QuotaTotal     int    `json:"quotaTotal"`
	QuotaRemaining int    `json:"quotaRemaining"`
}

type UpdateAccountStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active disabled"`
}
