package workflows

import "paperforge/internal/pipeline"

type ProcessPaperInput struct {
	RequestID string       `json:"request_id,omitempty"`
	Job       pipeline.Job `json:"job"`
}

// ProcessStatus is what QueryGetProcessStatus returns while a paper runs.
type ProcessStatus struct {
	SessionID    string            `json:"session_id"`
	CurrentState pipeline.State    `json:"current_state"`
	Steps        map[string]string `json:"steps"`
	Charged      int64             `json:"charged"`
	FailReason   string            `json:"fail_reason,omitempty"`
}
