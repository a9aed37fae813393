package activities

import "paperforge/internal/pipeline"

// Application error types carried across the workflow boundary. All of them
// are non-retryable.
const (
	ErrTypeInvalidInput        = "InvalidInput"
	ErrTypeInsufficientCredits = "InsufficientCredits"
	ErrTypeStoreUnavailable    = "StoreUnavailable"
	ErrTypeProviderUnavailable = "ProviderUnavailable"
	ErrTypeGenerationFailed    = "GenerationFailed"
)

type PreCheckInput struct {
	RequestID string       `json:"request_id,omitempty"`
	Job       pipeline.Job `json:"job"`
}

type SummarizeInput struct {
	RequestID string       `json:"request_id,omitempty"`
	Job       pipeline.Job `json:"job"`
}

type GenerateCodeInput struct {
	RequestID string                `json:"request_id,omitempty"`
	Job       pipeline.Job          `json:"job"`
	Summary   pipeline.SummaryStage `json:"summary"`
}

type SettleInput struct {
	RequestID string                `json:"request_id,omitempty"`
	Job       pipeline.Job          `json:"job"`
	Gate      pipeline.Gate         `json:"gate"`
	Summary   pipeline.SummaryStage `json:"summary"`
	Code      pipeline.CodeStage    `json:"code"`
}

type SettlePartialInput struct {
	RequestID string                `json:"request_id,omitempty"`
	Job       pipeline.Job          `json:"job"`
	Gate      pipeline.Gate         `json:"gate"`
	Summary   pipeline.SummaryStage `json:"summary"`
}

// SettlePartialOutput carries what was actually debited, 0 when the ledger
// write failed.
type SettlePartialOutput struct {
	Charged int64 `json:"charged"`
}

// InsufficientCreditsDetails is attached to InsufficientCredits errors.
type InsufficientCreditsDetails struct {
	Required  int64 `json:"required"`
	Available int64 `json:"available"`
}

// GenerationDetails is attached to ProviderUnavailable and GenerationFailed
// errors.
type GenerationDetails struct {
	Kind    string `json:"kind"`
	Charged int64  `json:"charged"`
}
