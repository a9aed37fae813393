package providers

import (
	"context"

	"paperforge/internal/models"
)

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type GenerateRequest struct {
	Kind   models.Kind             `json:"kind"`
	System string                  `json:"system"`
	Prompt string                  `json:"prompt"`
	Params models.GenerationParams `json:"params"`
}

// Usage is the token usage reported by the backend, when it reports any.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type GenerateResponse struct {
	Kind  models.Kind `json:"kind"`
	Text  string      `json:"text"`
	Usage *Usage      `json:"usage,omitempty"`
}

// LLMProvider calls one backend. Calls block until the backend answers or ctx
// is done; providers never retry.
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
}

// Configurable reports whether a provider has the credentials it needs.
type Configurable interface {
	Configured() bool
}
