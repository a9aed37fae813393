package providers

import (
	"context"
	"fmt"
	"strings"

	"paperforge/internal/models"
)

// MockProvider returns deterministic output shaped like a real backend's, for
// local runs without API keys. It is only selected when LLM_PROVIDERS names it.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Configured() bool { return true }

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return GenerateResponse{}, ProviderInfo{Name: "mock", Model: "mock-llm-v1"}, err
	}
	var text string
	switch req.Kind {
	case models.KindSummary:
		text = "<think>reading the paper</think>Here is the summary:\n" +
			"The paper presents a deterministic mock result.\n\n" +
			"Key Points:\n- Mock point one\n- Mock point two\n- Mock point three"
	case models.KindCode:
		text = "```json\n" + `[{"title":"Mock Project","description":"Reproduce the core idea of the paper.","difficulty":"Beginner","language":"Python","codeImplementation":[{"filename":"main.py","code":"print('hello from mock')\n"}]}]` + "\n```"
	default:
		text = fmt.Sprintf("Mock reply (%d chars of prompt).", len(strings.TrimSpace(req.Prompt)))
	}
	return GenerateResponse{Kind: req.Kind, Text: text}, ProviderInfo{Name: "mock", Model: "mock-llm-v1"}, nil
}
