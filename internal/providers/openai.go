package providers

import "time"

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider uses the standard OpenAI chat completions API.
type OpenAIProvider struct {
	chatCompletionsClient
}

func NewOpenAIProvider(apiKey, model string, timeout time.Duration) *OpenAIProvider {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{newChatCompletionsClient("openai", openAIEndpoint, apiKey, model, timeout)}
}
