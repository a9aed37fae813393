package providers

import "time"

const groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider supports LLM generation via Groq's OpenAI-compatible API.
type GroqProvider struct {
	chatCompletionsClient
}

func NewGroqProvider(apiKey, model string, timeout time.Duration) *GroqProvider {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqProvider{newChatCompletionsClient("groq", groqEndpoint, apiKey, model, timeout)}
}
