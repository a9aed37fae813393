package providers

import "time"

const togetherEndpoint = "https://api.together.xyz/v1/chat/completions"

// TogetherProvider targets Together AI, which hosts the Llama and DeepSeek
// instruct models behind an OpenAI-compatible endpoint.
type TogetherProvider struct {
	chatCompletionsClient
}

func NewTogetherProvider(apiKey, model string, timeout time.Duration) *TogetherProvider {
	if model == "" {
		model = "meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"
	}
	return &TogetherProvider{newChatCompletionsClient("together", togetherEndpoint, apiKey, model, timeout)}
}
