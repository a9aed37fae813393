package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// chatCompletionsClient speaks the OpenAI chat completions wire format, which
// Groq and Together expose as well.
type chatCompletionsClient struct {
	name     string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func newChatCompletionsClient(name, endpoint, apiKey, model string, timeout time.Duration) chatCompletionsClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return chatCompletionsClient{
		name:     name,
		endpoint: endpoint,
		apiKey:   strings.TrimSpace(apiKey),
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c chatCompletionsClient) info() ProviderInfo {
	return ProviderInfo{Name: c.name, Model: c.model}
}

func (c chatCompletionsClient) Configured() bool {
	return c.apiKey != ""
}

func (c chatCompletionsClient) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if c.apiKey == "" {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s api key missing: %w", c.name, ErrUnavailable)
	}
	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.Prompt})
	body := map[string]any{
		"model":    c.model,
		"messages": messages,
	}
	if req.Params.MaxTokens > 0 {
		body["max_tokens"] = req.Params.MaxTokens
	}
	if req.Params.Temperature != nil {
		body["temperature"] = *req.Params.Temperature
	}
	if req.Params.TopP != nil {
		body["top_p"] = *req.Params.TopP
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return GenerateResponse{}, c.info(), fmt.Errorf("marshal %s request: %w", c.name, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return GenerateResponse{}, c.info(), fmt.Errorf("new %s request: %w", c.name, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s generate request failed: %w", c.name, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s generate error %d: %s", c.name, resp.StatusCode, truncate(string(raw), 512))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return GenerateResponse{}, c.info(), fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return GenerateResponse{}, c.info(), fmt.Errorf("%s returned empty choices", c.name)
	}
	out := GenerateResponse{Kind: req.Kind, Text: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		out.Usage = &Usage{InputTokens: parsed.Usage.PromptTokens, OutputTokens: parsed.Usage.CompletionTokens}
	}
	return out, c.info(), nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
