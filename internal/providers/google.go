package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleProvider calls the Gemini generateContent REST endpoint.
type GoogleProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewGoogleProvider(apiKey, model string, timeout time.Duration) *GoogleProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &GoogleProvider{
		baseURL: googleBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *GoogleProvider) info() ProviderInfo {
	return ProviderInfo{Name: "google", Model: p.model}
}

func (p *GoogleProvider) Configured() bool {
	return p.apiKey != ""
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (p *GoogleProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if p.apiKey == "" {
		return GenerateResponse{}, p.info(), fmt.Errorf("google api key missing: %w", ErrUnavailable)
	}
	genCfg := map[string]any{}
	if req.Params.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.Params.MaxTokens
	}
	if req.Params.Temperature != nil {
		genCfg["temperature"] = *req.Params.Temperature
	}
	if req.Params.TopP != nil {
		genCfg["topP"] = *req.Params.TopP
	}
	body := map[string]any{
		"contents":         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}},
		"generationConfig": genCfg,
	}
	if strings.TrimSpace(req.System) != "" {
		body["systemInstruction"] = geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("marshal google request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(p.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("new google request: %w", err)
	}
	// Header, not query: url.Error messages carry the full URL.
	httpReq.Header.Set("x-goog-api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("google generate request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return GenerateResponse{}, p.info(), fmt.Errorf("google generate error %d: %s", resp.StatusCode, truncate(string(raw), 512))
	}
	var parsed struct {
		Candidates []struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback *struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
		UsageMetadata *struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("decode google response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
			return GenerateResponse{}, p.info(), fmt.Errorf("google blocked prompt: %s", parsed.PromptFeedback.BlockReason)
		}
		return GenerateResponse{}, p.info(), fmt.Errorf("google returned empty candidates")
	}
	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	out := GenerateResponse{Kind: req.Kind, Text: sb.String()}
	if parsed.UsageMetadata != nil {
		out.Usage = &Usage{InputTokens: parsed.UsageMetadata.PromptTokenCount, OutputTokens: parsed.UsageMetadata.CandidatesTokenCount}
	}
	return out, p.info(), nil
}
