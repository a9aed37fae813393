package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"paperforge/internal/config"
	"paperforge/internal/models"
)

func TestChatCompletionsRequestAndResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer k1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewGroqProvider("k1", "", time.Second)
	p.endpoint = srv.URL
	resp, info, err := p.Generate(context.Background(), GenerateRequest{
		Kind:   models.KindSummary,
		System: "be brief",
		Prompt: "summarize",
		Params: models.GenerationParams{MaxTokens: 1024, Temperature: models.Float(0.6), TopP: models.Float(0.95)},
	})
	require.NoError(t, err)
	require.Equal(t, "hello", resp.Text)
	require.Equal(t, models.KindSummary, resp.Kind)
	require.Equal(t, &Usage{InputTokens: 12, OutputTokens: 3}, resp.Usage)
	require.Equal(t, "groq", info.Name)
	require.Equal(t, "llama-3.3-70b-versatile", info.Model)

	require.Equal(t, float64(1024), got["max_tokens"])
	require.Equal(t, 0.6, got["temperature"])
	require.Equal(t, 0.95, got["top_p"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	require.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestChatCompletionsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := NewTogetherProvider("k", "m", time.Second)
	p.endpoint = srv.URL
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	require.Equal(t, ErrorRate, ClassifyError(err))
}

func TestChatCompletionsMissingKey(t *testing.T) {
	p := NewOpenAIProvider("", "", time.Second)
	require.False(t, p.Configured())
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGoogleGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"))
		require.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		require.Empty(t, r.URL.RawQuery)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}],"usageMetadata":{"promptTokenCount":40,"candidatesTokenCount":9}}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("gk", "gemini-test", time.Second)
	p.baseURL = srv.URL
	resp, info, err := p.Generate(context.Background(), GenerateRequest{
		Kind:   models.KindCode,
		System: "emit json",
		Prompt: "projects please",
		Params: models.GenerationParams{MaxTokens: 2048, Temperature: models.Float(0.2), TopP: models.Float(0.9)},
	})
	require.NoError(t, err)
	require.Equal(t, "part one part two", resp.Text)
	require.Equal(t, &Usage{InputTokens: 40, OutputTokens: 9}, resp.Usage)
	require.Equal(t, ProviderInfo{Name: "google", Model: "gemini-test"}, info)

	genCfg := got["generationConfig"].(map[string]any)
	require.Equal(t, float64(2048), genCfg["maxOutputTokens"])
	require.Equal(t, 0.2, genCfg["temperature"])
	require.Contains(t, got, "systemInstruction")
}

func TestGoogleTransportErrorOmitsAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	p := NewGoogleProvider("secret-google-key", "gemini-test", time.Second)
	p.baseURL = srv.URL
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.Error(t, err)
	require.NotContains(t, err.Error(), "secret-google-key")
	require.Contains(t, err.Error(), "gemini-test:generateContent")
}

func TestExplicitZeroSamplingIsSent(t *testing.T) {
	var chat, gemini map[string]any
	chatSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chat))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer chatSrv.Close()
	geminiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gemini))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer geminiSrv.Close()

	req := GenerateRequest{Prompt: "x", Params: models.GenerationParams{Temperature: models.Float(0), TopP: models.Float(0)}}
	groq := NewGroqProvider("k", "", time.Second)
	groq.endpoint = chatSrv.URL
	_, _, err := groq.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, chat, "temperature")
	require.Equal(t, 0.0, chat["temperature"])
	require.Equal(t, 0.0, chat["top_p"])
	require.NotContains(t, chat, "max_tokens")

	google := NewGoogleProvider("gk", "", time.Second)
	google.baseURL = geminiSrv.URL
	_, _, err = google.Generate(context.Background(), req)
	require.NoError(t, err)
	genCfg := gemini["generationConfig"].(map[string]any)
	require.Equal(t, 0.0, genCfg["temperature"])
	require.Equal(t, 0.0, genCfg["topP"])
}

func TestUnsetSamplingIsOmitted(t *testing.T) {
	var chat map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chat))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	p := NewTogetherProvider("k", "m", time.Second)
	p.endpoint = srv.URL
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.NoError(t, err)
	require.NotContains(t, chat, "temperature")
	require.NotContains(t, chat, "top_p")
}

func TestGoogleBlockedPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[],"promptFeedback":{"blockReason":"SAFETY"}}`))
	}))
	defer srv.Close()

	p := NewGoogleProvider("gk", "", time.Second)
	p.baseURL = srv.URL
	_, _, err := p.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.ErrorContains(t, err, "SAFETY")
}

func TestGatewaySelectsFirstConfigured(t *testing.T) {
	cfg := config.Config{LLMProviders: "groq|google|mock", GoogleAPIKey: "g", LLMTimeout: time.Second}
	gw, err := NewGateway(cfg, nil)
	require.NoError(t, err)
	require.True(t, gw.Available())
	require.Equal(t, "google", gw.Name())
}

func TestGatewayModelOverride(t *testing.T) {
	cfg := config.Config{LLMProviders: "groq:llama-3.1-8b-instant", GroqAPIKey: "k", GroqModel: "other"}
	p, err := buildProvider(ParseProviderList(cfg.LLMProviders)[0], cfg)
	require.NoError(t, err)
	require.Equal(t, "llama-3.1-8b-instant", p.(*GroqProvider).model)
}

func TestGatewayUnavailable(t *testing.T) {
	gw, err := NewGateway(config.Config{LLMProviders: "groq|together"}, nil)
	require.NoError(t, err)
	require.False(t, gw.Available())
	require.Empty(t, gw.Name())
	_, _, err = gw.Generate(context.Background(), GenerateRequest{Prompt: "x"})
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestGatewayRejectsUnknownProvider(t *testing.T) {
	_, err := NewGateway(config.Config{LLMProviders: "claude"}, nil)
	require.ErrorContains(t, err, "unsupported provider")
}

func TestMockProviderShapes(t *testing.T) {
	gw := NewStaticGateway("mock", NewMockProvider())
	resp, info, err := gw.Generate(context.Background(), GenerateRequest{Kind: models.KindCode})
	require.NoError(t, err)
	require.Equal(t, "mock", info.Name)
	require.Contains(t, resp.Text, "codeImplementation")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = gw.Generate(ctx, GenerateRequest{Kind: models.KindChat})
	require.ErrorIs(t, err, context.Canceled)
}
