package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"paperforge/internal/config"
)

// Gateway hides which backend serves generation. The backend is chosen once,
// at construction, as the first entry of LLM_PROVIDERS that has credentials.
type Gateway struct {
	ref      ProviderRef
	provider LLMProvider
}

func NewGateway(cfg config.Config, logger *zap.Logger) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	refs := ParseProviderList(cfg.LLMProviders)
	for _, ref := range refs {
		p, err := buildProvider(ref, cfg)
		if err != nil {
			return nil, err
		}
		if c, ok := p.(Configurable); ok && !c.Configured() {
			logger.Info("llm provider skipped: not configured", zap.String("provider", ref.Name))
			continue
		}
		logger.Info("llm provider selected", zap.String("provider", ref.Name))
		return &Gateway{ref: ref, provider: p}, nil
	}
	logger.Warn("no llm provider configured; generation requests will fail")
	return &Gateway{}, nil
}

// NewStaticGateway wraps a single provider.
func NewStaticGateway(name string, p LLMProvider) *Gateway {
	return &Gateway{ref: ProviderRef{Raw: name, Name: name}, provider: p}
}

func (g *Gateway) Available() bool {
	return g != nil && g.provider != nil
}

// Name returns the selected backend, or "" when none is available.
func (g *Gateway) Name() string {
	if !g.Available() {
		return ""
	}
	return g.ref.Name
}

func (g *Gateway) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if !g.Available() {
		return GenerateResponse{}, ProviderInfo{}, ErrUnavailable
	}
	return g.provider.Generate(ctx, req)
}

func buildProvider(ref ProviderRef, cfg config.Config) (LLMProvider, error) {
	pick := func(configured string) string {
		if ref.Model != "" {
			return ref.Model
		}
		return configured
	}
	switch ref.Name {
	case "groq":
		return NewGroqProvider(cfg.GroqAPIKey, pick(cfg.GroqModel), cfg.LLMTimeout), nil
	case "google", "gemini":
		return NewGoogleProvider(cfg.GoogleAPIKey, pick(cfg.GoogleModel), cfg.LLMTimeout), nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, pick(cfg.OpenAIModel), cfg.LLMTimeout), nil
	case "together":
		return NewTogetherProvider(cfg.TogetherKey, pick(cfg.TogetherModel), cfg.LLMTimeout), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", ref.Name)
	}
}
