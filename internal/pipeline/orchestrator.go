package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"paperforge/internal/config"
	"paperforge/internal/metrics"
	"paperforge/internal/models"
	"paperforge/internal/pricing"
	"paperforge/internal/providers"
	"paperforge/internal/tokens"
)

// Generator is the provider gateway as seen by the pipeline.
type Generator interface {
	Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error)
}

type BalanceReader interface {
	Credits(ctx context.Context, userID string) (int64, error)
}

type MessageAppender interface {
	AppendMessage(ctx context.Context, msg *models.ChatMessage) error
}

// Ledger applies a debit, its credit log entry and any accompanying messages
// as one unit and returns the balance after the debit. It does not enforce
// overdraft protection.
type Ledger interface {
	Settle(ctx context.Context, s models.Settlement) (int64, error)
}

type CallRecorder interface {
	RecordCall(ctx context.Context, call models.LLMCall) error
}

type Settings struct {
	SummaryContentChars int
	CodeContentChars    int
	Params              map[models.Kind]models.GenerationParams
}

func DefaultSettings() Settings {
	return Settings{
		SummaryContentChars: 15000,
		CodeContentChars:    4000,
		Params: map[models.Kind]models.GenerationParams{
			models.KindSummary: {MaxTokens: 1024, Temperature: models.Float(0.6), TopP: models.Float(0.95)},
			models.KindCode:    {MaxTokens: 4096, Temperature: models.Float(0.2), TopP: models.Float(0.9)},
			models.KindChat:    {MaxTokens: 1024, Temperature: models.Float(0.5), TopP: models.Float(0.95)},
		},
	}
}

// SettingsFrom reads prompt sizes and generation parameters from cfg.
func SettingsFrom(cfg config.Config) Settings {
	s := DefaultSettings()
	if cfg.SummaryContentChars > 0 {
		s.SummaryContentChars = cfg.SummaryContentChars
	}
	if cfg.CodeContentChars > 0 {
		s.CodeContentChars = cfg.CodeContentChars
	}
	for _, k := range []models.Kind{models.KindSummary, models.KindCode, models.KindChat} {
		if p := cfg.Generation(k); p.MaxTokens > 0 {
			s.Params[k] = p
		}
	}
	return s
}

type Deps struct {
	Gateway  Generator
	Counter  tokens.Counter
	Pricing  pricing.Model
	Balances BalanceReader
	Messages MessageAppender
	Ledger   Ledger
	Calls    CallRecorder
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Settings Settings
	Now      func() time.Time
	NewID    func() string
	// Observe, when set, is called on every state transition.
	Observe func(job Job, s State)
}

// Orchestrator runs the credit-metered paper pipeline. It holds no per-request
// state and is safe for concurrent use.
type Orchestrator struct {
	gateway  Generator
	counter  tokens.Counter
	pricing  pricing.Model
	balances BalanceReader
	messages MessageAppender
	ledger   Ledger
	calls    CallRecorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
	settings Settings
	now      func() time.Time
	newID    func() string
	observe  func(job Job, s State)
}

func New(d Deps) *Orchestrator {
	if d.Counter == nil {
		d.Counter = tokens.Heuristic{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Settings.Params == nil {
		d.Settings.Params = DefaultSettings().Params
	}
	return &Orchestrator{
		gateway:  d.Gateway,
		counter:  d.Counter,
		pricing:  d.Pricing,
		balances: d.Balances,
		messages: d.Messages,
		ledger:   d.Ledger,
		calls:    d.Calls,
		metrics:  d.Metrics,
		logger:   d.Logger.With(zap.String("component", "pipeline")),
		settings: d.Settings,
		now:      d.Now,
		newID:    d.NewID,
		observe:  d.Observe,
	}
}

// generation is one provider call with its measured token counts.
type generation struct {
	Raw          string
	InputTokens  int
	OutputTokens int
	Provider     providers.ProviderInfo
}

func (o *Orchestrator) countPrompt(system, prompt string) int {
	return o.counter.Count(system) + o.counter.Count(prompt)
}

func (o *Orchestrator) generate(ctx context.Context, userID, sessionID string, kind models.Kind, system, prompt string) (generation, error) {
	if o.gateway == nil {
		return generation{}, providers.ErrUnavailable
	}
	req := providers.GenerateRequest{Kind: kind, System: system, Prompt: prompt, Params: o.settings.Params[kind]}
	start := time.Now()
	resp, info, err := o.gateway.Generate(ctx, req)
	elapsed := time.Since(start)

	g := generation{Raw: resp.Text, InputTokens: o.countPrompt(system, prompt), Provider: info}
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		g.OutputTokens = o.counter.Count(resp.Text)
	}
	o.metrics.ObserveGeneration(info.Name, string(kind), status, elapsed)
	call := models.LLMCall{
		UserID:       userID,
		SessionID:    sessionID,
		Kind:         kind,
		ProviderName: info.Name,
		Model:        info.Model,
		RequestID:    RequestIDFrom(ctx),
		Status:       status,
		ErrorType:    string(providers.ClassifyError(err)),
		InputTokens:  g.InputTokens,
		OutputTokens: g.OutputTokens,
		LatencyMs:    elapsed.Milliseconds(),
	}
	if err == nil && resp.Usage != nil {
		call.ProviderInputTokens = resp.Usage.InputTokens
		call.ProviderOutputTokens = resp.Usage.OutputTokens
	}
	o.recordCall(ctx, call)
	if err != nil {
		o.logger.Warn("generation failed",
			zap.String("kind", string(kind)),
			zap.String("provider", info.Name),
			zap.String("error_type", string(providers.ClassifyError(err))),
			zap.Error(err))
		return g, err
	}
	return g, nil
}

func (o *Orchestrator) recordCall(ctx context.Context, call models.LLMCall) {
	if o.calls == nil {
		return
	}
	call.CallID = o.newID()
	call.CreatedAt = o.now()
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := o.calls.RecordCall(ctx, call); err != nil {
		o.metrics.StoreFailure("record_call")
		o.logger.Error("record llm call failed", zap.Error(err))
	}
}

// persistTimeout bounds store writes made after a provider has been paid.
const persistTimeout = 15 * time.Second

// persistContext detaches ctx from its caller's cancellation so a client
// disconnect cannot skip the debit or the records of a paid call. Values such
// as the request id are kept.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

type requestIDKey struct{}

// WithRequestID tags ctx so LLM call records can be joined to HTTP requests.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
