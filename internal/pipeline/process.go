package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/llmtext"
	"paperforge/internal/models"
	"paperforge/internal/pricing"
)

type State string

const (
	StateEstimatingCost           State = "estimating_cost"
	StateCheckingBalance          State = "checking_balance"
	StateGeneratingSummary        State = "generating_summary"
	StateSanitizingSummary        State = "sanitizing_summary"
	StateGeneratingCode           State = "generating_code"
	StateSanitizingAndParsingCode State = "sanitizing_and_parsing_code"
	StateReconciling              State = "reconciling"
	StatePersisting               State = "persisting"
	StateDone                     State = "done"
	StateFailed                   State = "failed"
)

const (
	reasonPaper       = "paper processing: summary and code suggestions"
	reasonSummaryOnly = "summary only; code generation failed"
	reasonChat        = "chat turn"
)

// Job identifies one paper-processing request. It is JSON-safe so it can be
// carried through workflow history.
type Job struct {
	UserID    string              `json:"user_id"`
	SessionID string              `json:"session_id"`
	Paper     models.PaperContent `json:"paper"`
}

// Quote is the pre-check estimate. The code estimate uses a placeholder
// summary and adds the assumed summary output to its input tokens.
type Quote struct {
	Summary pricing.CostEstimate `json:"summary"`
	Code    pricing.CostEstimate `json:"code"`
	Total   int64                `json:"total"`
}

type Gate struct {
	Quote   Quote `json:"quote"`
	Balance int64 `json:"balance"`
}

type SummaryStage struct {
	Text      string               `json:"text"`
	Summary   string               `json:"summary"`
	KeyPoints []string             `json:"key_points"`
	Cost      pricing.CostEstimate `json:"cost"`
	MessageID string               `json:"message_id"`
}

type CodeStage struct {
	Projects    []models.ProjectSuggestion `json:"projects"`
	Degraded    bool                       `json:"degraded"`
	ParseReason string                     `json:"parse_reason,omitempty"`
	Cost        pricing.CostEstimate       `json:"cost"`
	Message     models.ChatMessage         `json:"message"`
}

type Result struct {
	SessionID          string                     `json:"sessionId"`
	Summary            string                     `json:"summary"`
	KeyPoints          []string                   `json:"keyPoints"`
	ProjectSuggestions []models.ProjectSuggestion `json:"projectSuggestions"`
	CreditsCharged     int64                      `json:"creditsCharged"`
	CreditsRemaining   int64                      `json:"creditsRemaining"`
	Breakdown          map[models.Kind]int64      `json:"breakdown"`
	Overdraft          bool                       `json:"-"`
}

func (o *Orchestrator) transition(job Job, s State) {
	o.logger.Debug("pipeline state",
		zap.String("user_id", job.UserID),
		zap.String("session_id", job.SessionID),
		zap.String("state", string(s)))
	if o.observe != nil {
		o.observe(job, s)
	}
}

// Process runs the whole pipeline inline.
func (o *Orchestrator) Process(ctx context.Context, job Job) (Result, error) {
	gate, err := o.PreCheck(ctx, job)
	if err != nil {
		return Result{}, err
	}
	summary, err := o.Summarize(ctx, job)
	if err != nil {
		return Result{}, err
	}
	code, err := o.GenerateCode(ctx, job, summary)
	if err != nil {
		charged := o.SettlePartial(ctx, job, gate, summary)
		return Result{}, &GenerationError{Kind: models.KindCode, Charged: charged, Err: err}
	}
	return o.Settle(ctx, job, gate, summary, code), nil
}

// Quote estimates a request without calling a provider or reading a balance.
func (o *Orchestrator) Quote(paper models.PaperContent) Quote {
	sp := summaryPrompt(paper, o.settings.SummaryContentChars)
	summary := o.pricing.EstimateDefault(o.countPrompt(summarySystemPrompt, sp), models.KindSummary)

	cp := codePrompt(paper, summaryPlaceholder, o.settings.CodeContentChars)
	codeIn := o.countPrompt(codeSystemPrompt, cp) + o.pricing.AssumedOutput(models.KindSummary)
	code := o.pricing.EstimateDefault(codeIn, models.KindCode)

	return Quote{Summary: summary, Code: code, Total: pricing.Total(summary, code)}
}

// PreCheck estimates the request and gates it on the current balance. A
// failed balance read fails closed with ErrStoreUnavailable.
func (o *Orchestrator) PreCheck(ctx context.Context, job Job) (Gate, error) {
	if err := validateJob(job); err != nil {
		o.transition(job, StateFailed)
		return Gate{}, err
	}
	o.transition(job, StateEstimatingCost)
	quote := o.Quote(job.Paper)

	o.transition(job, StateCheckingBalance)
	balance, err := o.readBalance(ctx, job.UserID)
	if err != nil {
		o.transition(job, StateFailed)
		return Gate{}, err
	}
	if balance < quote.Total {
		o.transition(job, StateFailed)
		o.metrics.InsufficientCredits()
		o.logger.Info("insufficient credits",
			zap.String("user_id", job.UserID),
			zap.Int64("required", quote.Total),
			zap.Int64("available", balance))
		return Gate{}, &InsufficientCreditsError{Required: quote.Total, Available: balance}
	}
	return Gate{Quote: quote, Balance: balance}, nil
}

// Summarize generates and sanitizes the summary, then records the summary
// message so its cost is on file even if later stages fail.
func (o *Orchestrator) Summarize(ctx context.Context, job Job) (SummaryStage, error) {
	o.transition(job, StateGeneratingSummary)
	prompt := summaryPrompt(job.Paper, o.settings.SummaryContentChars)
	gen, err := o.generate(ctx, job.UserID, job.SessionID, models.KindSummary, summarySystemPrompt, prompt)
	if err != nil {
		o.transition(job, StateFailed)
		return SummaryStage{}, &GenerationError{Kind: models.KindSummary, Err: err}
	}

	o.transition(job, StateSanitizingSummary)
	text := llmtext.Sanitize(gen.Raw, false)
	prose, points := llmtext.SplitKeyPoints(text)
	stage := SummaryStage{
		Text:      text,
		Summary:   prose,
		KeyPoints: points,
		Cost:      o.pricing.Actual(gen.InputTokens, gen.OutputTokens, models.KindSummary),
	}
	msg := o.message(job.UserID, job.SessionID, models.RoleAssistant, models.ContentSummary, text, stage.Cost)
	msg.Paper = paperSnapshot(job.Paper)
	stage.MessageID = msg.ID
	o.appendBestEffort(ctx, &msg)
	return stage, nil
}

// GenerateCode builds the code prompt from the sanitized summary and parses
// the answer into project suggestions. Parsing never fails.
func (o *Orchestrator) GenerateCode(ctx context.Context, job Job, summary SummaryStage) (CodeStage, error) {
	o.transition(job, StateGeneratingCode)
	prompt := codePrompt(job.Paper, summary.Text, o.settings.CodeContentChars)
	gen, err := o.generate(ctx, job.UserID, job.SessionID, models.KindCode, codeSystemPrompt, prompt)
	if err != nil {
		o.transition(job, StateFailed)
		return CodeStage{}, err
	}

	o.transition(job, StateSanitizingAndParsingCode)
	parsed := llmtext.ParseProjects(llmtext.Sanitize(gen.Raw, true))
	if parsed.Degraded {
		o.metrics.ParseDegraded()
		o.logger.Warn("project parse degraded",
			zap.String("session_id", job.SessionID),
			zap.String("reason", parsed.Reason))
	}
	stage := CodeStage{
		Projects:    parsed.Projects,
		Degraded:    parsed.Degraded,
		ParseReason: parsed.Reason,
		Cost:        o.pricing.Actual(gen.InputTokens, gen.OutputTokens, models.KindCode),
	}
	content, err := json.Marshal(parsed.Projects)
	if err != nil {
		content = []byte("[]")
	}
	stage.Message = o.message(job.UserID, job.SessionID, models.RoleAssistant, models.ContentCodeSuggestion, string(content), stage.Cost)
	stage.Message.Paper = paperSnapshot(job.Paper)
	return stage, nil
}

// Settle debits the actual cost of both generations, appends the credit log
// entry and stores the code message. Store failures are logged and the
// result is still returned.
func (o *Orchestrator) Settle(ctx context.Context, job Job, gate Gate, summary SummaryStage, code CodeStage) Result {
	o.transition(job, StateReconciling)
	breakdown := map[models.Kind]int64{
		models.KindSummary: summary.Cost.Credits,
		models.KindCode:    code.Cost.Credits,
	}
	total := summary.Cost.Credits + code.Cost.Credits
	entry := o.entry(job.UserID, job.SessionID, total, reasonPaper, breakdown, gate.Balance)
	remaining, _ := o.settle(ctx, entry, []models.ChatMessage{code.Message}, gate.Balance)

	o.transition(job, StatePersisting)
	o.logger.Info("paper processed",
		zap.String("user_id", job.UserID),
		zap.String("session_id", job.SessionID),
		zap.Int("summary_tokens_in", summary.Cost.InputTokens),
		zap.Int("summary_tokens_out", summary.Cost.OutputTokens),
		zap.Int("code_tokens_in", code.Cost.InputTokens),
		zap.Int("code_tokens_out", code.Cost.OutputTokens),
		zap.Int64("estimated", gate.Quote.Total),
		zap.Int64("charged", total),
		zap.Int64("remaining", remaining),
		zap.Bool("overdraft", entry.Overdraft),
		zap.Bool("parse_degraded", code.Degraded))
	o.transition(job, StateDone)
	return Result{
		SessionID:          job.SessionID,
		Summary:            summary.Summary,
		KeyPoints:          summary.KeyPoints,
		ProjectSuggestions: code.Projects,
		CreditsCharged:     total,
		CreditsRemaining:   remaining,
		Breakdown:          breakdown,
		Overdraft:          entry.Overdraft,
	}
}

// SettlePartial bills the summary alone after code generation failed and
// returns the amount actually debited, which is 0 when the ledger write
// failed.
func (o *Orchestrator) SettlePartial(ctx context.Context, job Job, gate Gate, summary SummaryStage) int64 {
	o.transition(job, StateReconciling)
	breakdown := map[models.Kind]int64{models.KindSummary: summary.Cost.Credits}
	entry := o.entry(job.UserID, job.SessionID, summary.Cost.Credits, reasonSummaryOnly, breakdown, gate.Balance)
	remaining, debited := o.settle(ctx, entry, nil, gate.Balance)
	charged := entry.Amount
	if !debited {
		charged = 0
	}
	o.logger.Info("partial charge after code generation failure",
		zap.String("user_id", job.UserID),
		zap.String("session_id", job.SessionID),
		zap.Int64("charged", charged),
		zap.Int64("remaining", remaining))
	o.transition(job, StateFailed)
	return charged
}

func (o *Orchestrator) entry(userID, sessionID string, amount int64, reason string, breakdown map[models.Kind]int64, gated int64) models.CreditLogEntry {
	return models.CreditLogEntry{
		ID:        o.newID(),
		UserID:    userID,
		SessionID: sessionID,
		Type:      models.CreditDeduction,
		Amount:    amount,
		Reason:    reason,
		Breakdown: breakdown,
		Overdraft: amount > gated,
		CreatedAt: o.now(),
	}
}

// settle applies the debit and returns the new balance and whether the debit
// happened. When the ledger is down it falls back to gated minus amount and
// tries to keep the messages. Writes run on a detached context.
func (o *Orchestrator) settle(ctx context.Context, entry models.CreditLogEntry, msgs []models.ChatMessage, gated int64) (int64, bool) {
	if entry.Overdraft {
		o.logger.Warn("actual cost exceeds gated balance",
			zap.String("user_id", entry.UserID),
			zap.Int64("charged", entry.Amount),
			zap.Int64("gated_balance", gated),
			zap.Bool("overdraft", true))
	}
	fallback := gated - entry.Amount
	if o.ledger == nil {
		o.metrics.StoreFailure("settle")
		o.logger.Error("no ledger configured; debit skipped", zap.String("user_id", entry.UserID))
		return fallback, false
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()
	remaining, err := o.ledger.Settle(ctx, models.Settlement{Entry: entry, Messages: msgs})
	if err != nil {
		o.metrics.StoreFailure("settle")
		o.logger.Error("settle failed; debit skipped",
			zap.String("user_id", entry.UserID),
			zap.String("session_id", entry.SessionID),
			zap.Int64("amount", entry.Amount),
			zap.Error(err))
		for i := range msgs {
			o.appendBestEffort(ctx, &msgs[i])
		}
		return fallback, false
	}
	for kind, credits := range entry.Breakdown {
		o.metrics.AddDebit(string(kind), credits)
	}
	return remaining, true
}

func (o *Orchestrator) readBalance(ctx context.Context, userID string) (int64, error) {
	if o.balances == nil {
		return 0, ErrStoreUnavailable
	}
	balance, err := o.balances.Credits(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w: %w", ErrStoreUnavailable, err)
	}
	return balance, nil
}

func (o *Orchestrator) message(userID, sessionID string, role models.Role, ct models.ContentType, content string, cost pricing.CostEstimate) models.ChatMessage {
	return models.ChatMessage{
		ID:           o.newID(),
		UserID:       userID,
		SessionID:    sessionID,
		Role:         role,
		ContentType:  ct,
		Content:      content,
		InputTokens:  cost.InputTokens,
		OutputTokens: cost.OutputTokens,
		Cost:         cost.Credits,
		CreatedAt:    o.now(),
	}
}

func (o *Orchestrator) appendBestEffort(ctx context.Context, msg *models.ChatMessage) {
	if o.messages == nil {
		return
	}
	ctx, cancel := persistContext(ctx)
	defer cancel()
	if err := o.messages.AppendMessage(ctx, msg); err != nil {
		o.metrics.StoreFailure("append_message")
		o.logger.Error("append message failed",
			zap.String("session_id", msg.SessionID),
			zap.String("content_type", string(msg.ContentType)),
			zap.Error(err))
	}
}

func paperSnapshot(p models.PaperContent) *models.PaperContent {
	snap := p
	return &snap
}

func validateJob(job Job) error {
	switch {
	case strings.TrimSpace(job.UserID) == "":
		return fmt.Errorf("user id required: %w", ErrInvalidInput)
	case strings.TrimSpace(job.Paper.Content) == "":
		return fmt.Errorf("paper content required: %w", ErrInvalidInput)
	}
	return nil
}
