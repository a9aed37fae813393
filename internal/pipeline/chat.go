package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"paperforge/internal/llmtext"
	"paperforge/internal/models"
)

// ChatJob is one follow-up question in a session. Paper and Summary come
// from the session's stored messages.
type ChatJob struct {
	UserID    string
	SessionID string
	Question  string
	Paper     models.PaperContent
	Summary   string
}

type ChatResult struct {
	Response         string `json:"response"`
	CreditsCharged   int64  `json:"creditsCharged"`
	CreditsRemaining int64  `json:"creditsRemaining"`
}

// Chat runs the estimate, gate, generate, sanitize and reconcile flow for a
// single chat turn. The question and the answer are stored with the debit.
func (o *Orchestrator) Chat(ctx context.Context, job ChatJob) (ChatResult, error) {
	if strings.TrimSpace(job.UserID) == "" || strings.TrimSpace(job.SessionID) == "" {
		return ChatResult{}, fmt.Errorf("user and session required: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(job.Question) == "" {
		return ChatResult{}, fmt.Errorf("message required: %w", ErrInvalidInput)
	}
	prompt := chatPrompt(job.Paper, job.Summary, job.Question, o.settings.CodeContentChars)
	quote := o.pricing.EstimateDefault(o.countPrompt(chatSystemPrompt, prompt), models.KindChat)

	balance, err := o.readBalance(ctx, job.UserID)
	if err != nil {
		return ChatResult{}, err
	}
	if balance < quote.Credits {
		o.metrics.InsufficientCredits()
		return ChatResult{}, &InsufficientCreditsError{Required: quote.Credits, Available: balance}
	}

	gen, err := o.generate(ctx, job.UserID, job.SessionID, models.KindChat, chatSystemPrompt, prompt)
	if err != nil {
		return ChatResult{}, &GenerationError{Kind: models.KindChat, Err: err}
	}
	answer := llmtext.Sanitize(gen.Raw, false)
	cost := o.pricing.Actual(gen.InputTokens, gen.OutputTokens, models.KindChat)

	question := o.message(job.UserID, job.SessionID, models.RoleUser, models.ContentChatMessage, strings.TrimSpace(job.Question), cost)
	question.OutputTokens = 0
	question.Cost = 0
	response := o.message(job.UserID, job.SessionID, models.RoleAssistant, models.ContentChatResponse, answer, cost)
	response.InputTokens = 0

	breakdown := map[models.Kind]int64{models.KindChat: cost.Credits}
	entry := o.entry(job.UserID, job.SessionID, cost.Credits, reasonChat, breakdown, balance)
	remaining, debited := o.settle(ctx, entry, []models.ChatMessage{question, response}, balance)

	o.logger.Info("chat turn",
		zap.String("user_id", job.UserID),
		zap.String("session_id", job.SessionID),
		zap.Int("tokens_in", cost.InputTokens),
		zap.Int("tokens_out", cost.OutputTokens),
		zap.Int64("charged", cost.Credits),
		zap.Bool("debited", debited),
		zap.Int64("remaining", remaining))
	return ChatResult{Response: answer, CreditsCharged: cost.Credits, CreditsRemaining: remaining}, nil
}
