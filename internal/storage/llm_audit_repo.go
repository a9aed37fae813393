package storage

import (
	"context"
	"fmt"

	"paperforge/internal/models"
)

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) RecordCall(ctx context.Context, c models.LLMCall) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(call_id, user_id, session_id, kind, provider_name, model, request_id, status, error_type,
  input_tokens, output_tokens, provider_input_tokens, provider_output_tokens, latency_ms, created_at)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), NULLIF($2,'')::uuid, NULLIF($3,'')::uuid, $4, $5, $6, $7, $8, NULLIF($9,''),
  $10, $11, $12, $13, $14, $15)`,
		c.CallID, c.UserID, c.SessionID, string(c.Kind), c.ProviderName, c.Model, c.RequestID, c.Status, c.ErrorType,
		c.InputTokens, c.OutputTokens, c.ProviderInputTokens, c.ProviderOutputTokens, c.LatencyMs, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
