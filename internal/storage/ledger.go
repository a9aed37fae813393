package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"paperforge/internal/models"
)

// ledgerPool is the part of pgxpool.Pool the ledger needs.
type ledgerPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Ledger owns balance debits and the credit log.
type Ledger struct {
	pool ledgerPool
}

func NewLedger(db *DB) *Ledger {
	return &Ledger{pool: db.Pool}
}

// Settle debits the entry amount, appends the entry and inserts the
// messages in one transaction, then returns the new balance. The debit is a
// single in-place decrement, so concurrent settlements for the same user do
// not lose updates. No overdraft check is made here.
func (l *Ledger) Settle(ctx context.Context, s models.Settlement) (int64, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx settle: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var remaining int64
	err = tx.QueryRow(ctx, `
UPDATE users SET credits = credits - $2
WHERE user_id = $1::uuid
RETURNING credits`, s.Entry.UserID, s.Entry.Amount).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("debit user %s: %w", s.Entry.UserID, notFound(err))
	}
	if err := appendLog(ctx, tx, s.Entry); err != nil {
		return 0, err
	}
	for i := range s.Messages {
		if err := insertMessage(ctx, tx, &s.Messages[i]); err != nil {
			return 0, err
		}
	}
	if s.Entry.SessionID != "" {
		if _, err := tx.Exec(ctx, `UPDATE chat_sessions SET updated_at = now() WHERE session_id = $1::uuid`, s.Entry.SessionID); err != nil {
			return 0, fmt.Errorf("touch chat session: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit settle tx: %w", err)
	}
	return remaining, nil
}

func appendLog(ctx context.Context, db execer, e models.CreditLogEntry) error {
	breakdown := e.Breakdown
	if breakdown == nil {
		breakdown = map[models.Kind]int64{}
	}
	_, err := db.Exec(ctx, `
INSERT INTO credit_logs (log_id, user_id, session_id, type, amount, reason, breakdown, overdraft, created_at)
VALUES ($1::uuid, $2::uuid, NULLIF($3, '')::uuid, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.UserID, e.SessionID, string(e.Type), e.Amount, e.Reason, breakdown, e.Overdraft, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert credit log: %w", err)
	}
	return nil
}

// LedgerMismatch is a session whose stored message costs do not add up to
// what was debited for it.
type LedgerMismatch struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	MessageCost int64  `json:"message_cost"`
	Debited     int64  `json:"debited"`
}

// Mismatches compares, per live session, message costs with credit log
// amounts recorded since the given time.
func (l *Ledger) Mismatches(ctx context.Context, since time.Time) ([]LedgerMismatch, error) {
	rows, err := l.pool.Query(ctx, `
WITH m AS (
  SELECT session_id, SUM(cost) AS cost FROM chat_messages WHERE created_at >= $1 GROUP BY session_id
), c AS (
  SELECT session_id, SUM(amount) AS amount FROM credit_logs
  WHERE created_at >= $1 AND session_id IS NOT NULL GROUP BY session_id
)
SELECT s.session_id::text, s.user_id::text, COALESCE(m.cost, 0)::bigint, COALESCE(c.amount, 0)::bigint
FROM chat_sessions s
LEFT JOIN m ON m.session_id = s.session_id
LEFT JOIN c ON c.session_id = s.session_id
WHERE COALESCE(m.cost, 0) <> COALESCE(c.amount, 0)
ORDER BY s.session_id`, since)
	if err != nil {
		return nil, fmt.Errorf("query ledger mismatches: %w", err)
	}
	defer rows.Close()

	out := make([]LedgerMismatch, 0)
	for rows.Next() {
		var m LedgerMismatch
		if err := rows.Scan(&m.SessionID, &m.UserID, &m.MessageCost, &m.Debited); err != nil {
			return nil, fmt.Errorf("scan ledger mismatch: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger mismatches: %w", err)
	}
	return out, nil
}
