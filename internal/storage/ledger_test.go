package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"paperforge/internal/models"
)

func newMockLedger(t *testing.T) (*Ledger, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &Ledger{pool: mock}, mock
}

func testSettlement() models.Settlement {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return models.Settlement{
		Entry: models.CreditLogEntry{
			ID:        "log-1",
			UserID:    "u1",
			SessionID: "s1",
			Type:      models.CreditDeduction,
			Amount:    7,
			Reason:    "paper processing",
			Breakdown: map[models.Kind]int64{models.KindSummary: 3, models.KindCode: 4},
			CreatedAt: at,
		},
		Messages: []models.ChatMessage{{
			ID:           "m1",
			UserID:       "u1",
			SessionID:    "s1",
			Role:         models.RoleAssistant,
			ContentType:  models.ContentCodeSuggestion,
			Content:      "{}",
			InputTokens:  100,
			OutputTokens: 20,
			Cost:         4,
			CreatedAt:    at,
		}},
	}
}

func TestLedgerSettleStatementOrder(t *testing.T) {
	l, mock := newMockLedger(t)
	s := testSettlement()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET credits").
		WithArgs("u1", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(int64(93)))
	mock.ExpectExec("INSERT INTO credit_logs").
		WithArgs("log-1", "u1", "s1", "deduction", int64(7), "paper processing",
			s.Entry.Breakdown, false, s.Entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO chat_messages").
		WithArgs("m1", "u1", "s1", "assistant", "code_suggestion", "{}", 100, 20, int64(4),
			pgxmock.AnyArg(), s.Messages[0].CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE chat_sessions SET updated_at").
		WithArgs("s1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	remaining, err := l.Settle(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, int64(93), remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSettleRollsBackWhenLogInsertFails(t *testing.T) {
	l, mock := newMockLedger(t)
	s := testSettlement()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET credits").
		WithArgs("u1", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(int64(93)))
	mock.ExpectExec("INSERT INTO credit_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	remaining, err := l.Settle(context.Background(), s)
	require.ErrorContains(t, err, "insert credit log")
	require.Zero(t, remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSettleUnknownUser(t *testing.T) {
	l, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET credits").
		WithArgs("u1", int64(7)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := l.Settle(context.Background(), testSettlement())
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSettleWithoutSessionSkipsTouch(t *testing.T) {
	l, mock := newMockLedger(t)
	s := testSettlement()
	s.Entry.SessionID = ""
	s.Entry.Breakdown = nil
	s.Messages = nil

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE users SET credits").
		WithArgs("u1", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"credits"}).AddRow(int64(-2)))
	mock.ExpectExec("INSERT INTO credit_logs").
		WithArgs("log-1", "u1", "", "deduction", int64(7), "paper processing",
			map[models.Kind]int64{}, false, s.Entry.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	remaining, err := l.Settle(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, int64(-2), remaining)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerMismatches(t *testing.T) {
	l, mock := newMockLedger(t)
	since := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WITH m AS").
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"session_id", "user_id", "message_cost", "debited"}).
			AddRow("s1", "u1", int64(9), int64(7)))

	got, err := l.Mismatches(context.Background(), since)
	require.NoError(t, err)
	require.Equal(t, []LedgerMismatch{{SessionID: "s1", UserID: "u1", MessageCost: 9, Debited: 7}}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
