package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"paperforge/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type SessionRepo struct {
	db *DB
}

func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

type SessionFilter struct {
	UserID string
	Query  string
	Limit  int
	Offset int
}

func (r *SessionRepo) Create(ctx context.Context, s *models.ChatSession) error {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO chat_sessions (session_id, user_id, title)
VALUES ($1::uuid, $2::uuid, $3)
RETURNING created_at, updated_at`, s.ID, s.UserID, s.Title).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

// Get returns a session only if it belongs to userID.
func (r *SessionRepo) Get(ctx context.Context, userID, sessionID string) (models.ChatSession, error) {
	var s models.ChatSession
	err := r.db.Pool.QueryRow(ctx, `
SELECT session_id::text, user_id::text, title, created_at, updated_at
FROM chat_sessions
WHERE session_id = $1::uuid AND user_id = $2::uuid`, sessionID, userID).
		Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("get chat session: %w", notFound(err))
	}
	return s, nil
}

func (r *SessionRepo) List(ctx context.Context, f SessionFilter) ([]models.ChatSession, error) {
	query, args, err := sessionListQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build session query: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChatSession, 0)
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return out, nil
}

func sessionListQuery(f SessionFilter) (string, []any, error) {
	q := psql.Select("session_id::text", "user_id::text", "title", "created_at", "updated_at").
		From("chat_sessions").
		Where("user_id = ?::uuid", f.UserID).
		OrderBy("updated_at DESC")
	if s := strings.TrimSpace(f.Query); s != "" {
		q = q.Where(sq.ILike{"title": "%" + s + "%"})
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q = q.Limit(uint64(limit))
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q.ToSql()
}

func (r *SessionRepo) Rename(ctx context.Context, userID, sessionID, title string) (models.ChatSession, error) {
	var s models.ChatSession
	err := r.db.Pool.QueryRow(ctx, `
UPDATE chat_sessions SET title = $3, updated_at = now()
WHERE session_id = $1::uuid AND user_id = $2::uuid
RETURNING session_id::text, user_id::text, title, created_at, updated_at`, sessionID, userID, title).
		Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return models.ChatSession{}, fmt.Errorf("rename chat session: %w", notFound(err))
	}
	return s, nil
}

// Delete removes a session and its messages. Credit logs are kept.
func (r *SessionRepo) Delete(ctx context.Context, userID, sessionID string) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx delete session: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `DELETE FROM chat_sessions WHERE session_id = $1::uuid AND user_id = $2::uuid`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete chat session: %w", ErrNotFound)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE session_id = $1::uuid`, sessionID); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete session tx: %w", err)
	}
	return nil
}
