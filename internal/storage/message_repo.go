package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"paperforge/internal/models"
)

type MessageRepo struct {
	db *DB
}

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

type MessageFilter struct {
	SessionID   string
	UserID      string
	ContentType models.ContentType
	Limit       int
	Newest      bool
}

// AppendMessage inserts one message. Messages are never updated.
func (r *MessageRepo) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	return insertMessage(ctx, r.db.Pool, msg)
}

func insertMessage(ctx context.Context, db execer, msg *models.ChatMessage) error {
	_, err := db.Exec(ctx, `
INSERT INTO chat_messages (message_id, user_id, session_id, role, content_type, content, input_tokens, output_tokens, cost, paper, created_at)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6, $7, $8, $9, $10, $11)`,
		msg.ID, msg.UserID, msg.SessionID, string(msg.Role), string(msg.ContentType), msg.Content,
		msg.InputTokens, msg.OutputTokens, msg.Cost, msg.Paper, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat message %s: %w", msg.ContentType, err)
	}
	return nil
}

func (r *MessageRepo) List(ctx context.Context, f MessageFilter) ([]models.ChatMessage, error) {
	query, args, err := messageListQuery(f)
	if err != nil {
		return nil, fmt.Errorf("build message query: %w", err)
	}
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChatMessage, 0, 16)
	for rows.Next() {
		var m models.ChatMessage
		var role, contentType string
		if err := rows.Scan(&m.ID, &m.UserID, &m.SessionID, &role, &contentType, &m.Content,
			&m.InputTokens, &m.OutputTokens, &m.Cost, &m.Paper, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = models.Role(role)
		m.ContentType = models.ContentType(contentType)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

// Latest returns the newest message of a type in a session.
func (r *MessageRepo) Latest(ctx context.Context, sessionID string, ct models.ContentType) (models.ChatMessage, error) {
	msgs, err := r.List(ctx, MessageFilter{SessionID: sessionID, ContentType: ct, Limit: 1, Newest: true})
	if err != nil {
		return models.ChatMessage{}, err
	}
	if len(msgs) == 0 {
		return models.ChatMessage{}, fmt.Errorf("latest %s message: %w", ct, ErrNotFound)
	}
	return msgs[0], nil
}

func messageListQuery(f MessageFilter) (string, []any, error) {
	q := psql.Select(
		"message_id::text", "user_id::text", "session_id::text", "role", "content_type", "content",
		"input_tokens", "output_tokens", "cost", "paper", "created_at",
	).From("chat_messages").Where("session_id = ?::uuid", f.SessionID)
	if f.UserID != "" {
		q = q.Where("user_id = ?::uuid", f.UserID)
	}
	if f.ContentType != "" {
		q = q.Where(sq.Eq{"content_type": string(f.ContentType)})
	}
	if f.Newest {
		q = q.OrderBy("created_at DESC")
	} else {
		q = q.OrderBy("created_at ASC")
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	return q.ToSql()
}
