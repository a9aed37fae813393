package storage

import (
	"context"
	"fmt"
	"strings"

	"paperforge/internal/models"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a user. A duplicate email returns ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.db.Pool.QueryRow(ctx, `
INSERT INTO users (user_id, email, name, password_hash, credits)
VALUES ($1::uuid, $2, $3, $4, $5)
RETURNING created_at`,
		u.ID, strings.ToLower(strings.TrimSpace(u.Email)), u.Name, u.PasswordHash, u.Credits,
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %s: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (models.User, error) {
	return r.one(ctx, `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) ByID(ctx context.Context, userID string) (models.User, error) {
	return r.one(ctx, `WHERE user_id = $1::uuid`, userID)
}

func (r *UserRepo) one(ctx context.Context, where string, arg any) (models.User, error) {
	var u models.User
	err := r.db.Pool.QueryRow(ctx, `
SELECT user_id::text, email, name, password_hash, credits, created_at
FROM users `+where, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Credits, &u.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", notFound(err))
	}
	return u, nil
}

// Credits reads the current balance.
func (r *UserRepo) Credits(ctx context.Context, userID string) (int64, error) {
	var credits int64
	err := r.db.Pool.QueryRow(ctx, `SELECT credits FROM users WHERE user_id = $1::uuid`, userID).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("get credits: %w", notFound(err))
	}
	return credits, nil
}
