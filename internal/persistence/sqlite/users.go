package sqlite

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/starford/journal/internal/models"
)

// CreateUser inserts an account. A taken e-mail is apperr.ErrAlreadyExists.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	u := models.User{ID: uuid.NewString(), Email: email, CreatedAt: time.Now().UTC()}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`, u.ID, u.Email, passwordHash, u.CreatedAt)
	if err != nil {
		return models.User{}, wrap("create user", err)
	}
	return u, nil
}

// UserByEmail returns the account registered under email and its password hash.
func (db *DB) UserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		return models.User{}, "", wrap("user by email", err)
	}
	return u, hash, nil
}
