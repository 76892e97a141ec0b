package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/starford/journal/internal/models"
)

// CreateUser inserts an account. A taken e-mail is apperr.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (models.User, error) {
	const q = `
		INSERT INTO users (id, email, password_hash)
		VALUES (@id, @email, @hash)
		RETURNING id, email, created_at`

	var u models.User
	err := s.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":    uuid.NewString(),
		"email": email,
		"hash":  passwordHash,
	}).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		return models.User{}, wrap("CreateUser", err)
	}
	return u, nil
}

// UserByEmail returns the account registered under email and its password hash.
func (s *Store) UserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = @email`,
		pgx.NamedArgs{"email": email}).Scan(&u.ID, &u.Email, &hash, &u.CreatedAt)
	if err != nil {
		return models.User{}, "", wrap("UserByEmail", err)
	}
	return u, hash, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
