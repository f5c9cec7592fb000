package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// ErrEmailTaken is returned when creating a user with an email that already exists.
var ErrEmailTaken = errors.New("storage: email already registered")

const userColumns = `id, email, password_hash, full_name, is_active, is_verified,
	 verification_token, created_at, updated_at`

// CreateUser inserts a new user. Email must already be normalized.
func (db *DB) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	err := db.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, full_name, is_active, is_verified, verification_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.Email, u.PasswordHash, u.FullName, u.IsActive, u.IsVerified, u.VerificationToken,
	).Scan(userFields(&u)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrEmailTaken
		}
		return model.User{}, fmt.Errorf("storage: create user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by normalized email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email,
	).Scan(userFields(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("storage: get user by email: %w", err)
	}
	return u, nil
}

// GetUser retrieves a user by id.
func (db *DB) GetUser(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(userFields(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("storage: get user: %w", err)
	}
	return u, nil
}

// VerifyUserByToken activates the user holding the given verification token.
// The token is cleared so it cannot be replayed.
func (db *DB) VerifyUserByToken(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx,
		`UPDATE users
		 SET is_verified = true, is_active = true, verification_token = NULL, updated_at = now()
		 WHERE verification_token = $1
		 RETURNING `+userColumns, token,
	).Scan(userFields(&u)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("storage: verify user: %w", err)
	}
	return u, nil
}

func userFields(u *model.User) []any {
	return []any{
		&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.IsActive,
		&u.IsVerified, &u.VerificationToken, &u.CreatedAt, &u.UpdatedAt,
	}
}
