package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles users database operations.
type UserRepository struct {
	pool *pgxpool.Pool
}

// Upsert records an owner at sign-in. Empty profile fields never overwrite
// stored ones, since Spotify may omit the display name or email.
func (r *UserRepository) Upsert(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, display_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			display_name = COALESCE(NULLIF(EXCLUDED.display_name, ''), users.display_name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			updated_at = NOW()
		RETURNING display_name, email, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query, user.ID, user.DisplayName, user.Email).
		Scan(&user.DisplayName, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	return nil
}
