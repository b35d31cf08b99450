package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// SessionRepository handles sessions database operations.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Create stores a session for session.UserID that lives for ttl. The
// database clock stamps CreatedAt and ExpiresAt, so every instance sharing
// the table agrees on expiry.
func (r *SessionRepository) Create(ctx context.Context, session *Session, ttl time.Duration) error {
	query := `
		INSERT INTO sessions (id, user_id, access_token, refresh_token, token_expiry, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW() + make_interval(secs => $6))
		RETURNING created_at, expires_at
	`
	err := r.pool.QueryRow(ctx, query,
		session.ID,
		session.UserID,
		session.AccessToken,
		session.RefreshToken,
		session.TokenExpiry,
		ttl.Seconds(),
	).Scan(&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get returns a live session with its owner's display name. Expired
// sessions and sessions whose owner was removed are ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT s.id, s.user_id, u.display_name, s.access_token, s.refresh_token,
			s.token_expiry, s.created_at, s.expires_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1 AND s.expires_at > NOW()
	`
	var session Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.DisplayName,
		&session.AccessToken,
		&session.RefreshToken,
		&session.TokenExpiry,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return &session, nil
}

// Delete removes a session. Deleting a missing session succeeds.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// UpdateToken stores a refreshed Spotify token. An empty refresh token
// keeps the stored one, since Spotify omits it on most refreshes.
func (r *SessionRepository) UpdateToken(ctx context.Context, id string, token *oauth2.Token) error {
	query := `
		UPDATE sessions
		SET access_token = $2,
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expiry = $4
		WHERE id = $1 AND expires_at > NOW()
	`
	result, err := r.pool.Exec(ctx, query, id, token.AccessToken, token.RefreshToken, token.Expiry)
	if err != nil {
		return fmt.Errorf("updating session token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}
