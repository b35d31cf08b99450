package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"slug violation", &pgconn.PgError{Code: "23505", ConstraintName: slugConstraint}, true},
		{"wrapped slug violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: slugConstraint}), true},
		{"other constraint", &pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"}, false},
		{"other code", &pgconn.PgError{Code: "23503", ConstraintName: slugConstraint}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUniqueViolation(tt.err, slugConstraint); got != tt.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreSaveOrEmpty(t *testing.T) {
	if got := preSaveOrEmpty(nil); got == nil || len(got) != 0 {
		t.Errorf("preSaveOrEmpty(nil) = %v, want empty non-nil map", got)
	}

	in := map[string]string{"spotify": "https://example.com"}
	if got := preSaveOrEmpty(in); got["spotify"] != in["spotify"] {
		t.Errorf("preSaveOrEmpty() = %v, want %v", got, in)
	}
}

// Replace runs the link insert inside its transaction, so the insert helper
// must accept a pgx.Tx as well as the pool.
var (
	_ execer = (*pgxpool.Pool)(nil)
	_ execer = (pgx.Tx)(nil)
)

func TestSessionToken(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{AccessToken: "access", RefreshToken: "refresh", TokenExpiry: expiry}

	tok := s.Token()
	if tok.AccessToken != "access" || tok.RefreshToken != "refresh" {
		t.Errorf("Token() = %+v, want stored access and refresh tokens", tok)
	}
	if !tok.Expiry.Equal(expiry) {
		t.Errorf("Token().Expiry = %v, want %v", tok.Expiry, expiry)
	}
	if tok.Type() != "Bearer" {
		t.Errorf("Token().Type() = %q, want %q", tok.Type(), "Bearer")
	}
}
