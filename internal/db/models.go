package db

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// User represents a Spotify user profile.
type User struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID           string
	UserID       string
	DisplayName  string // joined from users on read
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// FanLink is a fan_links row.
type FanLink struct {
	ID              uuid.UUID
	UserID          string
	Title           string
	Artist          string
	Slug            string
	CoverImage      string
	BackgroundColor *string // nullable
	BackgroundImage *string // nullable
	TextColor       *string // nullable
	ButtonColor     *string // nullable
	ButtonTextColor *string // nullable
	ButtonText      *string // nullable
	PreSaveLinks    map[string]string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StreamingLink is a streaming_links row.
type StreamingLink struct {
	ID        uuid.UUID
	FanLinkID uuid.UUID
	Platform  string
	URL       string
	Position  *int // nullable for rows written before positions existed
	CreatedAt time.Time
}

// Link event kinds.
const (
	EventView  = "view"
	EventClick = "click"
)

// LinkEvent is a recorded page view or platform click.
type LinkEvent struct {
	ID        int64
	FanLinkID uuid.UUID
	Kind      string
	Platform  *string // nullable, clicks only
	Device    string
	Browser   string
	Referrer  *string // nullable
	CreatedAt time.Time
}

// EventCounts aggregates link events for one fan link.
type EventCounts struct {
	Views  int64
	Clicks int64
}

// Token returns the session's Spotify token.
func (s *Session) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Expiry:       s.TokenExpiry,
		TokenType:    "Bearer",
	}
}
