// Package auth handles owner sign-in with Spotify, API bearer tokens and
// session state notifications.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// ErrMissingCredentials is returned when the Spotify client ID or secret is not configured.
	ErrMissingCredentials = errors.New("missing spotify client id or secret")

	// ErrStateMismatch is returned when the OAuth state parameter doesn't match.
	ErrStateMismatch = errors.New("OAuth state mismatch")
)

// Profile is the signed-in Spotify account.
type Profile struct {
	ID          string
	DisplayName string
}

// Authenticator runs the Spotify authorization code flow for owners.
type Authenticator struct {
	auth *spotifyauth.Authenticator
}

// New creates an Authenticator. redirectURL must match the Spotify app
// configuration.
func New(clientID, clientSecret, redirectURL string) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURL),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadPrivate),
	)
	return &Authenticator{auth: auth}, nil
}

// AuthURL returns the Spotify consent URL for state.
func (a *Authenticator) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange completes the callback request r: it checks the state, trades
// the code for a token and loads the account profile.
func (a *Authenticator) Exchange(ctx context.Context, state string, r *http.Request) (*oauth2.Token, *Profile, error) {
	q := r.URL.Query()
	if q.Get("state") != state {
		return nil, nil, ErrStateMismatch
	}
	if errMsg := q.Get("error"); errMsg != "" {
		return nil, nil, fmt.Errorf("spotify auth error: %s", errMsg)
	}

	token, err := a.auth.Token(ctx, state, r)
	if err != nil {
		return nil, nil, fmt.Errorf("exchanging code for token: %w", err)
	}

	user, err := a.Client(ctx, token).CurrentUser(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("getting current user: %w", err)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	return token, &Profile{ID: user.ID, DisplayName: name}, nil
}

// Client returns a Spotify API client acting for token. The underlying
// oauth2 transport refreshes the token as needed.
func (a *Authenticator) Client(ctx context.Context, token *oauth2.Token) *spotify.Client {
	return spotify.New(a.auth.Client(ctx, token), spotify.WithRetry(true))
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
