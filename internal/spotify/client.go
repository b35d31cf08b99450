// Package spotify wraps the Spotify Web API calls used to import track
// metadata into fan link drafts.
package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// Connector builds an authenticated API client for an owner's token.
// Implemented by (*auth.Authenticator).Client.
type Connector func(ctx context.Context, token *oauth2.Token) *spotify.Client

// Importer looks up tracks on behalf of signed-in owners.
type Importer struct {
	connect Connector
}

// NewImporter creates an importer.
func NewImporter(connect Connector) *Importer {
	return &Importer{connect: connect}
}

// Track fetches the track behind raw using the owner's token.
func (i *Importer) Track(ctx context.Context, token *oauth2.Token, raw string) (*TrackInfo, error) {
	return New(i.connect(ctx, token)).Track(ctx, raw)
}
