package spotify

// TrackInfo is the Spotify metadata used to seed a fan link draft.
type TrackInfo struct {
	ID       string
	Name     string
	Artist   string // Comma-separated artist names
	CoverURL string // Largest album image, empty when the album has none
	URL      string // Public open.spotify.com link
}
