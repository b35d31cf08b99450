package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/fanlink/internal/fanlink"
)

const trackURLPrefix = "https://open.spotify.com/track/"

// ErrNotTrackURL is returned for input that is not a Spotify track link or URI.
var ErrNotTrackURL = errors.New("not a spotify track url")

var trackIDRe = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)

// ParseTrackURL extracts the track ID from an open.spotify.com track link
// (with or without an intl-xx path segment) or a spotify:track: URI.
func ParseTrackURL(raw string) (spotify.ID, error) {
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "spotify:track:"); ok {
		return trackID(rest)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host != "open.spotify.com" {
		return "", ErrNotTrackURL
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[0] != "track" {
		return "", ErrNotTrackURL
	}
	return trackID(parts[1])
}

func trackID(s string) (spotify.ID, error) {
	if !trackIDRe.MatchString(s) {
		return "", ErrNotTrackURL
	}
	return spotify.ID(s), nil
}

// Track fetches a track by link or URI.
func (c *Client) Track(ctx context.Context, raw string) (*TrackInfo, error) {
	id, err := ParseTrackURL(raw)
	if err != nil {
		return nil, err
	}

	track, err := c.api.GetTrack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching track %s: %w", id, err)
	}

	info := convertTrack(track)
	return &info, nil
}

// convertTrack converts a Spotify FullTrack to TrackInfo.
func convertTrack(track *spotify.FullTrack) TrackInfo {
	artists := make([]string, len(track.Artists))
	for i, a := range track.Artists {
		artists[i] = a.Name
	}

	info := TrackInfo{
		ID:     track.ID.String(),
		Name:   track.Name,
		Artist: strings.Join(artists, ", "),
		URL:    track.ExternalURLs["spotify"],
	}
	if info.URL == "" {
		info.URL = trackURLPrefix + info.ID
	}
	// Spotify lists album images widest first.
	if len(track.Album.Images) > 0 {
		info.CoverURL = track.Album.Images[0].URL
	}
	return info
}

// ApplyTrack seeds a draft from track metadata: title, artist and cover
// are replaced, and a Spotify link is added unless one exists. A slug is
// generated only when the draft has none.
func ApplyTrack(d *fanlink.Draft, info *TrackInfo) error {
	d.SetTitle(info.Name)
	d.SetArtist(info.Artist)
	if info.CoverURL != "" {
		d.SetCoverImage(info.CoverURL)
	}
	if d.Snapshot().Slug == "" {
		d.RegenerateSlug()
	}

	for _, l := range d.StreamingLinks() {
		if l.Platform == fanlink.Spotify {
			return nil
		}
	}
	return d.AddStreamingLink(fanlink.Spotify, info.URL)
}
