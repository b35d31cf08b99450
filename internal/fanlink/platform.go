package fanlink

import "strings"

// Platform identifies a streaming service. Known platforms are the constants
// below; any other non-empty string is carried through unchanged and
// displayed verbatim.
type Platform string

// Known platforms.
const (
	Spotify      Platform = "spotify"
	AppleMusic   Platform = "apple_music"
	YouTube      Platform = "youtube"
	YouTubeMusic Platform = "youtube_music"
	SoundCloud   Platform = "soundcloud"
	Tidal        Platform = "tidal"
	Audiomack    Platform = "audiomack"
	Boomplay     Platform = "boomplay"
	Deezer       Platform = "deezer"
	Bandcamp     Platform = "bandcamp"
	AmazonMusic  Platform = "amazon_music"
)

// fallbackColor is used for platforms without a brand colour.
const fallbackColor = "#333333"

type platformInfo struct {
	name  string
	color string
}

var platforms = map[Platform]platformInfo{
	Spotify:      {"Spotify", "#1DB954"},
	AppleMusic:   {"Apple Music", "#FA2D48"},
	YouTube:      {"YouTube", "#FF0000"},
	YouTubeMusic: {"YouTube Music", "#FF0000"},
	SoundCloud:   {"SoundCloud", "#FF7700"},
	Tidal:        {"TIDAL", "#000000"},
	Audiomack:    {"Audiomack", "#FFA500"},
	Boomplay:     {"Boomplay", "#E72C30"},
	Deezer:       {"Deezer", "#00C7F2"},
	Bandcamp:     {"Bandcamp", "#1DA0C3"},
	AmazonMusic:  {"Amazon Music", "#00A8E1"},
}

// editorOrder is the order platforms are offered in the editor.
var editorOrder = []Platform{
	Spotify,
	AppleMusic,
	YouTubeMusic,
	YouTube,
	Audiomack,
	Boomplay,
	Deezer,
	Tidal,
	SoundCloud,
	Bandcamp,
	AmazonMusic,
}

// ParsePlatform converts a stored or submitted platform string. Known
// identifiers are matched case-insensitively; anything else is kept as-is.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidPlatform
	}
	p := Platform(strings.ToLower(s))
	if p.Known() {
		return p, nil
	}
	return Platform(s), nil
}

// Known reports whether p is one of the built-in platforms.
func (p Platform) Known() bool {
	_, ok := platforms[p]
	return ok
}

// Name returns the display name. Unknown platforms display their raw value.
func (p Platform) Name() string {
	if info, ok := platforms[p]; ok {
		return info.name
	}
	return string(p)
}

// Color returns the brand colour used for the platform's button.
func (p Platform) Color() string {
	if info, ok := platforms[p]; ok {
		return info.color
	}
	return fallbackColor
}

// KnownPlatforms returns the built-in platforms in editor order.
func KnownPlatforms() []Platform {
	out := make([]Platform, len(editorOrder))
	copy(out, editorOrder)
	return out
}
