// Package fanlink defines the fan link aggregate, the editable draft that
// produces it, and the repository that persists it as a parent row plus
// ordered streaming link rows.
package fanlink

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Appearance defaults.
const (
	DefaultBackgroundColor = "#000000"
	DefaultTextColor       = "#FFFFFF"
	DefaultButtonColor     = "#4b00e0"
	DefaultButtonTextColor = "#FFFFFF"
	DefaultButtonText      = "Stream Now"
)

// Appearance holds the optional styling of a public page. Empty fields fall
// back to the package defaults.
type Appearance struct {
	BackgroundColor string `json:"background_color,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
	TextColor       string `json:"text_color,omitempty"`
	ButtonColor     string `json:"button_color,omitempty"`
	ButtonTextColor string `json:"button_text_color,omitempty"`
	ButtonText      string `json:"button_text,omitempty"`
}

// WithDefaults returns a copy with every empty colour and label filled in.
// BackgroundImage has no default.
func (a Appearance) WithDefaults() Appearance {
	if a.BackgroundColor == "" {
		a.BackgroundColor = DefaultBackgroundColor
	}
	if a.TextColor == "" {
		a.TextColor = DefaultTextColor
	}
	if a.ButtonColor == "" {
		a.ButtonColor = DefaultButtonColor
	}
	if a.ButtonTextColor == "" {
		a.ButtonTextColor = DefaultButtonTextColor
	}
	if a.ButtonText == "" {
		a.ButtonText = DefaultButtonText
	}
	return a
}

// Background describes how the page background is painted.
type Background struct {
	Image string
	Color string
}

// Background resolves the page background. An explicit background image
// wins over the background colour, which wins over the default colour.
// The cover image is never used as a background.
func (a Appearance) Background() Background {
	if a.BackgroundImage != "" {
		return Background{Image: a.BackgroundImage}
	}
	if a.BackgroundColor != "" {
		return Background{Color: a.BackgroundColor}
	}
	return Background{Color: DefaultBackgroundColor}
}

// StreamingLink is one platform entry on a fan link.
type StreamingLink struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
}

// FanLink is the full in-memory fan link: parent fields plus ordered links.
type FanLink struct {
	ID             uuid.UUID           `json:"id"`
	OwnerID        string              `json:"owner_id"`
	Title          string              `json:"title"`
	Artist         string              `json:"artist"`
	Slug           string              `json:"slug"`
	CoverImage     string              `json:"cover_image"`
	Appearance     Appearance          `json:"appearance"`
	StreamingLinks []StreamingLink     `json:"streaming_links"`
	PreSaveLinks   map[Platform]string `json:"pre_save_links,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Persisted reports whether the fan link has been saved.
func (f *FanLink) Persisted() bool {
	return f.ID != uuid.Nil
}

// LinksByPlatform returns the streaming links keyed by platform.
func (f *FanLink) LinksByPlatform() map[Platform]string {
	out := make(map[Platform]string, len(f.StreamingLinks))
	for _, l := range f.StreamingLinks {
		out[l.Platform] = l.URL
	}
	return out
}

// Link returns the URL stored for platform, if any.
func (f *FanLink) Link(p Platform) (string, bool) {
	for _, l := range f.StreamingLinks {
		if l.Platform == p {
			return l.URL, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (f *FanLink) Clone() *FanLink {
	c := *f
	c.StreamingLinks = slices.Clone(f.StreamingLinks)
	c.PreSaveLinks = maps.Clone(f.PreSaveLinks)
	return &c
}

// Candidate is a validated, immutable fan link ready to be saved. Obtain one
// from Draft.ToPublishCandidate.
type Candidate struct {
	fl *FanLink
}

// IsZero reports whether c was not produced by a successful validation.
func (c Candidate) IsZero() bool {
	return c.fl == nil
}

// FanLink returns a copy of the candidate's contents.
func (c Candidate) FanLink() FanLink {
	if c.fl == nil {
		return FanLink{}
	}
	return *c.fl.Clone()
}

func newCandidate(fl *FanLink) Candidate {
	return Candidate{fl: fl.Clone()}
}
