package fanlink

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const securePrefix = "https://"

// Field names used in FieldError.
const (
	FieldTitle          = "title"
	FieldArtist         = "artist"
	FieldSlug           = "slug"
	FieldCoverImage     = "cover_image"
	FieldStreamingLinks = "streaming_links"
	FieldPreSaveLinks   = "pre_save_links"
)

// Draft is an editable fan link that has not been saved yet, or a copy of a
// saved one being edited. A Draft is not safe for concurrent use.
type Draft struct {
	id         uuid.UUID
	ownerID    string
	createdAt  time.Time
	title      string
	artist     string
	slug       string
	coverImage string
	appearance Appearance
	links      []StreamingLink
	preSave    map[Platform]string
}

// NewDraft returns an empty draft for ownerID.
func NewDraft(ownerID string) *Draft {
	return &Draft{
		ownerID: ownerID,
		preSave: make(map[Platform]string),
	}
}

// DraftFrom seeds a draft from a saved fan link. The draft owns independent
// copies of every field.
func DraftFrom(fl *FanLink) *Draft {
	preSave := maps.Clone(fl.PreSaveLinks)
	if preSave == nil {
		preSave = make(map[Platform]string)
	}
	return &Draft{
		id:         fl.ID,
		ownerID:    fl.OwnerID,
		createdAt:  fl.CreatedAt,
		title:      fl.Title,
		artist:     fl.Artist,
		slug:       fl.Slug,
		coverImage: fl.CoverImage,
		appearance: fl.Appearance,
		links:      slices.Clone(fl.StreamingLinks),
		preSave:    preSave,
	}
}

// ID returns the saved fan link's ID, or uuid.Nil for a new draft.
func (d *Draft) ID() uuid.UUID { return d.id }

// OwnerID returns the owner the draft belongs to.
func (d *Draft) OwnerID() string { return d.ownerID }

// Persisted reports whether the draft edits a saved fan link.
func (d *Draft) Persisted() bool { return d.id != uuid.Nil }

// SetID attaches the draft to a saved fan link. Used after a create that
// saved the parent row but not its links, so the next publish updates it.
func (d *Draft) SetID(id uuid.UUID) { d.id = id }

func (d *Draft) SetTitle(s string)      { d.title = s }
func (d *Draft) SetArtist(s string)     { d.artist = s }
func (d *Draft) SetCoverImage(s string) { d.coverImage = s }

// SetSlug stores s after normalising it. The title is left alone.
func (d *Draft) SetSlug(s string) {
	d.slug = NormalizeSlug(s)
}

// SetAppearance replaces every appearance field.
func (d *Draft) SetAppearance(a Appearance) {
	d.appearance = a
}

// RegenerateSlug derives a fresh slug from the current title.
func (d *Draft) RegenerateSlug() string {
	d.slug = GenerateSlug(d.title)
	return d.slug
}

// SetPreSaveLink sets the pre-save URL for a platform. An empty url removes it.
func (d *Draft) SetPreSaveLink(p Platform, url string) error {
	if p == "" {
		return ErrInvalidPlatform
	}
	url = strings.TrimSpace(url)
	if url == "" {
		delete(d.preSave, p)
		return nil
	}
	if !strings.HasPrefix(url, securePrefix) {
		return ErrInsecureURL
	}
	d.preSave[p] = url
	return nil
}

// AddStreamingLink appends a link. A platform may appear only once and the
// URL must be https.
func (d *Draft) AddStreamingLink(p Platform, url string) error {
	if p == "" {
		return ErrInvalidPlatform
	}
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, securePrefix) {
		return ErrInsecureURL
	}
	for _, l := range d.links {
		if l.Platform == p {
			return fmt.Errorf("%s: %w", p, ErrDuplicatePlatform)
		}
	}
	d.links = append(d.links, StreamingLink{Platform: p, URL: url})
	return nil
}

// RemoveStreamingLink removes the link at index. Later links shift down.
func (d *Draft) RemoveStreamingLink(index int) error {
	if index < 0 || index >= len(d.links) {
		return ErrIndexOutOfRange
	}
	d.links = slices.Delete(d.links, index, index+1)
	return nil
}

// StreamingLinks returns a copy of the current links in order. Indexes are
// only valid until the next mutation.
func (d *Draft) StreamingLinks() []StreamingLink {
	return slices.Clone(d.links)
}

// Snapshot returns the draft's current contents as a fan link, valid or not.
func (d *Draft) Snapshot() FanLink {
	return FanLink{
		ID:             d.id,
		OwnerID:        d.ownerID,
		Title:          d.title,
		Artist:         d.artist,
		Slug:           d.slug,
		CoverImage:     d.coverImage,
		Appearance:     d.appearance,
		StreamingLinks: slices.Clone(d.links),
		PreSaveLinks:   maps.Clone(d.preSave),
		CreatedAt:      d.createdAt,
	}
}

// Validate returns every field error at once. An empty result means the
// draft can be published.
func (d *Draft) Validate() []FieldError {
	var errs []FieldError
	required := []struct {
		field string
		value string
	}{
		{FieldTitle, d.title},
		{FieldArtist, d.artist},
		{FieldSlug, d.slug},
		{FieldCoverImage, d.coverImage},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{Field: r.field, Err: ErrRequired})
		}
	}
	if d.slug != "" && !ValidSlug(d.slug) {
		errs = append(errs, FieldError{Field: FieldSlug, Err: ErrInvalidSlug})
	}

	if len(d.links) == 0 {
		errs = append(errs, FieldError{Field: FieldStreamingLinks, Err: ErrNoStreamingLinks})
	}
	seen := make(map[Platform]bool, len(d.links))
	for i, l := range d.links {
		field := fmt.Sprintf("%s[%d]", FieldStreamingLinks, i)
		if !strings.HasPrefix(l.URL, securePrefix) {
			errs = append(errs, FieldError{Field: field, Err: ErrInsecureURL})
		}
		if seen[l.Platform] {
			errs = append(errs, FieldError{Field: field, Err: ErrDuplicatePlatform})
		}
		seen[l.Platform] = true
	}

	for _, p := range slices.Sorted(maps.Keys(d.preSave)) {
		if !strings.HasPrefix(d.preSave[p], securePrefix) {
			errs = append(errs, FieldError{Field: FieldPreSaveLinks + "." + string(p), Err: ErrInsecureURL})
		}
	}
	return errs
}

// ToPublishCandidate validates the draft and returns an immutable candidate,
// or a *ValidationError listing every problem.
func (d *Draft) ToPublishCandidate() (Candidate, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return Candidate{}, &ValidationError{Fields: errs}
	}
	fl := d.Snapshot()
	fl.Title = strings.TrimSpace(fl.Title)
	fl.Artist = strings.TrimSpace(fl.Artist)
	fl.CoverImage = strings.TrimSpace(fl.CoverImage)
	return newCandidate(&fl), nil
}
