package fanlink

import (
	"errors"
	"slices"
	"testing"
)

func validDraft() *Draft {
	d := NewDraft("owner-a")
	d.SetTitle("Neon Dreams")
	d.SetArtist("Midnight Groove")
	d.SetSlug("neon-dreams")
	d.SetCoverImage("https://cdn.example.com/cover.jpg")
	_ = d.AddStreamingLink(Spotify, "https://open.spotify.com/track/123")
	return d
}

func TestDraft_AddStreamingLink(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		url      string
		wantErr  error
	}{
		{"https accepted", AppleMusic, "https://music.apple.com/x", nil},
		{"http rejected", AppleMusic, "http://music.apple.com/x", ErrInsecureURL},
		{"no scheme rejected", AppleMusic, "music.apple.com/x", ErrInsecureURL},
		{"duplicate platform rejected", Spotify, "https://open.spotify.com/track/456", ErrDuplicatePlatform},
		{"empty platform rejected", "", "https://example.com", ErrInvalidPlatform},
		{"unknown platform tolerated", Platform("Napster"), "https://napster.com/x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			before := d.StreamingLinks()

			err := d.AddStreamingLink(tt.platform, tt.url)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddStreamingLink() error = %v, want %v", err, tt.wantErr)
			}

			after := d.StreamingLinks()
			if tt.wantErr != nil {
				if !slices.Equal(before, after) {
					t.Errorf("links changed on rejected add: %v -> %v", before, after)
				}
				return
			}
			last := after[len(after)-1]
			if last.Platform != tt.platform || last.URL != tt.url {
				t.Errorf("last link = %+v, want appended %s %s", last, tt.platform, tt.url)
			}
		})
	}
}

func TestDraft_RemoveStreamingLink(t *testing.T) {
	d := NewDraft("owner-a")
	all := []StreamingLink{
		{Spotify, "https://s"},
		{AppleMusic, "https://a"},
		{YouTube, "https://y"},
		{Deezer, "https://d"},
	}
	for _, l := range all {
		if err := d.AddStreamingLink(l.Platform, l.URL); err != nil {
			t.Fatalf("AddStreamingLink() error = %v", err)
		}
	}

	if err := d.RemoveStreamingLink(1); err != nil {
		t.Fatalf("RemoveStreamingLink(1) error = %v", err)
	}
	want := []StreamingLink{all[0], all[2], all[3]}
	if got := d.StreamingLinks(); !slices.Equal(got, want) {
		t.Errorf("StreamingLinks() = %v, want %v", got, want)
	}

	for _, idx := range []int{-1, 3, 10} {
		if err := d.RemoveStreamingLink(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveStreamingLink(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}

	// A removed platform can be added again.
	if err := d.AddStreamingLink(AppleMusic, "https://a2"); err != nil {
		t.Errorf("re-adding removed platform error = %v", err)
	}
}

func TestDraft_StreamingLinksIsCopy(t *testing.T) {
	d := validDraft()
	links := d.StreamingLinks()
	links[0].URL = "https://mutated"

	if got := d.StreamingLinks()[0].URL; got == "https://mutated" {
		t.Error("StreamingLinks() exposed internal slice")
	}
}

func TestDraft_Validate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Draft)
		wantFields []string
	}{
		{"valid", func(*Draft) {}, nil},
		{"missing title", func(d *Draft) { d.SetTitle("  ") }, []string{FieldTitle}},
		{"missing artist", func(d *Draft) { d.SetArtist("") }, []string{FieldArtist}},
		{"missing slug", func(d *Draft) { d.SetSlug("") }, []string{FieldSlug}},
		{"missing cover", func(d *Draft) { d.SetCoverImage("") }, []string{FieldCoverImage}},
		{"no links", func(d *Draft) { _ = d.RemoveStreamingLink(0) }, []string{FieldStreamingLinks}},
		{
			"insecure pre-save",
			func(d *Draft) { d.preSave[AppleMusic] = "http://presave" },
			[]string{FieldPreSaveLinks + ".apple_music"},
		},
		{
			"everything missing",
			func(d *Draft) {
				d.SetTitle("")
				d.SetArtist("")
				d.SetSlug("")
				d.SetCoverImage("")
				_ = d.RemoveStreamingLink(0)
			},
			[]string{FieldTitle, FieldArtist, FieldSlug, FieldCoverImage, FieldStreamingLinks},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(d)

			errs := d.Validate()
			var fields []string
			for _, e := range errs {
				fields = append(fields, e.Field)
			}
			if !slices.Equal(fields, tt.wantFields) {
				t.Errorf("Validate() fields = %v, want %v", fields, tt.wantFields)
			}
		})
	}
}

func TestDraft_ValidateSeededBadData(t *testing.T) {
	d := DraftFrom(&FanLink{
		OwnerID:    "owner-a",
		Title:      "Old",
		Artist:     "Artist",
		Slug:       "old",
		CoverImage: "https://c",
		StreamingLinks: []StreamingLink{
			{Spotify, "http://insecure"},
			{Spotify, "https://dup"},
		},
	})

	errs := d.Validate()
	if len(errs) != 2 {
		t.Fatalf("Validate() = %v, want 2 errors", errs)
	}
	if !errors.Is(errs[0], ErrInsecureURL) || errs[0].Field != "streaming_links[0]" {
		t.Errorf("errs[0] = %v, want insecure url on streaming_links[0]", errs[0])
	}
	if !errors.Is(errs[1], ErrDuplicatePlatform) || errs[1].Field != "streaming_links[1]" {
		t.Errorf("errs[1] = %v, want duplicate platform on streaming_links[1]", errs[1])
	}
}

// A candidate is produced exactly when Validate reports nothing.
func TestDraft_ToPublishCandidateMatchesValidate(t *testing.T) {
	mutations := []func(*Draft){
		func(*Draft) {},
		func(d *Draft) { d.SetTitle("") },
		func(d *Draft) { d.SetArtist("") },
		func(d *Draft) { d.SetSlug("") },
		func(d *Draft) { d.SetCoverImage("") },
		func(d *Draft) { _ = d.RemoveStreamingLink(0) },
		func(d *Draft) { _ = d.AddStreamingLink(Tidal, "https://tidal.com/x") },
		func(d *Draft) { d.SetSlug("Custom Slug!") },
		func(d *Draft) { _ = d.SetPreSaveLink(Deezer, "https://presave") },
	}

	for i, mutate := range mutations {
		d := validDraft()
		mutate(d)

		errs := d.Validate()
		c, err := d.ToPublishCandidate()

		if len(errs) == 0 {
			if err != nil || c.IsZero() {
				t.Errorf("case %d: ToPublishCandidate() = %v, want candidate", i, err)
			}
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("case %d: ToPublishCandidate() error = %v, want *ValidationError", i, err)
			continue
		}
		if len(verr.Fields) != len(errs) {
			t.Errorf("case %d: ValidationError has %d fields, Validate() has %d", i, len(verr.Fields), len(errs))
		}
		if !c.IsZero() {
			t.Errorf("case %d: candidate returned alongside error", i)
		}
	}
}

func TestDraft_ValidationErrorIs(t *testing.T) {
	d := NewDraft("owner-a")
	_, err := d.ToPublishCandidate()

	if !errors.Is(err, ErrRequired) {
		t.Error("errors.Is(err, ErrRequired) = false")
	}
	if !errors.Is(err, ErrNoStreamingLinks) {
		t.Error("errors.Is(err, ErrNoStreamingLinks) = false")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(FieldCoverImage) {
		t.Errorf("ValidationError missing %s: %v", FieldCoverImage, err)
	}
}

func TestDraft_CandidateIsImmutable(t *testing.T) {
	d := validDraft()
	c, err := d.ToPublishCandidate()
	if err != nil {
		t.Fatalf("ToPublishCandidate() error = %v", err)
	}

	d.SetTitle("Changed")
	_ = d.AddStreamingLink(Tidal, "https://tidal.com/x")

	fl := c.FanLink()
	if fl.Title != "Neon Dreams" || len(fl.StreamingLinks) != 1 {
		t.Errorf("candidate changed after draft edit: %q, %d links", fl.Title, len(fl.StreamingLinks))
	}

	fl.StreamingLinks[0].URL = "https://mutated"
	if c.FanLink().StreamingLinks[0].URL == "https://mutated" {
		t.Error("Candidate.FanLink() exposed internal slice")
	}
}

func TestDraft_SetTitleKeepsSlug(t *testing.T) {
	d := validDraft()
	d.SetSlug("my-custom-slug")
	d.SetTitle("A Completely New Title")

	if got := d.Snapshot().Slug; got != "my-custom-slug" {
		t.Errorf("Slug = %q after SetTitle, want %q", got, "my-custom-slug")
	}
}

func TestDraft_SetSlugNormalises(t *testing.T) {
	d := NewDraft("owner-a")
	d.SetSlug("My  Cool_Track!")
	if got := d.Snapshot().Slug; got != "my-cooltrack" {
		t.Errorf("Slug = %q, want %q", got, "my-cooltrack")
	}
}

func TestDraftFrom_DeepCopy(t *testing.T) {
	orig := &FanLink{
		OwnerID:        "owner-a",
		Title:          "Original",
		StreamingLinks: []StreamingLink{{Spotify, "https://s"}},
		PreSaveLinks:   map[Platform]string{Deezer: "https://d"},
	}

	d := DraftFrom(orig)
	d.SetTitle("Edited")
	_ = d.RemoveStreamingLink(0)
	_ = d.AddStreamingLink(Tidal, "https://t")
	_ = d.SetPreSaveLink(Deezer, "")
	_ = d.SetPreSaveLink(AppleMusic, "https://a")

	if orig.Title != "Original" {
		t.Errorf("Title = %q, original mutated", orig.Title)
	}
	if len(orig.StreamingLinks) != 1 || orig.StreamingLinks[0].Platform != Spotify {
		t.Errorf("StreamingLinks = %v, original mutated", orig.StreamingLinks)
	}
	if len(orig.PreSaveLinks) != 1 || orig.PreSaveLinks[Deezer] != "https://d" {
		t.Errorf("PreSaveLinks = %v, original mutated", orig.PreSaveLinks)
	}
}

func TestDraftFrom_KeepsIdentity(t *testing.T) {
	saved, err := func() (*FanLink, error) {
		repo, _ := newTestRepository()
		c, err := validDraft().ToPublishCandidate()
		if err != nil {
			return nil, err
		}
		return repo.Create(t.Context(), c)
	}()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d := DraftFrom(saved)
	if d.ID() != saved.ID || !d.Persisted() {
		t.Errorf("ID() = %s, want %s", d.ID(), saved.ID)
	}
	if d.OwnerID() != "owner-a" {
		t.Errorf("OwnerID() = %q, want %q", d.OwnerID(), "owner-a")
	}
	if got := d.Snapshot().CreatedAt; !got.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got, saved.CreatedAt)
	}
}

func TestDraft_SetPreSaveLink(t *testing.T) {
	d := NewDraft("owner-a")

	if err := d.SetPreSaveLink(Spotify, "http://presave"); !errors.Is(err, ErrInsecureURL) {
		t.Errorf("SetPreSaveLink(http) error = %v, want ErrInsecureURL", err)
	}
	if err := d.SetPreSaveLink("", "https://presave"); !errors.Is(err, ErrInvalidPlatform) {
		t.Errorf("SetPreSaveLink(empty platform) error = %v, want ErrInvalidPlatform", err)
	}
	if err := d.SetPreSaveLink(Spotify, "https://presave"); err != nil {
		t.Fatalf("SetPreSaveLink() error = %v", err)
	}
	if err := d.SetPreSaveLink(Spotify, "https://presave2"); err != nil {
		t.Fatalf("SetPreSaveLink() replace error = %v", err)
	}
	if got := d.Snapshot().PreSaveLinks[Spotify]; got != "https://presave2" {
		t.Errorf("PreSaveLinks[spotify] = %q, want replaced value", got)
	}
	if err := d.SetPreSaveLink(Spotify, ""); err != nil {
		t.Fatalf("SetPreSaveLink(clear) error = %v", err)
	}
	if _, ok := d.Snapshot().PreSaveLinks[Spotify]; ok {
		t.Error("empty url did not remove pre-save link")
	}
}
