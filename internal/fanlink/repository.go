package fanlink

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/db"
	"github.com/justestif/fanlink/internal/metrics"
)

// FanLinkStore persists fan_links rows. Implemented by db.FanLinkRepository.
type FanLinkStore interface {
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	Insert(ctx context.Context, fl *db.FanLink) error
	Update(ctx context.Context, fl *db.FanLink) error
	Get(ctx context.Context, id uuid.UUID, userID string) (*db.FanLink, error)
	ListBySlug(ctx context.Context, slug string) ([]db.FanLink, error)
	ListForUser(ctx context.Context, userID string) ([]db.FanLink, error)
	Delete(ctx context.Context, id uuid.UUID, userID string) error
}

// StreamingLinkStore persists streaming_links rows. Implemented by
// db.StreamingLinkRepository.
type StreamingLinkStore interface {
	InsertBatch(ctx context.Context, fanLinkID uuid.UUID, links []db.StreamingLink) error
	Replace(ctx context.Context, fanLinkID uuid.UUID, links []db.StreamingLink) error
	ListForFanLinks(ctx context.Context, fanLinkIDs []uuid.UUID) (map[uuid.UUID][]db.StreamingLink, error)
}

// Repository maps fan links to a parent row plus ordered child rows.
//
// Writes happen in two phases: the parent row first, then the children.
// If the second phase fails the parent stays written and the caller gets a
// *PartialWriteError carrying its ID, to be finished with RetryLinks. The
// child set is always swapped as a whole, so a failed update leaves the
// previous links readable.
type Repository struct {
	fanLinks       FanLinkStore
	streamingLinks StreamingLinkStore
	log            *zap.SugaredLogger
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(r *Repository) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRepository creates a repository over the given stores.
func NewRepository(fanLinks FanLinkStore, streamingLinks StreamingLinkStore, opts ...Option) *Repository {
	r := &Repository{
		fanLinks:       fanLinks,
		streamingLinks: streamingLinks,
		log:            zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create saves a new fan link. The candidate's ID, if any, is ignored.
func (r *Repository) Create(ctx context.Context, c Candidate) (*FanLink, error) {
	fl, err := r.create(ctx, c)
	recordSave("create", err)
	return fl, err
}

func (r *Repository) create(ctx context.Context, c Candidate) (*FanLink, error) {
	if c.IsZero() {
		return nil, errors.New("create fan link: empty candidate")
	}
	want := c.FanLink()

	taken, err := r.fanLinks.SlugTaken(ctx, want.Slug, uuid.Nil)
	if err != nil {
		return nil, &TransientError{Op: "check slug", Err: err}
	}
	if taken {
		return nil, ErrSlugConflict
	}

	row := toRow(&want)
	if err := r.fanLinks.Insert(ctx, row); err != nil {
		return nil, mapStoreError("insert fan link", err)
	}

	if err := r.streamingLinks.InsertBatch(ctx, row.ID, toLinkRows(want.StreamingLinks)); err != nil {
		r.log.Warnw("fan link saved without streaming links", "fan_link_id", row.ID, "error", err)
		return nil, &PartialWriteError{FanLinkID: row.ID, Err: err}
	}

	saved := fromRow(row)
	saved.StreamingLinks = slices.Clone(want.StreamingLinks)
	return saved, nil
}

// Update replaces a fan link owned by ownerID and its entire link set. A
// missing row and a row owned by someone else both return ErrNotFound.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, ownerID string, c Candidate) (*FanLink, error) {
	fl, err := r.update(ctx, id, ownerID, c)
	recordSave("update", err)
	return fl, err
}

func (r *Repository) update(ctx context.Context, id uuid.UUID, ownerID string, c Candidate) (*FanLink, error) {
	if c.IsZero() {
		return nil, errors.New("update fan link: empty candidate")
	}
	want := c.FanLink()
	want.ID = id
	want.OwnerID = ownerID

	taken, err := r.fanLinks.SlugTaken(ctx, want.Slug, id)
	if err != nil {
		return nil, &TransientError{Op: "check slug", Err: err}
	}
	if taken {
		return nil, ErrSlugConflict
	}

	row := toRow(&want)
	if err := r.fanLinks.Update(ctx, row); err != nil {
		return nil, mapStoreError("update fan link", err)
	}

	if err := r.replaceLinks(ctx, id, want.StreamingLinks); err != nil {
		r.log.Warnw("fan link updated without streaming links", "fan_link_id", id, "error", err)
		return nil, &PartialWriteError{FanLinkID: id, Err: err}
	}

	saved := fromRow(row)
	saved.StreamingLinks = slices.Clone(want.StreamingLinks)
	return saved, nil
}

// RetryLinks finishes a write that failed after the parent row was saved.
// It replaces the fan link's links without touching the parent row.
func (r *Repository) RetryLinks(ctx context.Context, id uuid.UUID, ownerID string, links []StreamingLink) error {
	err := r.retryLinks(ctx, id, ownerID, links)
	recordSave("retry_links", err)
	return err
}

func (r *Repository) retryLinks(ctx context.Context, id uuid.UUID, ownerID string, links []StreamingLink) error {
	if len(links) == 0 {
		return ErrNoStreamingLinks
	}
	if _, err := r.fanLinks.Get(ctx, id, ownerID); err != nil {
		return mapStoreError("get fan link", err)
	}
	if err := r.replaceLinks(ctx, id, links); err != nil {
		return &PartialWriteError{FanLinkID: id, Err: err}
	}
	return nil
}

func (r *Repository) replaceLinks(ctx context.Context, id uuid.UUID, links []StreamingLink) error {
	return r.streamingLinks.Replace(ctx, id, toLinkRows(links))
}

// ListForOwner returns an owner's fan links, newest first, each with its
// links in order.
func (r *Repository) ListForOwner(ctx context.Context, ownerID string) ([]FanLink, error) {
	rows, err := r.fanLinks.ListForUser(ctx, ownerID)
	if err != nil {
		return nil, &TransientError{Op: "list fan links", Err: err}
	}
	return r.assemble(ctx, rows)
}

// MatchSlug returns every stored fan link with slug, newest first. More
// than one match means the uniqueness constraint was bypassed.
func (r *Repository) MatchSlug(ctx context.Context, slug string) ([]FanLink, error) {
	rows, err := r.fanLinks.ListBySlug(ctx, slug)
	if err != nil {
		return nil, &TransientError{Op: "match slug", Err: err}
	}
	return r.assemble(ctx, rows)
}

// GetBySlug returns the newest fan link with slug, or ErrNotFound.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*FanLink, error) {
	matches, err := r.MatchSlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	return &matches[0], nil
}

// Get returns a fan link owned by ownerID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID, ownerID string) (*FanLink, error) {
	row, err := r.fanLinks.Get(ctx, id, ownerID)
	if err != nil {
		return nil, mapStoreError("get fan link", err)
	}
	links, err := r.assemble(ctx, []db.FanLink{*row})
	if err != nil {
		return nil, err
	}
	return &links[0], nil
}

// Delete removes a fan link owned by ownerID along with its links. Deleting
// a missing fan link succeeds.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	if err := r.fanLinks.Delete(ctx, id, ownerID); err != nil {
		return &TransientError{Op: "delete fan link", Err: err}
	}
	return nil
}

func (r *Repository) assemble(ctx context.Context, rows []db.FanLink) ([]FanLink, error) {
	out := make([]FanLink, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	children, err := r.streamingLinks.ListForFanLinks(ctx, ids)
	if err != nil {
		return nil, &TransientError{Op: "list streaming links", Err: err}
	}

	for i := range rows {
		fl := fromRow(&rows[i])
		fl.StreamingLinks = orderedLinks(children[rows[i].ID])
		out = append(out, *fl)
	}
	return out, nil
}

// orderedLinks sorts child rows by position, rows without one last in
// creation order.
func orderedLinks(rows []db.StreamingLink) []StreamingLink {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b db.StreamingLink) int {
		switch {
		case a.Position == nil && b.Position == nil:
			return a.CreatedAt.Compare(b.CreatedAt)
		case a.Position == nil:
			return 1
		case b.Position == nil:
			return -1
		}
		return cmp.Compare(*a.Position, *b.Position)
	})

	links := make([]StreamingLink, len(sorted))
	for i, row := range sorted {
		p, err := ParsePlatform(row.Platform)
		if err != nil {
			p = Platform(row.Platform)
		}
		links[i] = StreamingLink{Platform: p, URL: row.URL}
	}
	return links
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, db.ErrSlugTaken):
		return ErrSlugConflict
	}
	return &TransientError{Op: op, Err: err}
}

func recordSave(op string, err error) {
	result := metrics.ResultOK
	var partial *PartialWriteError
	switch {
	case err == nil:
	case errors.Is(err, ErrSlugConflict):
		result = metrics.ResultConflict
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultNotFound
	case errors.As(err, &partial):
		result = metrics.ResultPartial
	default:
		result = metrics.ResultTransient
	}
	metrics.FanLinkSaves.WithLabelValues(op, result).Inc()
}

func toRow(fl *FanLink) *db.FanLink {
	a := fl.Appearance
	var preSave map[string]string
	if len(fl.PreSaveLinks) > 0 {
		preSave = make(map[string]string, len(fl.PreSaveLinks))
		for p, u := range fl.PreSaveLinks {
			preSave[string(p)] = u
		}
	}
	return &db.FanLink{
		ID:              fl.ID,
		UserID:          fl.OwnerID,
		Title:           fl.Title,
		Artist:          fl.Artist,
		Slug:            fl.Slug,
		CoverImage:      fl.CoverImage,
		BackgroundColor: nullable(a.BackgroundColor),
		BackgroundImage: nullable(a.BackgroundImage),
		TextColor:       nullable(a.TextColor),
		ButtonColor:     nullable(a.ButtonColor),
		ButtonTextColor: nullable(a.ButtonTextColor),
		ButtonText:      nullable(a.ButtonText),
		PreSaveLinks:    preSave,
	}
}

func fromRow(row *db.FanLink) *FanLink {
	var preSave map[Platform]string
	if len(row.PreSaveLinks) > 0 {
		preSave = make(map[Platform]string, len(row.PreSaveLinks))
		for p, u := range row.PreSaveLinks {
			preSave[Platform(p)] = u
		}
	}
	return &FanLink{
		ID:         row.ID,
		OwnerID:    row.UserID,
		Title:      row.Title,
		Artist:     row.Artist,
		Slug:       row.Slug,
		CoverImage: row.CoverImage,
		Appearance: Appearance{
			BackgroundColor: deref(row.BackgroundColor),
			BackgroundImage: deref(row.BackgroundImage),
			TextColor:       deref(row.TextColor),
			ButtonColor:     deref(row.ButtonColor),
			ButtonTextColor: deref(row.ButtonTextColor),
			ButtonText:      deref(row.ButtonText),
		},
		PreSaveLinks: preSave,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toLinkRows(links []StreamingLink) []db.StreamingLink {
	rows := make([]db.StreamingLink, len(links))
	for i, l := range links {
		pos := i
		rows[i] = db.StreamingLink{
			Platform: string(l.Platform),
			URL:      l.URL,
			Position: &pos,
		}
	}
	return rows
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
