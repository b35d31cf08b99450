package fanlink

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/fanlink/internal/db"
)

// fakeStore implements FanLinkStore and StreamingLinkStore in memory.
type fakeStore struct {
	mu       sync.Mutex
	now      time.Time
	fanLinks map[uuid.UUID]db.FanLink
	links    map[uuid.UUID][]db.StreamingLink

	// enforceUnique rejects duplicate slugs on Insert like the real table.
	enforceUnique bool

	// Errors returned by the next matching call, when set.
	slugTakenErr   error
	insertErr      error
	insertBatchErr error
	replaceErr     error
	listErr        error

	// calls records store method names in order.
	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		now:           time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		fanLinks:      make(map[uuid.UUID]db.FanLink),
		links:         make(map[uuid.UUID][]db.StreamingLink),
		enforceUnique: true,
	}
}

func (s *fakeStore) record(name string) {
	s.calls = append(s.calls, name)
}

func (s *fakeStore) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *fakeStore) SlugTaken(_ context.Context, slug string, exclude uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("SlugTaken")
	if s.slugTakenErr != nil {
		return false, s.slugTakenErr
	}
	for id, fl := range s.fanLinks {
		if fl.Slug == slug && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) Insert(_ context.Context, fl *db.FanLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Insert")
	if s.insertErr != nil {
		return s.insertErr
	}
	if s.enforceUnique {
		for _, existing := range s.fanLinks {
			if existing.Slug == fl.Slug {
				return db.ErrSlugTaken
			}
		}
	}
	fl.ID = uuid.New()
	fl.CreatedAt = s.tick()
	fl.UpdatedAt = fl.CreatedAt
	s.fanLinks[fl.ID] = *fl
	return nil
}

func (s *fakeStore) Update(_ context.Context, fl *db.FanLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Update")
	existing, ok := s.fanLinks[fl.ID]
	if !ok || existing.UserID != fl.UserID {
		return db.ErrNotFound
	}
	fl.CreatedAt = existing.CreatedAt
	fl.UpdatedAt = s.tick()
	s.fanLinks[fl.ID] = *fl
	return nil
}

func (s *fakeStore) Get(_ context.Context, id uuid.UUID, userID string) (*db.FanLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Get")
	fl, ok := s.fanLinks[id]
	if !ok || fl.UserID != userID {
		return nil, db.ErrNotFound
	}
	return &fl, nil
}

func (s *fakeStore) ListBySlug(_ context.Context, slug string) ([]db.FanLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListBySlug")
	return s.filter(func(fl db.FanLink) bool { return fl.Slug == slug })
}

func (s *fakeStore) ListForUser(_ context.Context, userID string) ([]db.FanLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListForUser")
	return s.filter(func(fl db.FanLink) bool { return fl.UserID == userID })
}

func (s *fakeStore) filter(keep func(db.FanLink) bool) ([]db.FanLink, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []db.FanLink
	for _, fl := range s.fanLinks {
		if keep(fl) {
			out = append(out, fl)
		}
	}
	slices.SortFunc(out, func(a, b db.FanLink) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (s *fakeStore) Delete(_ context.Context, id uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Delete")
	if fl, ok := s.fanLinks[id]; ok && fl.UserID == userID {
		delete(s.fanLinks, id)
		delete(s.links, id)
	}
	return nil
}

func (s *fakeStore) InsertBatch(_ context.Context, fanLinkID uuid.UUID, links []db.StreamingLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("InsertBatch")
	if s.insertBatchErr != nil {
		return s.insertBatchErr
	}
	for _, l := range links {
		l.ID = uuid.New()
		l.FanLinkID = fanLinkID
		l.CreatedAt = s.tick()
		s.links[fanLinkID] = append(s.links[fanLinkID], l)
	}
	return nil
}

// Replace swaps the link set atomically. insertBatchErr also fails it,
// since the insert runs inside the same transaction.
func (s *fakeStore) Replace(_ context.Context, fanLinkID uuid.UUID, links []db.StreamingLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("Replace")
	if s.replaceErr != nil {
		return s.replaceErr
	}
	if s.insertBatchErr != nil {
		return s.insertBatchErr
	}
	rows := make([]db.StreamingLink, 0, len(links))
	for _, l := range links {
		l.ID = uuid.New()
		l.FanLinkID = fanLinkID
		l.CreatedAt = s.tick()
		rows = append(rows, l)
	}
	s.links[fanLinkID] = rows
	return nil
}

func (s *fakeStore) ListForFanLinks(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]db.StreamingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListForFanLinks")
	out := make(map[uuid.UUID][]db.StreamingLink)
	// Return rows in reverse insertion order so callers must sort.
	for _, id := range ids {
		rows := slices.Clone(s.links[id])
		slices.Reverse(rows)
		if len(rows) > 0 {
			out[id] = rows
		}
	}
	return out, nil
}

func (s *fakeStore) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fanLinks)
}

func (s *fakeStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

var errGateway = errors.New("connection reset by peer")
