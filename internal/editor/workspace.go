// Package editor holds owners' in-progress drafts between requests and
// publishes them through the fan link repository.
package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/justestif/fanlink/internal/fanlink"
)

var (
	ErrDraftNotFound  = errors.New("draft not found")
	ErrSaveInProgress = errors.New("draft is already being saved")
)

// Publisher saves candidates. Implemented by *fanlink.Repository.
type Publisher interface {
	Create(ctx context.Context, c fanlink.Candidate) (*fanlink.FanLink, error)
	Update(ctx context.Context, id uuid.UUID, ownerID string, c fanlink.Candidate) (*fanlink.FanLink, error)
}

type entry struct {
	draft  *fanlink.Draft
	saving bool
}

// Workspace stores drafts per owner. Each draft is only reachable with its
// owner's ID, and a draft being published cannot be edited or published
// again until the save finishes.
type Workspace struct {
	mu        sync.Mutex
	publisher Publisher
	drafts    map[string]map[uuid.UUID]*entry
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(p Publisher) *Workspace {
	return &Workspace{
		publisher: p,
		drafts:    make(map[string]map[uuid.UUID]*entry),
	}
}

// Open starts a draft for ownerID. With a nil seed the draft is empty;
// otherwise it edits seed. Returns the draft ID and its initial contents.
func (w *Workspace) Open(ownerID string, seed *fanlink.FanLink) (uuid.UUID, fanlink.FanLink) {
	var d *fanlink.Draft
	if seed == nil {
		d = fanlink.NewDraft(ownerID)
	} else {
		d = fanlink.DraftFrom(seed)
	}

	id := uuid.New()
	w.mu.Lock()
	defer w.mu.Unlock()
	owned, ok := w.drafts[ownerID]
	if !ok {
		owned = make(map[uuid.UUID]*entry)
		w.drafts[ownerID] = owned
	}
	owned[id] = &entry{draft: d}
	return id, d.Snapshot()
}

// Edit applies fn to a draft and returns the draft's contents afterwards.
// An error from fn is returned along with the unchanged-or-partial state.
func (w *Workspace) Edit(ownerID string, id uuid.UUID, fn func(*fanlink.Draft) error) (fanlink.FanLink, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.lookup(ownerID, id)
	if err != nil {
		return fanlink.FanLink{}, err
	}
	if e.saving {
		return e.draft.Snapshot(), ErrSaveInProgress
	}
	err = fn(e.draft)
	return e.draft.Snapshot(), err
}

// View returns a draft's contents and its current validation errors.
func (w *Workspace) View(ownerID string, id uuid.UUID) (fanlink.FanLink, []fanlink.FieldError, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, err := w.lookup(ownerID, id)
	if err != nil {
		return fanlink.FanLink{}, nil, err
	}
	return e.draft.Snapshot(), e.draft.Validate(), nil
}

// Publish validates the draft and saves it: a new draft is created, a
// draft of a saved fan link updates it. On success the draft is removed.
//
// If a create saves the fan link but not its links, the draft is attached
// to the new fan link so publishing again updates it instead of creating a
// duplicate.
func (w *Workspace) Publish(ctx context.Context, ownerID string, id uuid.UUID) (*fanlink.FanLink, error) {
	w.mu.Lock()
	e, err := w.lookup(ownerID, id)
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if e.saving {
		w.mu.Unlock()
		return nil, ErrSaveInProgress
	}
	c, err := e.draft.ToPublishCandidate()
	if err != nil {
		w.mu.Unlock()
		return nil, err
	}
	e.saving = true
	existing := e.draft.ID()
	w.mu.Unlock()

	var saved *fanlink.FanLink
	if existing == uuid.Nil {
		saved, err = w.publisher.Create(ctx, c)
	} else {
		saved, err = w.publisher.Update(ctx, existing, ownerID, c)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	e.saving = false

	var partial *fanlink.PartialWriteError
	switch {
	case err == nil:
		w.remove(ownerID, id)
	case errors.As(err, &partial) && existing == uuid.Nil:
		e.draft.SetID(partial.FanLinkID)
	}
	return saved, err
}

// Discard drops a draft. Unknown drafts are ignored.
func (w *Workspace) Discard(ownerID string, id uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.remove(ownerID, id)
}

// DiscardAll drops every draft of ownerID, used on sign-out.
func (w *Workspace) DiscardAll(ownerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.drafts, ownerID)
}

// Len returns how many drafts ownerID has open.
func (w *Workspace) Len(ownerID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.drafts[ownerID])
}

func (w *Workspace) lookup(ownerID string, id uuid.UUID) (*entry, error) {
	e, ok := w.drafts[ownerID][id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	return e, nil
}

func (w *Workspace) remove(ownerID string, id uuid.UUID) {
	owned, ok := w.drafts[ownerID]
	if !ok {
		return
	}
	delete(owned, id)
	if len(owned) == 0 {
		delete(w.drafts, ownerID)
	}
}
