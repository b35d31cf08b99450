package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/justestif/fanlink/internal/fanlink"
)

// Dashboard lists the owner's fan links (GET /dashboard).
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	list, err := h.fanLinks.ListForOwner(r.Context(), session.OwnerID)
	if err != nil {
		h.log.Errorw("listing fan links failed", "owner_id", session.OwnerID, "error", err)
		http.Error(w, "Fan links are temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	h.render(w, 0, "dashboard", DashboardPageData{
		PageData: PageData{
			Title:       "Your fan links",
			CurrentPath: r.URL.Path,
			User:        userData(session),
		},
		FanLinks: h.rows(r.Context(), list),
	})
}

// rows attaches public URLs and view/click counts. Missing counts show as zero.
func (h *Handlers) rows(ctx context.Context, list []fanlink.FanLink) []FanLinkRow {
	ids := make([]uuid.UUID, len(list))
	for i, fl := range list {
		ids[i] = fl.ID
	}

	counts, err := h.stats.CountsForFanLinks(ctx, ids)
	if err != nil {
		h.log.Warnw("loading link stats failed", "error", err)
	}

	rows := make([]FanLinkRow, len(list))
	for i, fl := range list {
		c := counts[fl.ID]
		rows[i] = FanLinkRow{
			FanLink:   fl,
			PublicURL: h.publicURL(fl.Slug),
			Views:     c.Views,
			Clicks:    c.Clicks,
		}
	}
	return rows
}

func (h *Handlers) publicURL(slug string) string {
	return h.baseURL + "/link/" + slug
}

// NewFanLink opens an empty draft (GET /dashboard/new).
func (h *Handlers) NewFanLink(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	draftID, snap := h.workspace.Open(session.OwnerID, nil)
	h.renderEditor(w, r, session, draftID, snap, false)
}

// EditFanLink opens a draft of a saved fan link (GET /dashboard/edit/{id}).
func (h *Handlers) EditFanLink(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	fl, err := h.fanLinks.Get(r.Context(), id, session.OwnerID)
	switch {
	case errors.Is(err, fanlink.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.log.Errorw("loading fan link failed", "fan_link_id", id, "error", err)
		http.Error(w, "Fan link is temporarily unavailable", http.StatusServiceUnavailable)
		return
	}

	draftID, snap := h.workspace.Open(session.OwnerID, fl)
	h.renderEditor(w, r, session, draftID, snap, true)
}

func (h *Handlers) renderEditor(w http.ResponseWriter, r *http.Request, session *Session, draftID uuid.UUID, snap fanlink.FanLink, editing bool) {
	title := "New fan link"
	if editing {
		title = "Edit " + snap.Title
	}

	h.render(w, 0, "editor", EditorPageData{
		PageData: PageData{
			Title:       title,
			CurrentPath: r.URL.Path,
			User:        userData(session),
		},
		DraftID:   draftID.String(),
		Draft:     snap,
		Preview:   buildPreview(&snap),
		Platforms: fanlink.KnownPlatforms(),
		Editing:   editing,
	})
}
