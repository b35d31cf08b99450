package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/justestif/fanlink/internal/editor"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/spotify"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error   string       `json:"error"`
	Fields  []fieldError `json:"fields,omitempty"`
	Partial bool         `json:"partial,omitempty"`
	ID      string       `json:"id,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type draftResponse struct {
	ID     string          `json:"id"`
	Draft  fanlink.FanLink `json:"draft"`
	Errors []fieldError    `json:"errors"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type openDraftRequest struct {
	FanLinkID string `json:"fan_link_id" validate:"omitempty,uuid"`
}

type appearanceRequest struct {
	BackgroundColor string `json:"background_color"  validate:"omitempty,hexcolor"`
	BackgroundImage string `json:"background_image"  validate:"omitempty,url,startswith=https://"`
	TextColor       string `json:"text_color"        validate:"omitempty,hexcolor"`
	ButtonColor     string `json:"button_color"      validate:"omitempty,hexcolor"`
	ButtonTextColor string `json:"button_text_color" validate:"omitempty,hexcolor"`
	ButtonText      string `json:"button_text"       validate:"max=40"`
}

type patchDraftRequest struct {
	Title        *string            `json:"title"          validate:"omitempty,max=200"`
	Artist       *string            `json:"artist"         validate:"omitempty,max=200"`
	Slug         *string            `json:"slug"           validate:"omitempty,max=100"`
	CoverImage   *string            `json:"cover_image"    validate:"omitempty,max=2048"`
	Appearance   *appearanceRequest `json:"appearance"`
	PreSaveLinks map[string]string  `json:"pre_save_links" validate:"omitempty,dive,keys,required,max=50,endkeys,max=2048"`
}

type linkRequest struct {
	Platform string `json:"platform" validate:"required,max=50"`
	URL      string `json:"url"      validate:"required,max=2048"`
}

type retryLinksRequest struct {
	StreamingLinks []linkRequest `json:"streaming_links" validate:"required,min=1,dive"`
}

type importRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fieldErrors(errs []fanlink.FieldError) []fieldError {
	out := make([]fieldError, len(errs))
	for i, e := range errs {
		out[i] = fieldError{Field: e.Field, Message: e.Err.Error()}
	}
	return out
}

// writeError maps service errors to HTTP statuses.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *fanlink.ValidationError
		partial   *fanlink.PartialWriteError
		transient *fanlink.TransientError
		invalid   validator.ValidationErrors
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: fieldErrors(verr.Fields),
		})
	case errors.As(err, &invalid):
		fields := make([]fieldError, len(invalid))
		for i, fe := range invalid {
			fields[i] = fieldError{Field: fe.Namespace(), Message: "failed " + fe.Tag()}
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fields})
	case errors.As(err, &partial):
		h.log.Warnw("partial write", "fan_link_id", partial.FanLinkID, "path", r.URL.Path, "error", partial.Err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "fan link saved but its streaming links were not; retry the links",
			Partial: true,
			ID:      partial.FanLinkID.String(),
		})
	case errors.Is(err, fanlink.ErrSlugConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, editor.ErrSaveInProgress):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, fanlink.ErrNotFound), errors.Is(err, editor.ErrDraftNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &transient):
		h.log.Errorw("storage unavailable", "op", transient.Op, "path", r.URL.Path, "error", transient.Err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage temporarily unavailable, try again"})
	case errors.Is(err, fanlink.ErrDuplicatePlatform),
		errors.Is(err, fanlink.ErrInsecureURL),
		errors.Is(err, fanlink.ErrInvalidPlatform),
		errors.Is(err, fanlink.ErrIndexOutOfRange),
		errors.Is(err, fanlink.ErrNoStreamingLinks),
		errors.Is(err, spotify.ErrNotTrackURL):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		h.log.Errorw("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decode reads a JSON body into v and validates it. An empty body decodes
// to the zero value.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errBadJSON
	}
	return h.validate.Struct(v)
}

var errBadJSON = errors.New("malformed JSON body")

func (h *Handlers) decodeOrFail(w http.ResponseWriter, r *http.Request, v any) bool {
	err := h.decode(w, r, v)
	if errors.Is(err, errBadJSON) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	if err != nil {
		h.writeError(w, r, err)
		return false
	}
	return true
}

// clean strips markup from free text. The strict policy escapes what it
// keeps, so entities are decoded again for html/template to escape once.
func (h *Handlers) clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(h.sanitizer.Sanitize(s)))
}

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

func (h *Handlers) writeDraft(w http.ResponseWriter, r *http.Request, status int, draftID uuid.UUID) {
	snap, errs, err := h.workspace.View(ownerFrom(r.Context()), draftID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, draftResponse{ID: draftID.String(), Draft: snap, Errors: fieldErrors(errs)})
}

// IssueToken returns a bearer token for the signed-in owner (POST /api/token).
func (h *Handlers) IssueToken(w http.ResponseWriter, r *http.Request) {
	token, expires, err := h.tokens.Issue(ownerFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Token: token, ExpiresAt: expires})
}

// ListFanLinks returns the owner's fan links (GET /api/fanlinks).
func (h *Handlers) ListFanLinks(w http.ResponseWriter, r *http.Request) {
	list, err := h.fanLinks.ListForOwner(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DeleteFanLink deletes a fan link (DELETE /api/fanlinks/{id}).
func (h *Handlers) DeleteFanLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, fanlink.ErrNotFound)
		return
	}
	if err := h.fanLinks.Delete(r.Context(), id, ownerFrom(r.Context())); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryLinks rewrites the links of a partially saved fan link
// (POST /api/fanlinks/{id}/retry-links).
func (h *Handlers) RetryLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, fanlink.ErrNotFound)
		return
	}

	var req retryLinksRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}

	// Run the links through a scratch draft so they obey the same rules.
	owner := ownerFrom(r.Context())
	scratch := fanlink.NewDraft(owner)
	for _, l := range req.StreamingLinks {
		p, err := fanlink.ParsePlatform(l.Platform)
		if err == nil {
			err = scratch.AddStreamingLink(p, l.URL)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	if err := h.fanLinks.RetryLinks(r.Context(), id, owner, scratch.StreamingLinks()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OpenDraft starts a draft, empty or of a saved fan link (POST /api/drafts).
func (h *Handlers) OpenDraft(w http.ResponseWriter, r *http.Request) {
	var req openDraftRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}

	owner := ownerFrom(r.Context())
	var seed *fanlink.FanLink
	if req.FanLinkID != "" {
		id, err := uuid.Parse(req.FanLinkID)
		if err != nil {
			h.writeError(w, r, fanlink.ErrNotFound)
			return
		}
		fl, err := h.fanLinks.Get(r.Context(), id, owner)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		seed = fl
	}

	draftID, _ := h.workspace.Open(owner, seed)
	h.writeDraft(w, r, http.StatusCreated, draftID)
}

// PreviewDraft renders a draft as its public page would look, as an HTML
// fragment (GET /api/drafts/{id}/preview).
func (h *Handlers) PreviewDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}
	snap, _, err := h.workspace.View(ownerFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.templates.RenderPartial(&buf, "fanlink_card", buildPreview(&snap)); err != nil {
		h.writeError(w, r, fmt.Errorf("rendering preview: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// GetDraft returns a draft and its validation errors (GET /api/drafts/{id}).
func (h *Handlers) GetDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// PatchDraft updates draft fields (PATCH /api/drafts/{id}). Absent fields
// are left alone.
func (h *Handlers) PatchDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}

	var req patchDraftRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}

	_, err := h.workspace.Edit(ownerFrom(r.Context()), id, func(d *fanlink.Draft) error {
		if req.Title != nil {
			d.SetTitle(h.clean(*req.Title))
		}
		if req.Artist != nil {
			d.SetArtist(h.clean(*req.Artist))
		}
		if req.Slug != nil {
			d.SetSlug(*req.Slug)
		}
		if req.CoverImage != nil {
			d.SetCoverImage(strings.TrimSpace(*req.CoverImage))
		}
		if a := req.Appearance; a != nil {
			d.SetAppearance(fanlink.Appearance{
				BackgroundColor: a.BackgroundColor,
				BackgroundImage: a.BackgroundImage,
				TextColor:       a.TextColor,
				ButtonColor:     a.ButtonColor,
				ButtonTextColor: a.ButtonTextColor,
				ButtonText:      h.clean(a.ButtonText),
			})
		}
		for name, url := range req.PreSaveLinks {
			p, err := fanlink.ParsePlatform(name)
			if err != nil {
				return err
			}
			if err := d.SetPreSaveLink(p, url); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// DiscardDraft drops a draft (DELETE /api/drafts/{id}).
func (h *Handlers) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r); ok {
		h.workspace.Discard(ownerFrom(r.Context()), id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddLink appends a streaming link (POST /api/drafts/{id}/links).
func (h *Handlers) AddLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}

	var req linkRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}

	_, err := h.workspace.Edit(ownerFrom(r.Context()), id, func(d *fanlink.Draft) error {
		p, err := fanlink.ParsePlatform(req.Platform)
		if err != nil {
			return err
		}
		return d.AddStreamingLink(p, req.URL)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// RemoveLink removes a streaming link by position
// (DELETE /api/drafts/{id}/links/{index}).
func (h *Handlers) RemoveLink(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, r, fanlink.ErrIndexOutOfRange)
		return
	}

	_, err = h.workspace.Edit(ownerFrom(r.Context()), id, func(d *fanlink.Draft) error {
		return d.RemoveStreamingLink(index)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// RegenerateSlug derives a new slug from the title (POST /api/drafts/{id}/slug).
func (h *Handlers) RegenerateSlug(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}

	_, err := h.workspace.Edit(ownerFrom(r.Context()), id, func(d *fanlink.Draft) error {
		d.RegenerateSlug()
		return nil
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// ImportTrack fills a draft from a Spotify track link
// (POST /api/drafts/{id}/import). Needs a browser session for the
// owner's Spotify token.
func (h *Handlers) ImportTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}

	session := sessionFrom(r.Context())
	if session == nil || session.Token == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "spotify import needs a signed-in browser session"})
		return
	}

	var req importRequest
	if !h.decodeOrFail(w, r, &req) {
		return
	}

	// Fail fast on the draft before calling Spotify.
	owner := ownerFrom(r.Context())
	if _, _, err := h.workspace.View(owner, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	info, err := h.tracks.Track(r.Context(), session.Token, req.URL)
	if err != nil {
		if errors.Is(err, spotify.ErrNotTrackURL) {
			h.writeError(w, r, err)
			return
		}
		h.log.Warnw("spotify track lookup failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "spotify lookup failed"})
		return
	}

	_, err = h.workspace.Edit(owner, id, func(d *fanlink.Draft) error {
		return spotify.ApplyTrack(d, info)
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeDraft(w, r, http.StatusOK, id)
}

// PublishDraft validates and saves a draft (POST /api/drafts/{id}/publish).
func (h *Handlers) PublishDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, r, editor.ErrDraftNotFound)
		return
	}

	saved, err := h.workspace.Publish(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.log.Infow("fan link published", "fan_link_id", saved.ID, "slug", saved.Slug)
	writeJSON(w, http.StatusOK, struct {
		FanLink   *fanlink.FanLink `json:"fan_link"`
		PublicURL string           `json:"public_url"`
	}{saved, h.publicURL(saved.Slug)})
}
