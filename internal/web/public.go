package web

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/justestif/fanlink/internal/analytics"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/resolver"
)

func visit(r *http.Request) analytics.Visit {
	return analytics.Visit{UserAgent: r.UserAgent(), Referrer: r.Referer()}
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request, slug string) {
	h.render(w, http.StatusNotFound, "notfound", NotFoundPageData{
		PageData: PageData{Title: "Link Not Found", CurrentPath: r.URL.Path, Public: true},
		Slug:     slug,
	})
}

// FanLinkPage renders a public fan link (GET /link/{slug}, GET /l/{slug}).
func (h *Handlers) FanLinkPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	res := h.resolver.Resolve(r.Context(), slug)
	if res.State != resolver.Found {
		h.notFound(w, r, slug)
		return
	}

	fl := res.FanLink
	h.render(w, 0, "fanlink", buildFanLinkPage(fl, r.URL.Path))
	h.events.RecordView(r.Context(), fl.ID, visit(r))
}

// GoToPlatform counts a click and redirects to the platform URL
// (GET /link/{slug}/go/{platform}). Pre-save links are used for platforms
// without a streaming link.
func (h *Handlers) GoToPlatform(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	res := h.resolver.Resolve(r.Context(), slug)
	if res.State != resolver.Found {
		h.notFound(w, r, slug)
		return
	}

	p, err := fanlink.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		h.notFound(w, r, slug)
		return
	}

	fl := res.FanLink
	target, ok := fl.Link(p)
	if !ok {
		target, ok = fl.PreSaveLinks[p]
	}
	if !ok {
		h.notFound(w, r, slug)
		return
	}

	h.events.RecordClick(r.Context(), fl.ID, p, visit(r))
	http.Redirect(w, r, target, http.StatusFound)
}

func buildFanLinkPage(fl *fanlink.FanLink, path string) FanLinkPageData {
	goURL := func(p fanlink.Platform) string {
		return "/link/" + url.PathEscape(fl.Slug) + "/go/" + url.PathEscape(string(p))
	}

	data := FanLinkPageData{
		PageData: PageData{
			Title:       fl.Title + " by " + fl.Artist,
			CurrentPath: path,
			Public:      true,
		},
		FanLink:    fl,
		Appearance: fl.Appearance.WithDefaults(),
		Background: fl.Appearance.Background(),
	}

	for _, l := range fl.StreamingLinks {
		data.Buttons = append(data.Buttons, ButtonData{
			Platform: l.Platform,
			Name:     l.Platform.Name(),
			Color:    l.Platform.Color(),
			URL:      goURL(l.Platform),
		})
	}

	// Map order is random; list pre-save buttons by platform.
	preSave := make([]fanlink.Platform, 0, len(fl.PreSaveLinks))
	for p := range fl.PreSaveLinks {
		if _, streaming := fl.Link(p); !streaming {
			preSave = append(preSave, p)
		}
	}
	slices.Sort(preSave)
	for _, p := range preSave {
		data.PreSave = append(data.PreSave, ButtonData{
			Platform: p,
			Name:     p.Name(),
			Color:    p.Color(),
			URL:      goURL(p),
		})
	}

	return data
}

// buildPreview lays a draft out like its public page. Buttons point straight
// at the platforms since the draft may not have a slug yet.
func buildPreview(fl *fanlink.FanLink) FanLinkPageData {
	data := buildFanLinkPage(fl, "")
	for i, b := range data.Buttons {
		data.Buttons[i].URL, _ = fl.Link(b.Platform)
	}
	for i, b := range data.PreSave {
		data.PreSave[i].URL = fl.PreSaveLinks[b.Platform]
	}
	return data
}
