package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/justestif/fanlink/internal/analytics"
	"github.com/justestif/fanlink/internal/auth"
	"github.com/justestif/fanlink/internal/db"
	"github.com/justestif/fanlink/internal/editor"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/livesync"
	"github.com/justestif/fanlink/internal/resolver"
	"github.com/justestif/fanlink/internal/spotify"
)

const stateCookieName = "oauth_state"

// OAuth runs the sign-in flow. Implemented by *auth.Authenticator.
type OAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, state string, r *http.Request) (*oauth2.Token, *auth.Profile, error)
}

// UserStore records signed-in owners. Implemented by *db.UserRepository.
type UserStore interface {
	Upsert(ctx context.Context, user *db.User) error
}

// FanLinkService is the owner-facing part of *fanlink.Repository.
type FanLinkService interface {
	ListForOwner(ctx context.Context, ownerID string) ([]fanlink.FanLink, error)
	Get(ctx context.Context, id uuid.UUID, ownerID string) (*fanlink.FanLink, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
	RetryLinks(ctx context.Context, id uuid.UUID, ownerID string, links []fanlink.StreamingLink) error
}

// SlugResolver is implemented by *resolver.Resolver.
type SlugResolver interface {
	Resolve(ctx context.Context, slug string) resolver.Result
}

// EventRecorder is implemented by *analytics.Recorder.
type EventRecorder interface {
	RecordView(ctx context.Context, fanLinkID uuid.UUID, v analytics.Visit)
	RecordClick(ctx context.Context, fanLinkID uuid.UUID, platform fanlink.Platform, v analytics.Visit)
}

// StatsSource is implemented by *db.LinkEventRepository.
type StatsSource interface {
	CountsForFanLinks(ctx context.Context, fanLinkIDs []uuid.UUID) (map[uuid.UUID]db.EventCounts, error)
}

// TrackLookup is implemented by *spotify.Importer.
type TrackLookup interface {
	Track(ctx context.Context, token *oauth2.Token, raw string) (*spotify.TrackInfo, error)
}

// Pinger reports database health. Implemented by *db.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	sessions  SessionManager
	oauth     OAuth
	users     UserStore
	notifier  *auth.Notifier
	tokens    *auth.TokenIssuer
	fanLinks  FanLinkService
	resolver  SlugResolver
	workspace *editor.Workspace
	events    EventRecorder
	stats     StatsSource
	tracks    TrackLookup
	feed      livesync.Subscriber
	debounce  time.Duration
	pinger    Pinger
	log       *zap.SugaredLogger

	templates *Templates
	baseURL   string
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, templates *Templates, baseURL string) *Handlers {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Handlers{
		sessions:  deps.Sessions,
		oauth:     deps.OAuth,
		users:     deps.Users,
		notifier:  deps.Notifier,
		tokens:    deps.Tokens,
		fanLinks:  deps.FanLinks,
		resolver:  deps.Resolver,
		workspace: deps.Workspace,
		events:    deps.Events,
		stats:     deps.Stats,
		tracks:    deps.Tracks,
		feed:      deps.Feed,
		debounce:  deps.Debounce,
		pinger:    deps.Pinger,
		log:       log,
		templates: templates,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// render writes a full page. status 0 means 200.
func (h *Handlers) render(w http.ResponseWriter, status int, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != 0 {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, data); err != nil {
		h.log.Errorw("rendering template failed", "page", page, "error", err)
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
	}
}

func userData(s *Session) *UserData {
	if s == nil {
		return nil
	}
	return &UserData{ID: s.OwnerID, Name: s.DisplayName}
}

// Home handles the home page (GET /).
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)

	h.render(w, 0, "home", HomePageData{
		PageData: PageData{
			Title:       "FanLink",
			CurrentPath: r.URL.Path,
			User:        userData(session),
		},
		Authenticated: session != nil,
	})
}

// Health reports liveness and database reachability (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.log.Warnw("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := auth.GenerateState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.oauth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	token, profile, err := h.oauth.Exchange(r.Context(), stateCookie.Value, r)
	if err != nil {
		h.log.Warnw("spotify sign-in failed", "error", err)
		http.Error(w, "Sign-in failed", http.StatusBadRequest)
		return
	}

	if err := h.users.Upsert(r.Context(), &db.User{ID: profile.ID, DisplayName: profile.DisplayName}); err != nil {
		h.log.Errorw("saving user failed", "owner_id", profile.ID, "error", err)
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Create(r.Context(), token, profile.ID, profile.DisplayName)
	if err != nil {
		h.log.Errorw("creating session failed", "owner_id", profile.ID, "error", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	h.sessions.SetCookie(w, session)
	h.notifier.SignedIn(session.ID, session.OwnerID)
	h.log.Infow("owner signed in", "owner_id", session.OwnerID)

	http.Redirect(w, r, "/dashboard", http.StatusTemporaryRedirect)
}

// Logout clears the session and redirects to home (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session != nil {
		h.sessions.Delete(r.Context(), session.ID)
		h.workspace.DiscardAll(session.OwnerID)
		h.notifier.SignedOut(session.ID)
	}

	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
