package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/auth"
	"github.com/justestif/fanlink/internal/editor"
	"github.com/justestif/fanlink/internal/livesync"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

const shutdownTimeout = 10 * time.Second

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr        string
	BaseURL     string // public origin used in share links, no trailing slash
	TemplatesFS fs.FS
	StaticFS    fs.FS
}

// Deps are the services the handlers call. All fields except Log are
// required.
type Deps struct {
	Sessions  SessionManager
	OAuth     OAuth
	Users     UserStore
	Notifier  *auth.Notifier
	Tokens    *auth.TokenIssuer
	FanLinks  FanLinkService
	Resolver  SlugResolver
	Workspace *editor.Workspace
	Events    EventRecorder
	Stats     StatsSource
	Tracks    TrackLookup
	Feed      livesync.Subscriber
	Debounce  time.Duration
	Pinger    Pinger
	Log       *zap.SugaredLogger
}

// Server is the HTTP server for the web application.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
	log      *zap.SugaredLogger
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, deps Deps) (*Server, error) {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}

	templates, err := NewTemplates(cfg.TemplatesFS)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	handlers := NewHandlers(deps, templates, cfg.BaseURL)

	s := &Server{
		router:   chi.NewRouter(),
		handlers: handlers,
		log:      deps.Log,
	}
	s.setupMiddleware()
	s.setupRoutes(cfg.StaticFS)

	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes(staticFS fs.FS) {
	h := s.handlers

	// The websocket must not go through Compress: it hijacks the connection.
	s.router.With(h.requireSocketSession).Get("/dashboard/live", h.Live)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))

		fileServer := http.FileServer(http.FS(staticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

		r.Get("/", h.Home)
		r.Get("/healthz", h.Health)
		r.Handle("/metrics", promhttp.Handler())

		// Auth routes
		r.Get("/auth/login", h.Login)
		r.Get("/callback", h.Callback)
		r.Post("/auth/logout", h.Logout)

		// Public pages
		r.Get("/link/{slug}", h.FanLinkPage)
		r.Get("/l/{slug}", h.FanLinkPage)
		r.Get("/link/{slug}/go/{platform}", h.GoToPlatform)

		// Owner pages
		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/dashboard/new", h.NewFanLink)
			r.Get("/dashboard/edit/{id}", h.EditFanLink)
		})

		r.Route("/api", func(r chi.Router) {
			r.Use(h.requireOwner)
			r.Post("/token", h.IssueToken)

			r.Get("/fanlinks", h.ListFanLinks)
			r.Delete("/fanlinks/{id}", h.DeleteFanLink)
			r.Post("/fanlinks/{id}/retry-links", h.RetryLinks)

			r.Post("/drafts", h.OpenDraft)
			r.Get("/drafts/{id}", h.GetDraft)
			r.Get("/drafts/{id}/preview", h.PreviewDraft)
			r.Patch("/drafts/{id}", h.PatchDraft)
			r.Delete("/drafts/{id}", h.DiscardDraft)
			r.Post("/drafts/{id}/links", h.AddLink)
			r.Delete("/drafts/{id}/links/{index}", h.RemoveLink)
			r.Post("/drafts/{id}/slug", h.RegenerateSlug)
			r.Post("/drafts/{id}/import", h.ImportTrack)
			r.Post("/drafts/{id}/publish", h.PublishDraft)
		})
	})
}

// ServeHTTP lets the server be used directly as a handler in tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("starting server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.log.Info("server stopped")
	return nil
}
