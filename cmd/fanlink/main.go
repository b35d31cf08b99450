// Command fanlink runs the FanLink web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/justestif/fanlink/internal/analytics"
	"github.com/justestif/fanlink/internal/auth"
	"github.com/justestif/fanlink/internal/changefeed"
	"github.com/justestif/fanlink/internal/config"
	"github.com/justestif/fanlink/internal/db"
	"github.com/justestif/fanlink/internal/editor"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/logger"
	"github.com/justestif/fanlink/internal/resolver"
	"github.com/justestif/fanlink/internal/spotify"
	"github.com/justestif/fanlink/internal/web"
	webfs "github.com/justestif/fanlink/web"
)

const sessionSweepInterval = 15 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Dir:     cfg.Log.Dir,
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
	})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	applied, err := database.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		log.Infow("applied migrations", "migrations", applied)
	}

	hub := changefeed.NewHub()
	listener := changefeed.NewListener(database.Pool(), hub, log)

	repo := fanlink.NewRepository(database.FanLinks(), database.StreamingLinks(), fanlink.WithLogger(log))

	authenticator, err := auth.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:        cfg.HTTP.Addr,
		BaseURL:     cfg.HTTP.BaseURL,
		TemplatesFS: templates,
		StaticFS:    static,
	}, web.Deps{
		Sessions:  web.NewDBSessionStore(database, cfg.Auth.SessionTTL),
		OAuth:     authenticator,
		Users:     database.Users(),
		Notifier:  auth.NewNotifier(),
		Tokens:    auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		FanLinks:  repo,
		Resolver:  resolver.New(repo, log),
		Workspace: editor.NewWorkspace(repo),
		Events:    analytics.NewRecorder(database.LinkEvents(), log),
		Stats:     database.LinkEvents(),
		Tracks:    spotify.NewImporter(authenticator.Client),
		Feed:      hub,
		Debounce:  cfg.LiveSync.Debounce,
		Pinger:    database,
		Log:       log,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listener.Run(ctx) })
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error {
		sweepSessions(ctx, database, log)
		return nil
	})
	return g.Wait()
}

// sweepSessions deletes expired sessions until ctx is done.
func sweepSessions(ctx context.Context, database *db.DB, log *zap.SugaredLogger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := database.Sessions().DeleteExpired(ctx)
			if err != nil {
				log.Warnw("deleting expired sessions failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debugw("deleted expired sessions", "count", n)
			}
		}
	}
}
