// Package resolver maps public slugs to fan links for anonymous visitors.
package resolver

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/metrics"
)

// State is the outcome of a resolution.
type State int

const (
	Resolving State = iota
	Found
	NotFound
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	}
	return "unknown"
}

// Result is a finished resolution. FanLink is set only when State is Found.
type Result struct {
	State   State
	FanLink *fanlink.FanLink
}

// Matcher returns every stored fan link with a slug, newest first.
// Implemented by *fanlink.Repository.
type Matcher interface {
	MatchSlug(ctx context.Context, slug string) ([]fanlink.FanLink, error)
}

// Resolver turns slugs into Found or NotFound. Lookup failures are logged
// and reported as NotFound so visitors never see internal errors.
type Resolver struct {
	matcher Matcher
	log     *zap.SugaredLogger
}

// New creates a resolver.
func New(matcher Matcher, log *zap.SugaredLogger) *Resolver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Resolver{matcher: matcher, log: log}
}

// Resolve looks up slug.
func (r *Resolver) Resolve(ctx context.Context, slug string) Result {
	res := r.resolve(ctx, slug)
	metrics.Resolutions.WithLabelValues(res.State.String()).Inc()
	return res
}

func (r *Resolver) resolve(ctx context.Context, slug string) Result {
	if slug == "" {
		return Result{State: NotFound}
	}

	matches, err := r.matcher.MatchSlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, fanlink.ErrNotFound) {
			r.log.Errorw("resolving slug failed", "slug", slug, "error", err)
		}
		return Result{State: NotFound}
	}
	if len(matches) == 0 {
		return Result{State: NotFound}
	}

	if len(matches) > 1 {
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID.String()
		}
		r.log.Warnw("slug matches more than one fan link, serving newest",
			"slug", slug,
			"fan_link_ids", ids,
		)
	}

	newest := slices.MaxFunc(matches, func(a, b fanlink.FanLink) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return Result{State: Found, FanLink: &newest}
}
