// Package livesync keeps an owner's fan link list current by refetching it
// whenever the change feed reports a relevant row change.
package livesync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/changefeed"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/metrics"
)

// DefaultDebounce is how long a burst of changes is collected before the
// list is refetched.
const DefaultDebounce = 250 * time.Millisecond

// Tables watched by a channel.
const (
	fanLinksTable       = "fan_links"
	streamingLinksTable = "streaming_links"
	ownerColumn         = "user_id"
)

// ErrNoOwner is returned when opening a channel without an owner.
var ErrNoOwner = errors.New("live sync requires an owner")

// Subscriber provides change subscriptions. Implemented by *changefeed.Hub.
type Subscriber interface {
	Subscribe(f changefeed.Filter) *changefeed.Subscription
}

// Lister loads an owner's fan links. Implemented by *fanlink.Repository.
type Lister interface {
	ListForOwner(ctx context.Context, ownerID string) ([]fanlink.FanLink, error)
}

// Channel delivers an owner's refreshed fan link list after every change.
//
// Fan link rows are filtered by owner. Streaming link rows carry no owner,
// so every streaming link change triggers a refetch. Changes are never
// merged into the previous list.
type Channel struct {
	ownerID  string
	lister   Lister
	debounce time.Duration
	log      *zap.SugaredLogger

	fanLinks       *changefeed.Subscription
	streamingLinks *changefeed.Subscription
	updates        chan []fanlink.FanLink

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Channel.
type Option func(*Channel)

// WithDebounce sets the coalescing window. Zero refetches on every change.
func WithDebounce(d time.Duration) Option {
	return func(c *Channel) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *Channel) {
		if log != nil {
			c.log = log
		}
	}
}

// Open subscribes to changes for ownerID and starts delivering lists. The
// first list is fetched immediately. The channel stops when ctx is done or
// Close is called.
func Open(ctx context.Context, feed Subscriber, lister Lister, ownerID string, opts ...Option) (*Channel, error) {
	if ownerID == "" {
		return nil, ErrNoOwner
	}

	c := &Channel{
		ownerID:  ownerID,
		lister:   lister,
		debounce: DefaultDebounce,
		log:      zap.NewNop().Sugar(),
		updates:  make(chan []fanlink.FanLink, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.fanLinks = feed.Subscribe(changefeed.Filter{
		Table:  fanLinksTable,
		Column: ownerColumn,
		Value:  ownerID,
	})
	c.streamingLinks = feed.Subscribe(changefeed.Filter{Table: streamingLinksTable})

	ctx, c.cancel = context.WithCancel(ctx)
	metrics.LiveChannels.Inc()
	go c.run(ctx)
	return c, nil
}

// Updates returns the channel lists are delivered on. Only the most recent
// undelivered list is kept. The channel is closed once the Channel stops.
func (c *Channel) Updates() <-chan []fanlink.FanLink {
	return c.updates
}

// Done is closed once the Channel has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close tears down both subscriptions and waits for the refresh loop to
// exit. Safe to call more than once.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.fanLinks.Close()
		c.streamingLinks.Close()
		<-c.done
		metrics.LiveChannels.Dec()
	})
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.updates)

	c.refresh(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	invalidate := func() {
		if c.debounce == 0 {
			c.refresh(ctx)
			return
		}
		if fire == nil {
			timer = time.NewTimer(c.debounce)
			fire = timer.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-c.fanLinks.Events():
			if !ok {
				return
			}
			invalidate()
		case _, ok := <-c.streamingLinks.Events():
			if !ok {
				return
			}
			invalidate()
		case <-fire:
			fire = nil
			c.refresh(ctx)
		}
	}
}

func (c *Channel) refresh(ctx context.Context) {
	metrics.LiveSyncRefetches.Inc()
	list, err := c.lister.ListForOwner(ctx, c.ownerID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.LiveSyncErrors.Inc()
		c.log.Warnw("live sync refetch failed", "owner_id", c.ownerID, "error", err)
		return
	}
	c.publish(list)
}

// publish replaces any undelivered list with list.
func (c *Channel) publish(list []fanlink.FanLink) {
	select {
	case c.updates <- list:
		return
	default:
	}
	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- list:
	default:
	}
}
