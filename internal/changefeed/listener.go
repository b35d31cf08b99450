package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/metrics"
)

// Channel is the NOTIFY channel the database triggers publish on.
const Channel = "fanlink_changes"

// Publisher receives decoded changes. Implemented by *Hub.
type Publisher interface {
	Publish(c Change) int
}

// Resync is published after the feed reconnects. Notifications sent while
// disconnected are lost, and subscribers to the unfiltered streaming_links
// table treat any change as a signal to refetch.
var Resync = Change{Table: "streaming_links", Type: Update}

// Listener forwards LISTEN notifications to a Publisher.
type Listener struct {
	pool       *pgxpool.Pool
	publisher  Publisher
	log        *zap.SugaredLogger
	retryDelay time.Duration

	// listenFn defaults to listen; it calls ready once LISTEN succeeded.
	listenFn func(ctx context.Context, ready func()) error
}

// NewListener creates a listener on pool that publishes to p.
func NewListener(pool *pgxpool.Pool, p Publisher, log *zap.SugaredLogger) *Listener {
	l := &Listener{
		pool:       pool,
		publisher:  p,
		log:        log,
		retryDelay: 2 * time.Second,
	}
	l.listenFn = l.listen
	return l
}

// Run listens until ctx is cancelled, reconnecting after connection loss.
// Changes that happen while disconnected are not replayed; instead every
// reconnect publishes Resync.
func (l *Listener) Run(ctx context.Context) error {
	connected := false
	ready := func() {
		if connected {
			l.log.Infow("change feed reconnected, requesting resync")
			l.publisher.Publish(Resync)
		}
		connected = true
	}

	for {
		err := l.listenFn(ctx, ready)
		if ctx.Err() != nil {
			return nil
		}
		l.log.Warnw("change feed disconnected", "error", err, "retry_in", l.retryDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retryDelay):
		}
	}
}

func (l *Listener) listen(ctx context.Context, ready func()) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listening on %s: %w", Channel, err)
	}
	l.log.Infow("change feed listening", "channel", Channel)
	ready()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("waiting for notification: %w", err)
		}

		c, err := decode(n.Payload)
		if err != nil {
			l.log.Warnw("dropping malformed change", "payload", n.Payload, "error", err)
			continue
		}
		metrics.ChangeFeedEvents.WithLabelValues(c.Table).Inc()
		l.publisher.Publish(c)
	}
}

var errMissingTable = errors.New("change has no table")

func decode(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Change{}, fmt.Errorf("decoding change: %w", err)
	}
	if c.Table == "" {
		return Change{}, errMissingTable
	}
	switch c.Type {
	case Insert, Update, Delete:
	default:
		return Change{}, fmt.Errorf("unknown change type %q", c.Type)
	}
	return c, nil
}
