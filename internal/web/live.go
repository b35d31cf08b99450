package web

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/livesync"
)

const (
	liveWriteWait  = 10 * time.Second
	livePingPeriod = 30 * time.Second
	livePongWait   = 2 * livePingPeriod
)

// The default same-origin check applies.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type liveMessage struct {
	Type string `json:"type"` // fanlinks, signed_out
	HTML string `json:"html,omitempty"`
}

// Live streams the owner's fan link list over a websocket whenever it
// changes (GET /dashboard/live). The socket closes when the owner signs out.
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	watcher := h.notifier.Watch(session.ID)
	defer watcher.Close()

	ch, err := livesync.Open(ctx, h.feed, h.fanLinks, session.OwnerID,
		livesync.WithDebounce(h.debounce),
		livesync.WithLogger(h.log),
	)
	if err != nil {
		h.log.Errorw("opening live channel failed", "owner_id", session.OwnerID, "error", err)
		return
	}
	defer ch.Close()

	// The client sends nothing; reading only detects the close and pongs.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(livePingPeriod)
	defer ticker.Stop()

	for {
		select {
		case list, ok := <-ch.Updates():
			if !ok {
				return
			}
			msg, err := h.liveList(ctx, list)
			if err != nil {
				h.log.Errorw("rendering live list failed", "error", err)
				continue
			}
			if err := h.send(conn, msg); err != nil {
				return
			}
		case s, ok := <-watcher.Changes():
			if !ok || !s.Authenticated {
				_ = h.send(conn, liveMessage{Type: "signed_out"})
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(liveWriteWait))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-ch.Done():
			return
		}
	}
}

func (h *Handlers) liveList(ctx context.Context, list []fanlink.FanLink) (liveMessage, error) {
	var buf bytes.Buffer
	if err := h.templates.RenderPartial(&buf, "fanlink_list", h.rows(ctx, list)); err != nil {
		return liveMessage{}, err
	}
	return liveMessage{Type: "fanlinks", HTML: buf.String()}, nil
}

func (h *Handlers) send(conn *websocket.Conn, msg liveMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	return conn.WriteJSON(msg)
}
