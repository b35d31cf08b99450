// Package analytics records page views and platform click-throughs for
// public fan link pages. Recording is best effort: failures are logged and
// counted but never surfaced to visitors.
package analytics

import (
	"context"
	"strings"

	surfer "github.com/avct/uasurfer"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justestif/fanlink/internal/db"
	"github.com/justestif/fanlink/internal/fanlink"
	"github.com/justestif/fanlink/internal/metrics"
)

// Device classes stored with each event.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceOther   = "other"
)

const maxReferrerLen = 512

// EventStore persists events. Implemented by *db.LinkEventRepository.
type EventStore interface {
	Record(ctx context.Context, e *db.LinkEvent) error
}

// Visit describes the visitor behind an event.
type Visit struct {
	UserAgent string
	Referrer  string
}

// Client is the parsed user agent of a visitor.
type Client struct {
	Device  string
	Browser string
	Bot     bool
}

// ClassifyClient parses a User-Agent header.
func ClassifyClient(userAgent string) Client {
	ua := surfer.Parse(userAgent)

	c := Client{
		Browser: strings.TrimPrefix(ua.Browser.Name.String(), "Browser"),
		Bot:     ua.IsBot(),
	}
	switch ua.DeviceType {
	case surfer.DeviceComputer:
		c.Device = DeviceDesktop
	case surfer.DeviceTablet:
		c.Device = DeviceTablet
	case surfer.DevicePhone, surfer.DeviceWearable:
		c.Device = DeviceMobile
	default:
		c.Device = DeviceOther
	}
	return c
}

// Recorder writes view and click events.
type Recorder struct {
	store EventStore
	log   *zap.SugaredLogger
}

// NewRecorder creates a recorder.
func NewRecorder(store EventStore, log *zap.SugaredLogger) *Recorder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Recorder{store: store, log: log}
}

// RecordView records that a fan link page was shown. Bots are skipped.
func (r *Recorder) RecordView(ctx context.Context, fanLinkID uuid.UUID, v Visit) {
	r.record(ctx, fanLinkID, db.EventView, "", v)
}

// RecordClick records a click-through to platform. Bots are skipped.
func (r *Recorder) RecordClick(ctx context.Context, fanLinkID uuid.UUID, platform fanlink.Platform, v Visit) {
	r.record(ctx, fanLinkID, db.EventClick, string(platform), v)
}

func (r *Recorder) record(ctx context.Context, fanLinkID uuid.UUID, kind, platform string, v Visit) {
	client := ClassifyClient(v.UserAgent)
	if client.Bot {
		return
	}

	e := &db.LinkEvent{
		FanLinkID: fanLinkID,
		Kind:      kind,
		Device:    client.Device,
		Browser:   client.Browser,
		Referrer:  referrer(v.Referrer),
	}
	if platform != "" {
		e.Platform = &platform
	}

	if err := r.store.Record(ctx, e); err != nil {
		metrics.AnalyticsFailures.Inc()
		r.log.Warnw("recording link event failed",
			"fan_link_id", fanLinkID,
			"kind", kind,
			"error", err,
		)
	}
}

func referrer(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if len(s) > maxReferrerLen {
		s = s[:maxReferrerLen]
	}
	return &s
}
