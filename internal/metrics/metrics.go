// Package metrics holds the Prometheus instruments shared across FanLink.
// All collectors are registered with the global registry, so serving
// promhttp.Handler() is enough to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for FanLinkSaves.
const (
	ResultOK        = "ok"
	ResultConflict  = "conflict"
	ResultNotFound  = "not_found"
	ResultPartial   = "partial"
	ResultTransient = "transient"
)

var (
	FanLinkSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanlink_saves_total",
			Help: "Fan link writes by operation and result.",
		}, []string{"op", "result"})

	Resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanlink_resolutions_total",
			Help: "Public slug resolutions by outcome.",
		}, []string{"outcome"})

	LiveSyncRefetches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fanlink_livesync_refetches_total",
			Help: "Owner list refetches triggered by change events.",
		})

	LiveSyncErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fanlink_livesync_errors_total",
			Help: "Owner list refetches that failed.",
		})

	LiveChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanlink_livesync_channels",
			Help: "Live sync channels currently open.",
		})

	ChangeFeedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanlink_changefeed_events_total",
			Help: "Change notifications received from the database by table.",
		}, []string{"table"})

	AnalyticsFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fanlink_analytics_failures_total",
			Help: "View or click events that could not be recorded.",
		})
)

func init() {
	prometheus.MustRegister(
		FanLinkSaves,
		Resolutions,
		LiveSyncRefetches,
		LiveSyncErrors,
		LiveChannels,
		ChangeFeedEvents,
		AnalyticsFailures,
	)
}
