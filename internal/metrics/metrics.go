package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded per feed channel
const (
	FetchApplied = "applied"
	FetchStale   = "stale"
	FetchError   = "error"
)

// Metrics holds the process collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FeedFetches       *prometheus.CounterVec
	FeedPollersActive *prometheus.GaugeVec
	ScanResolutions   *prometheus.CounterVec
	InboxSessions     prometheus.Gauge
	BadgePushes       prometheus.Counter
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FeedFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parqr_feed_fetches_total",
			Help: "Unread-count fetches by channel and outcome",
		}, []string{"channel", "result"}),
		FeedPollersActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "parqr_feed_pollers_active",
			Help: "Running feed pollers by channel",
		}, []string{"channel"}),
		ScanResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "parqr_scan_resolutions_total",
			Help: "Scanned payload resolutions by encoding and outcome",
		}, []string{"encoding", "result"}),
		InboxSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "parqr_inbox_sessions_active",
			Help: "Active notification aggregator sessions",
		}),
		BadgePushes: f.NewCounter(prometheus.CounterOpts{
			Name: "parqr_badge_pushes_total",
			Help: "Badge update messages pushed to chats",
		}),
	}
}

func (m *Metrics) ObserveFetch(channel, result string) {
	if m == nil {
		return
	}
	m.FeedFetches.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) PollerStarted(channel string) {
	if m == nil {
		return
	}
	m.FeedPollersActive.WithLabelValues(channel).Inc()
}

func (m *Metrics) PollerStopped(channel string) {
	if m == nil {
		return
	}
	m.FeedPollersActive.WithLabelValues(channel).Dec()
}

func (m *Metrics) ObserveResolution(encoding, result string) {
	if m == nil {
		return
	}
	m.ScanResolutions.WithLabelValues(encoding, result).Inc()
}

func (m *Metrics) SessionActivated() {
	if m == nil {
		return
	}
	m.InboxSessions.Inc()
}

func (m *Metrics) SessionDeactivated() {
	if m == nil {
		return
	}
	m.InboxSessions.Dec()
}

func (m *Metrics) IncrementBadgePushes() {
	if m == nil {
		return
	}
	m.BadgePushes.Inc()
}
