package inbox

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/metrics"
)

// DefaultInterval is used for channels without an explicit interval
const DefaultInterval = 30 * time.Second

// CountSource is the remote unread-count endpoint of every channel.
// FetchUnreadCount must honor ctx cancellation, since deactivating a
// session blocks until its in-flight fetches have returned.
type CountSource interface {
	FetchUnreadCount(ctx context.Context, ch feed.Channel, id identity.Identity) (int, error)
}

// Listener observes every recomputed snapshot of a session.
// It runs under the session lock and must not call back into the session.
type Listener func(info SessionInfo, snap Snapshot)

// Aggregator activates notification sessions, one per signed-in user
type Aggregator struct {
	source    CountSource
	poller    *feed.Poller
	intervals map[feed.Channel]time.Duration
	listener  Listener
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithInterval sets the poll interval of one channel
func WithInterval(ch feed.Channel, d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.intervals[ch] = d
		}
	}
}

// WithListener registers the snapshot observer
func WithListener(l Listener) Option {
	return func(a *Aggregator) {
		a.listener = l
	}
}

// WithMetrics records session counts
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// New creates a new Aggregator
func New(source CountSource, poller *feed.Poller, log *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:    source,
		poller:    poller,
		intervals: make(map[feed.Channel]time.Duration),
		log:       log,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) interval(ch feed.Channel) time.Duration {
	if d, ok := a.intervals[ch]; ok {
		return d
	}
	return DefaultInterval
}

// BadgeLabel renders a total the way the app badge shows it
func BadgeLabel(total int) string {
	switch {
	case total <= 0:
		return ""
	case total > 99:
		return "99+"
	default:
		return strconv.Itoa(total)
	}
}
