package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/suspectuso/parqr-companion/internal/metrics"
)

// FetchFunc returns the current unread count of one feed.
// It must return promptly once ctx is cancelled: Stop waits for every
// in-flight fetch before it returns.
type FetchFunc func(ctx context.Context) (int, error)

// Listener receives every applied count. It runs while the handle is locked,
// so it must not call back into the handle.
type Listener func(ch Channel, count int)

// PollState is a point-in-time view of one channel's poller
type PollState struct {
	LastCount  int
	Generation uint64
	Enabled    bool
	InFlight   bool
}

// FetchError is a single failed poll attempt. It is logged, never propagated.
type FetchError struct {
	Channel    Channel
	Generation uint64
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (generation %d): %v", e.Channel, e.Generation, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Poller starts interval-driven fetch loops
type Poller struct {
	clock   clockwork.Clock
	log     *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Poller
type Option func(*Poller)

// WithClock replaces the wall clock, mainly for tests
func WithClock(c clockwork.Clock) Option {
	return func(p *Poller) {
		p.clock = c
	}
}

// WithMetrics records fetch outcomes
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// NewPoller creates a new Poller
func NewPoller(log *slog.Logger, opts ...Option) *Poller {
	p := &Poller{
		clock: clockwork.NewRealClock(),
		log:   log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle controls one running channel poller
type Handle struct {
	channel  Channel
	fetch    FetchFunc
	listener Listener
	log      *slog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	ticker clockwork.Ticker

	mu       sync.Mutex
	state    PollState
	inFlight int

	loopDone chan struct{}
	fetches  sync.WaitGroup
	stopOnce sync.Once
}

// Start issues one fetch immediately and then one per interval until Stop.
func (p *Poller) Start(ctx context.Context, ch Channel, fetch FetchFunc, interval time.Duration, listener Listener) *Handle {
	hctx, cancel := context.WithCancel(ctx)

	h := &Handle{
		channel:  ch,
		fetch:    fetch,
		listener: listener,
		log:      p.log.With("channel", string(ch)),
		metrics:  p.metrics,
		ctx:      hctx,
		cancel:   cancel,
		ticker:   p.clock.NewTicker(interval),
		state:    PollState{Enabled: true},
		loopDone: make(chan struct{}),
	}

	h.mu.Lock()
	h.dispatchLocked()
	h.mu.Unlock()

	go h.loop()

	p.metrics.PollerStarted(string(ch))
	h.log.Debug("poller started", "interval", interval)

	return h
}

// Channel returns the polled channel
func (h *Handle) Channel() Channel {
	return h.channel
}

// State returns a copy of the current poll state
func (h *Handle) State() PollState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// RefreshNow dispatches an out-of-band fetch. Any fetch already in flight
// belongs to an older generation and will be discarded when it returns.
func (h *Handle) RefreshNow() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.state.Enabled {
		return
	}
	h.dispatchLocked()
}

// Stop cancels the poller and waits for its loop and in-flight fetches.
// No fetch is issued and no listener runs after Stop returns.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.state.Enabled = false
		h.state.Generation++
		h.mu.Unlock()

		h.ticker.Stop()
		h.cancel()
		<-h.loopDone
		h.fetches.Wait()

		h.metrics.PollerStopped(string(h.channel))
		h.log.Debug("poller stopped")
	})
}

func (h *Handle) loop() {
	defer close(h.loopDone)

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.ticker.Chan():
			h.mu.Lock()
			if h.state.Enabled {
				h.dispatchLocked()
			}
			h.mu.Unlock()
		}
	}
}

func (h *Handle) dispatchLocked() {
	h.state.Generation++
	gen := h.state.Generation

	h.inFlight++
	h.state.InFlight = true

	h.fetches.Add(1)
	go h.run(gen)
}

func (h *Handle) run(gen uint64) {
	defer h.fetches.Done()

	count, err := h.fetch(h.ctx)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.inFlight--
	h.state.InFlight = h.inFlight > 0

	if gen != h.state.Generation {
		h.metrics.ObserveFetch(string(h.channel), metrics.FetchStale)
		h.log.Debug("discarding stale response", "generation", gen, "current", h.state.Generation)
		return
	}

	if err != nil {
		fetchErr := &FetchError{Channel: h.channel, Generation: gen, Err: err}
		h.metrics.ObserveFetch(string(h.channel), metrics.FetchError)
		h.log.Warn("poll unread count", "generation", gen, "error", fetchErr)
		return
	}

	if count < 0 {
		count = 0
	}
	h.state.LastCount = count
	h.metrics.ObserveFetch(string(h.channel), metrics.FetchApplied)

	if h.listener != nil {
		h.listener(h.channel, count)
	}
}
