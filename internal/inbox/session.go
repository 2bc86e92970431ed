package inbox

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

// Snapshot is the aggregated unread state of a session.
// Total is always the sum of PerChannel, which only holds enabled channels.
type Snapshot struct {
	PerChannel map[feed.Channel]int
	Total      int
}

// Count returns the unread count of one channel, zero if it is not polled
func (s Snapshot) Count(ch feed.Channel) int {
	return s.PerChannel[ch]
}

func (s Snapshot) clone() Snapshot {
	per := make(map[feed.Channel]int, len(s.PerChannel))
	for ch, n := range s.PerChannel {
		per[ch] = n
	}
	return Snapshot{PerChannel: per, Total: s.Total}
}

// SessionInfo identifies a session to listeners
type SessionInfo struct {
	ID       string
	Identity identity.Identity
	Tier     features.Tier
}

type slot struct {
	handle *feed.Handle
}

// Session is one activated aggregation for a signed-in user
type Session struct {
	agg *Aggregator
	ctx context.Context
	id  string
	who identity.Identity
	log *slog.Logger

	mu       sync.Mutex
	tier     features.Tier
	features features.Set
	slots    map[feed.Channel]*slot
	counts   map[feed.Channel]int
	snapshot Snapshot
	closed   bool
}

// Activate evaluates the feature gate for tier and starts a poller for every
// channel the user may see.
func (a *Aggregator) Activate(ctx context.Context, who identity.Identity, tier features.Tier) *Session {
	id := uuid.NewString()
	s := &Session{
		agg:    a,
		ctx:    ctx,
		id:     id,
		who:    who,
		log:    a.log.With("session_id", id, "user_code", who.String()),
		slots:  make(map[feed.Channel]*slot),
		counts: make(map[feed.Channel]int),
	}

	s.mu.Lock()
	s.applyGateLocked(tier)
	fs := s.features
	s.mu.Unlock()

	a.metrics.SessionActivated()
	s.log.Info("inbox session activated", "tier", tier, "features", fs.String())

	return s
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Identity returns the user the session polls for
func (s *Session) Identity() identity.Identity {
	return s.who
}

// Tier returns the tier the gate was last evaluated with
func (s *Session) Tier() features.Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tier
}

// Features returns the current capability set
func (s *Session) Features() features.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.features
}

// Snapshot returns a copy of the current aggregate
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot.clone()
}

// ChannelState returns the poll state of a running channel
func (s *Session) ChannelState(ch feed.Channel) (feed.PollState, bool) {
	s.mu.Lock()
	sl, ok := s.slots[ch]
	s.mu.Unlock()

	if !ok {
		return feed.PollState{}, false
	}
	return sl.handle.State(), true
}

// OnFocusGained refreshes every enabled channel out of band
func (s *Session) OnFocusGained() {
	for _, h := range s.handles() {
		h.RefreshNow()
	}
}

// UpdateTier re-evaluates the gate. Channels that lose eligibility are stopped
// and drop out of the total in the same recomputation; newly eligible channels
// start a fresh poller.
func (s *Session) UpdateTier(tier features.Tier) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	prev := s.tier
	stopped := s.applyGateLocked(tier)
	fs := s.features
	s.notifyLocked()
	s.mu.Unlock()

	for _, h := range stopped {
		h.Stop()
	}

	if prev != tier {
		s.log.Info("tier changed", "from", prev, "to", tier, "features", fs.String(), "stopped", len(stopped))
	}
}

// Deactivate stops every poller. No fetch is issued after it returns.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true

	handles := make([]*feed.Handle, 0, len(s.slots))
	for ch, sl := range s.slots {
		handles = append(handles, sl.handle)
		delete(s.slots, ch)
	}
	clear(s.counts)
	s.recomputeLocked()
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}

	s.agg.metrics.SessionDeactivated()
	s.log.Info("inbox session deactivated")
}

func (s *Session) handles() []*feed.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	out := make([]*feed.Handle, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl.handle)
	}
	return out
}

// applyGateLocked starts and removes channels to match tier. The returned
// handles must be stopped after the session lock is released.
func (s *Session) applyGateLocked(tier features.Tier) []*feed.Handle {
	s.tier = tier
	s.features = features.Evaluate(tier)

	var stopped []*feed.Handle
	for _, ch := range feed.Channels() {
		sl, running := s.slots[ch]
		allowed := ch.Allowed(s.features)

		switch {
		case allowed && !running:
			s.startLocked(ch)
		case !allowed && running:
			delete(s.slots, ch)
			delete(s.counts, ch)
			stopped = append(stopped, sl.handle)
		}
	}

	s.recomputeLocked()
	return stopped
}

// startLocked runs under the session lock; the first report of the new
// poller blocks on that lock until the slot is registered.
func (s *Session) startLocked(ch feed.Channel) {
	sl := &slot{}
	fetch := func(ctx context.Context) (int, error) {
		return s.agg.source.FetchUnreadCount(ctx, ch, s.who)
	}
	listener := func(ch feed.Channel, count int) {
		s.onCount(sl, ch, count)
	}

	sl.handle = s.agg.poller.Start(s.ctx, ch, fetch, s.agg.interval(ch), listener)
	s.slots[ch] = sl
	s.counts[ch] = 0
}

func (s *Session) onCount(sl *slot, ch feed.Channel, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.slots[ch] != sl {
		return
	}

	s.counts[ch] = count
	s.recomputeLocked()
	s.notifyLocked()
}

func (s *Session) recomputeLocked() {
	per := make(map[feed.Channel]int, len(s.slots))
	total := 0
	for ch := range s.slots {
		n := s.counts[ch]
		per[ch] = n
		total += n
	}
	s.snapshot = Snapshot{PerChannel: per, Total: total}
}

func (s *Session) notifyLocked() {
	if s.agg.listener == nil {
		return
	}
	s.agg.listener(SessionInfo{ID: s.id, Identity: s.who, Tier: s.tier}, s.snapshot.clone())
}
