package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/metrics"
)

const (
	interval = 30 * time.Second
	waitFor  = time.Second
	tick     = 5 * time.Millisecond
	quiet    = 50 * time.Millisecond

	alice = identity.Identity("ALICE001")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSource answers every fetch immediately with the configured count
type fakeSource struct {
	mu     sync.Mutex
	counts map[feed.Channel]int
	fail   map[feed.Channel]bool
	calls  map[feed.Channel]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		counts: make(map[feed.Channel]int),
		fail:   make(map[feed.Channel]bool),
		calls:  make(map[feed.Channel]int),
	}
}

func (f *fakeSource) FetchUnreadCount(ctx context.Context, ch feed.Channel, id identity.Identity) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[ch]++
	if f.fail[ch] {
		return 0, errors.New("backend unavailable")
	}
	return f.counts[ch], nil
}

func (f *fakeSource) set(ch feed.Channel, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[ch] = n
}

func (f *fakeSource) setFailing(ch feed.Channel, failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[ch] = failing
}

func (f *fakeSource) callCount(ch feed.Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ch]
}

type fixture struct {
	clock  *clockwork.FakeClock
	source *fakeSource
	agg    *Aggregator
	snaps  *snapshotRecorder
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) listen(_ SessionInfo, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *snapshotRecorder) last() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	fc := clockwork.NewFakeClock()
	src := newFakeSource()
	rec := &snapshotRecorder{}
	p := feed.NewPoller(testLogger(), feed.WithClock(fc))

	opts = append([]Option{
		WithInterval(feed.ChannelChat, interval),
		WithInterval(feed.ChannelMoveRequest, interval),
		WithListener(rec.listen),
	}, opts...)

	return &fixture{
		clock:  fc,
		source: src,
		agg:    New(src, p, testLogger(), opts...),
		snaps:  rec,
	}
}

func totalIs(s *Session, want int) func() bool {
	return func() bool { return s.Snapshot().Total == want }
}

func TestAggregator_PremiumThenDowngrade(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelChat, 3)
	f.source.set(feed.ChannelMoveRequest, 2)

	s := f.agg.Activate(context.Background(), alice, features.TierPremium)
	defer s.Deactivate()

	require.Eventually(t, totalIs(s, 5), waitFor, tick)
	snap := s.Snapshot()
	assert.Equal(t, 3, snap.Count(feed.ChannelChat))
	assert.Equal(t, 2, snap.Count(feed.ChannelMoveRequest))

	s.UpdateTier(features.TierFree)

	// removal happens in the same recomputation, no poll needed
	snap = s.Snapshot()
	assert.Equal(t, 2, snap.Total)
	assert.NotContains(t, snap.PerChannel, feed.ChannelChat)
	assert.False(t, s.Features().CanAccessChat)

	_, running := s.ChannelState(feed.ChannelChat)
	assert.False(t, running)

	chatCalls := f.source.callCount(feed.ChannelChat)
	f.clock.Advance(3 * interval)
	require.Eventually(t, func() bool { return f.source.callCount(feed.ChannelMoveRequest) >= 2 }, waitFor, tick)
	assert.Equal(t, chatCalls, f.source.callCount(feed.ChannelChat))

	last, ok := f.snaps.last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Total)
}

func TestAggregator_FreeTierNeverPollsChat(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelChat, 10)
	f.source.set(feed.ChannelMoveRequest, 1)

	s := f.agg.Activate(context.Background(), alice, features.TierFree)
	defer s.Deactivate()

	require.Eventually(t, totalIs(s, 1), waitFor, tick)

	f.clock.Advance(interval)
	s.OnFocusGained()
	require.Eventually(t, func() bool { return f.source.callCount(feed.ChannelMoveRequest) >= 3 }, waitFor, tick)

	assert.Zero(t, f.source.callCount(feed.ChannelChat))
	assert.Equal(t, 1, s.Snapshot().Total)
}

func TestAggregator_UpgradeStartsFreshChatPoller(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelChat, 4)
	f.source.set(feed.ChannelMoveRequest, 1)

	s := f.agg.Activate(context.Background(), alice, features.TierFree)
	defer s.Deactivate()
	require.Eventually(t, totalIs(s, 1), waitFor, tick)

	s.UpdateTier(features.TierPremium)
	require.Eventually(t, totalIs(s, 5), waitFor, tick)

	st, running := s.ChannelState(feed.ChannelChat)
	require.True(t, running)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, 4, st.LastCount)
}

func TestAggregator_FocusRefreshesEnabledChannels(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelChat, 1)
	f.source.set(feed.ChannelMoveRequest, 1)

	s := f.agg.Activate(context.Background(), alice, features.TierPremium)
	defer s.Deactivate()
	require.Eventually(t, totalIs(s, 2), waitFor, tick)

	// counts changed elsewhere while the chat was not looking
	f.source.set(feed.ChannelChat, 0)
	f.source.set(feed.ChannelMoveRequest, 6)
	assert.Never(t, func() bool { return s.Snapshot().Total != 2 }, quiet, tick)

	s.OnFocusGained()
	require.Eventually(t, totalIs(s, 6), waitFor, tick)
	assert.Equal(t, 2, f.source.callCount(feed.ChannelChat))
	assert.Equal(t, 2, f.source.callCount(feed.ChannelMoveRequest))
}

func TestAggregator_DeactivateStopsAllPolling(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	f := newFixture(t, WithMetrics(m))
	f.source.set(feed.ChannelChat, 2)
	f.source.set(feed.ChannelMoveRequest, 2)

	s := f.agg.Activate(context.Background(), alice, features.TierPremium)
	require.Eventually(t, totalIs(s, 4), waitFor, tick)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InboxSessions))

	s.Deactivate()

	chatCalls := f.source.callCount(feed.ChannelChat)
	moveCalls := f.source.callCount(feed.ChannelMoveRequest)

	f.clock.Advance(100 * interval)
	s.OnFocusGained()
	s.UpdateTier(features.TierFree)
	s.Deactivate()

	assert.Never(t, func() bool {
		return f.source.callCount(feed.ChannelChat) != chatCalls ||
			f.source.callCount(feed.ChannelMoveRequest) != moveCalls
	}, quiet, tick)
	assert.Equal(t, 0, s.Snapshot().Total)
	assert.Empty(t, s.Snapshot().PerChannel)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InboxSessions))
}

func TestAggregator_FetchErrorsLeaveTotalStale(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelMoveRequest, 3)

	s := f.agg.Activate(context.Background(), alice, features.TierFree)
	defer s.Deactivate()
	require.Eventually(t, totalIs(s, 3), waitFor, tick)

	f.source.setFailing(feed.ChannelMoveRequest, true)
	f.source.set(feed.ChannelMoveRequest, 9)
	f.clock.Advance(interval)
	require.Eventually(t, func() bool { return f.source.callCount(feed.ChannelMoveRequest) == 2 }, waitFor, tick)
	assert.Never(t, func() bool { return s.Snapshot().Total != 3 }, quiet, tick)

	f.source.setFailing(feed.ChannelMoveRequest, false)
	f.clock.Advance(interval)
	require.Eventually(t, totalIs(s, 9), waitFor, tick)
}

func TestAggregator_ConcurrentRefreshesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelChat, 7)
	f.source.set(feed.ChannelMoveRequest, 5)

	s := f.agg.Activate(context.Background(), alice, features.TierPremium)
	defer s.Deactivate()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.OnFocusGained()
		}()
	}
	wg.Wait()

	require.Eventually(t, totalIs(s, 12), waitFor, tick)
	snap := s.Snapshot()
	assert.Equal(t, snap.Count(feed.ChannelChat)+snap.Count(feed.ChannelMoveRequest), snap.Total)
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	f := newFixture(t)
	f.source.set(feed.ChannelMoveRequest, 1)

	s := f.agg.Activate(context.Background(), alice, features.TierFree)
	defer s.Deactivate()
	require.Eventually(t, totalIs(s, 1), waitFor, tick)

	snap := s.Snapshot()
	snap.PerChannel[feed.ChannelMoveRequest] = 100
	assert.Equal(t, 1, s.Snapshot().Count(feed.ChannelMoveRequest))
}

func TestAggregator_SessionInfo(t *testing.T) {
	f := newFixture(t)
	s := f.agg.Activate(context.Background(), alice, features.TierPremium)
	defer s.Deactivate()

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, alice, s.Identity())
	assert.Equal(t, features.TierPremium, s.Tier())

	other := f.agg.Activate(context.Background(), alice, features.TierPremium)
	defer other.Deactivate()
	assert.NotEqual(t, s.ID(), other.ID())
}

func TestBadgeLabel(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{-1, ""},
		{0, ""},
		{1, "1"},
		{42, "42"},
		{99, "99"},
		{100, "99+"},
		{1500, "99+"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeLabel(tt.total), "total %d", tt.total)
	}
}
