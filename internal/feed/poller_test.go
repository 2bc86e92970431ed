package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/metrics"
)

const (
	interval = 30 * time.Second
	waitFor  = time.Second
	tick     = 5 * time.Millisecond
	quiet    = 50 * time.Millisecond
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type reply struct {
	count int
	err   error
}

type pendingCall struct {
	ctx   context.Context
	reply chan reply
}

// controlledFeed blocks every fetch until the test answers it
type controlledFeed struct {
	calls chan *pendingCall
}

func newControlledFeed() *controlledFeed {
	return &controlledFeed{calls: make(chan *pendingCall, 16)}
}

func (f *controlledFeed) fetch(ctx context.Context) (int, error) {
	c := &pendingCall{ctx: ctx, reply: make(chan reply, 1)}
	f.calls <- c
	select {
	case r := <-c.reply:
		return r.count, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (f *controlledFeed) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(waitFor):
		t.Fatal("expected a fetch to be issued")
		return nil
	}
}

type recorder struct {
	mu     sync.Mutex
	counts []int
}

func (r *recorder) listen(_ Channel, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, count)
}

func (r *recorder) values() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.counts...)
}

func TestPoller_FetchesImmediatelyThenOncePerInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))

	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 4, nil
	}

	h := p.Start(context.Background(), ChannelMoveRequest, fetch, interval, nil)
	defer h.Stop()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)
	require.Eventually(t, func() bool { return h.State().LastCount == 4 }, waitFor, tick)

	fc.Advance(interval - time.Second)
	assert.Never(t, func() bool { return calls.Load() > 1 }, quiet, tick)

	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, tick)
	assert.Never(t, func() bool { return calls.Load() > 2 }, quiet, tick)
}

func TestPoller_StaleResponseNeverOverwritesNewer(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))
	feed := newControlledFeed()
	rec := &recorder{}

	h := p.Start(context.Background(), ChannelChat, feed.fetch, interval, rec.listen)

	first := feed.next(t)
	h.RefreshNow()
	second := feed.next(t)

	st := h.State()
	assert.Equal(t, uint64(2), st.Generation)
	assert.True(t, st.InFlight)

	second.reply <- reply{count: 7}
	require.Eventually(t, func() bool { return h.State().LastCount == 7 }, waitFor, tick)

	// generation 1 arrives last and must be dropped
	first.reply <- reply{count: 3}
	assert.Never(t, func() bool { return h.State().LastCount != 7 }, quiet, tick)

	h.Stop()
	assert.Equal(t, []int{7}, rec.values())
	assert.Equal(t, 7, h.State().LastCount)
	assert.False(t, h.State().InFlight)
}

func TestPoller_TickSupersedesSlowFetch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))
	feed := newControlledFeed()

	h := p.Start(context.Background(), ChannelChat, feed.fetch, interval, nil)
	defer h.Stop()

	slow := feed.next(t)
	fc.Advance(interval)
	fresh := feed.next(t)

	fresh.reply <- reply{count: 1}
	require.Eventually(t, func() bool { return h.State().LastCount == 1 }, waitFor, tick)

	slow.reply <- reply{count: 9}
	assert.Never(t, func() bool { return h.State().LastCount == 9 }, quiet, tick)
}

func TestPoller_StopHaltsFetching(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))

	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	}

	h := p.Start(context.Background(), ChannelMoveRequest, fetch, interval, nil)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, tick)

	h.Stop()
	assert.False(t, h.State().Enabled)

	fc.Advance(10 * interval)
	h.RefreshNow()
	assert.Never(t, func() bool { return calls.Load() > 1 }, quiet, tick)

	// second stop is a no-op
	h.Stop()
}

func TestPoller_StopCancelsInFlightFetch(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))
	feed := newControlledFeed()
	rec := &recorder{}

	h := p.Start(context.Background(), ChannelChat, feed.fetch, interval, rec.listen)
	call := feed.next(t)

	h.Stop()

	assert.Error(t, call.ctx.Err())
	assert.Empty(t, rec.values())
	assert.Equal(t, uint64(2), h.State().Generation)
}

func TestPoller_FetchErrorKeepsLastCountAndRetriesNextTick(t *testing.T) {
	fc := clockwork.NewFakeClock()
	m := metrics.New(prometheus.NewRegistry())
	p := NewPoller(testLogger(), WithClock(fc), WithMetrics(m))

	var calls atomic.Int32
	fetch := func(ctx context.Context) (int, error) {
		switch calls.Add(1) {
		case 1:
			return 5, nil
		case 2:
			return 0, errors.New("connection reset")
		default:
			return 8, nil
		}
	}

	h := p.Start(context.Background(), ChannelMoveRequest, fetch, interval, nil)
	defer h.Stop()

	require.Eventually(t, func() bool { return h.State().LastCount == 5 }, waitFor, tick)

	fc.Advance(interval)
	errCounter := m.FeedFetches.WithLabelValues(string(ChannelMoveRequest), metrics.FetchError)
	require.Eventually(t, func() bool { return testutil.ToFloat64(errCounter) == 1 }, waitFor, tick)
	assert.Equal(t, 5, h.State().LastCount)

	fc.Advance(interval)
	require.Eventually(t, func() bool { return h.State().LastCount == 8 }, waitFor, tick)
}

func TestPoller_NegativeCountClampedToZero(t *testing.T) {
	fc := clockwork.NewFakeClock()
	p := NewPoller(testLogger(), WithClock(fc))
	rec := &recorder{}

	fetch := func(ctx context.Context) (int, error) {
		return -3, nil
	}

	h := p.Start(context.Background(), ChannelMoveRequest, fetch, interval, rec.listen)
	require.Eventually(t, func() bool { return len(rec.values()) == 1 }, waitFor, tick)
	h.Stop()

	assert.Equal(t, []int{0}, rec.values())
}

func TestFetchError(t *testing.T) {
	cause := errors.New("timeout")
	err := &FetchError{Channel: ChannelChat, Generation: 3, Err: cause}

	assert.Equal(t, "fetch chat (generation 3): timeout", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestChannel_Allowed(t *testing.T) {
	free := features.Evaluate(features.TierFree)
	premium := features.Evaluate(features.TierPremium)

	assert.False(t, ChannelChat.Allowed(free))
	assert.True(t, ChannelChat.Allowed(premium))
	assert.True(t, ChannelMoveRequest.Allowed(free))
	assert.True(t, ChannelMoveRequest.Allowed(premium))
	assert.False(t, Channel("groups").Allowed(premium))
}
