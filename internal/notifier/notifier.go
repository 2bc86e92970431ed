package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/feed"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/inbox"
	"github.com/suspectuso/parqr-companion/internal/metrics"
	"github.com/suspectuso/parqr-companion/internal/storage"
)

// pushQueueSize bounds pending badge messages; older growth is superseded anyway
const pushQueueSize = 64

// Sender delivers a badge message to a chat
type Sender interface {
	SendNotification(ctx context.Context, chatID int64, text string) error
}

// LinkStore lists linked accounts
type LinkStore interface {
	GetAllLinks() ([]storage.Link, error)
}

type chatSession struct {
	chatID    int64
	session   *inbox.Session
	lastTotal int
}

type push struct {
	chatID int64
	snap   inbox.Snapshot
}

// Manager owns one inbox session per linked chat and pushes a message
// whenever a chat's unread total grows.
type Manager struct {
	agg     *inbox.Aggregator
	sender  Sender
	store   LinkStore
	log     *slog.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	byChat    map[int64]*chatSession
	bySession map[string]*chatSession

	pushes chan push
}

// New creates a new Manager. The aggregator is built here so its listener can feed the push queue.
func New(source inbox.CountSource, poller *feed.Poller, sender Sender, store LinkStore, log *slog.Logger, m *metrics.Metrics, opts ...inbox.Option) *Manager {
	mgr := &Manager{
		sender:    sender,
		store:     store,
		log:       log,
		metrics:   m,
		byChat:    make(map[int64]*chatSession),
		bySession: make(map[string]*chatSession),
		pushes:    make(chan push, pushQueueSize),
	}

	opts = append(opts, inbox.WithListener(mgr.onSnapshot), inbox.WithMetrics(m))
	mgr.agg = inbox.New(source, poller, log, opts...)

	return mgr
}

// Run delivers queued badge pushes until ctx is done, then deactivates every session
func (m *Manager) Run(ctx context.Context) {
	m.log.Info("notifier started")

	for {
		select {
		case <-ctx.Done():
			m.Shutdown()
			return
		case p := <-m.pushes:
			text := FormatBadge(p.snap)
			if err := m.sender.SendNotification(ctx, p.chatID, text); err != nil {
				m.log.Error("send badge notification", "chat_id", p.chatID, "error", err)
				continue
			}
			m.metrics.IncrementBadgePushes()
		}
	}
}

// RestoreAll activates a session for every stored link
func (m *Manager) RestoreAll(ctx context.Context) error {
	links, err := m.store.GetAllLinks()
	if err != nil {
		return fmt.Errorf("get all links: %w", err)
	}

	for _, l := range links {
		m.Activate(ctx, l.ChatID, l.UserCode, l.Tier)
	}

	m.log.Info("sessions restored", "count", len(links))
	return nil
}

// Activate starts polling for a chat, replacing any previous session
func (m *Manager) Activate(ctx context.Context, chatID int64, who identity.Identity, tier features.Tier) {
	cs := &chatSession{chatID: chatID}

	// Swap under one lock so concurrent activations of the same chat
	// always displace each other. Registering before the first report
	// matters too: the listener looks the session up by id under m.mu.
	m.mu.Lock()
	old, hadOld := m.byChat[chatID]
	if hadOld {
		delete(m.bySession, old.session.ID())
	}
	cs.session = m.agg.Activate(ctx, who, tier)
	m.byChat[chatID] = cs
	m.bySession[cs.session.ID()] = cs
	m.mu.Unlock()

	if hadOld {
		old.session.Deactivate()
	}
}

// Deactivate stops polling for a chat
func (m *Manager) Deactivate(chatID int64) {
	m.mu.Lock()
	cs, ok := m.byChat[chatID]
	if ok {
		delete(m.byChat, chatID)
		delete(m.bySession, cs.session.ID())
	}
	m.mu.Unlock()

	if ok {
		cs.session.Deactivate()
	}
}

// Shutdown deactivates every session
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*inbox.Session, 0, len(m.byChat))
	for id, cs := range m.byChat {
		sessions = append(sessions, cs.session)
		delete(m.byChat, id)
		delete(m.bySession, cs.session.ID())
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Deactivate()
	}
	m.log.Info("notifier stopped", "sessions", len(sessions))
}

// Focus refreshes a chat's feeds and returns the snapshot seen before the refresh lands
func (m *Manager) Focus(chatID int64) (inbox.Snapshot, bool) {
	s, ok := m.session(chatID)
	if !ok {
		return inbox.Snapshot{}, false
	}
	s.OnFocusGained()
	return s.Snapshot(), true
}

// Snapshot returns the current badge state of a chat
func (m *Manager) Snapshot(chatID int64) (inbox.Snapshot, bool) {
	s, ok := m.session(chatID)
	if !ok {
		return inbox.Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Features returns the capabilities of the account linked to a chat
func (m *Manager) Features(chatID int64) (features.Set, bool) {
	s, ok := m.session(chatID)
	if !ok {
		return features.Set{}, false
	}
	return s.Features(), true
}

// UpdateTier re-gates every session of an account
func (m *Manager) UpdateTier(who identity.Identity, tier features.Tier) int {
	m.mu.Lock()
	var sessions []*inbox.Session
	for _, cs := range m.byChat {
		if cs.session.Identity() == who {
			sessions = append(sessions, cs.session)
		}
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.UpdateTier(tier)
	}
	return len(sessions)
}

func (m *Manager) session(chatID int64) (*inbox.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs, ok := m.byChat[chatID]
	if !ok {
		return nil, false
	}
	return cs.session, true
}

// onSnapshot runs under the session lock; it only queues work.
func (m *Manager) onSnapshot(info inbox.SessionInfo, snap inbox.Snapshot) {
	m.mu.Lock()
	cs, ok := m.bySession[info.ID]
	if !ok {
		m.mu.Unlock()
		return
	}
	grew := snap.Total > cs.lastTotal
	cs.lastTotal = snap.Total
	chatID := cs.chatID
	m.mu.Unlock()

	if !grew {
		return
	}

	select {
	case m.pushes <- push{chatID: chatID, snap: snap}:
	default:
		m.log.Warn("badge push queue full", "chat_id", chatID, "total", snap.Total)
	}
}

// FormatBadge renders the badge message for a snapshot
func FormatBadge(snap inbox.Snapshot) string {
	lines := []string{
		fmt.Sprintf("🔔 <b>%s unread</b>", inbox.BadgeLabel(snap.Total)),
		"",
	}

	if n, ok := snap.PerChannel[feed.ChannelChat]; ok {
		lines = append(lines, fmt.Sprintf("💬 Messages: <b>%d</b>", n))
	}
	if n, ok := snap.PerChannel[feed.ChannelMoveRequest]; ok {
		lines = append(lines, fmt.Sprintf("🚗 Move requests: <b>%d</b>", n))
	}

	return strings.Join(lines, "\n")
}
