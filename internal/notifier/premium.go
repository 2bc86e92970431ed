package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
	"github.com/suspectuso/parqr-companion/internal/parqrapi"
	"github.com/suspectuso/parqr-companion/internal/storage"
)

// UserLookup fetches the public profile of an account
type UserLookup interface {
	LookupUser(ctx context.Context, code identity.Identity) (*parqrapi.User, error)
}

// TierStore persists the tier of linked accounts
type TierStore interface {
	GetAllLinks() ([]storage.Link, error)
	UpdateTier(code identity.Identity, tier features.Tier) (int64, error)
}

// TierApplier re-gates live sessions of an account
type TierApplier interface {
	UpdateTier(who identity.Identity, tier features.Tier) int
}

// TierWatcher keeps stored and live tiers in sync with the backend
type TierWatcher struct {
	users    UserLookup
	store    TierStore
	sessions TierApplier
	clock    clockwork.Clock
	log      *slog.Logger
}

// NewTierWatcher creates a new tier watcher
func NewTierWatcher(users UserLookup, store TierStore, sessions TierApplier, log *slog.Logger) *TierWatcher {
	return &TierWatcher{
		users:    users,
		store:    store,
		sessions: sessions,
		clock:    clockwork.NewRealClock(),
		log:      log,
	}
}

// Start runs the sync loop until ctx is done
func (tw *TierWatcher) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		tw.log.Info("tier watcher disabled: TIER_SYNC_INTERVAL not set")
		return
	}

	tw.log.Info("tier watcher started", "interval", interval)

	ticker := tw.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := tw.syncTiers(ctx); err != nil {
				tw.log.Error("sync tiers", "error", err)
			}
		}
	}
}

// ApplyTier stores a new tier for an account and re-gates its sessions.
// It returns the number of stored links that changed.
func (tw *TierWatcher) ApplyTier(code identity.Identity, tier features.Tier) (int64, error) {
	changed, err := tw.store.UpdateTier(code, tier)
	if err != nil {
		return 0, fmt.Errorf("update tier: %w", err)
	}

	live := tw.sessions.UpdateTier(code, tier)
	if changed > 0 {
		tw.log.Info("tier applied",
			"user_code", code.String(),
			"tier", tier,
			"links", changed,
			"sessions", live,
		)
	}
	return changed, nil
}

func (tw *TierWatcher) syncTiers(ctx context.Context) error {
	links, err := tw.store.GetAllLinks()
	if err != nil {
		return fmt.Errorf("get all links: %w", err)
	}

	// one lookup per account, even when several chats link it
	stored := make(map[identity.Identity][]features.Tier)
	var order []identity.Identity
	for _, l := range links {
		if _, ok := stored[l.UserCode]; !ok {
			order = append(order, l.UserCode)
		}
		stored[l.UserCode] = append(stored[l.UserCode], l.Tier)
	}

	for _, code := range order {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		user, err := tw.users.LookupUser(ctx, code)
		if err != nil {
			tw.log.Warn("lookup user", "user_code", code.String(), "error", err)
			continue
		}

		tier := features.ParseTier(user.UserTier)
		if !differs(stored[code], tier) {
			continue
		}

		if _, err := tw.ApplyTier(code, tier); err != nil {
			tw.log.Error("apply tier", "user_code", code.String(), "error", err)
		}
	}

	return nil
}

func differs(tiers []features.Tier, want features.Tier) bool {
	for _, t := range tiers {
		if t != want {
			return true
		}
	}
	return false
}
