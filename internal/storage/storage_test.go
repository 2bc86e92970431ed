package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/parqr-companion/internal/features"
	"github.com/suspectuso/parqr-companion/internal/identity"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLinks(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetLink(100)
	assert.ErrorIs(t, err, ErrNotFound)

	link, err := s.LinkAccount(100, "ALICE001", features.TierFree)
	require.NoError(t, err)
	assert.Equal(t, identity.Identity("ALICE001"), link.UserCode)

	got, err := s.GetLink(100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.ChatID)
	assert.Equal(t, identity.Identity("ALICE001"), got.UserCode)
	assert.Equal(t, features.TierFree, got.Tier)

	// relinking replaces the account
	_, err = s.LinkAccount(100, "BOB00001", features.TierPremium)
	require.NoError(t, err)
	got, err = s.GetLink(100)
	require.NoError(t, err)
	assert.Equal(t, identity.Identity("BOB00001"), got.UserCode)
	assert.Equal(t, features.TierPremium, got.Tier)

	all, err := s.GetAllLinks()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.Unlink(100))
	assert.ErrorIs(t, s.Unlink(100), ErrNotFound)
}

func TestUpdateTier(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.LinkAccount(1, "ALICE001", features.TierFree)
	require.NoError(t, err)
	_, err = s.LinkAccount(2, "ALICE001", features.TierFree)
	require.NoError(t, err)
	_, err = s.LinkAccount(3, "BOB00001", features.TierFree)
	require.NoError(t, err)

	n, err := s.UpdateTier("ALICE001", features.TierPremium)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// unchanged tier touches nothing
	n, err = s.UpdateTier("ALICE001", features.TierPremium)
	require.NoError(t, err)
	assert.Zero(t, n)

	links, err := s.GetLinksByUserCode("ALICE001")
	require.NoError(t, err)
	require.Len(t, links, 2)
	for _, l := range links {
		assert.Equal(t, features.TierPremium, l.Tier)
	}

	bob, err := s.GetLink(3)
	require.NoError(t, err)
	assert.Equal(t, features.TierFree, bob.Tier)
}

func TestRecentScans(t *testing.T) {
	s := newTestStorage(t)

	require.NoError(t, s.RecordScan(7, "AAAA1111", identity.EncodingDirectToken))
	require.NoError(t, s.RecordScan(7, "BBBB2222", identity.EncodingProductionURL))
	require.NoError(t, s.RecordScan(7, "AAAA1111", identity.EncodingCustomScheme))
	require.NoError(t, s.RecordScan(8, "CCCC3333", identity.EncodingDirectToken))

	scans, err := s.RecentScans(7, 10)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, identity.Identity("AAAA1111"), scans[0].UserCode)
	assert.Equal(t, identity.Identity("BBBB2222"), scans[1].UserCode)

	scans, err = s.RecentScans(7, 1)
	require.NoError(t, err)
	assert.Len(t, scans, 1)

	scans, err = s.RecentScans(99, 10)
	require.NoError(t, err)
	assert.Empty(t, scans)
}
