package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/internal/guard/store/drivers/sqlite"
	"github.com/aussiebroadwan/guard/internal/guard/store/storetest"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newStore(t)
	})
}

func TestApplyMigrationsTwice(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestRevocationsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "guard.db")
	now := time.Now()

	s, err := sqlite.NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Revocations().RevokeToken(ctx, "jti-1", now.Add(time.Hour)))
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	revoked, err := s.Revocations().IsTokenRevoked(ctx, "jti-1", now)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	rev := newStore(t).Revocations()
	now := time.Now()

	require.NoError(t, rev.RevokeToken(ctx, "old", now.Add(-time.Minute)))
	require.NoError(t, rev.RevokeToken(ctx, "new", now.Add(time.Hour)))
	require.NoError(t, rev.RevokeSession(ctx, "sid-old", now.Add(-2*time.Minute), now.Add(-time.Minute)))

	n, err := rev.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = rev.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)
}
