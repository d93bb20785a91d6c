// Package storetest holds behaviour checks shared by every store driver.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

// Run exercises a driver. newStore must return an empty store; it is called
// once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(context.Background()))
	})

	t.Run("RevokeToken", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now()

		revoked, err := rev.IsTokenRevoked(ctx, "jti-1", now)
		require.NoError(t, err)
		require.False(t, revoked)

		require.NoError(t, rev.RevokeToken(ctx, "jti-1", now.Add(time.Hour)))

		revoked, err = rev.IsTokenRevoked(ctx, "jti-1", now)
		require.NoError(t, err)
		require.True(t, revoked)

		revoked, err = rev.IsTokenRevoked(ctx, "jti-2", now)
		require.NoError(t, err)
		require.False(t, revoked, "other jtis are untouched")
	})

	t.Run("RevokeTokenTwice", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now()

		require.NoError(t, rev.RevokeToken(ctx, "jti-1", now.Add(time.Hour)))
		require.NoError(t, rev.RevokeToken(ctx, "jti-1", now.Add(time.Hour)))

		revoked, err := rev.IsTokenRevoked(ctx, "jti-1", now)
		require.NoError(t, err)
		require.True(t, revoked)
	})

	t.Run("RevokeAlreadyExpiredToken", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now()

		require.NoError(t, rev.RevokeToken(ctx, "jti-old", now.Add(-time.Minute)))

		revoked, err := rev.IsTokenRevoked(ctx, "jti-old", now)
		require.NoError(t, err)
		require.False(t, revoked)
	})

	t.Run("RevokeSession", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now().Truncate(time.Second)

		_, ok, err := rev.SessionRevokedAt(ctx, "sid-1", now)
		require.NoError(t, err)
		require.False(t, ok)

		require.NoError(t, rev.RevokeSession(ctx, "sid-1", now, now.Add(time.Hour)))

		at, ok, err := rev.SessionRevokedAt(ctx, "sid-1", now)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, at.Equal(now), "got %s want %s", at, now)
	})

	t.Run("RevokeSessionKeepsLatest", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now().Truncate(time.Second)
		later := now.Add(10 * time.Second)

		require.NoError(t, rev.RevokeSession(ctx, "sid-1", later, now.Add(time.Hour)))
		require.NoError(t, rev.RevokeSession(ctx, "sid-1", now, now.Add(time.Hour)))

		at, ok, err := rev.SessionRevokedAt(ctx, "sid-1", now)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, at.Equal(later), "got %s want %s", at, later)
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		ctx := context.Background()
		rev := newStore(t).Revocations()
		now := time.Now()

		require.NoError(t, rev.RevokeToken(ctx, "jti-live", now.Add(time.Hour)))
		_, err := rev.DeleteExpired(ctx, now)
		require.NoError(t, err)

		revoked, err := rev.IsTokenRevoked(ctx, "jti-live", now)
		require.NoError(t, err)
		require.True(t, revoked, "live revocations survive a sweep")
	})

	t.Run("RateLimits", func(t *testing.T) {
		ctx := context.Background()
		rl := newStore(t).RateLimits()
		now := time.Now().Truncate(time.Millisecond)

		for i := 1; i <= 3; i++ {
			e, err := rl.Hit(ctx, "req:k", time.Minute, 3, now)
			require.NoError(t, err)
			require.Equal(t, i, e.Count)
			require.False(t, e.Blocked)
		}

		e, err := rl.Hit(ctx, "req:k", time.Minute, 3, now)
		require.NoError(t, err)
		require.True(t, e.Blocked)

		e, err = rl.Hit(ctx, "req:k", time.Minute, 3, now.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, 1, e.Count, "elapsed window starts fresh")
		require.False(t, e.Blocked)
	})

	t.Run("RateLimitBlock", func(t *testing.T) {
		ctx := context.Background()
		rl := newStore(t).RateLimits()
		now := time.Now().Truncate(time.Millisecond)

		require.NoError(t, rl.Block(ctx, "ip:10.0.0.1", now.Add(time.Hour)))

		until, ok, err := rl.BlockedUntil(ctx, "ip:10.0.0.1", now)
		require.NoError(t, err)
		require.True(t, ok)
		require.True(t, until.Equal(now.Add(time.Hour)))

		require.NoError(t, rl.Reset(ctx, "ip:10.0.0.1"))
		_, ok, err = rl.BlockedUntil(ctx, "ip:10.0.0.1", now)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("RateLimitStats", func(t *testing.T) {
		ctx := context.Background()
		rl := newStore(t).RateLimits()
		now := time.Now().Truncate(time.Millisecond)

		for range 3 {
			_, err := rl.Hit(ctx, "req:a", time.Minute, 1, now)
			require.NoError(t, err)
		}
		_, err := rl.Hit(ctx, "req:b", time.Minute, 5, now)
		require.NoError(t, err)
		require.NoError(t, rl.Block(ctx, "ip:1.2.3.4", now.Add(time.Hour)))

		stats, err := rl.Stats(ctx, now)
		require.NoError(t, err)
		require.Equal(t, ratelimit.Stats{TrackedKeys: 2, BlockedIPs: 1, LimitedKeys: 1}, stats)
	})
}
