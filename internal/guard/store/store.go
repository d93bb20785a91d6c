package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

var ErrUnavailable = errors.New("store: backend unavailable")

// Store is the root persistence interface. Concrete drivers (memory, redis,
// sqlite) implement it. Only the memory driver is process-local; redis and
// sqlite give every instance the same view of revocations.
type Store interface {
	Revocations() Revocations

	// RateLimits returns the backing store for the rate limiter.
	RateLimits() ratelimit.Store

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}

// Revocations records revoked tokens and sessions until they would have
// expired anyway.
type Revocations interface {
	// RevokeToken blacklists jti until expiresAt.
	RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error

	// IsTokenRevoked reports whether jti is blacklisted.
	IsTokenRevoked(ctx context.Context, jti string, now time.Time) (bool, error)

	// RevokeSession writes a tombstone: every token of sid issued at or
	// before revokedAt is invalid. Revoking again keeps the latest
	// revokedAt, so the call is idempotent.
	RevokeSession(ctx context.Context, sid string, revokedAt, expiresAt time.Time) error

	// SessionRevokedAt returns the tombstone time for sid, if any.
	SessionRevokedAt(ctx context.Context, sid string, now time.Time) (time.Time, bool, error)

	// DeleteExpired drops records past their expiry and returns how many
	// were removed. Drivers with native expiry may return 0.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
