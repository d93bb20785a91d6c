// Package memory is a process-local store. Revocations live in auto-expiring
// caches, so nothing outlives its natural token expiry. Every instance has
// its own view; use the redis or sqlite driver when running more than one.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

type Store struct {
	revocations *revocationsRepo
	limits      *ratelimit.MemoryStore
}

var _ store.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		revocations: &revocationsRepo{
			tokens: ttlcache.New[string, time.Time](
				ttlcache.WithDisableTouchOnHit[string, time.Time](),
			),
			sessions: ttlcache.New[string, session](
				ttlcache.WithDisableTouchOnHit[string, session](),
			),
		},
		limits: ratelimit.NewMemoryStore(),
	}
}

func (s *Store) Revocations() store.Revocations { return s.revocations }
func (s *Store) RateLimits() ratelimit.Store    { return s.limits }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }
func (s *Store) Close() error                   { return nil }

type session struct {
	revokedAt time.Time
	expiresAt time.Time
}

type revocationsRepo struct {
	tokens   *ttlcache.Cache[string, time.Time]
	sessions *ttlcache.Cache[string, session]

	// serialises the read-max-write on sessions
	mu sync.Mutex
}

func (r *revocationsRepo) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	r.tokens.Set(jti, expiresAt, ttl)
	return nil
}

func (r *revocationsRepo) IsTokenRevoked(_ context.Context, jti string, now time.Time) (bool, error) {
	item := r.tokens.Get(jti)
	if item == nil {
		return false, nil
	}
	return now.Before(item.Value()), nil
}

func (r *revocationsRepo) RevokeSession(_ context.Context, sid string, revokedAt, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := session{revokedAt: revokedAt, expiresAt: expiresAt}
	if item := r.sessions.Get(sid); item != nil {
		prev := item.Value()
		if prev.revokedAt.After(next.revokedAt) {
			next.revokedAt = prev.revokedAt
		}
		if prev.expiresAt.After(next.expiresAt) {
			next.expiresAt = prev.expiresAt
		}
	}

	ttl := time.Until(next.expiresAt)
	if ttl <= 0 {
		return nil
	}
	r.sessions.Set(sid, next, ttl)
	return nil
}

func (r *revocationsRepo) SessionRevokedAt(_ context.Context, sid string, now time.Time) (time.Time, bool, error) {
	item := r.sessions.Get(sid)
	if item == nil {
		return time.Time{}, false, nil
	}
	s := item.Value()
	if !now.Before(s.expiresAt) {
		return time.Time{}, false, nil
	}
	return s.revokedAt, true, nil
}

func (r *revocationsRepo) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	before := r.tokens.Len() + r.sessions.Len()
	r.tokens.DeleteExpired()
	r.sessions.DeleteExpired()
	return before - (r.tokens.Len() + r.sessions.Len()), nil
}
