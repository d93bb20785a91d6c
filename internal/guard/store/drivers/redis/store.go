// Package redis keeps revocations and rate limit windows in Redis so every
// instance behind a load balancer shares them. Records carry native expiry,
// so nothing needs sweeping.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

const DefaultPrefix = "guard"

type Store struct {
	rdb    *redis.Client
	prefix string
}

var (
	_ store.Store       = (*Store)(nil)
	_ store.Revocations = (*Store)(nil)
	_ ratelimit.Store   = (*Store)(nil)
)

// NewStore connects to redisURL and pings it before returning. All keys are
// namespaced under prefix (DefaultPrefix when empty).
func NewStore(ctx context.Context, redisURL, prefix string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	return NewStoreWithClient(rdb, prefix), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) Revocations() store.Revocations { return s }
func (s *Store) RateLimits() ratelimit.Store    { return s }

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }
func (s *Store) Close() error                   { return s.rdb.Close() }

func (s *Store) tokenKey(jti string) string   { return s.prefix + ":revoked:jti:" + jti }
func (s *Store) sessionKey(sid string) string { return s.prefix + ":revoked:sid:" + sid }
func (s *Store) windowKey(key string) string  { return s.prefix + ":rl:" + key }
func (s *Store) blockKey(key string) string   { return s.prefix + ":rlblock:" + key }

func (s *Store) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.tokenKey(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token: %w", err)
	}
	return nil
}

func (s *Store) IsTokenRevoked(ctx context.Context, jti string, _ time.Time) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.tokenKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check token: %w", err)
	}
	return n > 0, nil
}

// Keeps the larger of the stored and supplied revocation time and expiry.
// Times are unix milliseconds.
var revokeSessionScript = redis.NewScript(`
local at = tonumber(ARGV[1])
local exp = tonumber(ARGV[2])
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
if cur > at then at = cur end
local curexp = redis.call('PEXPIRETIME', KEYS[1])
if curexp > exp then exp = curexp end
redis.call('SET', KEYS[1], at, 'PXAT', exp)
return at
`)

func (s *Store) RevokeSession(ctx context.Context, sid string, revokedAt, expiresAt time.Time) error {
	if !expiresAt.After(time.Now()) {
		return nil
	}
	err := revokeSessionScript.Run(ctx, s.rdb,
		[]string{s.sessionKey(sid)},
		revokedAt.UnixMilli(), expiresAt.UnixMilli(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis: revoke session: %w", err)
	}
	return nil
}

func (s *Store) SessionRevokedAt(ctx context.Context, sid string, _ time.Time) (time.Time, bool, error) {
	ms, err := s.rdb.Get(ctx, s.sessionKey(sid)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: read session: %w", err)
	}
	return time.UnixMilli(ms), true, nil
}

// DeleteExpired is a no-op: every key carries its own expiry.
func (s *Store) DeleteExpired(context.Context, time.Time) (int, error) { return 0, nil }

// Mirrors ratelimit.MemoryStore.Hit. Returns {count, reset_ms, blocked}.
var hitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local v = redis.call('HMGET', KEYS[1], 'count', 'reset', 'blocked')
local count = tonumber(v[1]) or 0
local reset = tonumber(v[2]) or 0
if reset == 0 or now >= reset then
  reset = now + window
  redis.call('HSET', KEYS[1], 'count', 1, 'reset', reset, 'blocked', 0)
  redis.call('PEXPIREAT', KEYS[1], reset)
  return {1, reset, 0}
end
if v[3] == '1' then
  return {count, reset, 1}
end
count = count + 1
local blocked = 0
if count > max then blocked = 1 end
redis.call('HSET', KEYS[1], 'count', count, 'blocked', blocked)
return {count, reset, blocked}
`)

func (s *Store) Hit(ctx context.Context, key string, window time.Duration, max int, now time.Time) (ratelimit.Entry, error) {
	res, err := hitScript.Run(ctx, s.rdb,
		[]string{s.windowKey(key)},
		now.UnixMilli(), window.Milliseconds(), max,
	).Int64Slice()
	if err != nil {
		return ratelimit.Entry{}, fmt.Errorf("redis: hit: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Entry{}, fmt.Errorf("redis: hit: unexpected reply length %d", len(res))
	}
	return ratelimit.Entry{
		Count:   int(res[0]),
		ResetAt: time.UnixMilli(res[1]),
		Blocked: res[2] == 1,
	}, nil
}

func (s *Store) Block(ctx context.Context, key string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.blockKey(key), until.UnixMilli(), ttl).Err(); err != nil {
		return fmt.Errorf("redis: block: %w", err)
	}
	return nil
}

func (s *Store) BlockedUntil(ctx context.Context, key string, now time.Time) (time.Time, bool, error) {
	ms, err := s.rdb.Get(ctx, s.blockKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: blocked until: %w", err)
	}
	until := time.UnixMilli(ms)
	if !now.Before(until) {
		return time.Time{}, false, nil
	}
	return until, true, nil
}

func (s *Store) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.windowKey(key), s.blockKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: reset: %w", err)
	}
	return nil
}

// Sweep is a no-op: windows and blocks expire on their own.
func (s *Store) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (s *Store) Stats(ctx context.Context, now time.Time) (ratelimit.Stats, error) {
	var stats ratelimit.Stats
	nowMs := now.UnixMilli()

	iter := s.rdb.Scan(ctx, 0, s.prefix+":rl:*", 100).Iterator()
	for iter.Next(ctx) {
		stats.TrackedKeys++
		v, err := s.rdb.HMGet(ctx, iter.Val(), "reset", "blocked").Result()
		if err != nil {
			return stats, fmt.Errorf("redis: stats: %w", err)
		}
		if str(v[1]) == "1" && parseMillis(str(v[0])) > nowMs {
			stats.LimitedKeys++
		}
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("redis: stats: %w", err)
	}

	iter = s.rdb.Scan(ctx, 0, s.prefix+":rlblock:*", 100).Iterator()
	for iter.Next(ctx) {
		ms, err := s.rdb.Get(ctx, iter.Val()).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("redis: stats: %w", err)
		}
		if ms > nowMs {
			stats.BlockedIPs++
		}
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("redis: stats: %w", err)
	}
	return stats, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func parseMillis(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
