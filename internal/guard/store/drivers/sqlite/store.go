// Package sqlite persists revocations in a SQLite database so they survive
// restarts. Rate limit counters stay in memory.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/ratelimit"
)

type Store struct {
	db     *sql.DB
	dsn    string
	limits *ratelimit.MemoryStore
}

var _ store.Store = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Wait on a locked database instead of failing straight away.
	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		dsn:    dsn,
		limits: ratelimit.NewMemoryStore(),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Revocations() store.Revocations { return &revocationsRepo{db: s.db} }
func (s *Store) RateLimits() ratelimit.Store    { return s.limits }

type revocationsRepo struct {
	db *sql.DB
}

const (
	revokeTokenSQL = `
INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
ON CONFLICT (jti) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`

	isTokenRevokedSQL = `
SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at > ?)`

	revokeSessionSQL = `
INSERT INTO revoked_sessions (sid, revoked_at, expires_at) VALUES (?, ?, ?)
ON CONFLICT (sid) DO UPDATE SET
    revoked_at = MAX(revoked_at, excluded.revoked_at),
    expires_at = MAX(expires_at, excluded.expires_at)`

	sessionRevokedAtSQL = `
SELECT revoked_at FROM revoked_sessions WHERE sid = ? AND expires_at > ?`

	deleteExpiredTokensSQL   = `DELETE FROM revoked_tokens WHERE expires_at <= ?`
	deleteExpiredSessionsSQL = `DELETE FROM revoked_sessions WHERE expires_at <= ?`
)

func (r *revocationsRepo) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, revokeTokenSQL, jti, expiresAt.UnixNano())
	return err
}

func (r *revocationsRepo) IsTokenRevoked(ctx context.Context, jti string, now time.Time) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx, isTokenRevokedSQL, jti, now.UnixNano()).Scan(&revoked)
	return revoked, err
}

func (r *revocationsRepo) RevokeSession(ctx context.Context, sid string, revokedAt, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, revokeSessionSQL, sid, revokedAt.UnixNano(), expiresAt.UnixNano())
	return err
}

func (r *revocationsRepo) SessionRevokedAt(ctx context.Context, sid string, now time.Time) (time.Time, bool, error) {
	var nanos int64
	err := r.db.QueryRowContext(ctx, sessionRevokedAtSQL, sid, now.UnixNano()).Scan(&nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, nanos), true, nil
}

func (r *revocationsRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var total int64
	for _, q := range []string{deleteExpiredTokensSQL, deleteExpiredSessionsSQL} {
		res, err := r.db.ExecContext(ctx, q, now.UnixNano())
		if err != nil {
			return int(total), err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return int(total), err
		}
		total += n
	}
	return int(total), nil
}
