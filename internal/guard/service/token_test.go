package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/guard/internal/guard/domain"
	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/internal/guard/store/drivers/memory"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

var alice = domain.Principal{
	UserID:      "user-alice",
	Email:       "alice@example.com",
	Roles:       []string{"trader"},
	Permissions: []string{"orders:write"},
	AMR:         []string{"pwd"},
}

func newKeyManager(t *testing.T, alg string) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: alg,
		Issuer:    "guard-test",
		Audience:  []string{"guard-api"},
	})
	require.NoError(t, err)
	return km
}

func newTokenService(t *testing.T, mutate func(*service.TokenServiceConfig)) *service.TokenService {
	t.Helper()
	cfg := service.TokenServiceConfig{
		Access:      newKeyManager(t, jwtx.AlgorithmEdDSA),
		Refresh:     newKeyManager(t, jwtx.AlgorithmEdDSA),
		Revocations: memory.NewStore().Revocations(),
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  24 * time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := service.NewTokenService(cfg)
	require.NoError(t, err)
	return svc
}

func TestTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEmpty(t, pair.SessionID)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, 900, pair.ExpiresIn)

	payload, err := svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, alice.UserID, payload.UserID)
	require.Equal(t, alice.Email, payload.Email)
	require.Equal(t, alice.Roles, payload.Roles)
	require.Equal(t, alice.Permissions, payload.Permissions)
	require.Equal(t, pair.SessionID, payload.SessionID)
	require.Equal(t, jwtx.TokenTypeAccess, payload.Type)
	require.NotEmpty(t, payload.JWTID)

	svc.InvalidateToken(ctx, pair.AccessToken)

	_, err = svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	// The refresh token has its own jti and is untouched.
	_, err = svc.VerifyRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshTokenCarriesMinimalClaims(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	payload, err := svc.VerifyRefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, alice.UserID, payload.UserID)
	require.Equal(t, pair.SessionID, payload.SessionID)
	require.Equal(t, jwtx.TokenTypeRefresh, payload.Type)
	require.Empty(t, payload.Email)
	require.Empty(t, payload.Roles)
	require.Empty(t, payload.Permissions)
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenInvalid)

	_, err = svc.VerifyRefreshToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestRefreshContinuity(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	first, err := svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.NoError(t, err)
	second, err := svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.NoError(t, err)

	require.Equal(t, pair.SessionID, first.SessionID)
	require.Equal(t, pair.SessionID, second.SessionID)

	p1, err := svc.VerifyAccessToken(ctx, first.AccessToken)
	require.NoError(t, err)
	p2, err := svc.VerifyAccessToken(ctx, second.AccessToken)
	require.NoError(t, err)
	require.Equal(t, p1.SessionID, p2.SessionID)
	require.NotEqual(t, p1.JWTID, p2.JWTID)
}

func TestRefreshSubjectMismatch(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	_, err = svc.RefreshAccessToken(ctx, pair.RefreshToken, domain.Principal{UserID: "user-mallory"})
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.RotateRefreshTokens = true
	})

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	next, err := svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.NoError(t, err)

	_, err = svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	_, err = svc.RefreshAccessToken(ctx, next.RefreshToken, alice)
	require.NoError(t, err)
}

func TestExpiredIsDistinctFromInvalid(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.Now = func() time.Time { return time.Now().Add(-time.Hour) }
	})

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	_, err = svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenExpired)
	require.NotErrorIs(t, err, service.ErrTokenInvalid)

	_, err = svc.VerifyAccessToken(ctx, pair.AccessToken+"x")
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestForeignTokenRejected(t *testing.T) {
	ctx := context.Background()
	ours := newTokenService(t, nil)
	theirs := newTokenService(t, nil)

	pair, err := theirs.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	_, err = ours.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenInvalid)
}

func TestInvalidateSession(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)
	other, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, svc.InvalidateSession(ctx, pair.SessionID))
	require.NoError(t, svc.InvalidateSession(ctx, pair.SessionID), "idempotent")

	_, err = svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
	_, err = svc.VerifyRefreshToken(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
	_, err = svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	_, err = svc.VerifyAccessToken(ctx, other.AccessToken)
	require.NoError(t, err, "other sessions are unaffected")

	require.ErrorIs(t, svc.InvalidateSession(ctx, ""), service.ErrInvalidSession)
}

func TestInvalidateTokenIsBestEffort(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	require.NotPanics(t, func() {
		svc.InvalidateToken(ctx, "")
		svc.InvalidateToken(ctx, "not.a.jwt")
		svc.InvalidateToken(ctx, "eyJhbGciOiJub25lIn0.e30.")
	})

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	failing := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.Revocations = failingRevocations{}
	})
	require.NotPanics(t, func() { failing.InvalidateToken(ctx, pair.AccessToken) })
}

func TestInvalidateRefreshToken(t *testing.T) {
	ctx := context.Background()
	svc := newTokenService(t, nil)

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	svc.InvalidateToken(ctx, pair.RefreshToken)

	_, err = svc.RefreshAccessToken(ctx, pair.RefreshToken, alice)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
}

func TestVerifyFailsClosedOnStoreError(t *testing.T) {
	ctx := context.Background()
	access := newKeyManager(t, jwtx.AlgorithmEdDSA)
	refresh := newKeyManager(t, jwtx.AlgorithmEdDSA)

	issuer := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.Access, cfg.Refresh = access, refresh
	})
	broken := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.Access, cfg.Refresh = access, refresh
		cfg.Revocations = failingRevocations{}
	})

	pair, err := issuer.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)

	_, err = broken.VerifyAccessToken(ctx, pair.AccessToken)
	require.ErrorIs(t, err, errStoreDown)
}

func TestNewTokenServiceValidation(t *testing.T) {
	shared := newKeyManager(t, jwtx.AlgorithmEdDSA)
	rev := memory.NewStore().Revocations()

	_, err := service.NewTokenService(service.TokenServiceConfig{
		Access: shared, Refresh: shared, Revocations: rev,
	})
	require.ErrorIs(t, err, service.ErrSharedTokenKeys)

	_, err = service.NewTokenService(service.TokenServiceConfig{
		Access: shared, Refresh: newKeyManager(t, jwtx.AlgorithmEdDSA),
	})
	require.Error(t, err, "revocation store is required")

	_, err = service.NewTokenService(service.TokenServiceConfig{
		Access:      shared,
		Refresh:     newKeyManager(t, jwtx.AlgorithmEdDSA),
		Revocations: rev,
		AccessTTL:   time.Hour,
		RefreshTTL:  time.Minute,
	})
	require.Error(t, err, "access must be shorter lived than refresh")

	_, err = newTokenService(t, nil).GenerateTokenPair(context.Background(), domain.Principal{})
	require.ErrorIs(t, err, service.ErrInvalidPrincipal)
}

func TestHS256TokenService(t *testing.T) {
	ctx := context.Background()
	mk := func(secret string) *jwtx.KeyManager {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
			Algorithm: jwtx.AlgorithmHS256,
			Issuer:    "guard-test",
			Audience:  []string{"guard-api"},
			Secret:    []byte(secret),
		})
		require.NoError(t, err)
		return km
	}

	svc := newTokenService(t, func(cfg *service.TokenServiceConfig) {
		cfg.Access = mk("access-secret-access-secret-0123")
		cfg.Refresh = mk("refresh-secret-refresh-secret-01")
	})

	pair, err := svc.GenerateTokenPair(ctx, alice)
	require.NoError(t, err)
	_, err = svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Empty(t, svc.AccessKeys().PublicJWKS().Keys, "HMAC keys are never published")
}

var errStoreDown = errors.New("store down")

type failingRevocations struct{}

var _ store.Revocations = failingRevocations{}

func (failingRevocations) RevokeToken(context.Context, string, time.Time) error { return errStoreDown }
func (failingRevocations) IsTokenRevoked(context.Context, string, time.Time) (bool, error) {
	return false, errStoreDown
}
func (failingRevocations) RevokeSession(context.Context, string, time.Time, time.Time) error {
	return errStoreDown
}
func (failingRevocations) SessionRevokedAt(context.Context, string, time.Time) (time.Time, bool, error) {
	return time.Time{}, false, errStoreDown
}
func (failingRevocations) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, errStoreDown
}
