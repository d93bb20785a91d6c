package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "guard",
		},
	}

	t.Run("matching issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer("guard"))
	})

	t.Run("empty expected issuer", func(t *testing.T) {
		require.NoError(t, c.ValidateIssuer(""))
	})

	t.Run("mismatched issuer", func(t *testing.T) {
		err := c.ValidateIssuer("billing")
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience: []string{"web", "trading"},
		},
	}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"web"}))
	})

	t.Run("multiple match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "trading"}))
	})

	t.Run("no match", func(t *testing.T) {
		err := c.ValidateAudience([]string{"admin"})
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.NoError(t, claims.ValidateExpiry(now, 0))
	})

	t.Run("expired token", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiry(now, 0), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
				NotBefore: jwt.NewNumericDate(now.Add(1 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiry(now, 0), jwtx.ErrNotYetValid)
	})

	t.Run("missing exp", func(t *testing.T) {
		claims := &jwtx.Claims{}
		require.ErrorIs(t, claims.ValidateExpiry(now, 0), jwtx.ErrInvalidClaim)
	})

	t.Run("valid with leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
			},
		}
		require.NoError(t, claims.ValidateExpiry(now, 30*time.Second))
	})

	t.Run("expired beyond leeway", func(t *testing.T) {
		claims := &jwtx.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute)),
			},
		}
		require.ErrorIs(t, claims.ValidateExpiry(now, 30*time.Second), jwtx.ErrExpired)
	})
}

func TestValidateRequired(t *testing.T) {
	now := time.Now()

	access := jwtx.NewAccessClaims("user-1", "sess-1", "a@example.com", nil, nil, nil,
		time.Minute, "guard", nil, now)
	require.NoError(t, access.ValidateRequired(jwtx.TokenTypeAccess))
	require.ErrorIs(t, access.ValidateRequired(jwtx.TokenTypeRefresh), jwtx.ErrWrongType)

	refresh := jwtx.NewRefreshClaims("user-1", "sess-1", time.Hour, "guard", nil, now)
	require.NoError(t, refresh.ValidateRequired(jwtx.TokenTypeRefresh))
	require.Empty(t, refresh.Roles)
	require.NotEqual(t, access.ID, refresh.ID)

	noSession := refresh
	noSession.SID = ""
	require.ErrorIs(t, noSession.ValidateRequired(jwtx.TokenTypeRefresh), jwtx.ErrInvalidClaim)

	noJTI := refresh
	noJTI.ID = ""
	require.ErrorIs(t, noJTI.ValidateRequired(jwtx.TokenTypeRefresh), jwtx.ErrInvalidClaim)
}
