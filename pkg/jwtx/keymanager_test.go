package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte(strings.Repeat("k", 32))

func newManager(t *testing.T, alg string) *jwtx.KeyManager {
	t.Helper()
	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: alg,
		Issuer:    "test-issuer",
		Audience:  []string{"test-audience"},
		Secret:    testSecret,
	})
	require.NoError(t, err)
	return km
}

func TestNewKeyManager_AllAlgorithms(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		published bool
	}{
		{"RS256", jwtx.AlgorithmRS256, true},
		{"ES256", jwtx.AlgorithmES256, true},
		{"EdDSA", jwtx.AlgorithmEdDSA, true},
		{"HS256", jwtx.AlgorithmHS256, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km := newManager(t, tt.algorithm)

			require.NotNil(t, km.Signer)
			require.NotNil(t, km.Verifier)
			require.Equal(t, tt.algorithm, km.Algorithm())
			require.True(t, km.IsReady())
			require.True(t, strings.HasPrefix(km.Signer.KID(), "guard-"))

			jwks := km.KeySet.PublicJWKS()
			if tt.published {
				require.Len(t, jwks.Keys, 1)
				require.Equal(t, tt.algorithm, jwks.Keys[0].Alg)
				require.Equal(t, km.Signer.KID(), jwks.Keys[0].Kid)
			} else {
				require.Empty(t, jwks.Keys)
			}
		})
	}
}

func TestKeyManager_SignAndVerifyRoundTrip(t *testing.T) {
	for _, alg := range []string{jwtx.AlgorithmRS256, jwtx.AlgorithmES256, jwtx.AlgorithmEdDSA, jwtx.AlgorithmHS256} {
		t.Run(alg, func(t *testing.T) {
			km := newManager(t, alg)

			claims := jwtx.NewAccessClaims(
				"user-123", "session-456", "user@example.com",
				[]string{"trader"}, []string{"orders:write"}, []string{"pwd", "otp"},
				15*time.Minute, "test-issuer", []string{"test-audience"}, time.Now(),
			)

			token, err := km.Sign(claims)
			require.NoError(t, err)
			require.Equal(t, 2, strings.Count(token, "."))

			got, err := km.Verifier.Verify(token)
			require.NoError(t, err)
			require.Equal(t, "user-123", got.Subject)
			require.Equal(t, "session-456", got.SID)
			require.Equal(t, jwtx.TokenTypeAccess, got.Type)
			require.Equal(t, []string{"trader"}, got.Roles)
			require.Equal(t, []string{"orders:write"}, got.Permissions)
			require.Equal(t, []string{"pwd", "otp"}, got.AMR)
			require.Equal(t, claims.ID, got.ID)
		})
	}
}

func TestNewKeyManager_ErrorCases(t *testing.T) {
	aud := []string{"test-audience"}
	tests := []struct {
		name string
		opts jwtx.KeyManagerOptions
	}{
		{"missing issuer", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Audience: aud}},
		{"missing audience", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "x"}},
		{"blank audience", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmEdDSA, Issuer: "x", Audience: []string{""}}},
		{"unknown algorithm", jwtx.KeyManagerOptions{Algorithm: "PS512", Issuer: "x", Audience: aud}},
		{"short HMAC secret", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmHS256, Issuer: "x", Audience: aud, Secret: []byte("short")}},
		{"weak RSA", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmRS256, Issuer: "x", Audience: aud, RSABits: 1024}},
		{"bad PEM", jwtx.KeyManagerOptions{Algorithm: jwtx.AlgorithmES256, Issuer: "x", Audience: aud, PrivateKeyPEM: []byte("nope")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			km, err := jwtx.NewKeyManager(tt.opts)
			require.Error(t, err)
			require.Nil(t, km)
		})
	}
}

func TestNewKeyManager_ShortSecretIsWeak(t *testing.T) {
	_, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    "x",
		Audience:  []string{"test-audience"},
		Secret:    []byte(strings.Repeat("a", 31)),
	})
	require.ErrorIs(t, err, jwtx.ErrWeakSecret)
}

func TestNewKeyManager_LoadsExistingKey(t *testing.T) {
	pemKey, err := jwtx.GenerateSigningKey(jwtx.AlgorithmEdDSA, 0)
	require.NoError(t, err)

	opts := jwtx.KeyManagerOptions{
		Algorithm:     jwtx.AlgorithmEdDSA,
		Issuer:        "test-issuer",
		Audience:      []string{"test-audience"},
		KID:           "fixed-kid",
		PrivateKeyPEM: pemKey,
	}
	a, err := jwtx.NewKeyManager(opts)
	require.NoError(t, err)
	b, err := jwtx.NewKeyManager(opts)
	require.NoError(t, err)

	// A restart with the same key keeps earlier tokens valid.
	token, err := a.Sign(jwtx.NewRefreshClaims("u", "s", time.Hour, "test-issuer", []string{"test-audience"}, time.Now()))
	require.NoError(t, err)
	_, err = b.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, a.KeySet.PublicJWKS(), b.KeySet.PublicJWKS())
}

func TestKeyManager_IndependentKeys(t *testing.T) {
	access := newManager(t, jwtx.AlgorithmEdDSA)
	refresh := newManager(t, jwtx.AlgorithmEdDSA)

	token, err := refresh.Sign(jwtx.NewRefreshClaims("u", "s", time.Hour, "test-issuer", []string{"test-audience"}, time.Now()))
	require.NoError(t, err)

	_, err = access.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestSharesKeyWith(t *testing.T) {
	a := newManager(t, jwtx.AlgorithmEdDSA)
	b := newManager(t, jwtx.AlgorithmEdDSA)
	require.False(t, a.SharesKeyWith(b))
	require.True(t, a.SharesKeyWith(a))

	pemKey, err := jwtx.GenerateSigningKey(jwtx.AlgorithmEdDSA, 0)
	require.NoError(t, err)
	load := func(kid string) *jwtx.KeyManager {
		km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
			Algorithm:     jwtx.AlgorithmEdDSA,
			Issuer:        "test-issuer",
			Audience:      []string{"test-audience"},
			KID:           kid,
			PrivateKeyPEM: pemKey,
		})
		require.NoError(t, err)
		return km
	}
	require.True(t, load("c").SharesKeyWith(load("d")), "same key under different kids")

	h1 := newManager(t, jwtx.AlgorithmHS256)
	h2 := newManager(t, jwtx.AlgorithmHS256)
	require.True(t, h1.SharesKeyWith(h2), "same secret")
	require.False(t, h1.SharesKeyWith(a))
}
