package guard_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

// TestTokenLifecycle walks a session from issue through refresh to logout.
func TestTokenLifecycle(t *testing.T) {
	client := setupGuardContainer(t, nil)
	ctx := t.Context()

	pair := issue(t, client, "user-1")

	session, err := client.GetSession(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, pair.SessionID, session.SessionID)

	refreshed, err := client.RefreshToken(ctx, guardsdk.RefreshTokenRequest{
		RefreshToken: pair.RefreshToken,
		UserID:       "user-1",
		Roles:        []string{"user", "admin"},
	})
	require.NoError(t, err)
	assertTokenResponse(t, refreshed)
	require.Equal(t, pair.SessionID, refreshed.SessionID, "refresh keeps the session")

	session, err = client.GetSession(ctx, refreshed.AccessToken)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user", "admin"}, session.Roles)

	require.NoError(t, client.EndSession(ctx, refreshed.AccessToken))

	_, err = client.GetSession(ctx, pair.AccessToken)
	assertStatus(t, err, http.StatusUnauthorized)
	_, err = client.RefreshToken(ctx, guardsdk.RefreshTokenRequest{RefreshToken: refreshed.RefreshToken, UserID: "user-1"})
	assertStatus(t, err, http.StatusUnauthorized)
}

// TestRevokeSingleToken revokes one access token and leaves its session
// usable with a refreshed pair.
func TestRevokeSingleToken(t *testing.T) {
	client := setupGuardContainer(t, nil)
	ctx := t.Context()

	pair := issue(t, client, "user-2")
	require.NoError(t, client.RevokeToken(ctx, pair.AccessToken))

	_, err := client.GetSession(ctx, pair.AccessToken)
	assertStatus(t, err, http.StatusUnauthorized)

	refreshed, err := client.RefreshToken(ctx, guardsdk.RefreshTokenRequest{RefreshToken: pair.RefreshToken, UserID: "user-2"})
	require.NoError(t, err)
	_, err = client.GetSession(ctx, refreshed.AccessToken)
	require.NoError(t, err)

	// Garbage is accepted and ignored.
	require.NoError(t, client.RevokeToken(ctx, "not-a-token"))
}

// TestIssueRequiresServiceKey checks that issuance is closed to callers
// without the backend key.
func TestIssueRequiresServiceKey(t *testing.T) {
	client := setupGuardContainer(t, nil)

	anonymous := guardsdk.NewClient(client.BaseURL, "")
	_, err := anonymous.IssueToken(t.Context(), guardsdk.IssueTokenRequest{UserID: "user-3"})
	assertStatus(t, err, http.StatusUnauthorized)
}

// TestTokensVerifyAgainstPublishedKeys verifies an access token offline
// with the JWKS the service publishes, and checks that the refresh key is
// not among them.
func TestTokensVerifyAgainstPublishedKeys(t *testing.T) {
	client := setupGuardContainer(t, nil)
	ctx := t.Context()

	pair := issue(t, client, "user-4")

	keys, err := client.FetchKeySet(ctx)
	require.NoError(t, err)

	verifier := jwtx.NewVerifier(keys, jwtx.AlgorithmEdDSA, jwtx.VerifyOptions{
		Issuer:   testIssuer,
		Audience: []string{testAudience},
	})

	claims, err := verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-4", claims.Subject)
	require.Equal(t, jwtx.TokenTypeAccess, claims.Type)

	_, err = verifier.Verify(pair.RefreshToken)
	require.Error(t, err, "refresh tokens are signed with an unpublished key")
}
