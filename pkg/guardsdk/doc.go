/*
Package guardsdk is the client for the guard service and holds the request
and response types shared with its HTTP handlers.

# Client

A Client carries the service key used by trusted backends to mint and
refresh tokens:

	c := guardsdk.NewClient("https://guard.internal", serviceKey)

	pair, err := c.IssueToken(ctx, guardsdk.IssueTokenRequest{
		UserID: "u_123",
		Email:  "alice@example.com",
		Roles:  []string{"trader"},
	})

	// Later, with the caller's current roles:
	pair, err = c.RefreshToken(ctx, guardsdk.RefreshTokenRequest{
		RefreshToken: pair.RefreshToken,
		UserID:       "u_123",
		Roles:        []string{"trader"},
	})

Logout revokes a single token, or the whole session:

	_ = c.RevokeToken(ctx, pair.RefreshToken)
	_ = c.EndSession(ctx, pair.AccessToken)

# Local verification

Resource servers can verify access tokens without calling guard on every
request by loading the published keys:

	keys, err := c.FetchKeySet(ctx)
	v := jwtx.NewVerifier(keys, jwtx.AlgorithmEdDSA, jwtx.VerifyOptions{Issuer: iss, Audience: aud})

Local verification does not see revocations; call GetSession when that
matters.

# Errors

Non-2xx replies are returned as *APIError:

	var apiErr *guardsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Code == guardsdk.ErrorCodeInvalidGrant {
		// sign the user in again
	}
*/
package guardsdk
