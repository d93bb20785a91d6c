package guardsdk

import (
	"context"
	"net/http"
)

// IssueToken starts a session and returns its first token pair. Requires
// the service key.
func (c *Client) IssueToken(ctx context.Context, req IssueTokenRequest) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/token", req,
		map[string]string{ServiceKeyHeader: c.ServiceKey})
	if err != nil {
		return nil, err
	}

	var pair TokenResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RefreshToken trades a refresh token for a new pair in the same session.
// Requires the service key.
func (c *Client) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/token/refresh", req,
		map[string]string{ServiceKeyHeader: c.ServiceKey})
	if err != nil {
		return nil, err
	}

	var pair TokenResponse
	if err := decodeJSON(resp, &pair, http.StatusOK); err != nil {
		return nil, err
	}
	return &pair, nil
}

// RevokeToken revokes an access or refresh token. The service replies 200
// whatever the token was, so an error here is transport or rate limiting.
func (c *Client) RevokeToken(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/token/revoke", RevokeTokenRequest{Token: token}, nil)
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusOK)
}
