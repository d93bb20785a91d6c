package guardsdk

import (
	"context"
	"net/http"
)

// GetSession verifies accessToken with the service, revocations included,
// and describes its session.
func (c *Client) GetSession(ctx context.Context, accessToken string) (*SessionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/session", nil, bearer(accessToken))
	if err != nil {
		return nil, err
	}

	var s SessionResponse
	if err := decodeJSON(resp, &s, http.StatusOK); err != nil {
		return nil, err
	}
	return &s, nil
}

// EndSession revokes every token of accessToken's session.
func (c *Client) EndSession(ctx context.Context, accessToken string) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, "/v1/session", nil, bearer(accessToken))
	if err != nil {
		return err
	}
	return decodeJSON(resp, nil, http.StatusNoContent)
}
