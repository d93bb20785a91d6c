package guardsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

// GetJWKS retrieves the JSON Web Key Set for token verification.
func (c *Client) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// FetchKeySet loads the published keys into a KeySet for a local
// jwtx.Verifier.
func (c *Client) FetchKeySet(ctx context.Context) (*jwtx.KeySet, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	keys := jwtx.NewKeySet()
	for _, k := range jwks.Keys {
		if err := keys.AddJWK(k); err != nil {
			return nil, fmt.Errorf("guardsdk: key %q: %w", k.Kid, err)
		}
	}
	return keys, nil
}
