package http

import (
	"net/http"

	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

// JWKSHandler exposes the JSON Web Key Set for public key discovery.
//
//	@Summary		Get JWKS
//	@Description	Returns the public keys that verify access tokens. Empty when tokens are signed with HS256.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	guardsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, guardsdk.JWKSResponse(keys.PublicJWKS()))
	}
}
