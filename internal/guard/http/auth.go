package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/pkg/cryptox"
	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/sanitize"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// accessAuthenticator resolves bearer tokens through the token service, so
// revocations are honoured.
func accessAuthenticator(ts *service.TokenService) httpx.Authenticator {
	return httpx.AuthenticatorFunc(func(ctx context.Context, token string) (httpx.Identity, error) {
		p, err := ts.VerifyAccessToken(ctx, token)
		if err != nil {
			return httpx.Identity{}, err
		}
		return httpx.Identity{
			Subject:     p.UserID,
			SessionID:   p.SessionID,
			Roles:       p.Roles,
			Permissions: p.Permissions,
			Claims:      p,
		}, nil
	})
}

// requireServiceKey admits requests whose X-API-Key hashes to wantSHA256.
func requireServiceKey(wantSHA256 string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(guardsdk.ServiceKeyHeader)
			if wantSHA256 == "" || !sanitize.ValidateAPIKey(key) ||
				!cryptox.VerifyChecksum([]byte(key), wantSHA256) {
				slogx.FromContext(r.Context()).Warn("service key rejected")
				guardsdk.ErrInvalidClient.WriteError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
