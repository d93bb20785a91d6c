package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// Authenticator resolves a bearer token to an Identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, token string) (Identity, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, token string) (Identity, error) {
	return f(ctx, token)
}

// AuthnMiddleware requires a valid "Bearer" token. Every failure, whether
// the header is missing, the token is expired or revoked, or the revocation
// store is unreachable, produces the same 401 reply; the reason is only
// logged.
func AuthnMiddleware(a Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := jwtx.ExtractBearer(r.Header.Get("Authorization"))
			if !ok {
				log.Debug("missing or malformed bearer token")
				WriteUnauthorized(w)
				return
			}

			id, err := a.Authenticate(ctx, raw)
			if err != nil {
				log.Info("bearer authentication failed", "err", err)
				WriteUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}

// WriteUnauthorized writes the single RFC 6750 reply used for every
// authentication failure.
func WriteUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
}
