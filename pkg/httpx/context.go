package httpx

import "context"

type ctxKey string

const (
	ctxKeyIdentity ctxKey = "identity"
	ctxKeyNonce    ctxKey = "csp_nonce"
)

// Identity is the authenticated caller as seen by middleware. Claims holds
// the authenticator's full result for handlers that need more.
type Identity struct {
	Subject     string
	SessionID   string
	Roles       []string
	Permissions []string
	Claims      any
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

// IdentityFromContext returns the caller set by AuthnMiddleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok
}

// WithNonce stores the CSP nonce of the current response in ctx.
func WithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, ctxKeyNonce, nonce)
}

// NonceFromContext returns the nonce sent in this response's CSP header.
// Markup rendered for the response must use exactly this value.
func NonceFromContext(ctx context.Context) string {
	n, _ := ctx.Value(ctxKeyNonce).(string)
	return n
}
