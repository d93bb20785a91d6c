package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireAnyRole the caller must have at least one of the provided roles.
func RequireAnyRole(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())
			for _, role := range id.Roles {
				if slices.Contains(required, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeForbidden(w, required...)
		})
	}
}

// RequireAllPermissions the caller must have every permission listed.
func RequireAllPermissions(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := IdentityFromContext(r.Context())
			for _, p := range required {
				if !slices.Contains(id.Permissions, p) {
					writeForbidden(w, required...)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-compliant error response for bearer insufficient_scope.
func writeForbidden(w http.ResponseWriter, required ...string) {
	w.Header().
		Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
	WriteError(w, http.StatusForbidden, "insufficient_scope", "")
}
