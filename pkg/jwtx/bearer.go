package jwtx

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExtractBearer returns the token from an Authorization header value. Only
// the exact form "Bearer <token>" is accepted.
func ExtractBearer(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// ExpiryOf reads the exp claim without verifying the signature. It is for
// scheduling and display only and must never gate access.
func ExpiryOf(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// IsExpired reports whether token's exp has passed. Undecodable tokens count
// as expired.
func IsExpired(token string) bool {
	exp, ok := ExpiryOf(token)
	if !ok {
		return true
	}
	return !time.Now().Before(exp)
}
