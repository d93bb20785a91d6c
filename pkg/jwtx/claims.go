package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes. Access tokens are short so that a leaked token
// is only useful briefly; refresh tokens carry the session.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token types carried in the "type" claim. A refresh token is never accepted
// where an access token is expected, and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims are the claims of every token guard issues.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID, shared by every token minted for one login.
	SID string `json:"sid,omitempty"`

	// Type is "access" or "refresh".
	Type string `json:"type,omitempty"`

	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// Authentication Methods Reference ["pwd","otp","mfa"]
	AMR []string `json:"amr,omitempty"`
}

// NewAccessClaims builds access token claims carrying the full principal.
func NewAccessClaims(
	subject, sid, email string,
	roles, permissions, amr []string,
	ttl time.Duration,
	issuer string,
	audience []string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, ttl, issuer, audience, now),
		SID:              sid,
		Type:             TokenTypeAccess,
		Email:            email,
		Roles:            roles,
		Permissions:      permissions,
		AMR:              amr,
	}
}

// NewRefreshClaims builds refresh token claims. They carry only the subject
// and session, never roles or permissions.
func NewRefreshClaims(subject, sid string, ttl time.Duration, issuer string, audience []string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: registered(subject, ttl, issuer, audience, now),
		SID:              sid,
		Type:             TokenTypeRefresh,
	}
}

func registered(subject string, ttl time.Duration, issuer string, audience []string, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings(audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a fresh identifier for the "jti" claim.
func NewJTI() string {
	return uuid.NewString()
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiry requires exp to be present and in the future, and nbf (if
// set) to have passed, both with leeway for clock skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ValidateRequired checks the claims guard relies on after the signature:
// jti, sid and the expected token type.
func (c *Claims) ValidateRequired(tokenType string) error {
	if c.ID == "" || c.SID == "" || c.Subject == "" {
		return ErrInvalidClaim
	}
	if c.Type != tokenType {
		return ErrWrongType
	}
	return nil
}
