package guardsdk

import (
	"time"

	"github.com/aussiebroadwan/guard/pkg/jwtx"
)

// ============================================================================
// Token Types
// ============================================================================

// IssueTokenRequest is the body of POST /v1/token. Only UserID is required.
type IssueTokenRequest struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`

	// AMR lists the authentication methods used, e.g. ["pwd", "otp"].
	AMR []string `json:"amr,omitempty"`
}

// RefreshTokenRequest is the body of POST /v1/token/refresh. The principal
// fields replace those of the previous access token; UserID must match the
// refresh token's subject.
type RefreshTokenRequest struct {
	RefreshToken string   `json:"refresh_token"`
	UserID       string   `json:"user_id"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	Permissions  []string `json:"permissions,omitempty"`
	AMR          []string `json:"amr,omitempty"`
}

// RevokeTokenRequest is the body of POST /v1/token/revoke.
type RevokeTokenRequest struct {
	Token string `json:"token"`
}

// TokenResponse is a freshly minted token pair.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	SessionID string `json:"session_id"`
}

// SessionResponse describes the session behind an access token.
type SessionResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	AMR         []string  `json:"amr,omitempty"`
	SessionID   string    `json:"session_id"`
	TokenID     string    `json:"jti"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ============================================================================
// Well-known and Health Types
// ============================================================================

// JWKSResponse is the published key set.
type JWKSResponse jwtx.JWKS

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each dependency as "ok" or "error: ...".
type HealthChecks struct {
	Store  string `json:"store"`
	Signer string `json:"signer"`
}

// ============================================================================
// CSP Reports
// ============================================================================

// CSPReport is a browser violation report. Browsers send it either wrapped
// as {"csp-report": {...}} or as the top-level object.
type CSPReport struct {
	DocumentURI        string `json:"document-uri,omitempty"`
	Referrer           string `json:"referrer,omitempty"`
	ViolatedDirective  string `json:"violated-directive,omitempty"`
	EffectiveDirective string `json:"effective-directive,omitempty"`
	OriginalPolicy     string `json:"original-policy,omitempty"`
	Disposition        string `json:"disposition,omitempty"`
	BlockedURI         string `json:"blocked-uri,omitempty"`
	SourceFile         string `json:"source-file,omitempty"`
	LineNumber         int    `json:"line-number,omitempty"`
	ColumnNumber       int    `json:"column-number,omitempty"`
	StatusCode         int    `json:"status-code,omitempty"`
	ScriptSample       string `json:"script-sample,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}
