package domain

import "time"

// Principal is who a token pair is issued to.
type Principal struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	AMR         []string `json:"amr,omitempty"`
}

// TokenPayload is the trusted view of a verified token. It only exists after
// signature, issuer, audience, expiry and revocation checks all passed.
type TokenPayload struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email,omitempty"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	AMR         []string  `json:"amr,omitempty"`
	SessionID   string    `json:"session_id"`
	JWTID       string    `json:"jti"`
	Type        string    `json:"type"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenPair is what a login or refresh returns to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // access token lifetime in seconds
	SessionID    string `json:"session_id"`
}
