package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/guard/internal/guard/domain"
	"github.com/aussiebroadwan/guard/internal/guard/store"
	"github.com/aussiebroadwan/guard/pkg/cryptox"
	"github.com/aussiebroadwan/guard/pkg/idx"
	"github.com/aussiebroadwan/guard/pkg/jwtx"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

var (
	ErrTokenExpired = errors.New("token_expired")
	ErrTokenInvalid = errors.New("token_invalid")
	ErrTokenRevoked = errors.New("token_revoked")

	ErrInvalidPrincipal = errors.New("invalid_principal")
	ErrInvalidSession   = errors.New("invalid_session")

	ErrSharedTokenKeys = errors.New("service: access and refresh tokens must use different keys")
)

// TokenServiceConfig wires a TokenService.
type TokenServiceConfig struct {
	// Access and Refresh must hold different keys.
	Access  *jwtx.KeyManager
	Refresh *jwtx.KeyManager

	Revocations store.Revocations
	Auditor     *slogx.Auditor

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotateRefreshTokens revokes a refresh token once it has been used.
	RotateRefreshTokens bool

	// Now overrides the clock used for issuing, for tests.
	Now func() time.Time
}

// TokenService issues, verifies, refreshes and revokes token pairs. A token
// moves from issued to valid and then to expired or revoked, never back.
type TokenService struct {
	access      *jwtx.KeyManager
	refresh     *jwtx.KeyManager
	revocations store.Revocations
	auditor     *slogx.Auditor
	accessTTL   time.Duration
	refreshTTL  time.Duration
	rotate      bool
	now         func() time.Time
}

// NewTokenService validates cfg and returns a TokenService.
func NewTokenService(cfg TokenServiceConfig) (*TokenService, error) {
	if cfg.Access == nil || cfg.Refresh == nil {
		return nil, errors.New("service: access and refresh key managers are required")
	}
	if cfg.Revocations == nil {
		return nil, errors.New("service: revocation store is required")
	}
	if cfg.Access.SharesKeyWith(cfg.Refresh) {
		return nil, ErrSharedTokenKeys
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = jwtx.DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = jwtx.DefaultRefreshTokenTTL
	}
	if cfg.AccessTTL >= cfg.RefreshTTL {
		return nil, fmt.Errorf("service: access TTL %s must be shorter than refresh TTL %s", cfg.AccessTTL, cfg.RefreshTTL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &TokenService{
		access:      cfg.Access,
		refresh:     cfg.Refresh,
		revocations: cfg.Revocations,
		auditor:     cfg.Auditor,
		accessTTL:   cfg.AccessTTL,
		refreshTTL:  cfg.RefreshTTL,
		rotate:      cfg.RotateRefreshTokens,
		now:         cfg.Now,
	}, nil
}

// AccessKeys is the key set whose public half is published as JWKS.
func (s *TokenService) AccessKeys() *jwtx.KeySet { return s.access.KeySet }

// GenerateTokenPair starts a new session for p and returns its first pair.
func (s *TokenService) GenerateTokenPair(ctx context.Context, p domain.Principal) (domain.TokenPair, error) {
	if p.UserID == "" {
		return domain.TokenPair{}, ErrInvalidPrincipal
	}

	sid := idx.New().String()
	pair, err := s.mintPair(p, sid)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.auditor.Record(ctx, slogx.AuditEntry{
		Action:  "token.issue",
		Subject: p.UserID,
		Outcome: "success",
		Details: map[string]string{"sid": sid},
	})
	return pair, nil
}

// VerifyAccessToken returns the payload of a valid, unrevoked access token.
func (s *TokenService) VerifyAccessToken(ctx context.Context, token string) (domain.TokenPayload, error) {
	claims, err := s.verify(ctx, s.access, token, jwtx.TokenTypeAccess)
	if err != nil {
		return domain.TokenPayload{}, err
	}
	return toPayload(claims), nil
}

// VerifyRefreshToken is VerifyAccessToken for refresh tokens.
func (s *TokenService) VerifyRefreshToken(ctx context.Context, token string) (domain.TokenPayload, error) {
	claims, err := s.verify(ctx, s.refresh, token, jwtx.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPayload{}, err
	}
	return toPayload(claims), nil
}

// RefreshAccessToken trades a refresh token for a new pair in the same
// session. p must be the refresh token's subject; its roles and permissions
// are taken fresh from the caller, not from the old token.
func (s *TokenService) RefreshAccessToken(ctx context.Context, refreshToken string, p domain.Principal) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.verify(ctx, s.refresh, refreshToken, jwtx.TokenTypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if p.UserID == "" || claims.Subject != p.UserID {
		l.Info("refresh subject mismatch", slog.String("sid", claims.SID))
		return domain.TokenPair{}, ErrTokenInvalid
	}

	if s.rotate {
		if err := s.revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
			return domain.TokenPair{}, fmt.Errorf("service: rotate refresh token: %w", err)
		}
	}

	pair, err := s.mintPair(p, claims.SID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.auditor.Record(ctx, slogx.AuditEntry{
		Action:  "token.refresh",
		Subject: p.UserID,
		Outcome: "success",
		Details: map[string]string{"sid": claims.SID},
	})
	return pair, nil
}

// InvalidateToken revokes an access or refresh token until it would have
// expired. It is best effort: malformed, foreign or already expired tokens
// are ignored and store failures are logged, so logout never fails.
func (s *TokenService) InvalidateToken(ctx context.Context, token string) {
	l := slogx.FromContext(ctx).With(slog.String("token_fp", cryptox.FingerprintToken(token)))

	claims, err := s.access.Verifier.VerifySignature(token)
	if err != nil {
		claims, err = s.refresh.Verifier.VerifySignature(token)
	}
	if err != nil {
		l.Debug("ignoring revocation of unverifiable token", slog.Any("err", err))
		return
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		l.Debug("ignoring revocation of token without jti or exp")
		return
	}
	if !claims.ExpiresAt.Time.After(s.now()) {
		return
	}

	outcome := "success"
	if err := s.revocations.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		l.Warn("failed to revoke token", slog.String("jti", claims.ID), slog.Any("err", err))
		outcome = "failure"
	}

	s.auditor.Record(ctx, slogx.AuditEntry{
		Action:  "token.revoke",
		Subject: claims.Subject,
		Outcome: outcome,
		Details: map[string]string{"sid": claims.SID, "jti": claims.ID, "type": claims.Type},
	})
}

// InvalidateSession revokes every token issued under sessionID up to now.
// Calling it again is harmless.
func (s *TokenService) InvalidateSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidSession
	}

	now := s.now()

	// No token of the session can outlive a refresh token minted just now.
	expiresAt := now.Add(s.refreshTTL)
	if err := s.revocations.RevokeSession(ctx, sessionID, now, expiresAt); err != nil {
		s.auditor.Record(ctx, slogx.AuditEntry{
			Action:  "session.revoke",
			Outcome: "failure",
			Details: map[string]string{"sid": sessionID},
		})
		return fmt.Errorf("service: revoke session: %w", err)
	}

	s.auditor.Record(ctx, slogx.AuditEntry{
		Action:  "session.revoke",
		Outcome: "success",
		Details: map[string]string{"sid": sessionID},
	})
	return nil
}

func (s *TokenService) mintPair(p domain.Principal, sid string) (domain.TokenPair, error) {
	now := s.now()
	av := s.access.Verifier

	access, err := s.access.Sign(jwtx.NewAccessClaims(
		p.UserID, sid, p.Email,
		p.Roles, p.Permissions, p.AMR,
		s.accessTTL, av.Issuer(), av.Audience(), now,
	))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service: sign access token: %w", err)
	}

	rv := s.refresh.Verifier
	refresh, err := s.refresh.Sign(jwtx.NewRefreshClaims(
		p.UserID, sid, s.refreshTTL, rv.Issuer(), rv.Audience(), now,
	))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("service: sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		SessionID:    sid,
	}, nil
}

// verify runs signature, issuer, audience and expiry checks, then required
// claims, then the jti blacklist and session tombstone. Any store failure
// rejects the token.
func (s *TokenService) verify(ctx context.Context, km *jwtx.KeyManager, token, tokenType string) (jwtx.Claims, error) {
	l := slogx.FromContext(ctx)

	claims, err := km.Verifier.Verify(token)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.Claims{}, ErrTokenExpired
		}
		l.Debug("token rejected", slog.String("type", tokenType), slog.Any("err", err))
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if err := claims.ValidateRequired(tokenType); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.IssuedAt == nil {
		return jwtx.Claims{}, fmt.Errorf("%w: missing iat", ErrTokenInvalid)
	}

	now := s.now()
	revoked, err := s.revocations.IsTokenRevoked(ctx, claims.ID, now)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("service: check token revocation: %w", err)
	}
	if revoked {
		return jwtx.Claims{}, ErrTokenRevoked
	}

	revokedAt, ok, err := s.revocations.SessionRevokedAt(ctx, claims.SID, now)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("service: check session revocation: %w", err)
	}
	// iat has second precision, so a token minted in the same second as the
	// revocation is treated as issued before it.
	if ok && claims.IssuedAt.Unix() <= revokedAt.Unix() {
		return jwtx.Claims{}, ErrTokenRevoked
	}

	return claims, nil
}

func toPayload(c jwtx.Claims) domain.TokenPayload {
	p := domain.TokenPayload{
		UserID:      c.Subject,
		Email:       c.Email,
		Roles:       c.Roles,
		Permissions: c.Permissions,
		AMR:         c.AMR,
		SessionID:   c.SID,
		JWTID:       c.ID,
		Type:        c.Type,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}
