package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/guard/internal/guard/domain"
	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// TokenHandler serves the token issuance, refresh and revocation endpoints.
type TokenHandler struct {
	TokenService *service.TokenService
}

// HandleIssue godoc
//
//	@Summary		Issue a token pair
//	@Description	Starts a new session for the given principal and returns its first access and refresh tokens.
//	@Description	Called by trusted backends after they have authenticated the user.
//	@Tags			Tokens
//	@Security		ServiceKey
//	@Accept			json
//	@Produce		json
//	@Param			request	body		guardsdk.IssueTokenRequest	true	"Principal"
//	@Success		200		{object}	guardsdk.TokenResponse
//	@Failure		400		{object}	guardsdk.ErrorResponse	"Malformed request or principal"
//	@Failure		401		{object}	guardsdk.ErrorResponse	"Missing or wrong service key"
//	@Failure		429		{object}	guardsdk.ErrorResponse	"Rate limited"
//	@Failure		500		{object}	guardsdk.ErrorResponse	"Internal server error"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/token [post].
func (h *TokenHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req guardsdk.IssueTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := principalFrom(req.UserID, req.Email, req.Roles, req.Permissions, req.AMR)
	if err != nil {
		guardsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.GenerateTokenPair(ctx, p)
	if err != nil {
		log.Error("token issuance failed", "err", err)
		guardsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRefresh godoc
//
//	@Summary		Refresh a token pair
//	@Description	Trades a refresh token for a new pair in the same session. The principal replaces the
//	@Description	previous claims and must have the refresh token's subject.
//	@Tags			Tokens
//	@Security		ServiceKey
//	@Accept			json
//	@Produce		json
//	@Param			request	body		guardsdk.RefreshTokenRequest	true	"Refresh token and current principal"
//	@Success		200		{object}	guardsdk.TokenResponse
//	@Failure		400		{object}	guardsdk.ErrorResponse	"Malformed request or principal"
//	@Failure		401		{object}	guardsdk.ErrorResponse	"Invalid service key or refresh token"
//	@Failure		503		{object}	guardsdk.ErrorResponse	"Revocation store unavailable"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/token/refresh [post].
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req guardsdk.RefreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		guardsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	p, err := principalFrom(req.UserID, req.Email, req.Roles, req.Permissions, req.AMR)
	if err != nil {
		guardsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	pair, err := h.TokenService.RefreshAccessToken(ctx, req.RefreshToken, p)
	switch {
	case err == nil:
	case isTokenRejection(err):
		guardsdk.ErrInvalidGrant.WriteError(w)
		return
	default:
		log.Error("token refresh failed", "err", err)
		guardsdk.ErrUnavailable.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}

// HandleRevoke godoc
//
//	@Summary		Revoke a token
//	@Description	Revokes an access or refresh token until it would have expired.
//	@Description	Always answers 200, whether or not the token was valid, so the endpoint cannot be used to probe tokens.
//	@Tags			Tokens
//	@Accept			json
//	@Produce		json
//	@Param			request	body	guardsdk.RevokeTokenRequest	true	"Token to revoke"
//	@Success		200		"Token revoked (or was already invalid)"
//	@Failure		400		{object}	guardsdk.ErrorResponse	"Malformed request"
//	@Header			200		{string}	Cache-Control	"no-store"
//	@Router			/v1/token/revoke [post].
func (h *TokenHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	var req guardsdk.RevokeTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Token != "" {
		h.TokenService.InvalidateToken(r.Context(), req.Token)
	}

	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}

// isTokenRejection separates a bad token from a failing store.
func isTokenRejection(err error) bool {
	return errors.Is(err, service.ErrTokenExpired) ||
		errors.Is(err, service.ErrTokenInvalid) ||
		errors.Is(err, service.ErrTokenRevoked)
}

func tokenResponse(p domain.TokenPair) guardsdk.TokenResponse {
	return guardsdk.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
		SessionID:    p.SessionID,
	}
}
