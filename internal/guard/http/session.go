package http

import (
	"net/http"

	"github.com/aussiebroadwan/guard/internal/guard/domain"
	"github.com/aussiebroadwan/guard/internal/guard/service"
	"github.com/aussiebroadwan/guard/pkg/guardsdk"
	"github.com/aussiebroadwan/guard/pkg/httpx"
	"github.com/aussiebroadwan/guard/pkg/slogx"
)

// SessionHandler serves /v1/session for the holder of an access token.
type SessionHandler struct {
	TokenService *service.TokenService
}

// HandleGet godoc
//
//	@Summary		Describe the current session
//	@Description	Verifies the bearer token, revocations included, and returns its claims.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	guardsdk.SessionResponse
//	@Failure		401	{object}	guardsdk.ErrorResponse	"Missing, invalid, expired or revoked token"
//	@Router			/v1/session [get].
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, _ := httpx.IdentityFromContext(r.Context())
	p, ok := id.Claims.(domain.TokenPayload)
	if !ok {
		httpx.WriteUnauthorized(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, guardsdk.SessionResponse{
		UserID:      p.UserID,
		Email:       p.Email,
		Roles:       p.Roles,
		Permissions: p.Permissions,
		AMR:         p.AMR,
		SessionID:   p.SessionID,
		TokenID:     p.JWTID,
		IssuedAt:    p.IssuedAt,
		ExpiresAt:   p.ExpiresAt,
	})
}

// HandleDelete godoc
//
//	@Summary		End the current session
//	@Description	Revokes every access and refresh token of the bearer token's session.
//	@Tags			Session
//	@Security		BearerAuth
//	@Success		204	"Session ended"
//	@Failure		401	{object}	guardsdk.ErrorResponse	"Missing, invalid, expired or revoked token"
//	@Failure		503	{object}	guardsdk.ErrorResponse	"Revocation store unavailable"
//	@Router			/v1/session [delete].
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := httpx.IdentityFromContext(ctx)

	if err := h.TokenService.InvalidateSession(ctx, id.SessionID); err != nil {
		slogx.FromContext(ctx).Error("session revocation failed", "sid", id.SessionID, "err", err)
		guardsdk.ErrUnavailable.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}
