package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"mintgate-api/internal/service"
	"mintgate-api/pkg/apierror"
	"mintgate-api/pkg/response"
)

// AuthHandler exchanges the admin key for operator session tokens.
type AuthHandler struct {
	tokens   *service.TokenService
	adminKey string
}

// NewAuthHandler creates a new auth handler. Returns nil when sessions are
// unavailable (no redis) or no admin key is configured.
func NewAuthHandler(tokens *service.TokenService, adminKey string) *AuthHandler {
	if tokens == nil || adminKey == "" {
		return nil
	}
	return &AuthHandler{tokens: tokens, adminKey: adminKey}
}

type tokenRequest struct {
	Operator string `json:"operator"`
	AdminKey string `json:"admin_key"`
}

// GenerateToken handles POST /api/v1/auth/token
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Operator == "" {
		response.Error(w, apierror.BadRequest("operator is required"))
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(h.adminKey)) != 1 {
		response.Error(w, apierror.Unauthorized("Invalid admin key"))
		return
	}

	token, err := h.tokens.GenerateToken(r.Context(), req.Operator)
	if err != nil {
		response.Error(w, apierror.InternalError("failed to issue session"))
		return
	}
	response.Created(w, map[string]string{"token": token})
}

// RevokeToken handles POST /api/v1/auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.Error(w, apierror.BadRequest("token is required"))
		return
	}
	if err := h.tokens.RevokeToken(r.Context(), req.Token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke session"))
		return
	}
	response.NoContent(w)
}
