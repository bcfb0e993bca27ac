package handlers

import (
	"net/http"
	"strings"

	"github.com/kozaktomas/face-login/internal/web/middleware"
)

// AuthHandler exposes token introspection for clients holding an access
// token issued by a successful face authentication.
type AuthHandler struct {
	tokens *middleware.TokenManager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokens *middleware.TokenManager) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// Status reports whether the request carries a valid token and for whom.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.tokens.Enabled() {
		respondJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"enabled":       false,
		})
		return
	}

	// The endpoint is public, so the token is checked here rather than by
	// the RequireAuth middleware.
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		header := r.Header.Get("Authorization")
		if tokenString, ok := strings.CutPrefix(header, "Bearer "); ok && tokenString != "" {
			claims, _ = h.tokens.Verify(tokenString)
		}
	}
	if claims == nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"enabled":       true,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"enabled":       true,
		"user_id":       claims.UserID,
		"expires_at":    claims.ExpiresAt,
	})
}
