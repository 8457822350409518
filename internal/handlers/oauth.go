package handlers

import (
	"net/http"

	"github.com/AnshRaj112/partsdesk-auth/internal/identity"
	"github.com/go-chi/chi/v5"
)

// OAuthAuthorize handles GET /api/auth/oauth/{provider}/authorize and returns
// the provider login URL for code-flow providers.
func (h *Handler) OAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	url, err := h.Providers.AuthorizeURL(chi.URLParam(r, "provider"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, URL: url})
}

// OAuthSignin handles POST /api/auth/oauth/{provider} with either an
// id_token or a code and state.
func (h *Handler) OAuthSignin(w http.ResponseWriter, r *http.Request) {
	var req OAuthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	assertion, err := h.Providers.Authenticate(r.Context(), chi.URLParam(r, "provider"), identity.Credential{
		IDToken: req.IDToken,
		Code:    req.Code,
		State:   req.State,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.Auth.LoginWithIdentity(r.Context(), *assertion)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, user, "Login successful")
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}
