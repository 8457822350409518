package handlers

import (
	"net/http"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
)

// ForgotIdentify handles POST /api/auth/forgot-password/identify
func (h *Handler) ForgotIdentify(w http.ResponseWriter, r *http.Request) {
	var req ForgotIdentifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Reset.Identify(r.Context(), req.Identifier, models.Channel(req.Delivery)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Code sent"})
}

// ForgotVerify handles POST /api/auth/forgot-password/verify
func (h *Handler) ForgotVerify(w http.ResponseWriter, r *http.Request) {
	var req ForgotVerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Reset.Verify(r.Context(), req.Identifier, req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Code verified"})
}

// ForgotReset handles POST /api/auth/forgot-password/reset
func (h *Handler) ForgotReset(w http.ResponseWriter, r *http.Request) {
	var req ForgotResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Reset.Reset(r.Context(), req.Identifier, req.Code, req.NewPassword); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Password updated"})
}
