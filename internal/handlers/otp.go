package handlers

import (
	"net/http"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
)

// SendOtp handles POST /api/otp/send
func (h *Handler) SendOtp(w http.ResponseWriter, r *http.Request) {
	var req SendOtpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	if _, err := h.Ledger.Issue(r.Context(), req.Target, models.Channel(req.Channel), models.Purpose(req.Purpose)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Code sent"})
}

// VerifyOtp handles POST /api/otp/verify
func (h *Handler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	var req VerifyOtpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.Ledger.Verify(r.Context(), req.Target, models.Purpose(req.Purpose), req.Code); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Code verified"})
}
