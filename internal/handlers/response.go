package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/partsdesk-auth/internal/identity"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// AuthResponse is the envelope of every endpoint.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Error   string       `json:"error,omitempty"`
	User    *models.User `json:"user,omitempty"`
	Token   string       `json:"token,omitempty"`
	URL     string       `json:"url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &utils.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return nil
}

// statusFor maps a domain error onto an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var vErr *utils.ValidationError
	var rl *services.RateLimitError
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest, vErr.Message
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, rl.Error()
	case errors.Is(err, services.ErrTooManyRequests):
		return http.StatusTooManyRequests, "Too many requests"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, services.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest, "Invalid or expired OTP"
	case errors.Is(err, services.ErrDeliveryUnavailable):
		return http.StatusBadRequest, "Target not available"
	case errors.Is(err, services.ErrDeliveryFailure):
		return http.StatusBadRequest, "Failed to deliver code"
	case errors.Is(err, services.ErrCodeNotVerified):
		return http.StatusBadRequest, "OTP not verified"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "Account already exists"
	case errors.Is(err, identity.ErrUnknownProvider):
		return http.StatusNotFound, "Unknown provider"
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, identity.ErrInvalidState):
		return http.StatusUnauthorized, "Invalid provider credential"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	var rl *services.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())))
	}
	writeJSON(w, status, AuthResponse{Success: false, Error: msg})
}
