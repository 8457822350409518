package handlers

import (
	"net/http"

	"github.com/AnshRaj112/partsdesk-auth/internal/middleware"
	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
	"go.uber.org/zap"
)

// Signin handles POST /api/auth/signin
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.Auth.LoginWithPassword(r.Context(), req.Identifier, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, user, "Login successful")
}

// OtpSignin handles POST /api/auth/otp/signin
func (h *Handler) OtpSignin(w http.ResponseWriter, r *http.Request) {
	var req OtpSigninRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.Auth.LoginWithOtp(r.Context(), req.Target, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondWithSession(w, r, http.StatusOK, user, "Login successful")
}

// Signup handles POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.Auth.Register(r.Context(), services.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthResponse{Success: true, Message: "User created successfully", User: user})
}

// Me handles GET /api/auth/me. Requires middleware.RequireSession.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		h.writeError(w, r, services.ErrUnauthorized)
		return
	}
	user, err := h.Users.FindByID(r.Context(), userID)
	if err != nil {
		// The session outlived its user.
		if status, _ := statusFor(err); status == http.StatusNotFound {
			err = services.ErrUnauthorized
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, User: user})
}

// Signout handles POST /api/auth/signout. Requires middleware.RequireSession.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFrom(r.Context())
	if err := h.Sessions.Invalidate(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, AuthResponse{Success: true, Message: "Signed out"})
}

// respondWithSession issues a session for an approved user and returns it
// in the body and as a cookie.
func (h *Handler) respondWithSession(w http.ResponseWriter, r *http.Request, status int, user *models.User, msg string) {
	token, err := h.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.Sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	h.log().Info("session issued", zap.String("user_id", user.ID.String()))
	writeJSON(w, status, AuthResponse{Success: true, Message: msg, User: user, Token: token})
}
