package routes

import (
	"github.com/AnshRaj112/partsdesk-auth/internal/handlers"
	"github.com/AnshRaj112/partsdesk-auth/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r chi.Router, h *handlers.Handler, sessions middleware.SessionValidator) {
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	// One-time codes
	r.Post("/api/otp/send", h.SendOtp)
	r.Post("/api/otp/verify", h.VerifyOtp)

	// Sign in / sign up
	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/signin", h.Signin)
	r.Post("/api/auth/otp/signin", h.OtpSignin)
	r.Get("/api/auth/oauth/{provider}/authorize", h.OAuthAuthorize)
	r.Post("/api/auth/oauth/{provider}", h.OAuthSignin)

	// Password reset
	r.Post("/api/auth/forgot-password/identify", h.ForgotIdentify)
	r.Post("/api/auth/forgot-password/verify", h.ForgotVerify)
	r.Post("/api/auth/forgot-password/reset", h.ForgotReset)

	// Session
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))
		r.Get("/api/auth/me", h.Me)
		r.Post("/api/auth/signout", h.Signout)
	})
}
