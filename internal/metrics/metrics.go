package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OtpIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_otp_issued_total",
		Help: "One-time codes persisted to the ledger.",
	}, []string{"channel", "purpose"})

	OtpDeliveryFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_otp_delivery_failures_total",
		Help: "Persisted codes whose delivery failed.",
	}, []string{"channel"})

	OtpVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_otp_verifications_total",
		Help: "Code verification attempts by outcome.",
	}, []string{"purpose", "result"})

	OtpThrottledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_otp_throttled_total",
		Help: "Send or verify requests rejected by the OTP guard.",
	}, []string{"operation"})

	LoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_logins_total",
		Help: "Authentication decisions by strategy and outcome.",
	}, []string{"strategy", "result"})

	UsersProvisionedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_users_provisioned_total",
		Help: "Users created implicitly or by signup.",
	}, []string{"source"})

	PasswordResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsdesk_password_reset_total",
		Help: "Password reset phases by outcome.",
	}, []string{"phase", "result"})
)

// Result converts an error into the "ok"/"error" label used by the counters.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
