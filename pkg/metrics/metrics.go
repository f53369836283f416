package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Logins = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "renoplan", Name: "logins_total", Help: "Number of successful authorization-code logins."},
	)
	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "renoplan", Name: "token_refreshes_total", Help: "Number of refresh attempts by result."},
		[]string{"result"},
	)
	SessionsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "renoplan", Name: "sessions_swept_total", Help: "Number of expired sessions removed by the background sweep."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "renoplan", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "renoplan", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Logins)
	reg.MustRegister(TokenRefreshes)
	reg.MustRegister(SessionsSwept)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
