package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tokenVerifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "auth_token_verify_failures_total",
	Help: "Rejected tokens by internal reason (expired, signature, malformed, ...).",
}, []string{"reason"})
