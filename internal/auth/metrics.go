package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login results.
const (
	resultSuccess   = "success"
	resultInvalid   = "invalid"
	resultCancelled = "cancelled"
	resultError     = "error"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "authgate_logins_total",
		Help: "Login attempts, differentiated by result.",
	}, []string{"result"})

	resumesTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "authgate_session_resumes_total",
		Help: "Session restores from a token, differentiated by result.",
	}, []string{"result"})

	tokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "authgate_tokens_issued_total",
		Help: "Number of issued session tokens.",
	})

	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "authgate_access_decisions_total",
		Help: "Access decisions, differentiated by outcome.",
	}, []string{"outcome"})
)
