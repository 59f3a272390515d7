// Package server exposes the verifier over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"x1-token-verifier/internal/observability"
)

// New builds the API mux. A nil metrics disables instrumentation and /metrics.
func New(handler *Handler, metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, name string, fn http.HandlerFunc) {
		var h http.Handler = fn
		if metrics != nil {
			h = metrics.InstrumentHandler(name, h)
		}
		mux.Handle(pattern, h)
	}

	route("GET /health", "/health", handler.Health)
	route("POST /api/verify", "/api/verify", handler.Verify)
	route("POST /api/analyze-tax", "/api/analyze-tax", handler.AnalyzeTax)
	route("GET /api/liquidity/{mint}", "/api/liquidity", handler.Liquidity)
	route("POST /api/report", "/api/report", handler.SubmitReport)
	route("GET /api/tokens/{mint}", "/api/tokens", handler.GetToken)
	route("GET /api/tokens/{mint}/history", "/api/tokens/history", handler.TokenHistory)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.Handler())
	}

	return logging(handler.logger(), mux)
}

func logging(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"elapsed": time.Since(start).String(),
		}).Debug("[server] request")
	})
}
