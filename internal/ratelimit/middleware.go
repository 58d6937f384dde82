package ratelimit

import (
	"net/http"

	"go.uber.org/zap"
)

const deniedBody = `{"error":"Too many requests. Please try again later."}`

// Middleware intercepts every request and consults the limiter for
// protected POST routes before the handler runs.
func Middleware(limiter *Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := ClientKey(r)
			if limiter.Check(r.Context(), clientKey, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("Rate limit exceeded",
				zap.String("client", clientKey),
				zap.String("path", r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(deniedBody))
		})
	}
}
