package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimiter limits request throughput per caller. Authenticated requests
// are keyed by user so a shared NAT doesn't starve its neighbors; anonymous
// requests fall back to the client IP.
func RateLimiter(requestsPerSecond int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerSecond,
		time.Second,
		httprate.WithKeyFuncs(callerKey),
	)
}

func callerKey(r *http.Request) (string, error) {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return "user:" + userID, nil
	}
	return httprate.KeyByIP(r)
}
