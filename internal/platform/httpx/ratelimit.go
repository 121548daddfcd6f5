package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit limits each client IP to limit requests per window on every
// endpoint it guards, answering 429 with a problem document.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			Problem(w, r, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, retry later")
		}),
	)
}
