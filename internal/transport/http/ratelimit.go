package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// UploadRateLimit caps uploads per client IP per minute. perMinute <= 0
// disables the limit.
func UploadRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			WriteHTTPError(w, http.StatusTooManyRequests, "rate_limited")
		}),
	)
}
