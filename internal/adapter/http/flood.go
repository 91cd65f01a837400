package http

import (
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
)

// floodTTL is how long an idle client's token bucket is kept.
const floodTTL = time.Hour

// FloodGuard caps requests per second per client IP across every route. It
// sits in front of the per-policy limits of the public forms and answers
// in the same problem+json shape as the API.
func FloodGuard(rps float64) func(http.Handler) http.Handler {
	lmt := tollbooth.NewLimiter(rps, &limiter.ExpirableOptions{
		DefaultExpirationTTL: floodTTL,
	})
	lmt.SetBurst(int(math.Ceil(rps)))
	lmt.SetIPLookups([]string{"RemoteAddr"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if httpErr := tollbooth.LimitByRequest(lmt, w, r); httpErr != nil {
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(httpErr.StatusCode)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"title":  http.StatusText(httpErr.StatusCode),
					"status": httpErr.StatusCode,
					"detail": "Too many requests. Please slow down.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
