package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests with a shared token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter allows rps requests per second with the given burst.
// rps <= 0 disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(rps)))
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, burst)}
}

// Handler rejects requests over the limit with 429 and a Retry-After header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.limiter.Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			zerolog.Ctx(r.Context()).Warn().
				Dur("retry_after", delay).
				Msg("rate limit exceeded")

			secs := int(math.Ceil(delay.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, map[string]any{
				"status": http.StatusTooManyRequests,
				"error":  "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
