package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/envmonitor/envmonitor/internal/api/models"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	// RequestLimit is the number of requests allowed per window.
	RequestLimit int

	// WindowLength is the window duration.
	WindowLength time.Duration
}

// DefaultRateLimit applies to /api endpoints (60 req/min per client IP).
var DefaultRateLimit = RateLimitConfig{
	RequestLimit: 60,
	WindowLength: time.Minute,
}

// RateLimitByIP creates a rate limiter keyed by client IP. Run it after
// chi's RealIP middleware so proxied requests are keyed by the original
// client.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = DefaultRateLimit.RequestLimit
	}
	if cfg.WindowLength <= 0 {
		cfg.WindowLength = DefaultRateLimit.WindowLength
	}

	retryAfter := strconv.Itoa(int(cfg.WindowLength.Seconds()))

	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			// httprate does not expose the reset time; the full window is an upper bound.
			w.Header().Set("Retry-After", retryAfter)

			problem := models.NewTooManyRequests(GetRequestID(r.Context()), "Rate limit exceeded. Please try again later.")
			problem.Instance = r.URL.Path
			problem.Write(w)
		}),
	)
}
