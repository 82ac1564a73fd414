package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSConfig holds the cross-origin policy.
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// DefaultCORS allows any origin to call the API.
var DefaultCORS = CORSConfig{
	AllowedOrigins: []string{"*"},
	MaxAge:         300,
}

// CORS returns a middleware applying cfg. Preflight requests are answered
// directly.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = DefaultCORS.AllowedOrigins
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           cfg.MaxAge,
	})
}
