package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultCORS allows the dashboard origins to call the authenticated API.
// An empty origin list falls back to "*", which disables credentialed requests.
func DefaultCORS(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := allowedOrigins
	allowCredentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
		allowCredentials = false
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}

// FeedCORS is the read-only policy for the public XML feeds pulled by partner crawlers.
func FeedCORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         3600,
	})
}
