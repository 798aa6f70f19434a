package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

var rateLimitHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}

// CORSMiddleware lets the till front-end call the screen API. With allowAll
// set (development) any origin is accepted.
func CORSMiddleware(allowedOrigins []string, allowAll bool) func(http.Handler) http.Handler {
	if allowAll {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cache-Control", "Last-Event-ID", TerminalHeader},
		ExposedHeaders:   append([]string{middleware.RequestIDHeader}, rateLimitHeaders...),
		AllowCredentials: !allowAll,
		MaxAge:           300,
	})
}

// DefaultMiddlewareStack returns the middleware every route shares. State
// must never be served from a cache, and event streams are not compressed.
func DefaultMiddlewareStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		middleware.StripSlashes,
		middleware.NoCache,
		middleware.Compress(5, "application/json"),
	}
}
