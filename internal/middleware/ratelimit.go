package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TerminalHeader identifies the POS terminal that sent a request
const TerminalHeader = "X-Terminal-ID"

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           // Number of requests allowed per window
	Window            time.Duration // Fixed window length
	KeyPrefix         string        // Redis key prefix
}

// TerminalID returns the terminal header, falling back to the remote address
func TerminalID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(TerminalHeader)); id != "" {
		return id
	}
	return r.RemoteAddr
}

// hit counts one request in the terminal's current window and returns the
// running count and the time left in the window.
func hit(ctx context.Context, client *redis.Client, key string, window time.Duration) (int64, time.Duration, error) {
	pipe := client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	// A fresh counter has no expiry yet
	ttl := pttl.Val()
	if ttl < 0 {
		if err := client.PExpire(ctx, key, window).Err(); err != nil {
			return 0, 0, err
		}
		ttl = window
	}
	return incr.Val(), ttl, nil
}

// RateLimitMiddleware limits each terminal to a fixed number of requests per
// window. Counters live in redis so every replica shares them.
func RateLimitMiddleware(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(config.RequestsPerWindow)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			terminalID := TerminalID(r)
			key := config.KeyPrefix + ":" + terminalID

			count, ttl, err := hit(r.Context(), redisClient, key, config.Window)
			if err != nil {
				// Fail open
				logger.Error("Failed to count request for rate limiting",
					zap.Error(err),
					zap.String("key", key),
				)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))

			remaining := int64(config.RequestsPerWindow) - count
			if remaining < 0 {
				logger.Warn("Rate limit exceeded",
					zap.String("terminal_id", terminalID),
					zap.Int64("count", count),
					zap.Int("limit", config.RequestsPerWindow),
				)

				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
				RespondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			next.ServeHTTP(w, r)
		})
	}
}
