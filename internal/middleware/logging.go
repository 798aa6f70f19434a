package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggingMiddleware logs every request once it completes. Terminals poll the
// state endpoint often, so the start line is debug only.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			fields := []zap.Field{
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("terminal_id", TerminalID(r)),
			}
			logger.Debug("Request started", append(fields, zap.String("user_agent", r.UserAgent()))...)

			next.ServeHTTP(ww, r)

			logger.Log(completionLevel(ww), "Request completed", append(fields,
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)...)
		})
	}
}

func completionLevel(ww middleware.WrapResponseWriter) zapcore.Level {
	switch status := ww.Status(); {
	case status >= http.StatusInternalServerError:
		return zap.ErrorLevel
	case status >= http.StatusBadRequest:
		return zap.WarnLevel
	case ww.Header().Get("Content-Type") == "text/event-stream":
		return zap.DebugLevel
	default:
		return zap.InfoLevel
	}
}
