package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"tables-pos/internal/config"
	custommiddleware "tables-pos/internal/middleware"
	"tables-pos/internal/service"
	"tables-pos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HealthFunc reports the status of one dependency
type HealthFunc func(ctx context.Context) map[string]string

// Dependencies are the collaborators built by the composition root
type Dependencies struct {
	Screen  transport.Screen
	Catalog service.CategoryService // optional, serves GET /api/tables/categories
	Redis   *redis.Client           // optional, enables rate limiting
	Health  map[string]HealthFunc
}

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	closers []func() error
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.CORSOrigins, !cfg.IsProduction()))

	// Health check endpoint
	router.Get("/health", healthHandler(deps.Health))

	router.Group(func(r chi.Router) {
		if deps.Redis != nil && cfg.RateLimit.Requests > 0 {
			r.Use(custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.RateLimitConfig{
				RequestsPerWindow: cfg.RateLimit.Requests,
				Window:            cfg.RateLimit.Window,
				KeyPrefix:         "tables:rate_limit",
			}, logger))
		}

		transport.NewTablesHandler(deps.Screen, deps.Catalog, logger).RegisterRoutes(r)
	})

	// Request contexts end when shutdown starts so open streams return
	baseCtx, cancelBase := context.WithCancel(context.Background())

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			BaseContext:  func(net.Listener) context.Context { return baseCtx },
		},
		config: cfg,
		logger: logger,
	}
	server.RegisterOnShutdown(cancelBase)

	return server
}

// OnClose registers a resource to release in Close, in registration order
func (s *Server) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Error("Failed to close resource", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}

func healthHandler(checks map[string]HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]interface{}{"status": "ok"}

		for name, check := range checks {
			result := check(r.Context())
			body[name] = result
			if result["status"] == "down" {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}

		custommiddleware.RespondWithJSON(w, status, body)
	}
}
