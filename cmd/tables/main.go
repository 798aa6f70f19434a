package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tables-pos/internal/config"
	"tables-pos/internal/database"
	"tables-pos/internal/local"
	"tables-pos/internal/logger"
	"tables-pos/internal/remote"
	"tables-pos/internal/repository"
	"tables-pos/internal/scheduler"
	"tables-pos/internal/server"
	"tables-pos/internal/service"
	"tables-pos/internal/tables"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// cache is the opened local store together with what the server needs from it
type cache struct {
	store  local.Store
	redis  *redis.Client
	health map[string]server.HealthFunc

	// set when redis serves only rate limiting and is not closed by the store
	ownsRedis bool
}

func openCache(cfg *config.Config, log *zap.Logger) (*cache, error) {
	c := &cache{health: make(map[string]server.HealthFunc)}

	switch cfg.Cache.Driver {
	case config.CacheDriverSQLite, config.CacheDriverPostgres, "":
		db, dialect, err := database.Open(cfg.Cache, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(context.Background(), db, dialect, log); err != nil {
			db.Close()
			return nil, err
		}
		c.store = local.NewSQLStore(db, dialect)
		c.health["cache"] = func(ctx context.Context) map[string]string {
			return database.Health(ctx, db)
		}

	case config.CacheDriverBolt:
		store, err := local.NewBoltStore(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		c.store = store

	case config.CacheDriverRedis:
		client, err := connectRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		c.store = local.NewRedisStore(client, "tables")
		c.redis = client

	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}

	if c.redis == nil && cfg.RateLimit.Requests > 0 {
		client, err := connectRedis(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
		} else {
			c.redis = client
			c.ownsRedis = true
		}
	}

	if c.redis != nil {
		client := c.redis
		c.health["redis"] = func(ctx context.Context) map[string]string {
			if err := client.Ping(ctx).Err(); err != nil {
				return map[string]string{"status": "down", "error": err.Error()}
			}
			return map[string]string{"status": "up"}
		}
	}

	return c, nil
}

func connectRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.NewWithFile(cfg.Server.Env, cfg.Log.File)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting tables screen service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	if cfg.API.Key == "" {
		log.Warn("API_KEY is not set, remote requests will be sent without a key")
	}

	c, err := openCache(cfg, log)
	if err != nil {
		log.Fatal("Failed to open local cache", zap.Error(err))
	}

	remoteSource := remote.NewClient(cfg.API.BaseURL, cfg.API.Key, cfg.API.Timeout, log)
	localSource := local.NewDataSource(c.store, log)
	repo := repository.NewTablesRepository(remoteSource, localSource)

	categoryService := service.NewCategoryService(repo, log)
	productService := service.NewProductService(repo, log)

	vm, err := tables.New(categoryService, productService, tables.OptionsFromConfig(cfg.Screen), log)
	if err != nil {
		log.Fatal("Failed to create tables screen", zap.Error(err))
	}

	warmup := scheduler.NewWarmup(categoryService, productService, 5*cfg.API.Timeout, log)
	if err := warmup.Start(cfg.Sync.Schedule); err != nil {
		log.Fatal("Failed to schedule cache warm-up", zap.Error(err))
	}

	srv := server.NewServer(cfg, log, server.Dependencies{
		Screen:  vm,
		Catalog: categoryService,
		Redis:   c.redis,
		Health:  c.health,
	})
	srv.OnClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		warmup.Stop(ctx)
		return nil
	})
	srv.OnClose(func() error {
		vm.Close()
		return nil
	})
	srv.OnClose(c.store.Close)
	if c.ownsRedis {
		srv.OnClose(c.redis.Close)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("Shutting down gracefully, press Ctrl+C again to force")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", zap.Error(err))
		}
		return srv.Close()
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
	}
	log.Info("Graceful shutdown complete")
}
