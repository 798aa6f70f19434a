package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	CacheDriverSQLite   = "sqlite"
	CacheDriverPostgres = "postgres"
	CacheDriverBolt     = "bolt"
	CacheDriverRedis    = "redis"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Screen    ScreenConfig
	Sync      SyncConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	CORSOrigins []string
}

// APIConfig points at the remote menu API
type APIConfig struct {
	BaseURL string
	Key     string
	Timeout time.Duration
}

type CacheConfig struct {
	Driver string
	Path   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ScreenConfig tunes the tables screen state machine
type ScreenConfig struct {
	SearchDebounce  time.Duration
	SearchMinLength int
	StopTimeout     time.Duration
	WorkerPoolSize  int
}

type SyncConfig struct {
	Schedule string // cron expression, empty disables warm-up
}

type LogConfig struct {
	File string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load builds the configuration from defaults, an optional .env file and the
// environment. Files listed in ENV_FILE (comma separated) are loaded into the
// environment first; variables that are already set win.
func Load() *Config {
	if files := splitList(os.Getenv("ENV_FILE")); len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			log.Printf("Warning: Could not load env files %v: %v", files, err)
		}
	}

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("API_BASE_URL", "https://my.api.mockaroo.com")
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("CACHE_DRIVER", CacheDriverSQLite)
	viper.SetDefault("CACHE_PATH", "tables.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SEARCH_DEBOUNCE", "500ms")
	viper.SetDefault("SEARCH_MIN_LENGTH", 2)
	viper.SetDefault("STATE_STOP_TIMEOUT", "3s")
	viper.SetDefault("WORKER_POOL_SIZE", 16)
	viper.SetDefault("SYNC_SCHEDULE", "")
	viper.SetDefault("LOG_FILE", "")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 120)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:        viper.GetString("SERVER_PORT"),
			Env:         viper.GetString("SERVER_ENV"),
			CORSOrigins: splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		API: APIConfig{
			BaseURL: viper.GetString("API_BASE_URL"),
			Key:     viper.GetString("API_KEY"),
			Timeout: viper.GetDuration("API_TIMEOUT"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(viper.GetString("CACHE_DRIVER")),
			Path:   viper.GetString("CACHE_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Screen: ScreenConfig{
			SearchDebounce:  viper.GetDuration("SEARCH_DEBOUNCE"),
			SearchMinLength: viper.GetInt("SEARCH_MIN_LENGTH"),
			StopTimeout:     viper.GetDuration("STATE_STOP_TIMEOUT"),
			WorkerPoolSize:  viper.GetInt("WORKER_POOL_SIZE"),
		},
		Sync: SyncConfig{
			Schedule: viper.GetString("SYNC_SCHEDULE"),
		},
		Log: LogConfig{
			File: viper.GetString("LOG_FILE"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
