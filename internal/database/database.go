package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"tables-pos/internal/config"
	"tables-pos/internal/local"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Open connects to the relational cache selected by cfg.Driver
func Open(cfg config.CacheConfig, pg config.DatabaseConfig) (*sql.DB, local.Dialect, error) {
	switch cfg.Driver {
	case config.CacheDriverPostgres:
		db, err := OpenPostgres(PostgresDSN(pg))
		return db, local.DialectPostgres, err
	case config.CacheDriverSQLite, "":
		db, err := OpenSQLite(cfg.Path)
		return db, local.DialectSQLite, err
	default:
		return nil, "", fmt.Errorf("cache driver %q is not relational", cfg.Driver)
	}
}

// OpenSQLite opens an embedded SQLite cache. ":memory:" gives a private
// in-memory database, which requires a single connection.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite cache: %w", err)
	}

	return db, nil
}

// OpenPostgres opens a shared postgres cache through the pgx stdlib driver
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres cache: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres cache: %w", err)
	}

	return db, nil
}

// PostgresDSN builds a pgx connection URL from the database settings
func PostgresDSN(cfg config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   cfg.Host + ":" + cfg.Port,
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	q.Set("sslmode", "disable")
	if cfg.Schema != "" {
		q.Set("search_path", cfg.Schema)
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Health reports connectivity of the cache database
func Health(ctx context.Context, db *sql.DB) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	dbStats := db.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprint(dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprint(dbStats.InUse)
	stats["idle"] = fmt.Sprint(dbStats.Idle)
	return stats
}
