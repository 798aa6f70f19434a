package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Cache.Driver != CacheDriverSQLite {
		t.Errorf("Expected default cache driver sqlite, got %s", cfg.Cache.Driver)
	}
	if cfg.Screen.SearchDebounce != 500*time.Millisecond {
		t.Errorf("Expected 500ms debounce, got %s", cfg.Screen.SearchDebounce)
	}
	if cfg.Screen.SearchMinLength != 2 {
		t.Errorf("Expected min search length 2, got %d", cfg.Screen.SearchMinLength)
	}
	if cfg.Screen.StopTimeout != 3*time.Second {
		t.Errorf("Expected 3s stop timeout, got %s", cfg.Screen.StopTimeout)
	}
	if cfg.API.BaseURL != "https://my.api.mockaroo.com" {
		t.Errorf("Unexpected API base URL %s", cfg.API.BaseURL)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "BOLT")
	t.Setenv("API_KEY", "abc123")
	t.Setenv("SEARCH_DEBOUNCE", "1s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.local, http://b.local,,")

	cfg := Load()

	if cfg.Cache.Driver != CacheDriverBolt {
		t.Errorf("Expected bolt driver, got %s", cfg.Cache.Driver)
	}
	if cfg.API.Key != "abc123" {
		t.Errorf("Expected API key from env, got %q", cfg.API.Key)
	}
	if cfg.Screen.SearchDebounce != time.Second {
		t.Errorf("Expected 1s debounce, got %s", cfg.Screen.SearchDebounce)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.local" {
		t.Errorf("Unexpected CORS origins %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadReadsEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "till.env")
	if err := os.WriteFile(path, []byte("WORKER_POOL_SIZE=4\nSEARCH_MIN_LENGTH=3\n"), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	t.Setenv("ENV_FILE", path)
	t.Setenv("SEARCH_MIN_LENGTH", "5")
	// Setenv restores whatever godotenv writes once the test ends
	t.Setenv("WORKER_POOL_SIZE", "")
	os.Unsetenv("WORKER_POOL_SIZE")

	cfg := Load()

	if cfg.Screen.WorkerPoolSize != 4 {
		t.Errorf("Expected pool size from env file, got %d", cfg.Screen.WorkerPoolSize)
	}
	if cfg.Screen.SearchMinLength != 5 {
		t.Errorf("Environment should win over env file, got %d", cfg.Screen.SearchMinLength)
	}
}
