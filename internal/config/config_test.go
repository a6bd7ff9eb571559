package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Fetch.Workers != 6 {
		t.Errorf("expected 6 workers, got %d", cfg.Fetch.Workers)
	}
	if cfg.Fetch.CacheTTL != time.Hour {
		t.Errorf("expected 1h cache ttl, got %s", cfg.Fetch.CacheTTL)
	}
	if len(cfg.CatalogTypes) != 3 {
		t.Errorf("expected 3 catalog types, got %v", cfg.CatalogTypes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FETCH_WORKERS", "3")
	t.Setenv("FETCH_CACHE_TTL_SECONDS", "60")
	t.Setenv("CATALOG_TYPES", "ukdsi, nidsr")
	t.Setenv("UPSTREAM_BASE_URL", "http://example.test/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Fetch.Workers != 3 {
		t.Errorf("expected 3 workers, got %d", cfg.Fetch.Workers)
	}
	if cfg.Fetch.CacheTTL != time.Minute {
		t.Errorf("expected 1m ttl, got %s", cfg.Fetch.CacheTTL)
	}
	if len(cfg.CatalogTypes) != 2 || cfg.CatalogTypes[1] != "nidsr" {
		t.Errorf("unexpected catalog types %v", cfg.CatalogTypes)
	}
	if cfg.UpstreamBaseURL != "http://example.test" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.UpstreamBaseURL)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legis.yaml")
	contents := "addr: \":9000\"\ndb_driver: sqlite\nfetch:\n  workers: 4\n  timeout_seconds: 5\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LEGIS_CONFIG_FILE", path)
	t.Setenv("API_ADDR", ":9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Errorf("expected env to override file addr, got %s", cfg.Addr)
	}
	if cfg.DBDriver != "sqlite" {
		t.Errorf("expected sqlite driver from file, got %s", cfg.DBDriver)
	}
	if cfg.Fetch.Workers != 4 || cfg.Fetch.Timeout != 5*time.Second {
		t.Errorf("unexpected fetch config %+v", cfg.Fetch)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("LEGIS_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
