package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
source:
  url: https://example.com/imports.csv.zip
  timeout: 2m
extract:
  years: [2024, 2025]
  chunk_size: 5000
store:
  dir: /var/lib/freight
warehouse:
  enabled: true
  db:
    host: localhost
    port: 5432
    name: freight
    user: loader
    password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.URL != "https://example.com/imports.csv.zip" {
		t.Errorf("Source.URL = %q, want %q", cfg.Source.URL, "https://example.com/imports.csv.zip")
	}
	if cfg.Source.Timeout != 2*time.Minute {
		t.Errorf("Source.Timeout = %v, want 2m", cfg.Source.Timeout)
	}
	if len(cfg.Extract.Years) != 2 || cfg.Extract.Years[0] != 2024 {
		t.Errorf("Extract.Years = %v, want [2024 2025]", cfg.Extract.Years)
	}
	if cfg.Warehouse.DB.Host != "localhost" {
		t.Errorf("Warehouse.DB.Host = %q, want %q", cfg.Warehouse.DB.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_WH_PASSWORD", "secret123")

	yaml := `
store:
  dir: /var/lib/freight
warehouse:
  enabled: true
  db:
    host: localhost
    name: freight
    user: loader
    password: ${TEST_WH_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Warehouse.DB.Password != "secret123" {
		t.Errorf("Warehouse.DB.Password = %q, want %q", cfg.Warehouse.DB.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
store:
  dir: /var/lib/freight
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Source.URL != DefaultSourceURL {
		t.Errorf("Source.URL = %q, want default", cfg.Source.URL)
	}
	if cfg.Extract.ChunkSize != DefaultChunkSize {
		t.Errorf("Extract.ChunkSize = %d, want %d", cfg.Extract.ChunkSize, DefaultChunkSize)
	}
	if cfg.Store.DatasetObject != DefaultDatasetObject {
		t.Errorf("Store.DatasetObject = %q, want %q", cfg.Store.DatasetObject, DefaultDatasetObject)
	}
	if cfg.Store.LeaseTTL != DefaultLeaseTTL {
		t.Errorf("Store.LeaseTTL = %v, want %v", cfg.Store.LeaseTTL, DefaultLeaseTTL)
	}
	if cfg.Warehouse.DB.Port != DefaultDBPort {
		t.Errorf("Warehouse.DB.Port = %d, want %d", cfg.Warehouse.DB.Port, DefaultDBPort)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, DefaultLogLevel)
	}
}

func TestValidate(t *testing.T) {
	base := func() *PipelineConfig {
		cfg := &PipelineConfig{}
		cfg.Store.Dir = "/var/lib/freight"
		cfg.applyDefaults()
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		if err := base().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("missing store dir", func(t *testing.T) {
		cfg := base()
		cfg.Store.Dir = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing store.dir")
		}
	})

	t.Run("bad url scheme", func(t *testing.T) {
		cfg := base()
		cfg.Source.URL = "ftp://example.com/imports.zip"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for non-http url")
		}
	})

	t.Run("negative retry backoff", func(t *testing.T) {
		cfg := base()
		cfg.Source.RetryBackoff = -time.Second
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for negative source.retry_backoff")
		}
	})

	t.Run("negative max retries", func(t *testing.T) {
		cfg := base()
		cfg.Source.MaxRetries = -1
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for negative source.max_retries")
		}
	})

	t.Run("implausible year", func(t *testing.T) {
		cfg := base()
		cfg.Extract.Years = []int{24}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for implausible year")
		}
	})

	t.Run("warehouse enabled without credentials", func(t *testing.T) {
		cfg := base()
		cfg.Warehouse.Enabled = true
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing warehouse credentials")
		}
	})

	t.Run("notify enabled without recipients", func(t *testing.T) {
		cfg := base()
		cfg.Notify.Enabled = true
		cfg.Notify.SMTPHost = "smtp.example.com"
		cfg.Notify.From = "pipeline@example.com"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing notify.to")
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Log.Level = "verbose"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown log level")
		}
	})
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
