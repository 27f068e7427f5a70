package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8280 {
		t.Errorf("expected default port 8280, got %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "${INTAKE_JWT_SECRET}" {
		t.Error("expected JWT secret placeholder")
	}
	if cfg.Storage.Mode != "fs" {
		t.Errorf("expected fs storage by default, got %s", cfg.Storage.Mode)
	}
	if cfg.Workers.Count <= 0 {
		t.Error("expected a positive default worker count")
	}
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{Server: ServerCfg{Host: "0.0.0.0", Port: 9000}}
	if got := cfg.ListenAddr(); got != "0.0.0.0:9000" {
		t.Errorf("expected 0.0.0.0:9000, got %s", got)
	}

	empty := &Config{}
	if got := empty.ListenAddr(); got != "127.0.0.1:8280" {
		t.Errorf("expected default listen addr, got %s", got)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  host: "10.0.0.5"
  port: 9999
storage:
  mode: "s3"
  bucket: "intake-artifacts"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != 9999 {
			t.Errorf("expected port 9999, got %d", cfg.Server.Port)
		}
		if cfg.Storage.Bucket != "intake-artifacts" {
			t.Errorf("expected bucket intake-artifacts, got %s", cfg.Storage.Bucket)
		}
		// Unset keys fall back to defaults.
		if cfg.Database.Path != "intake.db" {
			t.Errorf("expected default database path, got %s", cfg.Database.Path)
		}
	})
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(configFile); err != nil {
		t.Fatalf("failed to write default config: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to load written config: %v", err)
	}
	if mgr.Get().Server.Port != 8280 {
		t.Errorf("round-tripped config lost the default port, got %d", mgr.Get().Server.Port)
	}

	if err := WriteDefault(configFile); err == nil {
		t.Error("expected refusal to overwrite an existing config file")
	}
}
