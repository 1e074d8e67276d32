package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.LSP.JavaReadyTimeout != 180*time.Second {
		t.Errorf("expected java ready timeout 180s, got %v", cfg.LSP.JavaReadyTimeout)
	}
	if cfg.AST.BinaryPath != "sg" {
		t.Errorf("expected ast binary sg, got %s", cfg.AST.BinaryPath)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
workspace:
  root: "/repos/demo"
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Workspace.Root != "/repos/demo" {
		t.Errorf("expected workspace root /repos/demo, got %s", cfg.Workspace.Root)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.AST.BinaryPath != "sg" {
		t.Errorf("expected default ast binary, got %s", cfg.AST.BinaryPath)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("LSPROXY_PORT", "7070")
	t.Setenv("LSPROXY_WORKSPACE_ROOT", "/repos/demo")
	t.Setenv("LSPROXY_LOG_LEVEL", "warn")
	t.Setenv("LSPROXY_LSP_JAVA_READY_TIMEOUT", "1m")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Workspace.Root != "/repos/demo" {
		t.Errorf("expected workspace root /repos/demo, got %s", cfg.Workspace.Root)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.LSP.JavaReadyTimeout != time.Minute {
		t.Errorf("expected java ready timeout 1m, got %v", cfg.LSP.JavaReadyTimeout)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port is required",
		},
		{
			name:   "empty workspace root",
			modify: func(c *Config) { c.Workspace.Root = "" },
			errMsg: "workspace.root is required",
		},
		{
			name:   "zero rate burst",
			modify: func(c *Config) { c.Rate.Burst = 0 },
			errMsg: "rate.burst must be >= 1",
		},
		{
			name:   "empty ast binary",
			modify: func(c *Config) { c.AST.BinaryPath = "" },
			errMsg: "ast.binary_path is required",
		},
		{
			name:   "zero lsp start timeout",
			modify: func(c *Config) { c.LSP.StartTimeout = 0 },
			errMsg: "lsp.start_timeout must be > 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
