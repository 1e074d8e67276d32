// Package config provides hierarchical configuration loading for lsproxy.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config is the root configuration object.
type Config struct {
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
	Rate      Rate      `yaml:"rate"`
	Workspace Workspace `yaml:"workspace"`
	LSP       LSP       `yaml:"lsp"`
	AST       AST       `yaml:"ast"`
	Cache     Cache     `yaml:"cache"`
}

// Server holds HTTP listener settings.
type Server struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Logging controls the structured logger.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Rate configures the per-IP token bucket limiter in front of the HTTP API.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// Workspace describes the mounted source tree and how its file index is built.
type Workspace struct {
	// Root is the absolute path to the mounted workspace directory,
	// overridden at startup by --workspace-folder.
	Root string `yaml:"root"`

	IncludePatterns []string `yaml:"include_patterns"`
	ExcludePatterns []string `yaml:"exclude_patterns"`

	// WatchDebounce is the quiet period after the last filesystem event
	// before the file index and cached documents are refreshed.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// LSP controls how child language server processes are supervised.
type LSP struct {
	// StartTimeout bounds the initialize/initialized handshake.
	StartTimeout time.Duration `yaml:"start_timeout"`

	// ShutdownTimeout bounds the graceful shutdown/exit sequence before
	// the supervisor kills the process outright.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// JavaReadyTimeout is the extended wait for jdtls to report
	// language/status "ServiceReady" on a cold workspace index.
	JavaReadyTimeout time.Duration `yaml:"java_ready_timeout"`

	// RequestTimeout bounds an individual outbound JSON-RPC request.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// AST controls invocation of the external ast-grep binary used for
// structural queries where LSP support is absent or incomplete.
type AST struct {
	// BinaryPath is the ast-grep executable, typically "sg".
	BinaryPath string `yaml:"binary_path"`

	// ConfigPath is the sgconfig.yml rule file used for `sg scan`.
	ConfigPath string `yaml:"config_path"`

	Timeout time.Duration `yaml:"timeout"`
}

// Cache sizes the in-memory text cache backing workspace document reads.
type Cache struct {
	MaxCostBytes int64 `yaml:"max_cost_bytes"`
	NumCounters  int64 `yaml:"num_counters"`
	BufferItems  int64 `yaml:"buffer_items"`
}

// Defaults returns a Config populated with production-sane defaults.
func Defaults() Config {
	return Config{
		Server: Server{
			Host:       "0.0.0.0",
			Port:       "8080",
			CORSOrigin: "*",
		},
		Logging: Logging{
			Level:   "info",
			Service: "lsproxy",
			Async:   true,
		},
		Rate: Rate{
			RequestsPerSecond: 50,
			Burst:             100,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		Workspace: Workspace{
			Root:            ".",
			IncludePatterns: []string{"**/*"},
			ExcludePatterns: []string{
				"**/node_modules/**",
				"**/.git/**",
				"**/target/**",
				"**/dist/**",
				"**/build/**",
				"**/__pycache__/**",
				"**/.venv/**",
			},
			WatchDebounce: 2 * time.Second,
		},
		LSP: LSP{
			StartTimeout:     30 * time.Second,
			ShutdownTimeout:  5 * time.Second,
			JavaReadyTimeout: 180 * time.Second,
			RequestTimeout:   30 * time.Second,
		},
		AST: AST{
			BinaryPath: "sg",
			ConfigPath: "sgconfig.yml",
			Timeout:    10 * time.Second,
		},
		Cache: Cache{
			MaxCostBytes: 64 << 20,
			NumCounters:  1e6,
			BufferItems:  64,
		},
	}
}

// ConfigHolder provides thread-safe access to a Config with hot-reload support.
// Services that hold pointers into the Config (e.g., &cfg.Rate) will see
// updated values after a reload because fields are swapped in-place.
type ConfigHolder struct {
	mu       sync.RWMutex
	cfg      Config
	yamlPath string
}

// NewHolder creates a ConfigHolder from an initial Config and the YAML path
// used for reloading.
func NewHolder(cfg *Config, yamlPath string) *ConfigHolder {
	return &ConfigHolder{cfg: *cfg, yamlPath: yamlPath}
}

// Get returns a pointer to the Config. Callers must not store the pointer
// long-term; read values immediately and release.
func (h *ConfigHolder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &h.cfg
}

// Reload re-reads the YAML file and environment variables, validates, and
// swaps the config in-place. If validation fails, the old config is preserved.
// Fields that cannot be hot-reloaded (Server.Port, Workspace.Root) are logged
// as warnings if they differ.
func (h *ConfigHolder) Reload() error {
	newCfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if newCfg.Server.Port != h.cfg.Server.Port {
		slog.Warn("config reload: server.port changed but requires restart",
			"old", h.cfg.Server.Port, "new", newCfg.Server.Port)
	}
	if newCfg.Workspace.Root != h.cfg.Workspace.Root {
		slog.Warn("config reload: workspace.root changed but requires restart",
			"old", h.cfg.Workspace.Root, "new", newCfg.Workspace.Root)
	}
	if newCfg.Logging.Level != h.cfg.Logging.Level {
		slog.Info("config reload: logging level changed",
			"old", h.cfg.Logging.Level, "new", newCfg.Logging.Level)
	}

	h.cfg = *newCfg
	return nil
}
