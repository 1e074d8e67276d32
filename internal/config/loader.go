package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "lsproxy.yaml"

// CLIFlags holds command-line flag values. Nil pointers indicate unset flags
// that should not override the config. Use ParseFlags to populate this struct.
type CLIFlags struct {
	ConfigPath      *string
	WorkspaceFolder *string
	Host            *string
	Port            *string
	LogLevel        *string
	WriteOpenAPI    *string
}

// ParseFlags parses command-line arguments into CLIFlags.
// Call this before Load/LoadWithCLI. Passing nil args parses os.Args[1:].
func ParseFlags(args []string) (CLIFlags, error) {
	if args == nil {
		args = os.Args[1:]
	}

	var flags CLIFlags

	fs := flag.NewFlagSet("lsproxy", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	workspaceFolder := fs.String("workspace-folder", "", "path to the workspace directory to serve")
	host := fs.String("host", "", "HTTP listen address")
	port := fs.String("port", "", "HTTP server port")
	fs.StringVar(port, "p", "", "HTTP server port (shorthand)")
	logLevel := fs.String("log-level", "", "logging level (debug, info, warn, error)")
	writeOpenAPI := fs.String("write-openapi", "", "write the OpenAPI schema to this path and exit")

	if err := fs.Parse(args); err != nil {
		return flags, fmt.Errorf("parse flags: %w", err)
	}

	// Only set pointers for flags that were explicitly provided.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "workspace-folder":
			flags.WorkspaceFolder = workspaceFolder
		case "host":
			flags.Host = host
		case "port", "p":
			flags.Port = port
		case "log-level":
			flags.LogLevel = logLevel
		case "write-openapi":
			flags.WriteOpenAPI = writeOpenAPI
		}
	})

	return flags, nil
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadWithCLI returns a Config using the full hierarchy:
// defaults < YAML < ENV < CLI flags. The YAML path can be overridden
// via CLIFlags.ConfigPath.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}

	return &cfg, yamlPath, nil
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// applyCLI overlays CLI flag values onto cfg. Only non-nil flags override.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.WorkspaceFolder != nil {
		cfg.Workspace.Root = *flags.WorkspaceFolder
	}
	if flags.Host != nil {
		cfg.Server.Host = *flags.Host
	}
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Host, "LSPROXY_HOST")
	setString(&cfg.Server.Port, "LSPROXY_PORT")
	setString(&cfg.Server.CORSOrigin, "LSPROXY_CORS_ORIGIN")

	setString(&cfg.Logging.Level, "LSPROXY_LOG_LEVEL")
	setString(&cfg.Logging.Service, "LSPROXY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "LSPROXY_LOG_ASYNC")

	setFloat64(&cfg.Rate.RequestsPerSecond, "LSPROXY_RATE_RPS")
	setInt(&cfg.Rate.Burst, "LSPROXY_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "LSPROXY_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "LSPROXY_RATE_MAX_IDLE_TIME")

	setString(&cfg.Workspace.Root, "LSPROXY_WORKSPACE_ROOT")
	setDuration(&cfg.Workspace.WatchDebounce, "LSPROXY_WATCH_DEBOUNCE")

	setDuration(&cfg.LSP.StartTimeout, "LSPROXY_LSP_START_TIMEOUT")
	setDuration(&cfg.LSP.ShutdownTimeout, "LSPROXY_LSP_SHUTDOWN_TIMEOUT")
	setDuration(&cfg.LSP.JavaReadyTimeout, "LSPROXY_LSP_JAVA_READY_TIMEOUT")
	setDuration(&cfg.LSP.RequestTimeout, "LSPROXY_LSP_REQUEST_TIMEOUT")

	setString(&cfg.AST.BinaryPath, "LSPROXY_AST_BINARY")
	setString(&cfg.AST.ConfigPath, "LSPROXY_AST_CONFIG")
	setDuration(&cfg.AST.Timeout, "LSPROXY_AST_TIMEOUT")

	setInt64(&cfg.Cache.MaxCostBytes, "LSPROXY_CACHE_MAX_COST_BYTES")
}

// validate checks that required fields are set and internally consistent.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Workspace.Root == "" {
		return errors.New("workspace.root is required")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	if cfg.AST.BinaryPath == "" {
		return errors.New("ast.binary_path is required")
	}
	if cfg.LSP.StartTimeout <= 0 {
		return errors.New("lsp.start_timeout must be > 0")
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
