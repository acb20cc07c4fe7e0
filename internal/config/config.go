package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at an explicit config file.
const ConfigPathEnvVar = "CARWIZARD_CONFIG_PATH"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"carwizard.yaml",
	"carwizard.yml",
	"/etc/carwizard/config.yaml",
}

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Log       LogConfig       `koanf:"log"`
	Transport TransportConfig `koanf:"transport"`
	Auth      AuthConfig      `koanf:"auth"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	// Path is an optional log file; empty logs to the console.
	Path string `koanf:"path"`
}

type TransportConfig struct {
	// Mode is "http" (REST + MCP over streamable HTTP) or "stdio" (MCP only).
	Mode        string   `koanf:"mode"`
	CORSOrigins []string `koanf:"cors_origins"`
	TrafficLog  bool     `koanf:"traffic_log"`
}

type AuthConfig struct {
	Enabled bool `koanf:"enabled"`
}

type CatalogConfig struct {
	// SeedPath is a YAML catalog imported at startup when set.
	SeedPath         string        `koanf:"seed_path"`
	BreakerEnabled   bool          `koanf:"breaker_enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	OpenTimeout      time.Duration `koanf:"open_timeout"`
}

type RecommendConfig struct {
	// DefaultLimit caps responses that do not ask for a limit; 0 returns all.
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "carwizard.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode:        "http",
			CORSOrigins: []string{"*"},
		},
		Catalog: CatalogConfig{
			BreakerEnabled:   true,
			FailureThreshold: 5,
			OpenTimeout:      15 * time.Second,
		},
		Recommend: RecommendConfig{
			DefaultLimit: 0,
			MaxLimit:     100,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
	}
}

// Load reads configuration in three layers: built-in defaults, an optional
// YAML file, then CARWIZARD_* environment variables.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path, err := findConfigFile(); err != nil {
		return Config{}, err
	} else if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CARWIZARD_", ".", envTransformFunc), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the explicit config path, the first default path
// that exists, or "" when there is none. An explicit path must exist.
func findConfigFile() (string, error) {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("read config file: %w", err)
		}
		return path, nil
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// envMappings maps CARWIZARD_-prefixed variables (prefix stripped, lower
// case) to config paths. Unlisted variables are ignored.
var envMappings = map[string]string{
	"server_host":               "server.host",
	"server_port":               "server.port",
	"db_path":                   "db.path",
	"log_level":                 "log.level",
	"log_path":                  "log.path",
	"transport_mode":            "transport.mode",
	"cors_origins":              "transport.cors_origins",
	"traffic_log":               "transport.traffic_log",
	"auth_enabled":              "auth.enabled",
	"catalog_seed_path":         "catalog.seed_path",
	"catalog_breaker_enabled":   "catalog.breaker_enabled",
	"catalog_failure_threshold": "catalog.failure_threshold",
	"catalog_open_timeout":      "catalog.open_timeout",
	"recommend_default_limit":   "recommend.default_limit",
	"recommend_max_limit":       "recommend.max_limit",
	"ratelimit_enabled":         "ratelimit.enabled",
	"ratelimit_requests":        "ratelimit.requests",
	"ratelimit_window":          "ratelimit.window",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "CARWIZARD_"))
	return envMappings[key]
}

var sliceConfigPaths = []string{
	"transport.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		errs = append(errs, fmt.Errorf("transport.mode %q must be http or stdio", c.Transport.Mode))
	}
	if c.Recommend.DefaultLimit < 0 || c.Recommend.MaxLimit < 0 {
		errs = append(errs, errors.New("recommend limits must not be negative"))
	}
	if c.Recommend.MaxLimit > 0 && c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		errs = append(errs, errors.New("recommend.default_limit exceeds recommend.max_limit"))
	}
	if c.Catalog.BreakerEnabled && c.Catalog.FailureThreshold == 0 {
		errs = append(errs, errors.New("catalog.failure_threshold must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("ratelimit requests and window must be positive"))
	}
	return errors.Join(errs...)
}
