/*
Package config loads service configuration with koanf.

PURPOSE:
  One Config struct for the whole binary, assembled from three layers:
    1. Defaults:    defaultConfig() below
    2. Config file: CONFIG_PATH, else config.yaml / config.yml in the
                    working directory (optional)
    3. Environment: REPBOARD_<SECTION>_<KEY>, highest priority

ENVIRONMENT MAPPING:
  The first underscore after the prefix separates the section from the key:
    REPBOARD_SERVER_PORT          → server.port
    REPBOARD_SECURITY_CORS_ORIGINS → security.cors_origins (comma separated)
    REPBOARD_LEDGER_TIMEZONE      → ledger.timezone
    REPBOARD_DATABASE_DRIVER      → database.driver

  .env files are not read here; cmd/server loads them with godotenv first.

SEE ALSO:
  - validation/validator.go: Struct tag validation
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/warp/repboard/logging"
	"github.com/warp/repboard/store/sqlite"
	"github.com/warp/repboard/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "REPBOARD_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

// =============================================================================
// CONFIG TYPES
// =============================================================================

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database sqlite.Config  `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Logging  logging.Config `koanf:"logging"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// PublicURL is the origin used in share links. Empty means the
	// request's own scheme and host.
	PublicURL string `koanf:"public_url" validate:"omitempty,url"`
}

type SecurityConfig struct {
	// CookieHashKey signs the active-session cookie. Empty generates a random
	// key at startup, which invalidates cookies on every restart.
	CookieHashKey  string `koanf:"cookie_hash_key" validate:"omitempty,min=32"`
	CookieBlockKey string `koanf:"cookie_block_key"`
	CookieSecure   bool   `koanf:"cookie_secure"`

	BcryptCost int `koanf:"bcrypt_cost" validate:"gte=4,lte=31"`

	// AdminPassword seeds the global admin credential when none is stored.
	AdminPassword string `koanf:"admin_password"`

	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

type LedgerConfig struct {
	// Timezone decides "today" when a client sends no date.
	Timezone         string `koanf:"timezone" validate:"required"`
	DefaultDailyGoal int    `koanf:"default_daily_goal" validate:"gt=0"`
}

// Addr is host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// defaultConfig returns a Config with every default filled in.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: sqlite.Config{
			Driver: sqlite.DriverCgo,
			Path:   "./data/repboard.db",
		},
		Security: SecurityConfig{
			BcryptCost:      10,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   20,
			RateLimitWindow: time.Minute,
		},
		Ledger: LedgerConfig{
			Timezone:         "America/Los_Angeles",
			DefaultDailyGoal: 100,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load assembles defaults, the optional config file and the environment.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks struct tags plus the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("ledger.timezone: %w", err)
	}
	// AES-128, -192 or -256
	switch len(c.Security.CookieBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("security.cookie_block_key must be 16, 24 or 32 bytes")
	}
	return nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransformFunc maps REPBOARD_SECTION_SOME_KEY to section.some_key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok || rest == "" {
		return ""
	}
	return section + "." + rest
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{"security.cors_origins"}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
