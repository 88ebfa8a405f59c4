package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "PLUGINCORE_"

type Config struct {
	Server   ServerConfig            `koanf:"server"`
	Database DatabaseConfig          `koanf:"database"`
	Log      LogConfig               `koanf:"log"`
	Auth     AuthConfig              `koanf:"auth"`
	Audit    AuditConfig             `koanf:"audit"`
	Plugins  map[string]PluginConfig `koanf:"plugins"`
}

type AuthConfig struct {
	DevMode bool      `koanf:"devmode"`
	JWT     JWTConfig `koanf:"jwt"`
}

type JWTConfig struct {
	SigningKey    string `koanf:"signingkey"`
	Issuer        string `koanf:"issuer"`
	ExpiryMinutes int    `koanf:"expiryminutes"`
}

type ServerConfig struct {
	Host                string   `koanf:"host"`
	Port                int      `koanf:"port"`
	ShutdownTimeoutSecs int      `koanf:"shutdown_timeout_secs"`
	CORSOrigins         []string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	URL      string `koanf:"url"`
	MaxConns int    `koanf:"max_conns"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type AuditConfig struct {
	Enabled         bool `koanf:"enabled"`
	BufferSize      int  `koanf:"buffer_size"`
	BatchSize       int  `koanf:"batch_size"`
	FlushIntervalMS int  `koanf:"flush_interval_ms"`
}

// PluginConfig is the registration-time configuration of one catalog entry.
// Keys under "plugins" are catalog names and must not contain dots.
type PluginConfig struct {
	Disabled   bool              `koanf:"disabled"`
	Unsecure   string            `koanf:"unsecure"`
	Secure     string            `koanf:"secure"`
	Validators []ValidatorConfig `koanf:"validators"`
}

// ValidatorConfig declares an expression validator added ahead of a
// handler's own validators.
type ValidatorConfig struct {
	Name     string `koanf:"name"`
	Expr     string `koanf:"expr"`
	Escalate bool   `koanf:"escalate"`
}

func Load(configPaths ...string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	_ = k.Load(confmap.Provider(map[string]any{
		"server.port":                  8080,
		"server.host":                  "0.0.0.0",
		"server.shutdown_timeout_secs": 10,
		"database.max_conns":           10,
		"log.level":                    "info",
		"log.format":                   "json",
		"auth.devmode":                 false,
		"auth.jwt.issuer":              "plugincore",
		"auth.jwt.expiryminutes":       60,
		"audit.enabled":                true,
		"audit.buffer_size":            4096,
		"audit.batch_size":             100,
		"audit.flush_interval_ms":      500,
	}, "."), nil)

	// YAML file (optional)
	for _, path := range configPaths {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// Config file is optional, skip if not found
			continue
		}
	}

	// Environment variables override everything
	// PLUGINCORE_SERVER_PORT -> server.port
	_ = k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, EnvPrefix)),
			"_", ".",
		)
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
