package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server          ServerConfig   `yaml:"server"`
	Accounts        AccountsConfig `yaml:"accounts"`
	Session         SessionConfig  `yaml:"session"`
	Database        DatabaseConfig `yaml:"database"`
	Hue             HueConfig      `yaml:"hue"`
	Ledger          LedgerConfig   `yaml:"ledger"`
	Log             LogConfig      `yaml:"log"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
}

// ServerConfig contains web UI listener settings
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	CookieSecure bool   `yaml:"cookie_secure"` // Set the Secure flag on session cookies (behind TLS)
}

// AccountsConfig contains flat-file account storage settings
type AccountsConfig struct {
	Dir        string `yaml:"dir"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// SessionConfig contains login session settings
type SessionConfig struct {
	Secret string   `yaml:"secret"` // HMAC key for session tokens; random per process if empty
	TTL    Duration `yaml:"ttl"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HueConfig contains bridge connection settings.
// Bridge and Token name the default bridge used by scripts.
type HueConfig struct {
	Bridge            string   `yaml:"bridge"`
	Token             string   `yaml:"token"`
	Timeout           Duration `yaml:"timeout"`            // HTTP timeout for bridge requests
	DefaultTransition int      `yaml:"default_transition"` // deciseconds, used when a form leaves it empty
	DeviceType        string   `yaml:"device_type"`        // devicetype sent on link-button registration
	RateLimitRPS      float64  `yaml:"rate_limit_rps"`     // writes per second per bridge
}

// LedgerConfig contains command ledger settings
type LedgerConfig struct {
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	Colors  bool   `yaml:"colors"`
	UseJSON bool   `yaml:"use_json"`
}

// GetLevel returns the configured level, "info" if unset
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// Addr returns the listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Retention returns the ledger retention as a duration
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses configuration from YAML bytes and applies defaults
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// Account defaults
	if cfg.Accounts.Dir == "" {
		cfg.Accounts.Dir = "./credentials"
	}
	if cfg.Accounts.BcryptCost == 0 {
		cfg.Accounts.BcryptCost = 12
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = Duration(24 * time.Hour)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./huepanel.sqlite"
	}

	// Hue defaults
	if cfg.Hue.Timeout == 0 {
		cfg.Hue.Timeout = Duration(2 * time.Second)
	}
	if cfg.Hue.DefaultTransition == 0 {
		cfg.Hue.DefaultTransition = 4 // bridge default, 400ms
	}
	if cfg.Hue.RateLimitRPS == 0 {
		cfg.Hue.RateLimitRPS = 10.0 // 10 requests per second
	}
	if cfg.Hue.DeviceType == "" {
		cfg.Hue.DeviceType = "huepanel#server"
	}

	// Ledger defaults
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
