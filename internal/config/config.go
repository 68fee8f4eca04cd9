package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables that override the file.
// PJUU_SITE_BASE_URL sets site.base_url.
const EnvPrefix = "PJUU_"

// DefaultPaths are tried in order when no config path is given.
var DefaultPaths = []string{"./pjuu.toml", "$HOME/.pjuu.toml"}

// Config represents the application configuration
type Config struct {
	Site struct {
		BaseURL       string        `koanf:"base_url"`
		SessionCookie string        `koanf:"session_cookie"`
		SessionValue  string        `koanf:"session_value"`
		Timeout       time.Duration `koanf:"timeout"`
		RateLimit     float64       `koanf:"rate_limit"`
		RateBurst     int           `koanf:"rate_burst"`
	} `koanf:"site"`

	Alerts struct {
		Path     string        `koanf:"path"`
		Interval time.Duration `koanf:"interval"`
	} `koanf:"alerts"`

	Log struct {
		Level  string `koanf:"level"`
		Format string `koanf:"format"`
	} `koanf:"log"`

	Metrics struct {
		File string `koanf:"file"`
	} `koanf:"metrics"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"site.base_url":       "http://localhost:5000",
		"site.session_cookie": "session",
		"site.timeout":        "10s",
		"site.rate_limit":     5.0,
		"site.rate_burst":     5,
		"alerts.path":         "/alerts/new",
		"alerts.interval":     "5s",
		"log.level":           "info",
		"log.format":          "console",
	}
}

// envKey maps PJUU_SITE_BASE_URL to site.base_url. Only the first
// underscore separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		for _, path := range DefaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix PJUU_
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %w", err)
	}

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Pjuu client configuration

[site]
base_url = "https://pjuu.example.com"
# Value of the session cookie of a signed-in browser session.
session_cookie = "session"
session_value = ""
timeout = "10s"
# Requests per second sent to the site; 0 disables limiting.
rate_limit = 5.0
rate_burst = 5

[alerts]
path = "/alerts/new"
interval = "5s"

[log]
level = "info"
format = "console"

[metrics]
# Prometheus textfile written on exit, empty to disable.
file = ""
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0600)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Site.BaseURL == "" {
		return fmt.Errorf("site base_url is required")
	}
	u, err := url.Parse(config.Site.BaseURL)
	if err != nil {
		return fmt.Errorf("site base_url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("site base_url must be an http or https url, got %q", config.Site.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("site base_url has no host")
	}

	if config.Site.Timeout <= 0 {
		return fmt.Errorf("site timeout must be positive")
	}
	if config.Site.RateLimit < 0 {
		return fmt.Errorf("site rate_limit must not be negative")
	}
	if config.Site.RateLimit > 0 && config.Site.RateBurst < 1 {
		return fmt.Errorf("site rate_burst must be at least 1 when rate_limit is set")
	}

	if !strings.HasPrefix(config.Alerts.Path, "/") {
		return fmt.Errorf("alerts path must start with /")
	}
	if config.Alerts.Interval <= 0 {
		return fmt.Errorf("alerts interval must be positive")
	}

	switch config.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", config.Log.Format)
	}

	return nil
}
