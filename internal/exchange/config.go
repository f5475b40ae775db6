// Package exchange implements the trusted token exchange backend. It is
// the only component that holds the LinkedIn client secret: the CLI hands
// it an authorization code and receives an access token plus the member's
// author URN.
package exchange

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the exchange server settings.
type Config struct {
	Listen       string        `yaml:"listen"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURI  string        `yaml:"redirect_uri"`
	APIBaseURL   string        `yaml:"api_base_url"`
	OAuthBaseURL string        `yaml:"oauth_base_url"`
	CodeTTL      time.Duration `yaml:"code_ttl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Listen:       ":4000",
		APIBaseURL:   "https://api.linkedin.com",
		OAuthBaseURL: "https://www.linkedin.com",
		CodeTTL:      5 * time.Minute,
	}
}

// LoadConfig reads a YAML config file, layers environment overrides on top
// and validates the result. Path may be empty, in which case only defaults
// and the environment apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return Config{}, fmt.Errorf("client_id and client_secret are required")
	}
	if cfg.RedirectURI == "" {
		return Config{}, fmt.Errorf("redirect_uri is required")
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = DefaultConfig().CodeTTL
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Listen, "DOBBIE_EXCHANGE_LISTEN")
	set(&cfg.ClientID, "LINKEDIN_CLIENT_ID")
	set(&cfg.ClientSecret, "LINKEDIN_CLIENT_SECRET")
	set(&cfg.RedirectURI, "LINKEDIN_REDIRECT_URI")
	set(&cfg.APIBaseURL, "DOBBIE_EXCHANGE_API_BASE_URL")
	set(&cfg.OAuthBaseURL, "DOBBIE_EXCHANGE_OAUTH_BASE_URL")
}
