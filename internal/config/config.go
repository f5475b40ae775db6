// Package config provides layered configuration loading.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the resolved configuration.
type Config struct {
	// LinkedIn OAuth settings. The client secret is never configured here:
	// the code exchange goes through the trusted backend (ExchangeURL).
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
	Scope       string `json:"scope"`
	AuthURL     string `json:"auth_url"`
	APIBaseURL  string `json:"api_base_url"`
	ExchangeURL string `json:"exchange_url"`

	// Content generation settings
	GeminiAPIKey  string `json:"gemini_api_key"`
	GeminiBaseURL string `json:"gemini_base_url"`

	// Sources tracks where each value came from (for debugging).
	Sources map[string]string `json:"-"`
}

// Source indicates where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceGlobal  Source = "global"
	SourceEnv     Source = "env"
	SourceFlag    Source = "flag"
)

// FlagOverrides holds command-line flag values.
type FlagOverrides struct {
	ExchangeURL string
	RedirectURI string
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RedirectURI:   "http://127.0.0.1:8917/callback",
		Scope:         "openid profile w_member_social",
		AuthURL:       "https://www.linkedin.com/oauth/v2/authorization",
		APIBaseURL:    "https://api.linkedin.com",
		ExchangeURL:   "http://localhost:4000",
		GeminiBaseURL: "https://generativelanguage.googleapis.com",
		Sources:       make(map[string]string),
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence: flags > env > global file > defaults
func Load(overrides FlagOverrides) (*Config, error) {
	cfg := Default()

	loadFromFile(cfg, globalConfigPath(), SourceGlobal)
	LoadFromEnv(cfg)
	ApplyOverrides(cfg, overrides)

	return cfg, nil
}

func loadFromFile(cfg *Config, path string, source Source) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Path is from trusted config location
	if err != nil {
		return // File doesn't exist, skip
	}

	var fileCfg map[string]any
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		fmt.Fprintf(os.Stderr, "warning: skipping malformed config at %s: %v\n", path, err)
		return
	}

	set := func(key string, dst *string) {
		if v, ok := fileCfg[key].(string); ok && v != "" {
			*dst = v
			cfg.Sources[key] = string(source)
		}
	}

	set("client_id", &cfg.ClientID)
	set("redirect_uri", &cfg.RedirectURI)
	set("scope", &cfg.Scope)
	set("auth_url", &cfg.AuthURL)
	set("api_base_url", &cfg.APIBaseURL)
	set("exchange_url", &cfg.ExchangeURL)
	set("gemini_api_key", &cfg.GeminiAPIKey)
	set("gemini_base_url", &cfg.GeminiBaseURL)
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	envs := []struct {
		name string
		key  string
		dst  *string
	}{
		{"DOBBIE_CLIENT_ID", "client_id", &cfg.ClientID},
		{"DOBBIE_REDIRECT_URI", "redirect_uri", &cfg.RedirectURI},
		{"DOBBIE_SCOPE", "scope", &cfg.Scope},
		{"DOBBIE_AUTH_URL", "auth_url", &cfg.AuthURL},
		{"DOBBIE_API_BASE_URL", "api_base_url", &cfg.APIBaseURL},
		{"DOBBIE_EXCHANGE_URL", "exchange_url", &cfg.ExchangeURL},
		{"GEMINI_API_KEY", "gemini_api_key", &cfg.GeminiAPIKey},
		{"DOBBIE_GEMINI_BASE_URL", "gemini_base_url", &cfg.GeminiBaseURL},
	}
	for _, e := range envs {
		if v := os.Getenv(e.name); v != "" {
			*e.dst = v
			cfg.Sources[e.key] = string(SourceEnv)
		}
	}
}

// ApplyOverrides applies non-empty flag overrides to cfg.
func ApplyOverrides(cfg *Config, o FlagOverrides) {
	if o.ExchangeURL != "" {
		cfg.ExchangeURL = o.ExchangeURL
		cfg.Sources["exchange_url"] = string(SourceFlag)
	}
	if o.RedirectURI != "" {
		cfg.RedirectURI = o.RedirectURI
		cfg.Sources["redirect_uri"] = string(SourceFlag)
	}
}

// GlobalConfigDir returns the global config directory path.
func GlobalConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "dobbie")
}

func globalConfigPath() string {
	return filepath.Join(GlobalConfigDir(), "config.json")
}

// NormalizeBaseURL ensures consistent URL format (no trailing slash).
func NormalizeBaseURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
