package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName               string        `mapstructure:"app_name"`
	Env                   string        `mapstructure:"app_env"`
	LogLevel              string        `mapstructure:"log_level"`
	LogFormat             string        `mapstructure:"log_format"`
	BaseURL               string        `mapstructure:"base_url"`
	ListingPath           string        `mapstructure:"listing_path"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	PublishersFile        string        `mapstructure:"publishers_file"`

	SessionStoreType       string        `mapstructure:"session_store_type"`
	SessionPath            string        `mapstructure:"session_path"`
	SessionTTLSeconds      int64         `mapstructure:"session_ttl_seconds"`
	SessionCleanupSeconds  int64         `mapstructure:"session_cleanup_interval_seconds"`
	SessionTTL             time.Duration `mapstructure:"-"`
	SessionCleanupInterval time.Duration `mapstructure:"-"`
}

// EnvPrefix is prepended to every key when read from the environment (POSTDESK_BASE_URL, ...).
const EnvPrefix = "POSTDESK"

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("app_name", "postdesk")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("base_url", "http://localhost:8000")
	v.SetDefault("listing_path", "/posts")
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("publishers_file", "")
	v.SetDefault("session_store_type", "bbolt")
	v.SetDefault("session_path", "./data/session.db")
	v.SetDefault("session_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("session_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	cfg.BaseURL = base

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("invalid log_format %q (want json or console)", cfg.LogFormat)
	}

	cfg.ListingPath = strings.TrimSpace(cfg.ListingPath)
	if !strings.HasPrefix(cfg.ListingPath, "/") {
		return nil, fmt.Errorf("invalid listing_path %q (must start with /)", cfg.ListingPath)
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.SessionTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid session_ttl_seconds (must be positive seconds)")
	}
	if cfg.SessionCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid session_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.SessionTTL = time.Duration(cfg.SessionTTLSeconds) * time.Second
	cfg.SessionCleanupInterval = time.Duration(cfg.SessionCleanupSeconds) * time.Second

	cfg.PublishersFile = strings.TrimSpace(cfg.PublishersFile)

	return &cfg, nil
}

func normalizeBaseURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid base_url %q: must be an absolute URL", raw)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("invalid base_url %q: scheme must be http or https", raw)
	}
	return strings.TrimRight(parsed.String(), "/"), nil
}
