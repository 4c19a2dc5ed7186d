package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application-level configuration.
type Config struct {
	URL               string        `mapstructure:"url"`      // e.g. "https://abc.supabase.co"
	AnonKey           string        `mapstructure:"anon_key"` // Public API key of the project
	SessionPath       string        `mapstructure:"session_path"`
	UIStatePath       string        `mapstructure:"ui_state_path"`
	LogPath           string        `mapstructure:"log_path"`
	PageSize          int           `mapstructure:"page_size"`
	StaleTime         time.Duration `mapstructure:"stale_time"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// Load reads configuration from an optional config file and the environment.
//
//	TRUTH_URL                  backend project URL (required, https)
//	TRUTH_ANON_KEY             public API key (required)
//	TRUTH_SESSION_PATH         session file (default: ~/.config/truthterm/session.json)
//	TRUTH_UI_STATE_PATH        UI state file (default: ~/.config/truthterm/ui_state.json)
//	TRUTH_LOG_PATH             log file (default: ~/.config/truthterm/truthterm.log)
//	TRUTH_PAGE_SIZE            feed page size (default: 20)
//	TRUTH_STALE_TIME           feed page cache lifetime (default: 1m)
//	TRUTH_REQUESTS_PER_SECOND  REST request budget (default: 10)
func Load(cfgFile string) (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "truthterm")

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("TRUTH")
	v.AutomaticEnv()
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	// AutomaticEnv only resolves keys viper already knows about.
	v.SetDefault("url", "")
	v.SetDefault("anon_key", "")
	v.SetDefault("session_path", filepath.Join(dir, "session.json"))
	v.SetDefault("ui_state_path", filepath.Join(dir, "ui_state.json"))
	v.SetDefault("log_path", filepath.Join(dir, "truthterm.log"))
	v.SetDefault("page_size", 20)
	v.SetDefault("stale_time", time.Minute)
	v.SetDefault("requests_per_second", 10.0)
}

func validate(cfg *Config) error {
	if cfg.URL == "" {
		return fmt.Errorf("invalid TRUTH_URL: required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid TRUTH_URL: must be an absolute URL")
	}
	if parsed.Scheme != "https" {
		return fmt.Errorf("invalid TRUTH_URL: only https is allowed")
	}
	cfg.URL = strings.TrimRight(parsed.String(), "/")

	cfg.AnonKey = strings.TrimSpace(cfg.AnonKey)
	if cfg.AnonKey == "" {
		return fmt.Errorf("invalid TRUTH_ANON_KEY: required")
	}
	if cfg.PageSize <= 0 {
		return fmt.Errorf("invalid TRUTH_PAGE_SIZE: must be positive")
	}
	if cfg.StaleTime < 0 {
		cfg.StaleTime = 0
	}
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid TRUTH_REQUESTS_PER_SECOND: must be positive")
	}
	return nil
}
