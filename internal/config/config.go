package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// BackendConfig selects which retrieval backend the client talks to.
type BackendConfig struct {
	Environment    string `json:"environment"`    // "development" or "production"
	BaseURL        string `json:"baseURL"`        // explicit override; wins over Environment
	RequestTimeout int    `json:"requestTimeout"` // seconds
}

// QueryConfig defines question defaults.
type QueryConfig struct {
	TopK int `json:"topK"` // number of source chunks requested per question
}

// ReconcileConfig defines the post-upload list reconciliation poll.
type ReconcileConfig struct {
	InitialDelayMs int     `json:"initialDelayMs"`
	Multiplier     float64 `json:"multiplier"`
	MaxAttempts    int     `json:"maxAttempts"`
}

// WatchConfig defines the optional drop-folder upload surface.
type WatchConfig struct {
	Directory string `json:"directory,omitempty"`
}

// Data defines local data/log file placement.
type Data struct {
	Directory string `json:"directory,omitempty"`
}

// TUIConfig defines terminal UI configuration.
type TUIConfig struct {
	Theme string `json:"theme"`
}

// Config is the main configuration structure for the application.
type Config struct {
	Data       Data            `json:"data"`
	WorkingDir string          `json:"wd,omitempty"`
	Backend    BackendConfig   `json:"backend"`
	Query      QueryConfig     `json:"query"`
	Reconcile  ReconcileConfig `json:"reconcile"`
	Watch      WatchConfig     `json:"watch,omitempty"`
	TUI        TUIConfig       `json:"tui"`
	Debug      bool            `json:"debug,omitempty"`
}

// Application constants
const (
	defaultDataDirectory = ".docchat"
	appName              = "docchat"

	devEndpoint  = "http://localhost:8000"
	prodEndpoint = "https://docchat-backend.fly.dev"
)

// Global configuration instance
var cfg *Config

// Load initializes the configuration from environment variables and config files.
func Load(workingDir string, debug bool) (*Config, error) {
	if cfg != nil {
		return cfg, nil
	}

	// A .env alongside the working directory is honored when present.
	_ = godotenv.Load()

	cfg = &Config{
		WorkingDir: workingDir,
	}

	configureViper()
	setDefaults(debug)

	if err := readConfig(viper.ReadInConfig()); err != nil {
		return cfg, err
	}

	// DOCCHAT_ENV flips the environment without a config file.
	if env := os.Getenv("DOCCHAT_ENV"); env != "" {
		cfg.Backend.Environment = env
	}

	if cfg.Data.Directory == "" {
		cfg.Data.Directory = defaultDataDirectory
	}

	return cfg, nil
}

// Reset clears the cached configuration. Tests only.
func Reset() {
	cfg = nil
	viper.Reset()
}

// BackendURL resolves the backend base address: an explicit baseURL wins,
// otherwise the environment picks the endpoint.
func (c *Config) BackendURL() string {
	if c.Backend.BaseURL != "" {
		return strings.TrimRight(c.Backend.BaseURL, "/")
	}
	if strings.HasPrefix(strings.ToLower(c.Backend.Environment), "prod") {
		return prodEndpoint
	}
	return devEndpoint
}

// RequestTimeout returns the configured per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

// configureViper sets up viper's configuration paths and environment variables.
func configureViper() {
	viper.SetConfigName(fmt.Sprintf(".%s", appName))
	viper.SetConfigType("json")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	viper.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	viper.SetEnvPrefix(strings.ToUpper(appName))
	viper.AutomaticEnv()
}

// setDefaults configures default values for configuration options.
func setDefaults(debug bool) {
	viper.SetDefault("data.directory", defaultDataDirectory)
	viper.SetDefault("tui.theme", "default")

	viper.SetDefault("backend.environment", "development")
	viper.SetDefault("backend.requestTimeout", 60)

	viper.SetDefault("query.topK", 5)

	viper.SetDefault("reconcile.initialDelayMs", 2000)
	viper.SetDefault("reconcile.multiplier", 1.5)
	viper.SetDefault("reconcile.maxAttempts", 5)

	if debug {
		viper.SetDefault("debug", true)
	} else {
		viper.SetDefault("debug", false)
	}
}

// readConfig reads configuration from file and environment. A missing config
// file is fine; defaults still apply through the unmarshal.
func readConfig(err error) error {
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to decode config: %w", err)
	}

	return nil
}
