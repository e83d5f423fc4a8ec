// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Model   ModelConfig   `mapstructure:"model" yaml:"model"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Runner  RunnerConfig  `mapstructure:"runner" yaml:"runner"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
}

// LoggerConfig controls the zap logger and its file rotation.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ModelConfig selects and tunes the reasoning-model provider.
type ModelConfig struct {
	Provider        string        `mapstructure:"provider" yaml:"provider"`
	Name            string        `mapstructure:"name" yaml:"name"`
	APIKey          string        `mapstructure:"api_key" yaml:"api_key"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	APITimeout      time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// BrowserConfig holds settings for the browser instance under test.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	ExecPath       string        `mapstructure:"exec_path" yaml:"exec_path"`
	ViewportWidth  int           `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height" yaml:"viewport_height"`
	StartURL       string        `mapstructure:"start_url" yaml:"start_url"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout" yaml:"dispatch_timeout"`
}

// RunnerConfig tunes the turn loop and the step/test orchestration.
type RunnerConfig struct {
	MaxTurns         int           `mapstructure:"max_turns" yaml:"max_turns"`
	KeepRecentImages int           `mapstructure:"keep_recent_images" yaml:"keep_recent_images"`
	// StepKeepRecentImages applies to the open-ended single-instruction
	// runner, which tolerates a larger visual history than iterative steps.
	StepKeepRecentImages int           `mapstructure:"step_keep_recent_images" yaml:"step_keep_recent_images"`
	SettleDelay          time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	TurnPacing           time.Duration `mapstructure:"turn_pacing" yaml:"turn_pacing"`
	ScreenshotsDir       string        `mapstructure:"screenshots_dir" yaml:"screenshots_dir"`
	ReportsDir           string        `mapstructure:"reports_dir" yaml:"reports_dir"`
	SystemSuffix         string        `mapstructure:"system_suffix" yaml:"system_suffix"`
	CarryContext         bool          `mapstructure:"carry_context" yaml:"carry_context"`
}

// StoreConfig configures the optional Postgres suite store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// SetDefaults initializes default values for various configuration
// parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "kestrel")
	v.SetDefault("logger.log_file", "kestrel.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Model --
	v.SetDefault("model.provider", "gemini")
	v.SetDefault("model.name", "gemini-2.5-computer-use-preview-10-2025")
	v.SetDefault("model.max_output_tokens", 8192)
	v.SetDefault("model.api_timeout", "120s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1440)
	v.SetDefault("browser.viewport_height", 900)
	v.SetDefault("browser.start_url", "about:blank")
	v.SetDefault("browser.dispatch_timeout", "5s")

	// -- Runner --
	v.SetDefault("runner.max_turns", 15)
	v.SetDefault("runner.keep_recent_images", 3)
	v.SetDefault("runner.step_keep_recent_images", 10)
	v.SetDefault("runner.settle_delay", "1s")
	v.SetDefault("runner.turn_pacing", "500ms")
	v.SetDefault("runner.screenshots_dir", "screenshots")
	v.SetDefault("runner.reports_dir", "reports")
	v.SetDefault("runner.carry_context", false)

	// -- Store --
	v.SetDefault("store.enabled", false)
}

// NewDefaultConfig creates a new configuration struct populated with default
// values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper
// object, binding credential environment variables along the way.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Credentials come from the environment, never the config file.
	v.BindEnv("model.api_key", "GEMINI_API_KEY")
	v.BindEnv("store.dsn", "KESTREL_STORE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Runner.MaxTurns <= 0 {
		return fmt.Errorf("runner.max_turns must be a positive integer")
	}
	if c.Runner.KeepRecentImages < 0 || c.Runner.StepKeepRecentImages < 0 {
		return fmt.Errorf("runner image retention counts must not be negative")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	if c.Store.Enabled && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.enabled is true")
	}
	return nil
}

// DefaultConfigDir returns the per-user configuration directory, falling
// back to the working directory when the home directory cannot be resolved.
func DefaultConfigDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".kestrel")
}
