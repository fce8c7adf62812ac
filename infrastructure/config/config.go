// Package config loads the runner configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"browserkit-go/infrastructure/browser"
	"browserkit-go/infrastructure/logging"
)

// DefaultFileName is looked up in the working directory when no path is given.
const DefaultFileName = "browserkit.yaml"

// Config is the top-level runner configuration.
type Config struct {
	Browser        string        `yaml:"browser"`
	Backend        string        `yaml:"backend"`
	TimeoutSeconds int           `yaml:"timeoutSeconds"`
	DriversDir     string        `yaml:"driversDir"`
	ResultsDir     string        `yaml:"resultsDir"`
	Headless       bool          `yaml:"headless"`
	Console        bool          `yaml:"console"`
	History        HistoryConfig `yaml:"history"`
	Logging        LoggingConfig `yaml:"logging"`
}

// HistoryConfig controls the MongoDB run history store.
type HistoryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// LoggingConfig controls diagnostic logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Browser:        "chrome",
		Backend:        string(browser.BackendWebDriver),
		TimeoutSeconds: 3,
		DriversDir:     "drivers",
		ResultsDir:     "Results",
		Console:        true,
		History: HistoryConfig{
			URI:      "mongodb://localhost:27017",
			Database: "browserkit",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. An empty path tries DefaultFileName and
// falls back to the defaults when it does not exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := browser.ParseVariant(c.Browser); err != nil {
		return err
	}
	if _, err := browser.ParseBackend(c.Backend); err != nil {
		return err
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeoutSeconds must be positive, got %d", c.TimeoutSeconds)
	}
	if strings.TrimSpace(c.ResultsDir) == "" {
		return errors.New("resultsDir must not be empty")
	}
	if c.History.Enabled && c.History.URI == "" {
		return errors.New("history.uri is required when history is enabled")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// Variant returns the configured browser variant.
func (c *Config) Variant() (browser.Variant, error) {
	return browser.ParseVariant(c.Browser)
}

// SlogLevel returns the configured log level, info if unparsable.
func (c *Config) SlogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Logging.Level)
	return level
}
