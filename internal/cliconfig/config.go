package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/canopy/pkg/log"
)

// Accepted values for Config.StateFormat.
const (
	StateFormatJSON   = "json"
	StateFormatYAML   = "yaml"
	StateFormatSQLite = "sqlite"
)

// Accepted values for Config.IDScheme.
const (
	IDSchemeSequence = "sequence"
	IDSchemeUUID     = "uuid"
)

// Config holds CLI configuration for canopy.
type Config struct {
	LayoutFile string
	StateDir   string
	// StateFormat is one of json, yaml or sqlite.
	StateFormat string
	WatchFile   string

	ActionCapacity  int
	IDScheme        string
	LogLevel        string
	ShutdownTimeout time.Duration

	Once  bool
	Fresh bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		StateFormat:     StateFormatJSON,
		ActionCapacity:  5,
		IDScheme:        IDSchemeSequence,
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.LayoutFile == "" {
		return fmt.Errorf("layout is required")
	}

	if c.StateDir == "" {
		// state lives next to the layout it was saved from
		c.StateDir = filepath.Join(filepath.Dir(c.LayoutFile), ".canopy")
	}

	switch c.StateFormat {
	case StateFormatJSON, StateFormatYAML, StateFormatSQLite:
	default:
		return fmt.Errorf("unknown state format %q", c.StateFormat)
	}

	switch c.IDScheme {
	case IDSchemeSequence, IDSchemeUUID:
	default:
		return fmt.Errorf("unknown id scheme %q", c.IDScheme)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	if c.ActionCapacity <= 0 {
		return fmt.Errorf("action capacity must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	return nil
}

// Logger builds the console logger at the configured level.
func (c Config) Logger() log.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return log.NewConsole(os.Stderr, level)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
