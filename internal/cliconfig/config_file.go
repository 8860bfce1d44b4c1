package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LayoutFile      string `toml:"layout"`
	StateDir        string `toml:"state_dir"`
	StateFormat     string `toml:"state_format"`
	WatchFile       string `toml:"watch"`
	ActionCapacity  int    `toml:"action_capacity"`
	IDScheme        string `toml:"id_scheme"`
	LogLevel        string `toml:"log_level"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
	Once            *bool  `toml:"once"`
	Fresh           *bool  `toml:"fresh"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.canopy/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".canopy", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("layout", fc.LayoutFile, &cfg.LayoutFile)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("state-format", fc.StateFormat, &cfg.StateFormat)
	s.setString("watch", fc.WatchFile, &cfg.WatchFile)
	s.setString("id-scheme", fc.IDScheme, &cfg.IDScheme)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setInt("action-capacity", fc.ActionCapacity, &cfg.ActionCapacity)

	s.setBool("once", fc.Once, &cfg.Once)
	s.setBool("fresh", fc.Fresh, &cfg.Fresh)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
