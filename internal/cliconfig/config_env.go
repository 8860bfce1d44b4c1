package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (CANOPY_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("layout", os.Getenv("CANOPY_LAYOUT"), &cfg.LayoutFile)
	s.setString("state-dir", os.Getenv("CANOPY_STATE_DIR"), &cfg.StateDir)
	s.setString("state-format", os.Getenv("CANOPY_STATE_FORMAT"), &cfg.StateFormat)
	s.setString("watch", os.Getenv("CANOPY_WATCH"), &cfg.WatchFile)
	s.setString("id-scheme", os.Getenv("CANOPY_ID_SCHEME"), &cfg.IDScheme)
	s.setString("log-level", os.Getenv("CANOPY_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("shutdown-timeout", os.Getenv("CANOPY_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setIntFromString("action-capacity", os.Getenv("CANOPY_ACTION_CAPACITY"), &cfg.ActionCapacity); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv("CANOPY_ONCE"), &cfg.Once)
	s.setBoolFromString("fresh", os.Getenv("CANOPY_FRESH"), &cfg.Fresh)

	return nil
}
