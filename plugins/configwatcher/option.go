package configwatcher

import "github.com/bft-labs/canopy"

// WithConfigWatcher returns a canopy Option that delivers the TOML file at
// cfg.Path to the tree whenever it changes.
//
// Usage:
//
//	r, err := canopy.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/app/device.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) canopy.Option {
	return canopy.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher watches path with default settings
// (debounce 100ms, five attempts per change).
//
// Usage:
//
//	r, err := canopy.New(cfg, configwatcher.WithDefaultConfigWatcher("device.toml"))
func WithDefaultConfigWatcher(path string) canopy.Option {
	cfg := DefaultConfig()
	cfg.Path = path
	return WithConfigWatcher(cfg)
}
