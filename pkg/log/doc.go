// Package log provides a logging abstraction for canopy components.
//
// The runtime, the component tree and the CLI all log through the Logger
// interface so that embedding applications can route lifecycle diagnostics
// into their own logging stack. A zerolog adapter and a no-op logger are
// provided.
//
// # Usage
//
// Log to the console at a level:
//
//	logger := log.NewConsole(os.Stderr, zerolog.InfoLevel)
//
// Or wrap an existing zerolog logger:
//
//	logger := log.Wrap(zerolog.New(os.Stderr))
//
// Scope a logger to a component so every entry carries its identity:
//
//	nodeLog := logger.With(log.String("class", "counter"), log.String("node", "c1"))
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package log
