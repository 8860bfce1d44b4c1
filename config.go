package canopy

import (
	"fmt"
	"time"

	"github.com/bft-labs/canopy/internal/app"
	"github.com/bft-labs/canopy/internal/domain"
	"github.com/bft-labs/canopy/pkg/action"
	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/component"
)

// Config holds the configuration of a Runtime.
// Use DefaultConfig to get a Config with sensible defaults.
type Config struct {
	// Root is the class of the root node. Required.
	Root component.Class

	// RootArgs are merged into the root node's arguments.
	RootArgs *bundle.Bundle

	// Require lists classes that must have a constructor when the runtime
	// starts. Root is always required.
	Require []component.Class

	// ActionCapacity is the default action queue capacity of every node.
	ActionCapacity int

	// ShutdownTimeout bounds how long Stop waits for the tree to wind down.
	ShutdownTimeout time.Duration

	// DiscardState skips loading and saving the snapshot.
	DiscardState bool
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, Root must be set before calling New.
func DefaultConfig() Config {
	return Config{
		ActionCapacity:  action.DefaultCapacity,
		ShutdownTimeout: app.DefaultShutdownTimeout,
	}
}

// SetDefaults fills zero values with their defaults.
func (c *Config) SetDefaults() {
	if c.ActionCapacity == 0 {
		c.ActionCapacity = action.DefaultCapacity
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = app.DefaultShutdownTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("%w: root class is required", domain.ErrInvalidConfig)
	}
	if c.ActionCapacity < 0 {
		return fmt.Errorf("%w: action capacity must not be negative", domain.ErrInvalidConfig)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout must not be negative", domain.ErrInvalidConfig)
	}
	return nil
}
