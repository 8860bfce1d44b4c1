package canopy

import (
	"context"

	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/log"
)

// Dispatcher runs funcs against the component tree on the principal lane.
type Dispatcher interface {
	Dispatch(ctx context.Context, fn func(h *component.Host) error) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	// Root is the class of the root node.
	Root component.Class

	// Runtime dispatches work to the tree.
	Runtime Dispatcher

	// Logger is the runtime logger.
	Logger log.Logger
}

// Plugin extends a Runtime with work that lives as long as the tree.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize starts the plugin. Work that outlives the call must stop
	// when ctx ends or Shutdown is called.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown stops the plugin and waits for its goroutines.
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op Initialize and Shutdown. Embed it and override
// what the plugin needs.
type BasePlugin struct{}

func (BasePlugin) Name() string                                 { return "base" }
func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error               { return nil }
