package component

import (
	"github.com/bft-labs/canopy/pkg/action"
	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/bus"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Class names a node type. Factories create and pool nodes by class.
type Class string

// Lifecyclable is a node with an observable lifecycle and its transition hooks.
// Hooks are driven by the Perform functions and must call through to the
// embedded implementation.
type Lifecyclable interface {
	lifecycle.Source
	OnStart() error
	OnResume() error
	OnPause() error
	OnStop() error
	OnDestroy() error
}

// Attachable is a node that binds arguments while attached.
type Attachable interface {
	OnAttach(args *bundle.Bundle) error
	OnDetach() error
}

// Bindable is a node whose state lives in its bound bundle.
type Bindable interface {
	ID() string
	Args() (*bundle.Bundle, error)
	SaveHierarchyState(container map[string]*bundle.Bundle) *bundle.Bundle
	OnSaveInstanceState(out *bundle.Bundle)
}

// EventCapable is a node with a bus endpoint and an action queue.
type EventCapable interface {
	Bus() *bus.Node
	Post(op action.Operation) (*action.Proxy, error)
}

// Node is the full capability set of a tree element. Implementations embed
// *Base, which provides every method; types override the hooks they need.
type Node interface {
	Lifecyclable
	Attachable
	Bindable
	EventCapable

	Class() Class
	Handle() surface.Handle
	Host() *Host

	OnConfigurationChanged(cfg Configuration) error
	OnBackPressed() bool
	OnActivityResult(r ActivityResult)
	OnPermissionsResult(r PermissionsResult)
	OnTrimMemory(level int)

	core() *Base
}

// Configuration describes the environment a tree runs in. A configuration
// change forces nodes that cannot survive it to be recreated.
type Configuration map[string]any

// Text returns the string value of key.
func (c Configuration) Text(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// Int returns the integer value of key.
func (c Configuration) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// ActivityResult is a result delivered to every node in the tree.
type ActivityResult struct {
	RequestCode int
	ResultCode  int
	Data        *bundle.Bundle
}

// PermissionsResult is a permission decision delivered to every node.
type PermissionsResult struct {
	RequestCode int
	Permissions []string
	Granted     []bool
}

// Memory trim levels, from least to most severe.
const (
	TrimRunningModerate = 5
	TrimRunningLow      = 10
	TrimRunningCritical = 15
	TrimUIHidden        = 20
	TrimBackground      = 40
	TrimModerate        = 60
	TrimComplete        = 80
)
