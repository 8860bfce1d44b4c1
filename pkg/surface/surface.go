package surface

import "errors"

// Errors returned by Surface implementations.
var (
	ErrHasParent = errors.New("canopy: surface handle already has a parent")
	ErrNotChild  = errors.New("canopy: surface handle is not a child of parent")
	ErrForeign   = errors.New("canopy: surface handle belongs to another surface")
)

// Handle is an opaque reference to a placement on the surface.
// An empty ID means the handle has no stable identity.
type Handle interface {
	ID() string
}

// ViewState is opaque per-handle state keyed by handle id.
type ViewState map[string][]byte

// Surface is the rendering collaborator consumed by the component tree.
type Surface interface {
	// NewHandle creates a detached handle. id may be empty.
	NewHandle(id string) Handle

	// Parent returns the parent of h, or nil.
	Parent(h Handle) Handle

	// Insert places child under parent at index. A negative index appends.
	Insert(parent, child Handle, index int) error

	// Remove detaches child from parent.
	Remove(parent, child Handle) error

	// IndexOf returns the position of child under parent, or -1.
	IndexOf(parent, child Handle) int

	// Children returns the direct children of h in order.
	Children(h Handle) []Handle

	// Find returns the first handle with id in the subtree rooted at root,
	// root included, searching depth-first in child order.
	Find(root Handle, id string) Handle

	// Contains reports whether descendant is root or lies under it.
	Contains(root, descendant Handle) bool

	// SaveState collects the state of every identified handle under root.
	SaveState(root Handle) ViewState

	// RestoreState applies saved state to identified handles under root.
	RestoreState(root Handle, state ViewState)
}
