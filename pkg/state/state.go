package state

import (
	"maps"
	"time"

	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Snapshot is the saved state of a component tree.
type Snapshot struct {
	// Class is the class of the root node.
	Class string `json:"class" yaml:"class"`

	// SavedAt is when the snapshot was taken.
	SavedAt time.Time `json:"saved_at" yaml:"saved_at"`

	// IDs maps node ids to their saved bundles.
	IDs map[string]*bundle.Bundle `json:"ids" yaml:"ids"`

	// Tree is the root bundle with children nested in order.
	Tree *bundle.Bundle `json:"tree" yaml:"tree"`

	// View is the opaque surface state keyed by handle id.
	View surface.ViewState `json:"view,omitempty" yaml:"view,omitempty"`
}

// NewSnapshot returns an empty snapshot for a root of the given class.
func NewSnapshot(class string) *Snapshot {
	return &Snapshot{
		Class: class,
		IDs:   make(map[string]*bundle.Bundle),
	}
}

// IsEmpty returns true if the snapshot holds no tree.
func (s *Snapshot) IsEmpty() bool {
	return s == nil || s.Tree == nil
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := &Snapshot{
		Class:   s.Class,
		SavedAt: s.SavedAt,
		IDs:     make(map[string]*bundle.Bundle, len(s.IDs)),
		Tree:    s.Tree.Clone(),
	}
	for id, b := range s.IDs {
		c.IDs[id] = b.Clone()
	}
	if s.View != nil {
		c.View = make(surface.ViewState, len(s.View))
		for k, v := range s.View {
			c.View[k] = append([]byte(nil), v...)
		}
	}
	return c
}

// Lookup returns the bundle saved under id.
func (s *Snapshot) Lookup(id string) (*bundle.Bundle, bool) {
	if s == nil || id == "" {
		return nil, false
	}
	b, ok := s.IDs[id]
	return b, ok
}

// Record stores b under id, replacing any earlier entry.
func (s *Snapshot) Record(id string, b *bundle.Bundle) {
	if id == "" {
		return
	}
	if s.IDs == nil {
		s.IDs = make(map[string]*bundle.Bundle)
	}
	s.IDs[id] = b
}

// Merge copies the id entries of other into s.
func (s *Snapshot) Merge(other *Snapshot) {
	if other == nil {
		return
	}
	if s.IDs == nil {
		s.IDs = make(map[string]*bundle.Bundle, len(other.IDs))
	}
	maps.Copy(s.IDs, other.IDs)
}
