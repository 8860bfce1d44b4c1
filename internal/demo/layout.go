package demo

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/component"
)

// Layout describes the tree the CLI builds below a Stack root.
//
//	root = "demo.stack"
//
//	[[node]]
//	id = "clicks"
//	class = "demo.counter"
//	count = 3
//
//	[[node]]
//	id = "title"
//	class = "demo.label"
//	parent = "panel"
//	text = "hello"
type Layout struct {
	Root  component.Class `toml:"root"`
	Nodes []NodeSpec      `toml:"node"`
}

// NodeSpec is one node of a Layout. Parent names an earlier stack node;
// empty means the root.
type NodeSpec struct {
	ID     string          `toml:"id"`
	Class  component.Class `toml:"class"`
	Parent string          `toml:"parent"`
	Count  int             `toml:"count"`
	Text   string          `toml:"text"`
}

// LoadLayout reads and validates a TOML layout file.
func LoadLayout(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	return ParseLayout(b)
}

// ParseLayout decodes and validates a TOML layout.
func ParseLayout(b []byte) (Layout, error) {
	var l Layout
	if err := toml.Unmarshal(b, &l); err != nil {
		return Layout{}, fmt.Errorf("parse layout: %w", err)
	}
	if l.Root == "" {
		l.Root = ClassStack
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate checks that every class is known, ids are unique and every parent
// is a stack declared before its children.
func (l Layout) Validate() error {
	if l.Root != ClassStack {
		return fmt.Errorf("layout root must be %s, got %q", ClassStack, l.Root)
	}
	ctors := Constructors()
	stacks := map[string]bool{"": true}
	seen := make(map[string]bool, len(l.Nodes))
	for i, n := range l.Nodes {
		switch {
		case n.ID == "":
			return fmt.Errorf("node %d: id is required", i)
		case seen[n.ID]:
			return fmt.Errorf("node %q: duplicate id", n.ID)
		case ctors[n.Class] == nil:
			return fmt.Errorf("node %q: unknown class %q", n.ID, n.Class)
		case !stacks[n.Parent]:
			return fmt.Errorf("node %q: parent %q is not an earlier stack", n.ID, n.Parent)
		}
		seen[n.ID] = true
		if n.Class == ClassStack {
			stacks[n.ID] = true
		}
	}
	return nil
}

// Classes returns every class the layout uses, root first.
func (l Layout) Classes() []component.Class {
	out := []component.Class{l.Root}
	for _, n := range l.Nodes {
		out = append(out, n.Class)
	}
	return out
}

func (n NodeSpec) args() *bundle.Bundle {
	b := component.Args(n.ID)
	switch n.Class {
	case ClassCounter:
		b.PutInt(argCount, n.Count)
	case ClassLabel:
		b.PutString(argText, n.Text)
	}
	return b
}

// Build attaches every node of the layout that the tree does not hold yet.
// Nodes restored from a snapshot keep their saved state. It returns how many
// nodes were attached.
func (l Layout) Build(h *component.Host) (int, error) {
	root, ok := h.Root().(*Stack)
	if !ok {
		return 0, fmt.Errorf("layout needs a %s root", ClassStack)
	}
	attached := 0
	for _, n := range l.Nodes {
		if root.FindByID(n.ID, true) != nil {
			continue
		}
		parent := root
		if n.Parent != "" {
			p, ok := root.FindByID(n.Parent, true).(*Stack)
			if !ok {
				return attached, fmt.Errorf("node %q: parent %q is missing", n.ID, n.Parent)
			}
			parent = p
		}
		if _, err := parent.AttachTo(ContentContainer, n.Class, n.args()); err != nil {
			return attached, fmt.Errorf("attach %q: %w", n.ID, err)
		}
		attached++
	}
	return attached, nil
}
