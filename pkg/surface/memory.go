package surface

// Memory is an in-process Surface.
// It is not safe for concurrent use; the runtime drives it from one lane.
type Memory struct {
	nodes map[*memHandle]struct{}
}

type memHandle struct {
	id       string
	parent   *memHandle
	children []*memHandle
	state    []byte
}

func (h *memHandle) ID() string { return h.id }

// NewMemory returns an empty in-memory surface.
func NewMemory() *Memory {
	return &Memory{nodes: make(map[*memHandle]struct{})}
}

// NewHandle creates a detached handle.
func (m *Memory) NewHandle(id string) Handle {
	h := &memHandle{id: id}
	m.nodes[h] = struct{}{}
	return h
}

func (m *Memory) own(h Handle) (*memHandle, bool) {
	mh, ok := h.(*memHandle)
	if !ok {
		return nil, false
	}
	_, ok = m.nodes[mh]
	return mh, ok
}

// Parent returns the parent of h, or nil.
func (m *Memory) Parent(h Handle) Handle {
	mh, ok := m.own(h)
	if !ok || mh.parent == nil {
		return nil
	}
	return mh.parent
}

// Insert places child under parent at index.
func (m *Memory) Insert(parent, child Handle, index int) error {
	p, ok := m.own(parent)
	if !ok {
		return ErrForeign
	}
	c, ok := m.own(child)
	if !ok {
		return ErrForeign
	}
	if c.parent != nil {
		return ErrHasParent
	}
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = append(p.children, nil)
	copy(p.children[index+1:], p.children[index:])
	p.children[index] = c
	c.parent = p
	return nil
}

// Remove detaches child from parent.
func (m *Memory) Remove(parent, child Handle) error {
	p, ok := m.own(parent)
	if !ok {
		return ErrForeign
	}
	c, ok := m.own(child)
	if !ok {
		return ErrForeign
	}
	i := indexOf(p, c)
	if i < 0 {
		return ErrNotChild
	}
	p.children = append(p.children[:i], p.children[i+1:]...)
	c.parent = nil
	return nil
}

// IndexOf returns the position of child under parent, or -1.
func (m *Memory) IndexOf(parent, child Handle) int {
	p, ok := m.own(parent)
	if !ok {
		return -1
	}
	c, ok := m.own(child)
	if !ok {
		return -1
	}
	return indexOf(p, c)
}

func indexOf(p, c *memHandle) int {
	for i, h := range p.children {
		if h == c {
			return i
		}
	}
	return -1
}

// Children returns the direct children of h in order.
func (m *Memory) Children(h Handle) []Handle {
	mh, ok := m.own(h)
	if !ok {
		return nil
	}
	out := make([]Handle, len(mh.children))
	for i, c := range mh.children {
		out[i] = c
	}
	return out
}

// Find returns the first handle with id under root, root included.
func (m *Memory) Find(root Handle, id string) Handle {
	r, ok := m.own(root)
	if !ok || id == "" {
		return nil
	}
	if found := find(r, id); found != nil {
		return found
	}
	return nil
}

func find(h *memHandle, id string) *memHandle {
	if h.id == id {
		return h
	}
	for _, c := range h.children {
		if found := find(c, id); found != nil {
			return found
		}
	}
	return nil
}

// Contains reports whether descendant is root or lies under it.
func (m *Memory) Contains(root, descendant Handle) bool {
	r, ok := m.own(root)
	if !ok {
		return false
	}
	d, ok := m.own(descendant)
	if !ok {
		return false
	}
	for h := d; h != nil; h = h.parent {
		if h == r {
			return true
		}
	}
	return false
}

// SetState sets the opaque state of h.
func (m *Memory) SetState(h Handle, state []byte) {
	if mh, ok := m.own(h); ok {
		mh.state = append([]byte(nil), state...)
	}
}

// State returns the opaque state of h.
func (m *Memory) State(h Handle) []byte {
	if mh, ok := m.own(h); ok {
		return mh.state
	}
	return nil
}

// SaveState collects the state of every identified handle under root.
func (m *Memory) SaveState(root Handle) ViewState {
	out := ViewState{}
	r, ok := m.own(root)
	if !ok {
		return out
	}
	var walk func(h *memHandle)
	walk = func(h *memHandle) {
		if h.id != "" && h.state != nil {
			out[h.id] = append([]byte(nil), h.state...)
		}
		for _, c := range h.children {
			walk(c)
		}
	}
	walk(r)
	return out
}

// RestoreState applies saved state to identified handles under root.
func (m *Memory) RestoreState(root Handle, state ViewState) {
	r, ok := m.own(root)
	if !ok || len(state) == 0 {
		return
	}
	var walk func(h *memHandle)
	walk = func(h *memHandle) {
		if s, ok := state[h.id]; ok && h.id != "" {
			h.state = append([]byte(nil), s...)
		}
		for _, c := range h.children {
			walk(c)
		}
	}
	walk(r)
}
