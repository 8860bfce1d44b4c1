package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(hs []Handle) []string {
	out := make([]string, len(hs))
	for i, h := range hs {
		out[i] = h.ID()
	}
	return out
}

func TestMemory_InsertRemove(t *testing.T) {
	m := NewMemory()
	root := m.NewHandle("root")
	a, b, c := m.NewHandle("a"), m.NewHandle("b"), m.NewHandle("c")

	require.NoError(t, m.Insert(root, a, -1))
	require.NoError(t, m.Insert(root, c, -1))
	require.NoError(t, m.Insert(root, b, 1))
	assert.Equal(t, []string{"a", "b", "c"}, ids(m.Children(root)))
	assert.Equal(t, 1, m.IndexOf(root, b))
	assert.Equal(t, root, m.Parent(b))

	assert.ErrorIs(t, m.Insert(root, b, 0), ErrHasParent)

	require.NoError(t, m.Remove(root, b))
	assert.Nil(t, m.Parent(b))
	assert.Equal(t, -1, m.IndexOf(root, b))
	assert.ErrorIs(t, m.Remove(root, b), ErrNotChild)
}

func TestMemory_FindAndContains(t *testing.T) {
	m := NewMemory()
	root := m.NewHandle("root")
	mid := m.NewHandle("")
	leaf := m.NewHandle("leaf")
	other := m.NewHandle("other")
	require.NoError(t, m.Insert(root, mid, -1))
	require.NoError(t, m.Insert(mid, leaf, -1))

	assert.Equal(t, leaf, m.Find(root, "leaf"))
	assert.Equal(t, root, m.Find(root, "root"))
	assert.Nil(t, m.Find(root, "other"))
	assert.Nil(t, m.Find(root, ""))

	assert.True(t, m.Contains(root, leaf))
	assert.True(t, m.Contains(root, root))
	assert.False(t, m.Contains(leaf, root))
	assert.False(t, m.Contains(root, other))
}

func TestMemory_ForeignHandle(t *testing.T) {
	m1, m2 := NewMemory(), NewMemory()
	root := m1.NewHandle("root")
	alien := m2.NewHandle("alien")

	assert.ErrorIs(t, m1.Insert(root, alien, -1), ErrForeign)
	assert.Equal(t, -1, m1.IndexOf(root, alien))
}

func TestMemory_SaveRestoreState(t *testing.T) {
	m := NewMemory()
	root := m.NewHandle("root")
	a := m.NewHandle("a")
	anon := m.NewHandle("")
	require.NoError(t, m.Insert(root, a, -1))
	require.NoError(t, m.Insert(root, anon, -1))
	m.SetState(a, []byte("scroll=40"))
	m.SetState(anon, []byte("lost"))

	saved := m.SaveState(root)
	assert.Equal(t, ViewState{"a": []byte("scroll=40")}, saved)

	m2 := NewMemory()
	root2 := m2.NewHandle("root")
	a2 := m2.NewHandle("a")
	require.NoError(t, m2.Insert(root2, a2, -1))
	m2.RestoreState(root2, saved)
	assert.Equal(t, []byte("scroll=40"), m2.State(a2))
}
