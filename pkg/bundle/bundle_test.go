package bundle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sample() *Bundle {
	child := New()
	child.PutString("label", "inner")

	b := New()
	b.PutInt("count", 14)
	b.PutFloat("ratio", 3)
	b.PutBool("visible", true)
	b.PutString("name", "counter")
	b.PutBundle("child", child)
	b.PutBundles("items", []*Bundle{child.Clone(), New()})
	b.PutBlob("view", []byte{0, 1, 2, 255})
	return b
}

func TestBundle_KeepsInsertionOrder(t *testing.T) {
	b := New()
	b.PutInt("b", 1)
	b.PutInt("a", 2)
	b.PutInt("b", 3)

	assert.Equal(t, []string{"b", "a"}, b.Keys())
	v, ok := b.Int("b")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	b.Remove("b")
	assert.Equal(t, []string{"a"}, b.Keys())
	assert.False(t, b.Has("b"))
}

func TestBundle_TypedAccessRejectsWrongKind(t *testing.T) {
	b := New()
	b.PutString("x", "7")

	_, ok := b.Int("x")
	assert.False(t, ok)
	_, ok = b.Bundle("x")
	assert.False(t, ok)

	kind, ok := b.Kind("x")
	require.True(t, ok)
	assert.Equal(t, KindString, kind)
}

func TestBundle_CloneIsDeep(t *testing.T) {
	b := sample()
	c := b.Clone()
	require.True(t, b.Equal(c))

	child, _ := c.Bundle("child")
	child.PutString("label", "changed")
	blob, _ := c.Blob("view")
	blob[0] = 9

	orig, _ := b.Bundle("child")
	label, _ := orig.String("label")
	assert.Equal(t, "inner", label)
	origBlob, _ := b.Blob("view")
	assert.Equal(t, byte(0), origBlob[0])
	assert.False(t, b.Equal(c))
}

func TestBundle_Merge(t *testing.T) {
	b := New()
	b.PutInt("a", 1)
	b.PutInt("b", 2)

	other := New()
	other.PutInt("b", 20)
	other.PutString("c", "x")

	b.Merge(other)
	b.Merge(nil)

	assert.Equal(t, []string{"a", "b", "c"}, b.Keys())
	v, _ := b.Int("b")
	assert.Equal(t, 20, v)
}

func TestBundle_JSONPreservesKinds(t *testing.T) {
	b := sample()
	data, err := json.Marshal(b)
	require.NoError(t, err)

	got := New()
	require.NoError(t, json.Unmarshal(data, got))
	assert.True(t, b.Equal(got), "decoded bundle differs: %s", data)

	kind, _ := got.Kind("ratio")
	assert.Equal(t, KindFloat, kind)
}

func TestBundle_YAMLPreservesKinds(t *testing.T) {
	b := sample()
	data, err := yaml.Marshal(b)
	require.NoError(t, err)

	got := New()
	require.NoError(t, yaml.Unmarshal(data, got))
	assert.True(t, b.Equal(got), "decoded bundle differs:\n%s", data)
}

func TestBundle_UnknownKind(t *testing.T) {
	err := json.Unmarshal([]byte(`[{"k":"x","t":"complex","v":1}]`), New())
	assert.Error(t, err)
}
