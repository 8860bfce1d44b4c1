package bundle

import (
	"bytes"
	"slices"
)

// Kind names the type of a stored value.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindString Kind = "string"
	KindBundle Kind = "bundle"
	KindList   Kind = "list"
	KindBlob   Kind = "blob"
)

type value struct {
	kind Kind
	v    any
}

// Bundle is an ordered typed key-value store.
// The zero value is not usable; call New.
type Bundle struct {
	keys []string
	vals map[string]value
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{vals: make(map[string]value)}
}

// Len returns the number of entries.
func (b *Bundle) Len() int { return len(b.keys) }

// Keys returns the keys in insertion order.
func (b *Bundle) Keys() []string { return slices.Clone(b.keys) }

// Has reports whether key is present.
func (b *Bundle) Has(key string) bool {
	_, ok := b.vals[key]
	return ok
}

// Kind returns the kind stored under key.
func (b *Bundle) Kind(key string) (Kind, bool) {
	v, ok := b.vals[key]
	return v.kind, ok
}

// Remove deletes key. It is a no-op if key is absent.
func (b *Bundle) Remove(key string) {
	if _, ok := b.vals[key]; !ok {
		return
	}
	delete(b.vals, key)
	b.keys = slices.DeleteFunc(b.keys, func(k string) bool { return k == key })
}

func (b *Bundle) put(key string, kind Kind, v any) {
	if _, ok := b.vals[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = value{kind: kind, v: v}
}

func (b *Bundle) get(key string, kind Kind) (any, bool) {
	v, ok := b.vals[key]
	if !ok || v.kind != kind {
		return nil, false
	}
	return v.v, true
}

// PutInt stores an int.
func (b *Bundle) PutInt(key string, v int) { b.put(key, KindInt, v) }

// PutFloat stores a float64.
func (b *Bundle) PutFloat(key string, v float64) { b.put(key, KindFloat, v) }

// PutBool stores a bool.
func (b *Bundle) PutBool(key string, v bool) { b.put(key, KindBool, v) }

// PutString stores a string.
func (b *Bundle) PutString(key string, v string) { b.put(key, KindString, v) }

// PutBundle stores a nested bundle. A nil bundle is stored as an empty one.
func (b *Bundle) PutBundle(key string, v *Bundle) {
	if v == nil {
		v = New()
	}
	b.put(key, KindBundle, v)
}

// PutBundles stores an ordered list of bundles.
func (b *Bundle) PutBundles(key string, v []*Bundle) {
	list := make([]*Bundle, len(v))
	for i, item := range v {
		if item == nil {
			item = New()
		}
		list[i] = item
	}
	b.put(key, KindList, list)
}

// PutBlob stores an opaque byte slice. The slice is copied.
func (b *Bundle) PutBlob(key string, v []byte) { b.put(key, KindBlob, bytes.Clone(v)) }

// Int returns the int stored under key.
func (b *Bundle) Int(key string) (int, bool) {
	v, ok := b.get(key, KindInt)
	if !ok {
		return 0, false
	}
	return v.(int), true
}

// Float returns the float64 stored under key.
func (b *Bundle) Float(key string) (float64, bool) {
	v, ok := b.get(key, KindFloat)
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

// Bool returns the bool stored under key.
func (b *Bundle) Bool(key string) (bool, bool) {
	v, ok := b.get(key, KindBool)
	if !ok {
		return false, false
	}
	return v.(bool), true
}

// String returns the string stored under key.
func (b *Bundle) String(key string) (string, bool) {
	v, ok := b.get(key, KindString)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Bundle returns the nested bundle stored under key.
func (b *Bundle) Bundle(key string) (*Bundle, bool) {
	v, ok := b.get(key, KindBundle)
	if !ok {
		return nil, false
	}
	return v.(*Bundle), true
}

// Bundles returns the bundle list stored under key.
func (b *Bundle) Bundles(key string) ([]*Bundle, bool) {
	v, ok := b.get(key, KindList)
	if !ok {
		return nil, false
	}
	return v.([]*Bundle), true
}

// Blob returns the byte slice stored under key.
func (b *Bundle) Blob(key string) ([]byte, bool) {
	v, ok := b.get(key, KindBlob)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// Merge copies every entry of other into b, overwriting existing keys.
// Values are cloned.
func (b *Bundle) Merge(other *Bundle) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		v := other.vals[k]
		b.put(k, v.kind, cloneValue(v))
	}
}

// Clone returns a deep copy of b.
func (b *Bundle) Clone() *Bundle {
	if b == nil {
		return nil
	}
	c := New()
	c.Merge(b)
	return c
}

// Equal reports whether both bundles hold the same entries in the same order.
func (b *Bundle) Equal(other *Bundle) bool {
	if b == nil || other == nil {
		return b == other
	}
	if !slices.Equal(b.keys, other.keys) {
		return false
	}
	for _, k := range b.keys {
		x, y := b.vals[k], other.vals[k]
		if x.kind != y.kind {
			return false
		}
		switch x.kind {
		case KindBundle:
			if !x.v.(*Bundle).Equal(y.v.(*Bundle)) {
				return false
			}
		case KindList:
			if !slices.EqualFunc(x.v.([]*Bundle), y.v.([]*Bundle), (*Bundle).Equal) {
				return false
			}
		case KindBlob:
			if !bytes.Equal(x.v.([]byte), y.v.([]byte)) {
				return false
			}
		default:
			if x.v != y.v {
				return false
			}
		}
	}
	return true
}

func cloneValue(v value) any {
	switch v.kind {
	case KindBundle:
		return v.v.(*Bundle).Clone()
	case KindList:
		src := v.v.([]*Bundle)
		list := make([]*Bundle, len(src))
		for i, item := range src {
			list[i] = item.Clone()
		}
		return list
	case KindBlob:
		return bytes.Clone(v.v.([]byte))
	default:
		return v.v
	}
}
