package bundle

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type jsonEntry struct {
	Key   string          `json:"k"`
	Kind  Kind            `json:"t"`
	Value json.RawMessage `json:"v"`
}

// MarshalJSON encodes the bundle as an ordered list of typed entries.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	entries := make([]jsonEntry, 0, len(b.keys))
	for _, k := range b.keys {
		v := b.vals[k]
		raw, err := json.Marshal(v.v)
		if err != nil {
			return nil, fmt.Errorf("bundle: encode %q: %w", k, err)
		}
		entries = append(entries, jsonEntry{Key: k, Kind: v.kind, Value: raw})
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes a bundle written by MarshalJSON.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	var entries []jsonEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*b = *New()
	for _, e := range entries {
		v, err := decodeJSONValue(e.Kind, e.Value)
		if err != nil {
			return fmt.Errorf("bundle: decode %q: %w", e.Key, err)
		}
		b.put(e.Key, e.Kind, v)
	}
	return nil
}

func decodeJSONValue(kind Kind, raw json.RawMessage) (any, error) {
	switch kind {
	case KindInt:
		var v int
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindFloat:
		var v float64
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindBool:
		var v bool
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindString:
		var v string
		err := json.Unmarshal(raw, &v)
		return v, err
	case KindBundle:
		v := New()
		err := json.Unmarshal(raw, v)
		return v, err
	case KindList:
		var v []*Bundle
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		for i := range v {
			if v[i] == nil {
				v[i] = New()
			}
		}
		return v, nil
	case KindBlob:
		var v []byte
		err := json.Unmarshal(raw, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

type yamlEntry struct {
	Key   string `yaml:"k"`
	Kind  Kind   `yaml:"t"`
	Value any    `yaml:"v"`
}

type yamlRawEntry struct {
	Key   string    `yaml:"k"`
	Kind  Kind      `yaml:"t"`
	Value yaml.Node `yaml:"v"`
}

// MarshalYAML encodes the bundle as an ordered sequence of typed entries.
// Blobs are written as base64 strings.
func (b *Bundle) MarshalYAML() (interface{}, error) {
	entries := make([]yamlEntry, 0, len(b.keys))
	for _, k := range b.keys {
		v := b.vals[k]
		out := v.v
		if v.kind == KindBlob {
			out = base64.StdEncoding.EncodeToString(v.v.([]byte))
		}
		entries = append(entries, yamlEntry{Key: k, Kind: v.kind, Value: out})
	}
	return entries, nil
}

// UnmarshalYAML decodes a bundle written by MarshalYAML.
func (b *Bundle) UnmarshalYAML(node *yaml.Node) error {
	var entries []yamlRawEntry
	if err := node.Decode(&entries); err != nil {
		return err
	}
	*b = *New()
	for _, e := range entries {
		v, err := decodeYAMLValue(e.Kind, &e.Value)
		if err != nil {
			return fmt.Errorf("bundle: decode %q: %w", e.Key, err)
		}
		b.put(e.Key, e.Kind, v)
	}
	return nil
}

func decodeYAMLValue(kind Kind, node *yaml.Node) (any, error) {
	switch kind {
	case KindInt:
		var v int
		err := node.Decode(&v)
		return v, err
	case KindFloat:
		var v float64
		err := node.Decode(&v)
		return v, err
	case KindBool:
		var v bool
		err := node.Decode(&v)
		return v, err
	case KindString:
		var v string
		err := node.Decode(&v)
		return v, err
	case KindBundle:
		v := New()
		err := node.Decode(v)
		return v, err
	case KindList:
		var v []*Bundle
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		for i := range v {
			if v[i] == nil {
				v[i] = New()
			}
		}
		return v, nil
	case KindBlob:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, err
		}
		return base64.StdEncoding.DecodeString(s)
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}
