// Package bundle implements the ordered typed key-value store that nodes use
// for their arguments and saved state.
//
// A Bundle keeps insertion order and remembers the kind of every value, so a
// bundle written as JSON or YAML reads back with the same kinds: an int stays
// an int even when a generic decoder would have produced a float.
//
// # Usage
//
//	b := bundle.New()
//	b.PutInt("count", 14)
//	b.PutBundle("child", bundle.New())
//
//	n, ok := b.Int("count")
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package bundle
