package component

import "github.com/bft-labs/canopy/pkg/bundle"

// Reserved argument keys.
const (
	KeyID       = "canopy:id"
	KeyRestored = "canopy:restored"
	KeyChildren = "canopy:children"
)

// Keys of a saved child entry.
const (
	parcelClass     = "class"
	parcelState     = "state"
	parcelContainer = "container"
)

// Args returns a new argument bundle carrying id. An empty id is omitted.
func Args(id string) *bundle.Bundle {
	b := bundle.New()
	if id != "" {
		b.PutString(KeyID, id)
	}
	return b
}

// IDOf returns the node id stored in args.
func IDOf(args *bundle.Bundle) string {
	if args == nil {
		return ""
	}
	id, _ := args.String(KeyID)
	return id
}

// IsRestored reports whether args were produced by a saved state.
func IsRestored(args *bundle.Bundle) bool {
	if args == nil {
		return false
	}
	v, _ := args.Bool(KeyRestored)
	return v
}
