package component

import (
	"time"

	"github.com/bft-labs/canopy/pkg/state"
)

// SaveWholeState snapshots n and its subtree: the positional tree, every
// identified node by id, and the surface state under n's handle.
func SaveWholeState(n Node) *state.Snapshot {
	snap := state.NewSnapshot(string(n.Class()))
	snap.Tree = n.SaveHierarchyState(snap.IDs)
	snap.View = n.Host().surface.SaveState(n.Handle())
	snap.SavedAt = time.Now().UTC()
	return snap
}
