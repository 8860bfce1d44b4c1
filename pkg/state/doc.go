// Package state persists saved component trees.
//
// A Snapshot holds the two views of a saved tree: a sparse map from node id
// to that node's bundle, and a positional tree of bundles nested in child
// order. Restoration matches nodes by id first, so a node that moved keeps
// its state, and falls back to position for nodes without an id.
//
// # Usage
//
// Create a file-based repository:
//
//	repo := state.NewFileRepository("/path/to/state/dir")
//
//	// Load the last saved snapshot
//	snap, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	if snap.IsEmpty() {
//	    snap = nil
//	}
//
//	// ... run the tree ...
//
//	if err := repo.Save(ctx, host.SaveInstanceState()); err != nil {
//	    return err
//	}
//
// The file format follows the extension given to NewFileRepositoryFormat:
// JSON by default, YAML for FormatYAML. OpenSQLite stores named snapshots in
// a SQLite database instead.
//
// # Version
//
// Current version: 2.0.0
// Minimum compatible version: 2.0.0
//
// See version.go for version constants that can be used programmatically.
package state
