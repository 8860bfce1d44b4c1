// Package surface defines the rendering-surface collaborator.
//
// Nodes own an opaque Handle on an external visual surface. The core never
// measures, lays out or draws; it only inserts and removes handles under a
// parent at an index, asks about ancestry, and saves and restores opaque
// per-handle state keyed by id. Memory is a complete in-process Surface used
// by tests and the CLI.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package surface
