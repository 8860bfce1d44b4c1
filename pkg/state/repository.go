package state

import "context"

// Repository handles snapshot persistence.
type Repository interface {
	// Load retrieves the last saved snapshot.
	// Returns an empty snapshot and nil error if none exists.
	// Returns an error only for actual read failures.
	Load(ctx context.Context) (*Snapshot, error)

	// Save persists the snapshot atomically.
	Save(ctx context.Context, snap *Snapshot) error
}
