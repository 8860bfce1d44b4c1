package component

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDAllocator hands out ids for synthetic surface handles, such as the
// placeholders inserted during a configuration change.
type IDAllocator interface {
	Next() string
}

// SequenceAllocator allocates prefix-1, prefix-2, ...
type SequenceAllocator struct {
	prefix string
	n      atomic.Uint64
}

// NewSequenceAllocator creates a sequence allocator.
func NewSequenceAllocator(prefix string) *SequenceAllocator {
	return &SequenceAllocator{prefix: prefix}
}

// Next returns the next id in sequence.
func (a *SequenceAllocator) Next() string {
	return a.prefix + "-" + strconv.FormatUint(a.n.Add(1), 10)
}

// UUIDAllocator allocates time-ordered UUIDv7 ids.
type UUIDAllocator struct{}

// Next returns a new UUIDv7 string.
func (UUIDAllocator) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}
