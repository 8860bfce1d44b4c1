package component

import (
	"errors"
	"fmt"

	"github.com/bft-labs/canopy/pkg/lifecycle"
)

var (
	// ErrConstructorNotFound is returned when no constructor is known for a class.
	ErrConstructorNotFound = errors.New("canopy: constructor not found")

	// ErrLeak marks nodes that were still attached when their factory was destroyed.
	ErrLeak = fmt.Errorf("%w: attached node leaked", lifecycle.ErrLifecycle)

	// ErrNotCreated is returned by Host calls made before Create or after Destroy.
	ErrNotCreated = fmt.Errorf("%w: host is destroyed or not created", lifecycle.ErrLifecycle)
)
