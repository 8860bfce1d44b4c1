package component

import (
	"errors"

	"github.com/bft-labs/canopy/pkg/bundle"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
)

// assertTransition runs fn only from the from state and checks that it left
// the node in the to state.
func assertTransition(n Node, op string, from, to lifecycle.State, fn func() error) error {
	if got := n.State(); got != from {
		return &lifecycle.Error{Op: op, Want: from, Got: got}
	}
	id := n.ID()
	if err := fn(); err != nil {
		return err
	}
	if got := n.State(); got != to {
		return &lifecycle.Error{Op: op, Want: to, Got: got, Incomplete: true}
	}
	n.core().logger.Debug("lifecycle transition",
		log.String("node", id),
		log.Stringer("from", from),
		log.Stringer("to", to),
		log.String("op", op),
	)
	return nil
}

// PerformAttach binds args to n and starts its action queue. A node that
// entered Attached before the hook failed is detached again, so it can be
// recycled.
func PerformAttach(n Node, args *bundle.Bundle) error {
	from := n.State()
	err := assertTransition(n, "attach", lifecycle.Alive, lifecycle.Attached, func() error {
		if err := n.OnAttach(args); err != nil {
			return err
		}
		return n.core().actions.Start()
	})
	if err != nil && from == lifecycle.Alive && lifecycle.IsAttached(n) {
		return errors.Join(err, unwindAttach(n))
	}
	return err
}

// unwindAttach brings a partly attached node back to Alive.
func unwindAttach(n Node) error {
	id := n.ID()
	if err := lower(n); err != nil {
		return err
	}
	if q := n.core().actions; q.Active() {
		if err := q.Stop(); err != nil {
			return err
		}
	}
	if err := n.OnDetach(); err != nil {
		return err
	}
	if got := n.State(); got != lifecycle.Alive {
		return &lifecycle.Error{Op: "detach", Want: lifecycle.Alive, Got: got, Incomplete: true}
	}
	n.core().logger.Debug("attach rolled back", log.String("node", id))
	return nil
}

// PerformStart moves n from Attached to Started.
func PerformStart(n Node) error {
	return assertTransition(n, "start", lifecycle.Attached, lifecycle.Started, n.OnStart)
}

// PerformResume moves n from Started to Resumed.
func PerformResume(n Node) error {
	return assertTransition(n, "resume", lifecycle.Started, lifecycle.Resumed, n.OnResume)
}

// PerformPause moves n from Resumed to Started.
func PerformPause(n Node) error {
	return assertTransition(n, "pause", lifecycle.Resumed, lifecycle.Started, n.OnPause)
}

// PerformStop moves n from Started to Attached.
func PerformStop(n Node) error {
	return assertTransition(n, "stop", lifecycle.Started, lifecycle.Attached, n.OnStop)
}

// PerformDetach stops n's action queue and unbinds its arguments. The active
// operation fails with action.ErrPrematureTermination and pending ones with
// action.ErrCannotExecute. If the hook fails and n stays attached, the
// queue is started again.
func PerformDetach(n Node) error {
	return assertTransition(n, "detach", lifecycle.Attached, lifecycle.Alive, func() error {
		q := n.core().actions
		if err := q.Stop(); err != nil {
			return err
		}
		err := n.OnDetach()
		if err != nil && lifecycle.IsAttached(n) && !q.Active() {
			return errors.Join(err, q.Start())
		}
		return err
	})
}

// PerformDestroy destroys a detached node.
func PerformDestroy(n Node) error {
	return assertTransition(n, "destroy", lifecycle.Alive, lifecycle.Destroyed, n.OnDestroy)
}

// lift raises n to level, one step at a time.
func lift(n Node, level lifecycle.State) error {
	if level >= lifecycle.Started && n.State() == lifecycle.Attached {
		if err := PerformStart(n); err != nil {
			return err
		}
	}
	if level >= lifecycle.Resumed && n.State() == lifecycle.Started {
		if err := PerformResume(n); err != nil {
			return err
		}
	}
	return nil
}

// lower brings n down to Attached.
func lower(n Node) error {
	if n.State() == lifecycle.Resumed {
		if err := PerformPause(n); err != nil {
			return err
		}
	}
	if n.State() == lifecycle.Started {
		if err := PerformStop(n); err != nil {
			return err
		}
	}
	return nil
}
