// Package bus provides the per-node event and action bus.
//
// Each Node carries two typed channels. Events travel from a node towards the
// root; actions travel from a node towards the leaves. A subscriber selects
// items by Go type: subscribing to an interface type matches every item that
// implements it.
//
// Observe subscriptions see matching items without affecting propagation.
// Consume subscriptions see them too, and while at least one is active the
// matching items stop at this node instead of being bridged onward. All
// delivery runs on a single lane shared by the whole tree, so every observer
// sees items in emission order.
//
// # Usage
//
//	root := bus.NewNode(l)
//	child := bus.NewNode(l)
//	if err := child.Attach(root); err != nil {
//	    return err
//	}
//
//	sub := bus.ConsumeEvent(root, func(ev Saved) { persist(ev) })
//	defer sub.Cancel()
//
//	child.EmitEvent(Saved{ID: "c1"})
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package bus
