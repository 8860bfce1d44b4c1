// Package component provides the node tree: nodes, groups, the node factory
// and the host that drives them.
//
// A node type embeds *Base (or *Group for nodes with children), overrides the
// hooks it needs and calls through to the embedded hook. Hooks are never
// called directly; the Perform functions check the source state, run the
// hook and check that it reached the target state, so a hook that forgets to
// call through fails with an incomplete lifecycle.Error.
//
// Opening transitions reach a group before its children, closing ones reach
// the children first. Children attached to a started group are raised to its
// level immediately.
//
// # Usage
//
//	type counter struct{ *component.Base }
//
//	component.Register("counter", func(h *component.Host, _ surface.Handle) (component.Node, error) {
//	    return &counter{component.NewBase(h, h.Surface().NewHandle(""))}, nil
//	})
//
//	h := component.NewHost("stack", component.WithLogger(logger))
//	if _, err := h.Create(saved); err != nil {
//	    return err
//	}
//	_ = h.Start()
//	_ = h.Resume()
//	...
//	snap, _ := h.SaveInstanceState()
//
// # Saved state
//
// SaveInstanceState returns a state.Snapshot holding the root bundle, with
// every group's children nested in order, and a map from node id to bundle.
// On restore a group recreates its saved children inside the containers they
// were saved from, and a node whose id appears in the map gets that bundle
// merged into its arguments, so identity wins over position.
//
// # Configuration changes
//
// Nodes built with SurviveConfigChange(false) are saved, detached and
// recreated in place when the configuration changes; the others are only
// notified.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package component
