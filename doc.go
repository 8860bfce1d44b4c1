// Package canopy runs a component tree behind a principal lane.
//
// The tree itself lives in pkg/component. A Runtime owns one component.Host,
// drives it through create, start and resume on Start and back down through
// pause, stop and destroy on Stop, and persists its saved state through a
// state.Repository between runs. Every call into the tree, including those
// made by plugins, goes through Dispatch and runs on the principal lane, so
// the tree is only ever touched from one goroutine.
//
// # Basic Usage
//
//	cfg := canopy.DefaultConfig()
//	cfg.Root = "app.stack"
//
//	rt, err := canopy.New(cfg,
//	    canopy.WithLogger(logger),
//	    canopy.WithRepository(state.NewFileRepository(dir)),
//	    canopy.WithConstructor("app.stack", newStack),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := rt.Start(ctx); err != nil {
//	    return err
//	}
//	defer rt.Stop()
//
//	err = rt.Dispatch(ctx, func(h *component.Host) error {
//	    return h.ConfigurationChanged(component.Configuration{"theme": "dark"})
//	})
//
// # Plugins
//
// Plugins are initialized in registration order once the tree is resumed and
// shut down in reverse order before it is torn down. See plugins/configwatcher.
package canopy
