package canopy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/canopy/internal/app"
	"github.com/bft-labs/canopy/pkg/action"
	"github.com/bft-labs/canopy/pkg/bus"
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/lane"
	"github.com/bft-labs/canopy/pkg/lifecycle"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/pkg/state"
	"github.com/bft-labs/canopy/pkg/surface"
)

// Runtime runs one component tree. Use New to create one, then Start.
type Runtime struct {
	config   Config
	opts     options
	runState *app.RunState
	emitter  *eventEmitterWrapper
	logger   log.Logger
	plugins  []Plugin

	mu        sync.RWMutex
	host      *component.Host
	principal *lane.Lane
	busLane   *lane.Lane
	cancel    context.CancelFunc
}

// New creates a Runtime in StateStopped.
// Returns an error if the configuration is invalid.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	return &Runtime{
		config:   cfg,
		opts:     o,
		runState: app.NewRunState(o.logger, emitter),
		emitter:  emitter,
		logger:   o.logger,
		plugins:  o.plugins,
	}, nil
}

// Start builds the tree, restoring the saved snapshot if there is one, and
// raises it to Resumed. Plugins are initialized afterwards.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if !r.runState.CanStart() {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := r.runState.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		r.mu.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.principal = lane.New("principal", r.logger)
	r.runState.Track(r.principal.Done())
	r.busLane = r.principal
	if r.opts.dedicatedBus {
		r.busLane = lane.New("bus", r.logger)
		r.runState.Track(r.busLane.Done())
	}
	r.host = r.newHost()
	host, principal := r.host, r.principal
	r.mu.Unlock()

	if err := r.startTree(ctx, host, principal); err != nil {
		err = errors.Join(err, r.teardown(host, principal, false))
		r.crash("tree start failed", err)
		return err
	}

	pluginCfg := PluginConfig{
		Root:    r.config.Root,
		Runtime: r,
		Logger:  r.logger,
	}
	for i, p := range r.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			r.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			r.shutdownPlugins(r.plugins[:i])
			r.crash("plugin init failed: "+p.Name(), r.teardown(host, principal, false))
			return err
		}
		r.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	return r.runState.TransitionTo(app.StateRunning, "tree resumed")
}

func (r *Runtime) newHost() *component.Host {
	hostOpts := []component.HostOption{
		component.WithLogger(r.logger),
		component.WithBusLane(r.busLane),
		component.WithActionCapacity(r.config.ActionCapacity),
		component.WithObserver(r.emitter),
	}
	if r.config.RootArgs != nil {
		hostOpts = append(hostOpts, component.WithRootArgs(r.config.RootArgs))
	}
	if r.opts.surface != nil {
		hostOpts = append(hostOpts, component.WithSurface(r.opts.surface))
	}
	if r.opts.ids != nil {
		hostOpts = append(hostOpts, component.WithIDAllocator(r.opts.ids))
	}
	h := component.NewHost(r.config.Root, hostOpts...)
	for class, ctor := range r.opts.ctors {
		h.Factory().Register(class, ctor)
	}
	return h
}

func (r *Runtime) startTree(ctx context.Context, host *component.Host, principal *lane.Lane) error {
	var saved *state.Snapshot
	if r.opts.repository != nil && !r.config.DiscardState {
		snap, err := r.opts.repository.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if !snap.IsEmpty() && snap.Class != string(r.config.Root) {
			r.logger.Warn("ignoring snapshot of another root",
				log.String("saved", snap.Class),
				log.String("root", string(r.config.Root)))
			snap = nil
		}
		saved = snap
	}

	required := append([]component.Class{r.config.Root}, r.config.Require...)
	return call(ctx, principal, func() error {
		if err := host.Factory().Require(required...); err != nil {
			return err
		}
		if _, err := host.Create(saved); err != nil {
			return err
		}
		if err := host.Start(); err != nil {
			return err
		}
		return host.Resume()
	})
}

// Stop shuts plugins down, lowers and saves the tree, then destroys it.
// Returns ErrShutdownTimeout if the lanes do not drain in time.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	if !r.runState.CanStop() {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if err := r.runState.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		r.mu.Unlock()
		return err
	}
	host, principal := r.host, r.principal
	r.mu.Unlock()

	r.shutdownPlugins(r.plugins)

	err := r.teardown(host, principal, !r.config.DiscardState)
	if err != nil {
		_ = r.runState.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	return r.runState.TransitionTo(app.StateStopped, "graceful shutdown")
}

// teardown lowers, optionally saves, and destroys the tree, then closes the
// lanes and waits for them.
func (r *Runtime) teardown(host *component.Host, principal *lane.Lane, save bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
	defer cancel()

	var snap *state.Snapshot
	treeErr := call(ctx, principal, func() error {
		root := host.Root()
		if root == nil {
			// Create failed; the factory still reports anything left attached.
			return host.Factory().Destroy()
		}
		if lifecycle.IsResumed(root) {
			if err := host.Pause(); err != nil {
				return err
			}
		}
		if lifecycle.IsStarted(root) {
			if err := host.Stop(); err != nil {
				return err
			}
		}
		if save {
			s, err := host.SaveInstanceState()
			if err != nil {
				return err
			}
			snap = s
		}
		return host.Destroy()
	})
	if errors.Is(treeErr, context.DeadlineExceeded) {
		treeErr = ErrShutdownTimeout
	}

	var saveErr error
	if snap != nil && r.opts.repository != nil {
		if saveErr = r.opts.repository.Save(ctx, snap); saveErr != nil {
			saveErr = fmt.Errorf("save snapshot: %w", saveErr)
		}
	}

	r.mu.Lock()
	r.closeLanes()
	if r.cancel != nil {
		r.cancel()
	}
	r.host = nil
	r.mu.Unlock()

	waitErr := r.runState.WaitWithTimeout(r.config.ShutdownTimeout)
	return errors.Join(treeErr, saveErr, waitErr)
}

func (r *Runtime) closeLanes() {
	r.principal.Close()
	if r.busLane != r.principal {
		r.busLane.Close()
	}
}

func (r *Runtime) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			continue
		}
		r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

func (r *Runtime) crash(reason string, err error) {
	if err != nil {
		r.logger.Error("runtime crashed", log.String("reason", reason), log.Err(err))
	}
	r.mu.Lock()
	if r.host != nil {
		r.closeLanes()
		r.cancel()
		r.host = nil
	}
	r.mu.Unlock()
	_ = r.runState.TransitionTo(app.StateCrashed, reason)
}

// Status returns the current run state.
// Safe to call concurrently from any goroutine.
func (r *Runtime) Status() State {
	return convertState(r.runState.State())
}

// Dispatch runs fn on the principal lane and returns its error. Unless
// WithDedicatedBusLane is set, bus deliveries share that lane, so fn never
// races a bus handler. It must not
// be called from a func that is itself running on the principal lane.
func (r *Runtime) Dispatch(ctx context.Context, fn func(h *component.Host) error) error {
	r.mu.RLock()
	host, principal := r.host, r.principal
	r.mu.RUnlock()
	if host == nil || !r.runState.CanStop() {
		return ErrNotRunning
	}
	return call(ctx, principal, func() error { return fn(host) })
}

// call runs fn on l and waits for it or ctx.
func call(ctx context.Context, l *lane.Lane, fn func() error) error {
	errc := make(chan error, 1)
	if !l.Post(func() { errc <- fn() }) {
		return ErrNotRunning
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfigurationChanged applies cfg to the tree.
func (r *Runtime) ConfigurationChanged(ctx context.Context, cfg component.Configuration) error {
	return r.Dispatch(ctx, func(h *component.Host) error {
		return h.ConfigurationChanged(cfg)
	})
}

// BackPressed offers a back press to the tree.
func (r *Runtime) BackPressed(ctx context.Context) (bool, error) {
	var handled bool
	err := r.Dispatch(ctx, func(h *component.Host) error {
		var err error
		handled, err = h.BackPressed()
		return err
	})
	return handled, err
}

// TrimMemory delivers a memory trim level to the tree.
func (r *Runtime) TrimMemory(ctx context.Context, level int) error {
	return r.Dispatch(ctx, func(h *component.Host) error {
		return h.TrimMemory(level)
	})
}

// Snapshot saves the tree's state without persisting it.
func (r *Runtime) Snapshot(ctx context.Context) (*state.Snapshot, error) {
	var snap *state.Snapshot
	err := r.Dispatch(ctx, func(h *component.Host) error {
		var err error
		snap, err = h.SaveInstanceState()
		return err
	})
	return snap, err
}

// Save snapshots the tree and writes it to the repository.
func (r *Runtime) Save(ctx context.Context) error {
	if r.opts.repository == nil {
		return fmt.Errorf("%w: no repository configured", ErrInvalidConfig)
	}
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return err
	}
	return r.opts.repository.Save(ctx, snap)
}

// validateModuleVersions checks that all module versions are compatible.
// Returns an error if any module version is below its minimum compatible version.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"action":    {action.Version, action.MinCompatibleVersion},
		"bus":       {bus.Version, bus.MinCompatibleVersion},
		"component": {component.Version, component.MinCompatibleVersion},
		"lane":      {lane.Version, lane.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
		"state":     {state.Version, state.MinCompatibleVersion},
		"surface":   {surface.Version, surface.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion using semantic versioning.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
