package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/canopy"
	"github.com/bft-labs/canopy/internal/cliconfig"
	"github.com/bft-labs/canopy/internal/demo"
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/log"
	"github.com/bft-labs/canopy/plugins/configwatcher"
)

// transitionLogger logs every node transition at debug.
type transitionLogger struct {
	canopy.BaseEventHandler
	logger log.Logger
}

func (t transitionLogger) OnNodeTransition(e canopy.NodeTransitionEvent) {
	t.logger.Debug("node transition",
		log.String("node", e.ID),
		log.String("class", string(e.Class)),
		log.Stringer("from", e.From),
		log.Stringer("to", e.To),
		log.Stringer("event", e.Event),
	)
}

func newRunCmd(cfgPath *string, cfg *cliconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the layout, restore saved state and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}
			return run(*cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.WatchFile, "watch", cfg.WatchFile, "TOML file delivered to the tree as its configuration")
	cmd.Flags().IntVar(&cfg.ActionCapacity, "action-capacity", cfg.ActionCapacity, "pending operations allowed per node")
	cmd.Flags().StringVar(&cfg.IDScheme, "id-scheme", cfg.IDScheme, "synthetic surface ids: sequence or uuid")
	cmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "how long shutdown may take")
	cmd.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "build, save and exit")
	cmd.Flags().BoolVar(&cfg.Fresh, "fresh", cfg.Fresh, "ignore and overwrite saved state")
	return cmd
}

func run(cfg cliconfig.Config) error {
	logger := cfg.Logger()
	logger.Info("configuration",
		log.String("layout", cfg.LayoutFile),
		log.String("state_dir", cfg.StateDir),
		log.String("state_format", cfg.StateFormat),
		log.String("watch", cfg.WatchFile),
		log.Bool("once", cfg.Once),
	)

	layout, err := demo.LoadLayout(cfg.LayoutFile)
	if err != nil {
		return err
	}

	repo, closer, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	var ids component.IDAllocator = component.NewSequenceAllocator("node")
	if cfg.IDScheme == cliconfig.IDSchemeUUID {
		ids = component.UUIDAllocator{}
	}

	opts := []canopy.Option{
		canopy.WithLogger(logger),
		canopy.WithRepository(repo),
		canopy.WithIDAllocator(ids),
		canopy.WithEventHandler(transitionLogger{logger: logger}),
	}
	for class, ctor := range demo.Constructors() {
		opts = append(opts, canopy.WithConstructor(class, ctor))
	}
	if cfg.WatchFile != "" {
		wc := configwatcher.DefaultConfig()
		wc.Path = cfg.WatchFile
		wc.ApplyInitial = true
		opts = append(opts, configwatcher.WithConfigWatcher(wc))
	}

	rt, err := canopy.New(canopy.Config{
		Root:            layout.Root,
		Require:         layout.Classes(),
		ActionCapacity:  cfg.ActionCapacity,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DiscardState:    cfg.Fresh,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}

	var attached int
	err = rt.Dispatch(ctx, func(h *component.Host) error {
		var err error
		attached, err = layout.Build(h)
		return err
	})
	if err != nil {
		return errors.Join(fmt.Errorf("build layout: %w", err), rt.Stop())
	}
	logger.Info("tree ready", log.Int("attached", attached), log.Int("declared", len(layout.Nodes)))

	for !cfg.Once {
		sig := <-sigCh
		if sig != syscall.SIGHUP {
			logger.Info("received signal, stopping...", log.Stringer("signal", sig))
			break
		}
		if err := rt.Save(ctx); err != nil {
			logger.Error("save failed", log.Err(err))
			continue
		}
		logger.Info("state saved")
	}

	if err := rt.Stop(); err != nil {
		return fmt.Errorf("stop runtime: %w", err)
	}
	return nil
}
