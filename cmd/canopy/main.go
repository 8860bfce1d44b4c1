package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/canopy/internal/cliconfig"
	"github.com/bft-labs/canopy/pkg/log"
)

const helpDescription = `
Run a tree of lifecycle-managed nodes described by a TOML layout.

Highlights:
  - Nodes are created, started, resumed, paused, stopped and destroyed in order.
  - State is saved on exit and restored on the next run (json, yaml or sqlite).
  - Edits to the watched file are delivered to the tree as configuration changes.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  canopy run --layout ./layout.toml --watch ./device.toml
  canopy run --config $HOME/.canopy/config.toml --once
  canopy inspect --layout ./layout.toml --state-format yaml
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// loadConfig layers the config file, CANOPY_* variables and changed flags
// onto cfg, then validates it.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}

	// env overrides the file, flags override env
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}

	return cfg.Validate()
}

// bindFlags registers the flags shared by every subcommand.
func bindFlags(fs *pflag.FlagSet, cfgPath *string, cfg *cliconfig.Config) {
	fs.StringVar(cfgPath, "config", "", "path to config file (default: $HOME/.canopy/config.toml)")
	fs.StringVar(&cfg.LayoutFile, "layout", cfg.LayoutFile, "TOML layout describing the tree")
	fs.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding saved state (defaults next to the layout)")
	fs.StringVar(&cfg.StateFormat, "state-format", cfg.StateFormat, "saved state format: json, yaml or sqlite")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "canopy",
		Short:         "Run a lifecycle-managed component tree",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindFlags(root.PersistentFlags(), &cfgPath, &cfg)

	root.AddCommand(newRunCmd(&cfgPath, &cfg), newInspectCmd(&cfgPath, &cfg))

	if err := root.Execute(); err != nil {
		var logger log.Logger = cfg.Logger()
		logger.Error("canopy", log.Err(err))
		os.Exit(1)
	}
}
