package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bft-labs/canopy/internal/cliconfig"
)

func newInspectCmd(cfgPath *string, cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the saved state as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, *cfgPath, cfg); err != nil {
				return err
			}

			repo, closer, err := openRepository(*cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			snap, err := repo.Load(context.Background())
			if err != nil {
				return err
			}
			if snap.IsEmpty() {
				return fmt.Errorf("no saved state in %s", cfg.StateDir)
			}

			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(snap); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
