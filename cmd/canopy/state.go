package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bft-labs/canopy/internal/cliconfig"
	"github.com/bft-labs/canopy/pkg/state"
)

const sqliteFile = "canopy.db"

// openRepository returns the repository for cfg and a closer for it.
func openRepository(cfg cliconfig.Config) (state.Repository, io.Closer, error) {
	if cfg.StateFormat == cliconfig.StateFormatSQLite {
		if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("create state dir: %w", err)
		}
		repo, err := state.OpenSQLite(filepath.Join(cfg.StateDir, sqliteFile), state.DefaultSnapshotName)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo, nil
	}

	format, err := state.ParseFormat(cfg.StateFormat)
	if err != nil {
		return nil, nil, err
	}
	return state.NewFileRepositoryFormat(cfg.StateDir, format), nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
