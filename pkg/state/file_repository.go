package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Format is an on-disk snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("state: unknown format %q", s)
	}
}

const stateFileBase = "snapshot"

// FileRepository implements Repository using a single file.
type FileRepository struct {
	dir    string
	format Format
}

// NewFileRepository creates a JSON FileRepository for the given directory.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir, format: FormatJSON}
}

// NewFileRepositoryFormat creates a FileRepository writing the given format.
func NewFileRepositoryFormat(dir string, format Format) *FileRepository {
	return &FileRepository{dir: dir, format: format}
}

// Load retrieves the last saved snapshot from disk.
// Returns an empty snapshot and nil error if no file exists.
func (r *FileRepository) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, err
	}

	snap := &Snapshot{}
	switch r.format {
	case FormatYAML:
		err = yaml.Unmarshal(data, snap)
	default:
		err = json.Unmarshal(data, snap)
	}
	if err != nil {
		return nil, fmt.Errorf("state: decode %s: %w", r.Path(), err)
	}
	return snap, nil
}

// Save persists the snapshot atomically.
// Uses atomic write (write to temp file, then rename) to prevent corruption.
func (r *FileRepository) Save(ctx context.Context, snap *Snapshot) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch r.format {
	case FormatYAML:
		data, err = yaml.Marshal(snap)
	default:
		data, err = json.MarshalIndent(snap, "", "  ")
	}
	if err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the snapshot file.
func (r *FileRepository) Path() string {
	return filepath.Join(r.dir, stateFileBase+"."+string(r.format))
}
