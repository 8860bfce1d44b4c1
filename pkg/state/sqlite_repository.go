package state

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DefaultSnapshotName is the row used by Load and Save.
const DefaultSnapshotName = "default"

// SQLiteRepository implements Repository on a SQLite database holding any
// number of named snapshots.
type SQLiteRepository struct {
	db   *sql.DB
	name string
}

// OpenSQLite creates or opens a snapshot database at path.
// Load and Save address the snapshot called name.
func OpenSQLite(path, name string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if name == "" {
		name = DefaultSnapshotName
	}
	return &SQLiteRepository{db: db, name: name}, nil
}

// Close closes the database connection.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Load retrieves the repository's named snapshot.
func (r *SQLiteRepository) Load(ctx context.Context) (*Snapshot, error) {
	return r.LoadNamed(ctx, r.name)
}

// Save stores snap under the repository's name.
func (r *SQLiteRepository) Save(ctx context.Context, snap *Snapshot) error {
	return r.SaveNamed(ctx, r.name, snap)
}

// LoadNamed retrieves the snapshot called name.
// Returns an empty snapshot and nil error if none exists.
func (r *SQLiteRepository) LoadNamed(ctx context.Context, name string) (*Snapshot, error) {
	var body []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT body FROM snapshots WHERE name = ?`, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	snap := &Snapshot{}
	if err := json.Unmarshal(body, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %q: %w", name, err)
	}
	return snap, nil
}

// SaveNamed stores snap under name, replacing any earlier snapshot.
func (r *SQLiteRepository) SaveNamed(ctx context.Context, name string, snap *Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, class, saved_at, body) VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			class = excluded.class,
			saved_at = excluded.saved_at,
			body = excluded.body`,
		name, snap.Class, snap.SavedAt.UTC().Format(time.RFC3339Nano), body)
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}

// Names lists the stored snapshot names in order.
func (r *SQLiteRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes the snapshot called name. Missing names are not an error.
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	return err
}
