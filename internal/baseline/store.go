// Package baseline persists named reference snapshots of the analyzer output
// and scores live metrics against them.
package baseline

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/structure.report/internal/vibration"
)

// Baseline is a named, persisted reference snapshot representing a
// presumed-healthy structural state.
type Baseline struct {
	Name      string                    `json:"name"`
	Snapshot  vibration.MetricsSnapshot `json:"snapshot"`
	CreatedAt time.Time                 `json:"created_at"`
}

// Store keeps baselines in a sqlite database, one row per name. Every write
// is a single transaction so records are atomic on crash.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the baseline database at path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorage, path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS baselines (
			name        TEXT PRIMARY KEY,
			snapshot    TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create persists the snapshot under name, silently overwriting an existing
// baseline of the same name and recording the creation timestamp.
func (s *Store) Create(name string, snapshot vibration.MetricsSnapshot) (*Baseline, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: encode snapshot: %v", ErrStorage, err)
	}

	created := time.Now().UTC()
	_, err = s.db.Exec(`
		INSERT INTO baselines (name, snapshot, created_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot,
			created_at = excluded.created_at;
	`, name, string(data), created)
	if err != nil {
		return nil, fmt.Errorf("%w: save baseline %q: %v", ErrStorage, name, err)
	}

	return &Baseline{Name: name, Snapshot: snapshot.Clone(), CreatedAt: created}, nil
}

// Load returns the stored baseline. A missing row or an unparsable snapshot
// both report ErrNotFound; a half-populated result is never returned.
func (s *Store) Load(name string) (*Baseline, error) {
	var raw string
	var created time.Time
	err := s.db.QueryRow(
		`SELECT snapshot, created_at FROM baselines WHERE name = ?`, name,
	).Scan(&raw, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load baseline %q: %v", ErrStorage, name, err)
	}

	var snapshot vibration.MetricsSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %q has malformed record: %v", ErrNotFound, name, err)
	}

	return &Baseline{Name: name, Snapshot: snapshot, CreatedAt: created}, nil
}

// List returns all known baseline names.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM baselines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: list baselines: %v", ErrStorage, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: scan baseline name: %v", ErrStorage, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list baselines: %v", ErrStorage, err)
	}
	return names, nil
}

// Reset deletes the named baseline. Deleting an absent name fails with
// ErrNotFound so repeated deletes surface operator mistakes.
func (s *Store) Reset(name string) error {
	res, err := s.db.Exec(`DELETE FROM baselines WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("%w: delete baseline %q: %v", ErrStorage, name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete baseline %q: %v", ErrStorage, name, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}
