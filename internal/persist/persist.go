// Package persist is the file-backed persistence collaborator. It is
// only engaged when a data directory exists; otherwise the store runs
// memory-only. Saves are atomic (temp file + rename) and serialized
// through an exclusive lock file with stale-lock reclamation.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cairnmcp/cairn/internal/entity"
)

const (
	// DatabaseFile is the on-disk snapshot filename.
	DatabaseFile = "database.yaml"
	// LockFile guards the snapshot against concurrent writers.
	LockFile = "cairn.lock"
)

// ErrLocked means another live process holds the lock.
var ErrLocked = errors.New("persist: database is locked by another process")

// Config holds persistence configuration.
type Config struct {
	Dir        string
	StaleAfter time.Duration
}

// DefaultConfig returns the standard persistence configuration rooted
// at dir.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, StaleAfter: 10 * time.Minute}
}

// Store reads and writes database snapshots under a data directory.
type Store struct {
	cfg Config
}

// New creates a file-backed persistence store.
func New(cfg Config) *Store {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 10 * time.Minute
	}
	return &Store{cfg: cfg}
}

// Available reports whether the data directory exists, i.e. whether
// persistence is engaged at all.
func (s *Store) Available() bool {
	if s.cfg.Dir == "" {
		return false
	}
	info, err := os.Stat(s.cfg.Dir)
	return err == nil && info.IsDir()
}

// Load reads the on-disk snapshot. A missing file is not an error: it
// returns (nil, nil) and the caller starts fresh.
func (s *Store) Load() (*entity.Database, error) {
	data, err := os.ReadFile(s.databasePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: reading database: %w", err)
	}

	var db entity.Database
	if err := yaml.Unmarshal(data, &db); err != nil {
		return nil, fmt.Errorf("persist: parsing database: %w", err)
	}
	if db.Templates == nil {
		db.Templates = map[string]entity.Template{}
	}
	return &db, nil
}

// Save writes the database snapshot atomically under the exclusive
// lock. The write goes to a temp file first and is renamed into place
// so readers never observe a partial snapshot.
func (s *Store) Save(db *entity.Database) error {
	release, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer release()

	data, err := yaml.Marshal(db)
	if err != nil {
		return fmt.Errorf("persist: encoding database: %w", err)
	}

	tmp := s.databasePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("persist: writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.databasePath()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persist: publishing snapshot: %w", err)
	}
	return nil
}

func (s *Store) databasePath() string {
	return filepath.Join(s.cfg.Dir, DatabaseFile)
}

func (s *Store) lockPath() string {
	return filepath.Join(s.cfg.Dir, LockFile)
}
