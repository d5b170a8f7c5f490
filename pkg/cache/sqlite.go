package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// ErrLocked is returned when another process holds the cache file.
var ErrLocked = errors.New("cache file is locked by another process")

// SQLiteStore persists institution entries in a SQLite file.
// A sibling .lock file keeps two runs from sharing one cache.
type SQLiteStore struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock() //nolint:errcheck // best effort on failure path
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS institutions (
			affiliation TEXT NOT NULL,
			country     TEXT NOT NULL,
			found       INTEGER NOT NULL,
			id          TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL DEFAULT '',
			stage       TEXT NOT NULL DEFAULT '',
			confidence  REAL NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL,
			PRIMARY KEY (affiliation, country)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()    //nolint:errcheck // best effort on failure path
			_ = lock.Unlock() //nolint:errcheck // best effort on failure path
			return nil, fmt.Errorf("prepare cache db: %w", err)
		}
	}

	return &SQLiteStore{db: db, lock: lock, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Load returns every stored entry.
func (s *SQLiteStore) Load(ctx context.Context) (map[Key]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT affiliation, country, found, id, name, stage, confidence FROM institutions`)
	if err != nil {
		return nil, fmt.Errorf("query institutions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only

	out := make(map[Key]Entry)
	for rows.Next() {
		var k Key
		var e Entry
		if err := rows.Scan(&k.Affiliation, &k.Country, &e.Found, &e.ID, &e.Name, &e.Stage, &e.Confidence); err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		out[k] = e
	}
	return out, rows.Err()
}

// Save inserts e for key. An existing row is kept unchanged.
func (s *SQLiteStore) Save(ctx context.Context, key Key, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO institutions (affiliation, country, found, id, name, stage, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		key.Affiliation, key.Country, e.Found, e.ID, e.Name, e.Stage, e.Confidence,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

// Close closes the database and releases the file lock.
func (s *SQLiteStore) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.db.Close(), s.lock.Unlock())
}
