package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteWriter appends match rows to a matches table, tagged with a run id.
type SQLiteWriter struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens or creates the output database at path.
func OpenSQLite(ctx context.Context, path, runID string) (*SQLiteWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		`CREATE TABLE IF NOT EXISTS matches (
			run_id       TEXT NOT NULL,
			row_index    INTEGER NOT NULL,
			input_name   TEXT NOT NULL,
			matched      INTEGER NOT NULL,
			author_id    TEXT NOT NULL DEFAULT '',
			name         TEXT NOT NULL DEFAULT '',
			url          TEXT NOT NULL DEFAULT '',
			hindex       TEXT NOT NULL DEFAULT '',
			affiliations TEXT NOT NULL DEFAULT '',
			confidence   REAL NOT NULL DEFAULT 0,
			stage        TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			PRIMARY KEY (run_id, row_index)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close() //nolint:errcheck // best effort on failure path
			return nil, fmt.Errorf("prepare output db: %w", err)
		}
	}
	return &SQLiteWriter{db: db, runID: runID}, nil
}

// Write inserts rows in a single transaction.
func (s *SQLiteWriter) Write(ctx context.Context, rows []Row) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // original error wins
		}
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO matches
		 (run_id, row_index, input_name, matched, author_id, name, url, hindex, affiliations, confidence, stage, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i := range rows {
		r := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			s.runID, r.Index, r.InputName, r.Matched, r.ID, r.MatchedName, r.URL, r.HIndex(),
			strings.Join(r.Affiliations, affiliationSep), r.Confidence, r.Stage, r.Error, now,
		); err != nil {
			return fmt.Errorf("insert row %d: %w", r.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteWriter) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
