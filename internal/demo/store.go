// Package demo handles SQLite persistence for offline practice runs
// recorded by the CLI.
package demo

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Session is one offline practice run scored with the client-validator
// economy.
type Session struct {
	ID         int64
	Competency string
	Score      float64
	Threshold  float64
	Level      string
	XP         int
	CreatedAt  time.Time
}

// Store wraps SQLite access for demo session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS demo_sessions (
			id INTEGER PRIMARY KEY,
			competency TEXT NOT NULL,
			score REAL NOT NULL,
			threshold REAL NOT NULL,
			level TEXT NOT NULL,
			xp INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_demo_sessions_created_at ON demo_sessions(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert stores a scored demo session and returns its id.
func (s *Store) Insert(ctx context.Context, sess Session) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO demo_sessions (competency, score, threshold, level, xp, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.Competency,
		sess.Score,
		sess.Threshold,
		sess.Level,
		sess.XP,
		sess.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns the most recent demo sessions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, competency, score, threshold, level, xp, created_at
		 FROM demo_sessions
		 ORDER BY created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var createdAt string
		if err := rows.Scan(&sess.ID, &sess.Competency, &sess.Score, &sess.Threshold, &sess.Level, &sess.XP, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}
		sess.CreatedAt = parsed
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
