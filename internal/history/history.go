// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history indexes past runs in a local SQLite database so they can
// be listed and searched without re-reading every JSON artifact. The JSON
// artifact stays authoritative; the index stores metadata plus a pointer to
// the artifact pair.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/triad/internal/dispatch"
	"github.com/jeranaias/triad/internal/util"
)

// ErrNotFound is returned when no run matches the given id.
var ErrNotFound = errors.New("history: run not found")

// schema creates the runs table.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	prompt      TEXT NOT NULL,
	flag_token  TEXT NOT NULL,
	error_count INTEGER NOT NULL,
	critiqued   INTEGER NOT NULL,
	json_path   TEXT NOT NULL,
	html_path   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// RunMeta is one indexed run.
type RunMeta struct {
	ID         string
	CreatedAt  time.Time
	Prompt     string
	FlagToken  string
	ErrorCount int
	Critiqued  bool
	JSONPath   string
	HTMLPath   string
}

// Summary returns the first line of the prompt, truncated for listing.
func (m *RunMeta) Summary() string {
	return util.TruncateRunes(util.FirstLine(m.Prompt), 60)
}

// Store is the run index. Safe for concurrent use; SQLite serializes
// writers behind a single connection.
type Store struct {
	db      *sql.DB
	maxRuns int
}

// Open opens (or creates) the index database at path. maxRuns caps
// retention; zero disables pruning.
func Open(path string, maxRuns int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, maxRuns: maxRuns}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record indexes one completed run and its artifact paths, then prunes past
// the retention cap. Returns the assigned run id.
func (s *Store) Record(ctx context.Context, rec *dispatch.RunRecord, jsonPath, htmlPath string) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, prompt, flag_token, error_count, critiqued, json_path, html_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		rec.Timestamp.Unix(),
		rec.Prompt,
		rec.FlagToken,
		rec.ErrorCount(),
		boolToInt(rec.Critique != nil),
		jsonPath,
		htmlPath,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	if err := s.prune(ctx); err != nil {
		return id, fmt.Errorf("failed to prune history: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]RunMeta, error) {
	query := `SELECT id, created_at, prompt, flag_token, error_count, critiqued, json_path, html_path
		FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Search returns runs whose prompt contains the given substring,
// case-insensitive, newest first.
func (s *Store) Search(ctx context.Context, term string, limit int) ([]RunMeta, error) {
	query := `SELECT id, created_at, prompt, flag_token, error_count, critiqued, json_path, html_path
		FROM runs WHERE prompt LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id`
	args := []any{"%" + escapeLike(term) + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Get returns one run by id, or a unique id prefix.
func (s *Store) Get(ctx context.Context, id string) (*RunMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, prompt, flag_token, error_count, critiqued, json_path, html_path
		 FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 2`,
		id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	metas, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(metas) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &metas[0], nil
	default:
		return nil, fmt.Errorf("history: ambiguous id prefix %q", id)
	}
}

// Count returns the number of indexed runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

// prune deletes the oldest runs past the retention cap.
func (s *Store) prune(ctx context.Context) error {
	if s.maxRuns <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?
		)`, s.maxRuns)
	return err
}

// scanRuns reads RunMeta rows.
func scanRuns(rows *sql.Rows) ([]RunMeta, error) {
	var metas []RunMeta
	for rows.Next() {
		var m RunMeta
		var createdAt int64
		var critiqued int
		if err := rows.Scan(&m.ID, &createdAt, &m.Prompt, &m.FlagToken,
			&m.ErrorCount, &critiqued, &m.JSONPath, &m.HTMLPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0).UTC()
		m.Critiqued = critiqued != 0
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// escapeLike escapes LIKE metacharacters in user input.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
