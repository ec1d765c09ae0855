package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"scriptmerge/internal/graph"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS builds (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entry TEXT NOT NULL,
			mode TEXT NOT NULL,
			created_at TEXT NOT NULL,
			module_count INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS modules (
			build_id INTEGER NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			rel_path TEXT NOT NULL,
			abs_path TEXT NOT NULL,
			is_package INTEGER NOT NULL,
			size INTEGER NOT NULL,
			sha256 TEXT NOT NULL,
			PRIMARY KEY (build_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			build_id INTEGER NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			from_name TEXT NOT NULL,
			to_name TEXT NOT NULL,
			kind TEXT NOT NULL,
			line INTEGER NOT NULL,
			PRIMARY KEY (build_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_builds_entry ON builds(entry, id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveBuild(ctx context.Context, m *Manifest) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	// 1. Build row
	res, err := tx.ExecContext(ctx,
		`INSERT INTO builds (entry, mode, created_at, module_count) VALUES (?, ?, ?, ?)`,
		m.Entry, m.Mode, m.CreatedAt.UTC().Format(time.RFC3339Nano), len(m.Modules))
	if err != nil {
		return 0, fmt.Errorf("failed to insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	// 2. Modules in table order
	modStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO modules (build_id, seq, name, rel_path, abs_path, is_package, size, sha256)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer modStmt.Close()
	for i, mod := range m.Modules {
		if _, err := modStmt.ExecContext(ctx, id, i, mod.Name, mod.RelPath, mod.AbsPath, mod.IsPackage, mod.Size, mod.ContentHash); err != nil {
			return 0, fmt.Errorf("failed to insert module %s: %w", mod.Name, err)
		}
	}

	// 3. Edges
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (build_id, seq, from_name, to_name, kind, line)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer edgeStmt.Close()
	for i, e := range m.Edges {
		if _, err := edgeStmt.ExecContext(ctx, id, i, e.From, e.To, string(e.Kind), e.Line); err != nil {
			return 0, fmt.Errorf("failed to insert edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}

func (s *SQLiteStore) LatestBuild(ctx context.Context, entry string) (*Manifest, error) {
	m := &Manifest{Entry: entry}
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, created_at FROM builds WHERE entry = ? ORDER BY id DESC LIMIT 1`, entry,
	).Scan(&m.ID, &m.Mode, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("invalid build timestamp %q: %w", created, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, rel_path, abs_path, is_package, size, sha256
		FROM modules WHERE build_id = ? ORDER BY seq
	`, m.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r ModuleRecord
		if err := rows.Scan(&r.Name, &r.RelPath, &r.AbsPath, &r.IsPackage, &r.Size, &r.ContentHash); err != nil {
			return nil, err
		}
		m.Modules = append(m.Modules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx, `
		SELECT from_name, to_name, kind, line
		FROM edges WHERE build_id = ? ORDER BY seq
	`, m.ID)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e graph.Edge
		var kind string
		if err := edgeRows.Scan(&e.From, &e.To, &kind, &e.Line); err != nil {
			return nil, err
		}
		e.Kind = graph.EdgeKind(kind)
		m.Edges = append(m.Edges, e)
	}
	return m, edgeRows.Err()
}
