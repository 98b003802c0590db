package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OpenTraceLab/OpenTraceSch/pkg/errors"
)

// CurrentSchemaVersion is the latest schema version.
const CurrentSchemaVersion = 1

// SQLiteStore keeps documents in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0600)

	return &SQLiteStore{db: db}, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return fmt.Errorf("failed to get user_version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS documents (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL UNIQUE,
		  text       TEXT NOT NULL,
		  size       INTEGER NOT NULL,
		  created_at INTEGER NOT NULL,
		  updated_at INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", 1)); err != nil {
			return fmt.Errorf("failed to set user_version: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, name, text string) (*Info, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, text, size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
		  text = excluded.text,
		  size = excluded.size,
		  updated_at = excluded.updated_at`,
		id, name, text, len(text), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("save %s: %w", name, err))
	}

	doc, err := s.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return &doc.Info, nil
}

func (s *SQLiteStore) Load(ctx context.Context, name string) (*Document, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}

	var doc Document
	var updated int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, text, size, updated_at FROM documents WHERE name = ?`, name,
	).Scan(&doc.ID, &doc.Name, &doc.Text, &doc.Size, &updated)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("schematic", name)
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("load %s: %w", name, err))
	}
	doc.UpdatedAt = time.UnixMilli(updated).UTC()
	return &doc, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, size, updated_at FROM documents ORDER BY name`)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("list documents: %w", err))
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var updated int64
		if err := rows.Scan(&info.ID, &info.Name, &info.Size, &updated); err != nil {
			return nil, errors.NewInternal(err)
		}
		info.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
