// Package sqlite guarda el snapshot en una tabla de un archivo SQLite (modernc, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dropDatabas3/hellopos/internal/snapshot"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const schema = `CREATE TABLE IF NOT EXISTS snapshots (
	name TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Store implementa snapshot.Store. Varias instancias pueden compartir el archivo con distinto name.
type Store struct {
	db    *sql.DB
	name  string
	owned bool
}

// Open abre (o crea) el archivo y la tabla.
func Open(path, name string) (*Store, error) {
	if path == "" {
		path = "hellopos.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s, err := New(db, name)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New usa una conexión existente (p.ej. la del workbook sqlite). Close no la cierra.
func New(db *sql.DB, name string) (*Store, error) {
	if name == "" {
		name = snapshot.DefaultName
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create snapshots table: %w", err)
	}
	return &Store{db: db, name: name}, nil
}

func (s *Store) ReadBlob(ctx context.Context) ([]byte, error) {
	var b []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshots WHERE name = ?`, s.name).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}

func (s *Store) WriteBlob(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO snapshots(name, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		s.name, data, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

var _ snapshot.Store = (*Store)(nil)
