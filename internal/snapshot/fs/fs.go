// Package fs guarda el snapshot como un archivo local.
// Las escrituras pasan por atomicwrite: un lector nunca ve un snapshot a medio escribir.
package fs

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/dropDatabas3/hellopos/internal/snapshot"
	"github.com/dropDatabas3/hellopos/internal/util/atomicwrite"
)

// Store implementa snapshot.Store sobre un archivo.
type Store struct {
	path string
	perm iofs.FileMode
}

// New usa dir/name; dir vacío es el directorio actual.
func New(dir, name string) *Store {
	if name == "" {
		name = snapshot.DefaultName
	}
	return &Store{path: filepath.Join(dir, name), perm: 0o600}
}

// Path ruta absoluta o relativa del archivo.
func (s *Store) Path() string { return s.path }

func (s *Store) ReadBlob(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return b, nil
}

func (s *Store) WriteBlob(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return atomicwrite.AtomicWriteFile(s.path, data, s.perm)
}

func (s *Store) Close() error { return nil }

var _ snapshot.Store = (*Store)(nil)
