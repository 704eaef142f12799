// Package migrations embebe el esquema Postgres de hojas y snapshots.
// Todos los archivos son idempotentes (IF NOT EXISTS); se aplican en orden de nombre.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed *.sql
var FS embed.FS

// Execer lo que Apply necesita de un pool o conexión pgx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Files nombres de las migraciones en orden de aplicación.
func Files() ([]string, error) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Apply ejecuta todas las migraciones.
func Apply(ctx context.Context, db Execer) error {
	names, err := Files()
	if err != nil {
		return err
	}
	for _, n := range names {
		b, err := FS.ReadFile(n)
		if err != nil {
			return err
		}
		if _, err := db.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("migration %s: %w", n, err)
		}
	}
	return nil
}
